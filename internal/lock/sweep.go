package lock

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// Sweep releases every timed lock whose unlock_at is at or before now and
// returns the released room ids.  A room whose actuator call fails is
// logged and left locked; the next tick retries it.  Each room is re-read
// under its mutex, so a lock refreshed by an operator between the listing
// and the release is left alone.
func (m *Manager) Sweep(ctx context.Context) []int {
	if !m.Ready() {
		return nil
	}
	now := m.clock.Now().UTC()
	ids, err := m.store.ListExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("sweep: list expired locks")
		return nil
	}
	released := make([]int, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if !m.rooms.Has(id) {
			continue
		}
		_, err := m.transition(ctx, id, CauseExpire, "sweep", expirePlan)
		switch {
		case err == nil:
			released = append(released, id)
		case errors.Is(err, errSkipped):
			log.Debug().Int("room_id", id).Msg("sweep: lock changed before release")
		default:
			log.Warn().Err(err).Int("room_id", id).Msg("sweep: release failed, retrying next tick")
		}
	}
	return released
}

// expirePlan behaves like enable, but only for a lock that is still due.
func expirePlan(cur model.RoomLock, now time.Time) (model.RoomLock, bool) {
	if !cur.Expired(now) {
		return cur, false
	}
	return enablePlan(cur, now)
}

// Run sweeps once immediately, to release locks that expired while the
// process was down, then on every SweepInterval tick until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	m.Sweep(ctx)
	ticker := m.clock.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	log.Info().Dur("interval", m.cfg.SweepInterval).Msg("expiry sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry sweep stopped")
			return nil
		case <-ticker.Chan():
			if released := m.Sweep(ctx); len(released) > 0 {
				log.Info().Ints("rooms", released).Msg("sweep released expired locks")
			}
		}
	}
}
