// Package lock owns every state change of a room's network lock.
//
// A room is in one of three states: ENABLED, DISABLED_TIMED(unlock_at) or
// DISABLED_INDEFINITE.  Disable and Enable are valid from any state and the
// last writer wins.  Every transition calls the actuator first and commits
// to the store only when the actuator succeeded, so the stored state never
// claims something the network does not reflect.  Transitions of one room
// are serialized by a per-room mutex; different rooms proceed in parallel.
//
// The background sweep (Run) releases timed locks whose unlock_at has
// passed, exactly as an explicit Enable would.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/actuator"
	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/registry"
)

// MaxReasonLength bounds the free-text reason, matching the column size.
const MaxReasonLength = 255

// Store is the authoritative room → lock mapping.  The manager is the only
// writer.
type Store interface {
	EnsureRooms(ctx context.Context, ids []int, now time.Time) error
	Get(ctx context.Context, roomID int) (model.RoomLock, error)
	List(ctx context.Context) ([]model.RoomLock, error)
	ListExpired(ctx context.Context, now time.Time) ([]int, error)
	Save(ctx context.Context, l model.RoomLock) error
}

// Publisher receives every committed transition, one at a time and in
// commit order.  Failures are logged and never undo the transition.
type Publisher interface {
	PublishLockChange(ctx context.Context, c Change) error
}

// Cause says which operation produced a Change.
type Cause string

const (
	CauseDisable Cause = "disable"
	CauseEnable  Cause = "enable"
	CauseExpire  Cause = "expire"
)

// Change describes one committed transition.
type Change struct {
	RoomID   int
	Enabled  bool
	UnlockAt *time.Time
	Reason   string
	Cause    Cause
	Actor    string
	At       time.Time
}

// Config tunes the manager.  Zero values fall back to the defaults below.
type Config struct {
	// ActuatorTimeout bounds every actuator call.
	ActuatorTimeout time.Duration
	// SweepInterval is the period of the expiry sweep.
	SweepInterval time.Duration
	// MaxDuration caps a timed disable; zero means no cap.
	MaxDuration time.Duration
	// PublishTimeout bounds a single publish of a Change.
	PublishTimeout time.Duration
	// PublishQueue is the number of changes waiting for the publisher.
	PublishQueue int
}

const (
	DefaultActuatorTimeout = 8 * time.Second
	DefaultSweepInterval   = 5 * time.Second
	DefaultPublishTimeout  = 5 * time.Second
	DefaultPublishQueue    = 256
)

// DisableRequest carries the arguments of a disable.  A nil Minutes means
// an indefinite lock.
type DisableRequest struct {
	RoomID  int
	Minutes *int
	Reason  string
	Actor   string
}

// Manager enforces the lock state machine.
type Manager struct {
	rooms *registry.Registry
	store Store
	act   actuator.Actuator
	clock clockwork.Clock
	pub   Publisher
	cfg   Config

	roomMu map[int]*sync.Mutex
	ready  atomic.Bool

	pubOnce sync.Once
	events  chan Change

	// late receives the result of an actuator call the manager stopped
	// waiting for.
	late func(roomID int, desired actuator.State, err error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the real clock, typically with a fake one in tests.
func WithClock(c clockwork.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithPublisher registers the sink for committed transitions.
func WithPublisher(p Publisher) Option { return func(m *Manager) { m.pub = p } }

// NewManager wires a manager for the rooms of reg.  The manager rejects
// every call with model.ErrUnavailable until Load succeeds.
func NewManager(reg *registry.Registry, store Store, act actuator.Actuator, cfg Config, opts ...Option) *Manager {
	if cfg.ActuatorTimeout <= 0 {
		cfg.ActuatorTimeout = DefaultActuatorTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.PublishQueue <= 0 {
		cfg.PublishQueue = DefaultPublishQueue
	}
	m := &Manager{
		rooms:  reg,
		store:  store,
		act:    act,
		clock:  clockwork.NewRealClock(),
		cfg:    cfg,
		roomMu: make(map[int]*sync.Mutex, reg.Len()),
		late:   logLateResult,
	}
	// the room set is fixed, so the mutex map is never written after this
	for _, id := range reg.IDs() {
		m.roomMu[id] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load creates the missing rows for every registered room, repairs rows
// that violate unlock_at => disabled, and marks the manager ready.
func (m *Manager) Load(ctx context.Context) error {
	now := m.clock.Now().UTC()
	if err := m.store.EnsureRooms(ctx, m.rooms.IDs(), now); err != nil {
		return fmt.Errorf("ensure rooms: %w", err)
	}
	locks, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list locks: %w", err)
	}
	seen := make(map[int]bool, len(locks))
	for _, l := range locks {
		if !m.rooms.Has(l.RoomID) {
			log.Warn().Int("room_id", l.RoomID).Msg("lock row for unregistered room ignored")
			continue
		}
		seen[l.RoomID] = true
		if !l.Consistent() {
			log.Warn().Int("room_id", l.RoomID).Msg("enabled room had unlock_at set; clearing it")
			l.UnlockAt = nil
			l.UpdatedAt = now
			if err := m.store.Save(ctx, l); err != nil {
				return fmt.Errorf("repair room %d: %w", l.RoomID, err)
			}
		}
	}
	for _, id := range m.rooms.IDs() {
		if !seen[id] {
			return fmt.Errorf("room %d has no lock row after ensure", id)
		}
	}
	m.ready.Store(true)
	log.Info().Int("rooms", m.rooms.Len()).Msg("lock manager ready")
	return nil
}

// Ready reports whether Load has completed.
func (m *Manager) Ready() bool { return m.ready.Load() }

// SweepInterval is the configured sweep period.
func (m *Manager) SweepInterval() time.Duration { return m.cfg.SweepInterval }

// Disable switches the room's network off.  With Minutes set the lock
// expires at now+Minutes; otherwise it lasts until Enable.  Any earlier lock
// on the room is overwritten.
func (m *Manager) Disable(ctx context.Context, req DisableRequest) (model.RoomLock, error) {
	if err := m.precheck(req.RoomID); err != nil {
		return model.RoomLock{}, err
	}
	var span time.Duration
	if req.Minutes != nil {
		var err error
		if span, err = model.LockSpan(*req.Minutes, m.cfg.MaxDuration); err != nil {
			return model.RoomLock{}, err
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return model.RoomLock{}, fmt.Errorf("reason longer than %d characters: %w", MaxReasonLength, model.ErrValidation)
	}

	return m.transition(ctx, req.RoomID, CauseDisable, req.Actor, func(_ model.RoomLock, now time.Time) (model.RoomLock, bool) {
		next := model.RoomLock{RoomID: req.RoomID, Enabled: false, UpdatedAt: now}
		if req.Minutes != nil {
			at := now.Add(span)
			next.UnlockAt = &at
		}
		if reason != "" {
			next.Reason = &reason
		}
		return next, true
	})
}

// Enable switches the room's network on and clears any lock.
func (m *Manager) Enable(ctx context.Context, roomID int, actor string) (model.RoomLock, error) {
	if err := m.precheck(roomID); err != nil {
		return model.RoomLock{}, err
	}
	return m.transition(ctx, roomID, CauseEnable, actor, enablePlan)
}

// Check asks the actuator for a report on the room's network.  It changes
// nothing and does not wait for a running transition of the room.
func (m *Manager) Check(ctx context.Context, roomID int) (string, error) {
	if _, err := m.rooms.Lookup(roomID); err != nil {
		return "", err
	}
	checker, ok := m.act.(actuator.Checker)
	if !ok {
		return "", fmt.Errorf("actuator cannot check the network: %w", model.ErrActuator)
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ActuatorTimeout)
	defer cancel()
	out, err := checker.CheckNetwork(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("check room %d: %w: %w", roomID, model.ErrActuator, err)
	}
	return out, nil
}

func enablePlan(cur model.RoomLock, now time.Time) (model.RoomLock, bool) {
	return model.RoomLock{RoomID: cur.RoomID, Enabled: true, UpdatedAt: now}, true
}

func (m *Manager) precheck(roomID int) error {
	if !m.Ready() {
		return fmt.Errorf("lock manager not ready: %w", model.ErrUnavailable)
	}
	if _, err := m.rooms.Lookup(roomID); err != nil {
		return err
	}
	return nil
}

// plan computes the next row from the current one.  Returning false skips
// the transition without touching the actuator.
type plan func(cur model.RoomLock, now time.Time) (model.RoomLock, bool)

var errSkipped = errors.New("transition skipped")

// transition runs read → actuator → commit for one room under its mutex.
func (m *Manager) transition(ctx context.Context, roomID int, cause Cause, actor string, p plan) (model.RoomLock, error) {
	mu := m.roomMu[roomID]
	mu.Lock()

	// a caller that goes away mid-transition must not leave the actuator
	// applied and the commit skipped
	ctx = context.WithoutCancel(ctx)

	cur, err := m.store.Get(ctx, roomID)
	if err != nil {
		mu.Unlock()
		return model.RoomLock{}, fmt.Errorf("read room %d: %w: %w", roomID, model.ErrUnavailable, err)
	}
	now := m.clock.Now().UTC()
	next, ok := p(cur, now)
	if !ok {
		mu.Unlock()
		return cur, errSkipped
	}

	desired := actuator.On
	if !next.Enabled {
		desired = actuator.Off
	}
	if err := m.actuate(ctx, roomID, desired); err != nil {
		mu.Unlock()
		return cur, fmt.Errorf("switch room %d %s: %w: %w", roomID, desired, model.ErrActuator, err)
	}

	if err := m.store.Save(ctx, next); err != nil {
		m.compensate(ctx, cur, err)
		mu.Unlock()
		return cur, fmt.Errorf("commit room %d: %w: %w", roomID, model.ErrUnavailable, err)
	}
	// queued under the mutex so a room's changes are published in commit order
	m.publish(Change{
		RoomID:   roomID,
		Enabled:  next.Enabled,
		UnlockAt: next.UnlockAt,
		Reason:   derefString(next.Reason),
		Cause:    cause,
		Actor:    actor,
		At:       now,
	})
	mu.Unlock()

	log.Info().
		Int("room_id", roomID).
		Str("cause", string(cause)).
		Str("actor", actor).
		Bool("enabled", next.Enabled).
		Interface("unlock_at", next.UnlockAt).
		Msg("room lock committed")
	return next, nil
}

// actuate calls the actuator with the configured timeout.  An actuator that
// ignores its context still cannot hold the room mutex past the timeout.
func (m *Manager) actuate(ctx context.Context, roomID int, desired actuator.State) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ActuatorTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.act.SetNetworkState(ctx, roomID, desired) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		go func() { m.late(roomID, desired, <-done) }()
		return fmt.Errorf("actuator timed out after %s: %w", m.cfg.ActuatorTimeout, ctx.Err())
	}
}

// logLateResult reports an actuator call that outlived its timeout.  The
// room mutex is already released, so a late success may leave the network
// out of step with the store until the next transition of that room.
func logLateResult(roomID int, desired actuator.State, err error) {
	ev := log.Error().Int("room_id", roomID).Str("desired", string(desired))
	if err != nil {
		ev.Err(err).Msg("abandoned actuator call failed")
		return
	}
	ev.Msg("abandoned actuator call applied after timeout; network may disagree with stored state")
}

// compensate puts the network back to the state still recorded in the
// store after a failed commit.  Best effort: the failure is only logged.
func (m *Manager) compensate(ctx context.Context, cur model.RoomLock, commitErr error) {
	back := actuator.On
	if !cur.Enabled {
		back = actuator.Off
	}
	logger := log.Error().Err(commitErr).Int("room_id", cur.RoomID).Str("restore", string(back))
	if err := m.actuate(ctx, cur.RoomID, back); err != nil {
		logger.AnErr("restore_err", err).Msg("commit failed and network could not be restored")
		return
	}
	logger.Msg("commit failed; network restored to stored state")
}

// publish queues c for the single publisher worker, so changes leave in
// commit order.  A full queue drops the change with a warning rather than
// stall the caller.
func (m *Manager) publish(c Change) {
	if m.pub == nil {
		return
	}
	m.pubOnce.Do(func() {
		m.events = make(chan Change, m.cfg.PublishQueue)
		go m.publishLoop()
	})
	select {
	case m.events <- c:
	default:
		log.Warn().Int("room_id", c.RoomID).Str("cause", string(c.Cause)).Msg("publish queue full; lock change dropped")
	}
}

func (m *Manager) publishLoop() {
	for c := range m.events {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PublishTimeout)
		if err := m.pub.PublishLockChange(ctx, c); err != nil {
			log.Warn().Err(err).Int("room_id", c.RoomID).Str("cause", string(c.Cause)).Msg("publish lock change failed")
		}
		cancel()
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
