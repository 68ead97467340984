// Package reconciler keeps an observer's local view of room locks live
// between polls.
//
// Two timers run independently.  The poll timer fetches the authoritative
// snapshot and replaces the local view wholesale.  The countdown timer flips
// rooms whose unlock_at has passed to enabled ahead of the next poll; such
// rows are marked Predicted until a poll confirms or corrects them.
// Operator actions are applied locally before the server answers and are
// rolled back if the server rejects them.
package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

const (
	DefaultPollInterval      = 10 * time.Second
	DefaultCountdownInterval = time.Second
	DefaultRequestTimeout    = 15 * time.Second
)

// Source returns the authoritative snapshot.
type Source interface {
	Status(ctx context.Context) ([]model.RoomStatus, error)
}

// Actions submits operator actions and returns the server's message.
type Actions interface {
	Disable(ctx context.Context, roomID int, minutes *int, reason string) (string, error)
	Enable(ctx context.Context, roomID int) (string, error)
}

// Client is what a reconciler talks to; the HTTP client implements it.
type Client interface {
	Source
	Actions
}

// Room is one row of the local view.
type Room struct {
	RoomID    int
	Label     string
	Enabled   bool
	UnlockAt  *time.Time
	Reason    string
	Predicted bool
	// Remaining is the time left on a timed lock, zero otherwise.  Only
	// filled in by Snapshot.
	Remaining time.Duration
}

type Config struct {
	PollInterval      time.Duration
	CountdownInterval time.Duration
	// RequestTimeout bounds each poll and action request.
	RequestTimeout time.Duration
}

type Option func(*Reconciler)

func WithClock(c clockwork.Clock) Option { return func(r *Reconciler) { r.clock = c } }

// WithOnChange registers a callback receiving the local view after every
// change.  It runs outside the reconciler's lock.
func WithOnChange(fn func([]Room)) Option { return func(r *Reconciler) { r.onChange = fn } }

// WithOnError registers a callback receiving every poll error.
func WithOnError(fn func(error)) Option { return func(r *Reconciler) { r.onError = fn } }

type entry struct {
	room    Room
	version uint64
}

type Reconciler struct {
	client   Client
	clock    clockwork.Clock
	cfg      Config
	onChange func([]Room)
	onError  func(error)

	mu       sync.Mutex
	order    []int
	rooms    map[int]*entry
	version  uint64
	failures int
	lastErr  error
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(client Client, cfg Config, opts ...Option) *Reconciler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = DefaultCountdownInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	r := &Reconciler{
		client: client,
		clock:  clockwork.NewRealClock(),
		cfg:    cfg,
		rooms:  make(map[int]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs the first poll immediately and then both timers until Stop is
// called or ctx is done.  Start on a started reconciler is a no-op.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	pollTicker := r.clock.NewTicker(r.cfg.PollInterval)
	countTicker := r.clock.NewTicker(r.cfg.CountdownInterval)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer pollTicker.Stop()
		_ = r.Poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-pollTicker.Chan():
				_ = r.Poll(ctx)
			}
		}
	}()
	go func() {
		defer r.wg.Done()
		defer countTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-countTicker.Chan():
				r.Tick()
			}
		}
	}()
}

// Stop cancels both timers.  A poll or action already in flight runs to
// completion but its result is discarded.  Stop does not wait for it.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until both timer loops have exited after Stop.
func (r *Reconciler) Wait() { r.wg.Wait() }

// Poll fetches the snapshot once and replaces the local view.  On failure
// the last known view is kept and the failure counter grows.
func (r *Reconciler) Poll(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RequestTimeout)
	defer cancel()
	snap, err := r.client.Status(reqCtx)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		r.failures++
		r.lastErr = err
		failures := r.failures
		r.mu.Unlock()

		log.Debug().Err(err).Int("failures", failures).Msg("status poll failed")
		if r.onError != nil {
			r.onError(err)
		}
		return err
	}

	r.failures = 0
	r.lastErr = nil
	r.order = r.order[:0]
	next := make(map[int]*entry, len(snap))
	for _, st := range snap {
		r.version++
		next[st.RoomID] = &entry{room: fromStatus(st), version: r.version}
		r.order = append(r.order, st.RoomID)
	}
	r.rooms = next
	view := r.snapshotLocked()
	r.mu.Unlock()

	r.notify(view)
	return nil
}

// Tick flips every timed lock whose unlock_at has passed to a predicted
// enabled row.
func (r *Reconciler) Tick() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	now := r.clock.Now()
	changed := false
	for _, id := range r.order {
		e := r.rooms[id]
		if e.room.Enabled || e.room.UnlockAt == nil || now.Before(*e.room.UnlockAt) {
			continue
		}
		e.room.Enabled = true
		e.room.UnlockAt = nil
		e.room.Reason = ""
		e.room.Predicted = true
		r.version++
		e.version = r.version
		changed = true
	}
	var view []Room
	if changed {
		view = r.snapshotLocked()
	}
	r.mu.Unlock()

	if changed {
		r.notify(view)
	}
}

// Disable applies the lock locally and submits it.  A nil minutes means an
// indefinite lock.  If the server rejects it the room goes back to what it
// showed before, unless a poll replaced it in the meantime.
func (r *Reconciler) Disable(ctx context.Context, roomID int, minutes *int, reason string) (string, error) {
	var span time.Duration
	if minutes != nil {
		var err error
		if span, err = model.LockSpan(*minutes, 0); err != nil {
			return "", err
		}
	}
	return r.act(ctx, roomID, func(room *Room, now time.Time) {
		room.Enabled = false
		room.UnlockAt = nil
		if minutes != nil {
			at := now.Add(span)
			room.UnlockAt = &at
		}
		room.Reason = reason
	}, func(ctx context.Context) (string, error) {
		return r.client.Disable(ctx, roomID, minutes, reason)
	})
}

// Enable clears the lock locally and submits it.
func (r *Reconciler) Enable(ctx context.Context, roomID int) (string, error) {
	return r.act(ctx, roomID, func(room *Room, _ time.Time) {
		room.Enabled = true
		room.UnlockAt = nil
		room.Reason = ""
	}, func(ctx context.Context) (string, error) {
		return r.client.Enable(ctx, roomID)
	})
}

func (r *Reconciler) act(ctx context.Context, roomID int, apply func(*Room, time.Time), send func(context.Context) (string, error)) (string, error) {
	var (
		prev    Room
		mine    uint64
		tracked bool
		view    []Room
	)
	r.mu.Lock()
	if e, ok := r.rooms[roomID]; ok && !r.stopped {
		prev = e.room
		apply(&e.room, r.clock.Now())
		e.room.Predicted = true
		r.version++
		e.version = r.version
		mine = e.version
		tracked = true
		view = r.snapshotLocked()
	}
	r.mu.Unlock()
	if tracked {
		r.notify(view)
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RequestTimeout)
	defer cancel()
	msg, err := send(reqCtx)
	if err == nil || !tracked {
		return msg, err
	}

	r.mu.Lock()
	reverted := false
	if e, ok := r.rooms[roomID]; ok && !r.stopped && e.version == mine {
		e.room = prev
		r.version++
		e.version = r.version
		reverted = true
		view = r.snapshotLocked()
	}
	r.mu.Unlock()
	if reverted {
		r.notify(view)
	}
	return "", err
}

// Snapshot returns a copy of the local view in server order with Remaining
// computed against the local clock.
func (r *Reconciler) Snapshot() []Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() []Room {
	now := r.clock.Now()
	out := make([]Room, 0, len(r.order))
	for _, id := range r.order {
		room := r.rooms[id].room
		if room.UnlockAt != nil {
			at := *room.UnlockAt
			room.UnlockAt = &at
			if !room.Enabled && at.After(now) {
				room.Remaining = at.Sub(now)
			}
		}
		out = append(out, room)
	}
	return out
}

// Failures is the number of consecutive failed polls.
func (r *Reconciler) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// LastError is the error of the most recent poll, nil after a success.
func (r *Reconciler) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Unauthorized reports whether the last poll was rejected for credentials.
func (r *Reconciler) Unauthorized() bool {
	return errors.Is(r.LastError(), model.ErrUnauthorized)
}

func (r *Reconciler) notify(view []Room) {
	if r.onChange != nil {
		r.onChange(view)
	}
}

func fromStatus(st model.RoomStatus) Room {
	room := Room{RoomID: st.RoomID, Label: st.Label, Enabled: st.Enabled, Reason: st.Reason}
	if st.UnlockAt != nil {
		at := st.UnlockAt.UTC()
		room.UnlockAt = &at
	}
	return room
}
