package model

import (
	"fmt"
	"math"
	"time"
)

// Room is one auditorium whose network is controlled as a unit.  Rooms are
// defined by the registry at startup and never change while the process
// runs.
//
// Fields:
//  ID     – stable room number (e.g. 11, 103).
//  Label  – display name shown to operators.
//  Points – floor-plan polygon, passed through to clients untouched.
type Room struct {
	ID     int    `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Points string `json:"points,omitempty" yaml:"points"`
}

// RoomLock is the authoritative network state of a single room as stored in
// the `room_locks` table.  Exactly one row exists per registered room.
//
// Fields:
//  RoomID    – room_locks.room_id, references Room.ID.
//  Enabled   – room_locks.enabled, true when the network is on.
//  UnlockAt  – room_locks.unlock_at (nullable), set only while disabled with a time bound.
//  Reason    – room_locks.reason (nullable), free text supplied on disable.
//  UpdatedAt – room_locks.updated_at, time of the last committed transition.
type RoomLock struct {
	RoomID    int        // room_locks.room_id
	Enabled   bool       // room_locks.enabled
	UnlockAt  *time.Time // room_locks.unlock_at (nullable)
	Reason    *string    // room_locks.reason (nullable)
	UpdatedAt time.Time  // room_locks.updated_at
}

// LockState names the three states of the per-room state machine.
type LockState string

const (
	StateEnabled            LockState = "ENABLED"
	StateDisabledTimed      LockState = "DISABLED_TIMED"
	StateDisabledIndefinite LockState = "DISABLED_INDEFINITE"
)

// State derives the state machine position from the stored columns.
func (l RoomLock) State() LockState {
	switch {
	case l.Enabled:
		return StateEnabled
	case l.UnlockAt != nil:
		return StateDisabledTimed
	default:
		return StateDisabledIndefinite
	}
}

// Expired reports whether a timed lock is due for release at now.
func (l RoomLock) Expired(now time.Time) bool {
	return !l.Enabled && l.UnlockAt != nil && !l.UnlockAt.After(now)
}

// Consistent reports whether the row satisfies unlock_at => disabled.
func (l RoomLock) Consistent() bool {
	return l.UnlockAt == nil || !l.Enabled
}

// NewEnabledLock returns the default row created for a room at startup.
func NewEnabledLock(roomID int, now time.Time) RoomLock {
	return RoomLock{RoomID: roomID, Enabled: true, UpdatedAt: now.UTC()}
}

// RoomStatus is the read projection served to observers.  UnlockAt is
// always UTC so clients never need to correct for a server timezone.
type RoomStatus struct {
	RoomID   int        `json:"room_id"`
	Label    string     `json:"label,omitempty"`
	Enabled  bool       `json:"enabled"`
	UnlockAt *time.Time `json:"unlock_at"`
	Reason   string     `json:"reason,omitempty"`
}

// StatusOf builds the observer projection of a lock row.
func StatusOf(room Room, l RoomLock) RoomStatus {
	st := RoomStatus{RoomID: room.ID, Label: room.Label, Enabled: l.Enabled}
	if l.UnlockAt != nil {
		t := l.UnlockAt.UTC()
		st.UnlockAt = &t
	}
	if l.Reason != nil {
		st.Reason = *l.Reason
	}
	return st
}

// MaxLockMinutes is the longest lock a time.Duration can hold.
const MaxLockMinutes = math.MaxInt64 / int64(time.Minute)

// LockSpan converts a disable duration in minutes to a time.Duration.  The
// bounds are checked before multiplying so a huge value cannot wrap into a
// negative span.  limit caps the result; zero means only MaxLockMinutes.
func LockSpan(minutes int, limit time.Duration) (time.Duration, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("duration must be a positive number of minutes: %w", ErrValidation)
	}
	ceiling := MaxLockMinutes
	if limit > 0 {
		ceiling = min(ceiling, int64(limit/time.Minute))
	}
	if int64(minutes) > ceiling {
		return 0, fmt.Errorf("duration exceeds %d minutes: %w", ceiling, ErrValidation)
	}
	return time.Duration(minutes) * time.Minute, nil
}
