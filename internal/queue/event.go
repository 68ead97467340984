// Package queue defines the lock-change event exchanged over the message
// broker and the consumer that writes those events to an audit log.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LockQueueName is the durable queue that carries LockChangedEvent bodies.
const LockQueueName = "room.lock.changed"

// LockChangedEvent is published after every committed room transition.  It
// carries the full new state so consumers never need to query the store.
type LockChangedEvent struct {
	EventID  string     `json:"event_id"`
	RoomID   int        `json:"room_id"`
	Enabled  bool       `json:"enabled"`
	UnlockAt *time.Time `json:"unlock_at"`
	Reason   string     `json:"reason,omitempty"`
	Cause    string     `json:"cause"`
	Actor    string     `json:"actor,omitempty"`
	At       time.Time  `json:"at"`
}

// NewLockChangedEvent stamps a fresh event id.  Times are normalised to UTC.
func NewLockChangedEvent(roomID int, enabled bool, unlockAt *time.Time, reason, cause, actor string, at time.Time) LockChangedEvent {
	ev := LockChangedEvent{
		EventID: uuid.NewString(),
		RoomID:  roomID,
		Enabled: enabled,
		Reason:  reason,
		Cause:   cause,
		Actor:   actor,
		At:      at.UTC(),
	}
	if unlockAt != nil {
		t := unlockAt.UTC()
		ev.UnlockAt = &t
	}
	return ev
}

// Line renders the event as one audit log line.
func (ev LockChangedEvent) Line() string {
	state := "on"
	if !ev.Enabled {
		state = "off"
	}
	until := "-"
	if ev.UnlockAt != nil {
		until = ev.UnlockAt.Format(time.RFC3339)
	}
	actor := ev.Actor
	if actor == "" {
		actor = "system"
	}
	return fmt.Sprintf("[%s] room %d network=%s | cause=%s | until=%s | actor=%s | reason=%q | event_id=%s\n",
		ev.At.Format(time.RFC3339), ev.RoomID, state, ev.Cause, until, actor, ev.Reason, ev.EventID)
}
