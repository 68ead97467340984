// Package status serves the read-only view of room locks to observers.
package status

import (
	"context"
	"fmt"

	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/registry"
)

// Reader is the read half of the lock store.
type Reader interface {
	Get(ctx context.Context, roomID int) (model.RoomLock, error)
	List(ctx context.Context) ([]model.RoomLock, error)
}

// Readiness reports whether the lock manager finished loading.
type Readiness interface {
	Ready() bool
}

type Service struct {
	rooms *registry.Registry
	store Reader
	ready Readiness
}

func New(rooms *registry.Registry, store Reader, ready Readiness) *Service {
	return &Service{rooms: rooms, store: store, ready: ready}
}

// Snapshot returns one entry per registered room in registry order.  It
// reads the store directly and never waits on an actuator.
func (s *Service) Snapshot(ctx context.Context) ([]model.RoomStatus, error) {
	if !s.ready.Ready() {
		return nil, fmt.Errorf("status not ready: %w", model.ErrUnavailable)
	}
	locks, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locks: %w: %w", model.ErrUnavailable, err)
	}
	byRoom := make(map[int]model.RoomLock, len(locks))
	for _, l := range locks {
		byRoom[l.RoomID] = l
	}

	rooms := s.rooms.Rooms()
	out := make([]model.RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		l, ok := byRoom[room.ID]
		if !ok {
			return nil, fmt.Errorf("room %d has no lock row: %w", room.ID, model.ErrUnavailable)
		}
		out = append(out, model.StatusOf(room, l))
	}
	return out, nil
}

// Room returns the status of a single room.
func (s *Service) Room(ctx context.Context, id int) (model.RoomStatus, error) {
	if !s.ready.Ready() {
		return model.RoomStatus{}, fmt.Errorf("status not ready: %w", model.ErrUnavailable)
	}
	room, err := s.rooms.Lookup(id)
	if err != nil {
		return model.RoomStatus{}, err
	}
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return model.RoomStatus{}, fmt.Errorf("read room %d: %w: %w", id, model.ErrUnavailable, err)
	}
	return model.StatusOf(room, l), nil
}
