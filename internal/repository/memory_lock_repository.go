package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// MemoryLockRepo is an in-process lock store.  State is lost on restart,
// so it is meant for development (LOCK_STORE=memory) and tests.
type MemoryLockRepo struct {
	mu    sync.RWMutex
	locks map[int]model.RoomLock
}

// NewMemoryLockRepo returns an empty in-memory store.
func NewMemoryLockRepo() *MemoryLockRepo {
	return &MemoryLockRepo{locks: make(map[int]model.RoomLock)}
}

func (r *MemoryLockRepo) EnsureRooms(_ context.Context, ids []int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.locks[id]; !ok {
			r.locks[id] = model.NewEnabledLock(id, now)
		}
	}
	return nil
}

func (r *MemoryLockRepo) Get(_ context.Context, roomID int) (model.RoomLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locks[roomID]
	if !ok {
		return model.RoomLock{}, ErrLockNotFound
	}
	return cloneLock(l), nil
}

func (r *MemoryLockRepo) List(_ context.Context) ([]model.RoomLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.RoomLock, 0, len(r.locks))
	for _, l := range r.locks {
		out = append(out, cloneLock(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (r *MemoryLockRepo) ListExpired(_ context.Context, now time.Time) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := []int{}
	for id, l := range r.locks {
		if l.Expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *MemoryLockRepo) Save(_ context.Context, l model.RoomLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[l.RoomID]; !ok {
		return ErrLockNotFound
	}
	r.locks[l.RoomID] = cloneLock(l)
	return nil
}

// cloneLock copies the pointer fields so callers never share them with the
// stored row.
func cloneLock(l model.RoomLock) model.RoomLock {
	if l.UnlockAt != nil {
		t := *l.UnlockAt
		l.UnlockAt = &t
	}
	if l.Reason != nil {
		s := *l.Reason
		l.Reason = &s
	}
	return l
}
