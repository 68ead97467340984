package actuator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Simulated logs every call instead of touching hardware.  It records the
// last state applied per room so development setups and tests can inspect
// what the real network would look like.
type Simulated struct {
	mu    sync.Mutex
	state map[int]State
	calls int
	fail  error
}

func NewSimulated() *Simulated {
	return &Simulated{state: make(map[int]State)}
}

func (s *Simulated) SetNetworkState(ctx context.Context, roomID int, desired State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.fail != nil {
		err := s.fail
		s.mu.Unlock()
		return err
	}
	s.state[roomID] = desired
	s.calls++
	s.mu.Unlock()

	log.Info().Int("room_id", roomID).Str("desired", string(desired)).Msg("simulated network switch")
	return nil
}

// CheckNetwork reports the last state applied to roomID.
func (s *Simulated) CheckNetwork(ctx context.Context, roomID int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	st, ok := s.state[roomID]
	if !ok {
		return fmt.Sprintf("room %d: network never switched", roomID), nil
	}
	return fmt.Sprintf("room %d: network %s", roomID, st), nil
}

// StateOf returns the last state applied to roomID, or "" if none.
func (s *Simulated) StateOf(roomID int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[roomID]
}

// Calls is the number of successful SetNetworkState calls.
func (s *Simulated) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SetFailure makes every following call return err; nil restores success.
func (s *Simulated) SetFailure(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

var (
	_ Checker = (*Simulated)(nil)
	_ Checker = (*Ansible)(nil)
)
