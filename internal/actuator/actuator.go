// Package actuator switches the physical network of a room on or off.  The
// lock manager treats every implementation as an opaque, idempotent,
// side-effect-only call: it returns nil on success and an error otherwise,
// and it must honour context cancellation.
package actuator

import (
	"context"
	"fmt"
	"strings"
)

// State is the desired network state of a room.
type State string

const (
	On  State = "on"
	Off State = "off"
)

// Actuator applies a desired network state to a room.
//
// SetNetworkState must return promptly once ctx is done.  The lock manager
// stops waiting at its timeout and releases the room, so a call that keeps
// running past that point may switch the network behind a later transition.
type Actuator interface {
	SetNetworkState(ctx context.Context, roomID int, desired State) error
}

// Checker is implemented by actuators that can report what the network of
// a room currently looks like.  The report is free text for operators.
type Checker interface {
	CheckNetwork(ctx context.Context, roomID int) (string, error)
}

// Func adapts a plain function to the Actuator interface.
type Func func(ctx context.Context, roomID int, desired State) error

func (f Func) SetNetworkState(ctx context.Context, roomID int, desired State) error {
	return f(ctx, roomID, desired)
}

// Mode names the implementation selected by ACTUATOR_MODE.
const (
	ModeSimulated = "simulated"
	ModeAnsible   = "ansible"
)

// New builds the actuator configured by mode.  playbookDir is only used by
// the ansible mode.
func New(mode, playbookDir string) (Actuator, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeSimulated:
		return NewSimulated(), nil
	case ModeAnsible:
		return NewAnsible(playbookDir), nil
	default:
		return nil, fmt.Errorf("actuator: unknown mode %q", mode)
	}
}
