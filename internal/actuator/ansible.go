package actuator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const waitDelay = 2 * time.Second

// Ansible runs the network_on / network_off / check_network playbooks
// against a room.
// The playbooks receive the room number as the auditorium_number extra var.
type Ansible struct {
	Binary      string
	PlaybookDir string
}

func NewAnsible(playbookDir string) *Ansible {
	if playbookDir == "" {
		playbookDir = "./playbooks"
	}
	return &Ansible{Binary: "ansible-playbook", PlaybookDir: playbookDir}
}

// Playbook returns the playbook path used for desired.
func (a *Ansible) Playbook(desired State) string {
	name := "network_on.yaml"
	if desired == Off {
		name = "network_off.yaml"
	}
	return filepath.Join(a.PlaybookDir, name)
}

// SetNetworkState runs the playbook and waits for it.  The process is killed
// when ctx expires.
func (a *Ansible) SetNetworkState(ctx context.Context, roomID int, desired State) error {
	playbook := a.Playbook(desired)
	if _, err := a.run(ctx, playbook, roomID); err != nil {
		return err
	}
	log.Debug().Int("room_id", roomID).Str("playbook", playbook).Msg("playbook applied")
	return nil
}

// CheckNetwork runs check_network.yaml and returns its output.
func (a *Ansible) CheckNetwork(ctx context.Context, roomID int) (string, error) {
	return a.run(ctx, filepath.Join(a.PlaybookDir, "check_network.yaml"), roomID)
}

func (a *Ansible) run(ctx context.Context, playbook string, roomID int) (string, error) {
	cmd := exec.CommandContext(ctx, a.Binary, playbook, "-e", fmt.Sprintf("auditorium_number=%d", roomID))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children that inherit stderr must not keep Wait blocked past the kill
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s for room %d: %w", filepath.Base(playbook), roomID, ctxErr)
		}
		return "", fmt.Errorf("%s for room %d: %w: %s", filepath.Base(playbook), roomID, err, tail(stderr.String(), 512))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
