package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-netlock/internal/model"
	"github.com/iliyamo/auditorium-netlock/internal/reconciler"
)

func TestParseRoom(t *testing.T) {
	id, err := parseRoom("103")
	require.NoError(t, err)
	assert.Equal(t, 103, id)

	for _, bad := range []string{"", "abc", "0", "-4"} {
		_, err := parseRoom(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0s", formatRemaining(0))
	assert.Equal(t, "45s", formatRemaining(45*time.Second))
	assert.Equal(t, "1m00s", formatRemaining(time.Minute))
	assert.Equal(t, "2h05m09s", formatRemaining(2*time.Hour+5*time.Minute+9*time.Second))
}

func TestRenderRooms(t *testing.T) {
	until := time.Date(2026, 5, 4, 10, 1, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderRooms(&buf, []reconciler.Room{
		{RoomID: 11, Label: "УНЦ 11", UnlockAt: &until, Remaining: 30 * time.Second, Reason: "exam"},
		{RoomID: 14, Label: "УНЦ 14", Enabled: true},
		{RoomID: 15, Label: "УНЦ 15"},
		{RoomID: 17, Label: "УНЦ 17", Enabled: true, Predicted: true},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "ROOM")
	assert.Contains(t, lines[1], "2026-05-04T10:01:00Z")
	assert.Contains(t, lines[1], "30s")
	assert.Contains(t, lines[1], "exam")
	assert.Contains(t, lines[2], "on")
	assert.Contains(t, lines[3], "indefinite")
	assert.Contains(t, lines[4], "УНЦ 17 *")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 12))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestHasTimedLock(t *testing.T) {
	until := time.Now().Add(time.Minute)
	assert.False(t, hasTimedLock(nil))
	assert.False(t, hasTimedLock([]reconciler.Room{{RoomID: 1, Enabled: true}, {RoomID: 2}}))
	assert.True(t, hasTimedLock([]reconciler.Room{{RoomID: 1, UnlockAt: &until}}))
}

// stubAPI serves a fixed snapshot and records the actions it receives.
type stubAPI struct {
	mu        sync.Mutex
	rooms     []model.RoomStatus
	statusErr error
	actionErr error
	actions   []string
}

func (a *stubAPI) Status(context.Context) ([]model.RoomStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rooms, a.statusErr
}

func (a *stubAPI) Disable(_ context.Context, roomID int, _ *int, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, "disable")
	if a.actionErr != nil {
		return "", a.actionErr
	}
	return "room 11 disabled until 2026-05-04T10:30:00Z", nil
}

func (a *stubAPI) Enable(_ context.Context, roomID int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, "enable")
	if a.actionErr != nil {
		return "", a.actionErr
	}
	return "room 11 enabled", nil
}

func disableFor(minutes int) func(context.Context, *reconciler.Reconciler) (string, error) {
	return func(ctx context.Context, rec *reconciler.Reconciler) (string, error) {
		return rec.Disable(ctx, 11, &minutes, "exam")
	}
}

func TestRunActionShowsOptimisticRow(t *testing.T) {
	api := &stubAPI{rooms: []model.RoomStatus{{RoomID: 11, Label: "УНЦ 11", Enabled: true}, {RoomID: 14, Label: "УНЦ 14", Enabled: true}}}
	rec := reconciler.New(api, reconciler.Config{}, reconciler.WithClock(clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))))

	var buf bytes.Buffer
	require.NoError(t, runAction(context.Background(), &buf, rec, 11, disableFor(30)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "room 11 disabled until 2026-05-04T10:30:00Z", lines[0])
	assert.Contains(t, lines[2], "УНЦ 11")
	assert.Contains(t, lines[2], "2026-05-04T10:30:00Z")
	assert.Contains(t, lines[2], "exam")
	assert.NotContains(t, buf.String(), "УНЦ 14")
	assert.Equal(t, []string{"disable"}, api.actions)
}

func TestRunActionRevertsOnRejection(t *testing.T) {
	api := &stubAPI{
		rooms:     []model.RoomStatus{{RoomID: 11, Enabled: true}},
		actionErr: model.ErrActuator,
	}
	rec := reconciler.New(api, reconciler.Config{}, reconciler.WithClock(clockwork.NewFakeClock()))

	var buf bytes.Buffer
	err := runAction(context.Background(), &buf, rec, 11, disableFor(30))
	assert.ErrorIs(t, err, model.ErrActuator)
	assert.Empty(t, buf.String())
	assert.True(t, rec.Snapshot()[0].Enabled)
}

func TestRunActionSendsWhenPollFails(t *testing.T) {
	api := &stubAPI{statusErr: errors.New("connection refused")}
	rec := reconciler.New(api, reconciler.Config{}, reconciler.WithClock(clockwork.NewFakeClock()))

	var buf bytes.Buffer
	err := runAction(context.Background(), &buf, rec, 11, func(ctx context.Context, rec *reconciler.Reconciler) (string, error) {
		return rec.Enable(ctx, 11)
	})
	require.NoError(t, err)
	assert.Equal(t, "room 11 enabled\n", buf.String())
	assert.Equal(t, []string{"enable"}, api.actions)
}
