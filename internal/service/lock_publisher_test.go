package service

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-netlock/internal/lock"
)

func TestEventFromChange(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	until := at.Add(time.Hour)
	ev := EventFromChange(lock.Change{
		RoomID: 103, Enabled: false, UnlockAt: &until, Reason: "exam",
		Cause: lock.CauseDisable, Actor: "ops@example.com", At: at,
	})
	assert.Equal(t, 103, ev.RoomID)
	assert.False(t, ev.Enabled)
	require.NotNil(t, ev.UnlockAt)
	assert.Equal(t, until, *ev.UnlockAt)
	assert.Equal(t, "disable", ev.Cause)
	assert.Equal(t, "ops@example.com", ev.Actor)
	assert.NotEmpty(t, ev.EventID)
}

func TestPublishDialFailure(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewLockPublisher("amqp://nowhere/")
	p.dial = func(string) (*amqp.Connection, error) { return nil, boom }

	err := p.PublishLockChange(context.Background(), lock.Change{RoomID: 11, Enabled: true, Cause: lock.CauseEnable, At: time.Now()})
	assert.ErrorIs(t, err, boom)
}
