package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSpan(t *testing.T) {
	span, err := LockSpan(90, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, span)

	span, err = LockSpan(int(MaxLockMinutes), 0)
	require.NoError(t, err)
	assert.Positive(t, span)

	for _, tc := range []struct {
		minutes int
		limit   time.Duration
	}{
		{0, 0},
		{-1, time.Hour},
		{61, time.Hour},
		{153722868, 7 * 24 * time.Hour},
		{153722868, 0},
		{int(MaxLockMinutes) + 1, 0},
	} {
		_, err := LockSpan(tc.minutes, tc.limit)
		assert.True(t, errors.Is(err, ErrValidation), "minutes %d limit %s", tc.minutes, tc.limit)
	}
}
