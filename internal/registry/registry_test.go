package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

func TestDefaultRegistry(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 11, r.Len())
	assert.Equal(t, []int{11, 14, 15, 17, 19, 20, 23, 24, 103, 113, 262}, r.IDs())

	room, err := r.Lookup(103)
	require.NoError(t, err)
	assert.Equal(t, "103", room.Label)
	assert.True(t, r.Has(262))
}

func TestLookupUnknownRoom(t *testing.T) {
	r, err := New([]model.Room{{ID: 11}})
	require.NoError(t, err)

	_, err = r.Lookup(12)
	assert.True(t, errors.Is(err, model.ErrUnknownRoom))
	assert.False(t, r.Has(12))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]model.Room{{ID: 11}, {ID: 11}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]model.Room{{ID: 0}})
	assert.ErrorContains(t, err, "invalid room id")
}

func TestNewFillsMissingLabel(t *testing.T) {
	r, err := New([]model.Room{{ID: 7}})
	require.NoError(t, err)
	room, _ := r.Lookup(7)
	assert.Equal(t, "7", room.Label)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rooms.yaml")
	content := `rooms:
  - id: 14
    label: "Lab 14"
    points: "1,1 2,2"
  - id: 11
    label: "Lab 11"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{14, 11}, r.IDs())

	rooms := r.Rooms()
	assert.Equal(t, "1,1 2,2", rooms[0].Points)

	// Rooms returns a copy.
	rooms[0].Label = "changed"
	again, _ := r.Lookup(14)
	assert.Equal(t, "Lab 14", again.Label)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
