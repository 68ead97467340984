// Package registry holds the fixed, ordered set of rooms whose network the
// service controls.  The set is loaded once at startup and is read-only
// afterwards, so it is safe for concurrent use without locking.
package registry

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// Registry is an ordered room list with constant-time lookup by id.
type Registry struct {
	rooms []model.Room
	index map[int]int
}

type roomsFile struct {
	Rooms []model.Room `yaml:"rooms"`
}

// New validates rooms and builds a registry preserving their order.  Ids
// must be positive and unique, and at least one room is required.
func New(rooms []model.Room) (*Registry, error) {
	if len(rooms) == 0 {
		return nil, errors.New("registry: no rooms defined")
	}
	r := &Registry{
		rooms: make([]model.Room, 0, len(rooms)),
		index: make(map[int]int, len(rooms)),
	}
	for _, room := range rooms {
		if room.ID <= 0 {
			return nil, fmt.Errorf("registry: invalid room id %d", room.ID)
		}
		if _, dup := r.index[room.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate room id %d", room.ID)
		}
		if room.Label == "" {
			room.Label = fmt.Sprintf("%d", room.ID)
		}
		r.index[room.ID] = len(r.rooms)
		r.rooms = append(r.rooms, room)
	}
	return r, nil
}

// Load reads a YAML rooms file.  An empty path yields the default set.
//
//	rooms:
//	  - id: 11
//	    label: "УНЦ 11"
//	    points: "880,41 1186,41 1186,162 880,162"
func Load(path string) (*Registry, error) {
	if path == "" {
		return New(Default())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var f roomsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	return New(f.Rooms)
}

// Lookup returns the room with the given id or model.ErrUnknownRoom.
func (r *Registry) Lookup(id int) (model.Room, error) {
	i, ok := r.index[id]
	if !ok {
		return model.Room{}, fmt.Errorf("room %d: %w", id, model.ErrUnknownRoom)
	}
	return r.rooms[i], nil
}

// Has reports whether id is a registered room.
func (r *Registry) Has(id int) bool {
	_, ok := r.index[id]
	return ok
}

// Rooms returns a copy of the rooms in registry order.
func (r *Registry) Rooms() []model.Room {
	out := make([]model.Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// IDs returns the room ids in registry order.
func (r *Registry) IDs() []int {
	out := make([]int, len(r.rooms))
	for i, room := range r.rooms {
		out[i] = room.ID
	}
	return out
}

// Len is the number of registered rooms.
func (r *Registry) Len() int { return len(r.rooms) }
