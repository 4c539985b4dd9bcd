package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Manager provides access to the loaded worlds. Rooms are keyed by
// (world, room) because room IDs are only unique within a world.
type Manager struct {
	mu     sync.RWMutex
	worlds map[string]*World
}

// NewManager creates a Manager from the given worlds.
//
// Precondition: worlds must contain at least one world.
// Postcondition: Returns a Manager, or an error on duplicate world IDs.
func NewManager(worlds []*World) (*Manager, error) {
	if len(worlds) == 0 {
		return nil, fmt.Errorf("at least one world is required")
	}
	m := &Manager{worlds: make(map[string]*World, len(worlds))}
	for _, w := range worlds {
		if _, exists := m.worlds[w.ID]; exists {
			return nil, fmt.Errorf("duplicate world ID: %q", w.ID)
		}
		m.worlds[w.ID] = w
	}
	return m, nil
}

// World returns the world with the given ID.
//
// Postcondition: Returns (world, true) if found, or (nil, false) otherwise.
func (m *Manager) World(id string) (*World, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[id]
	return w, ok
}

// Worlds returns all loaded worlds in stable (ID-sorted) order.
func (m *Manager) Worlds() []*World {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*World, 0, len(m.worlds))
	for _, w := range m.worlds {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Room resolves a (world, room) pair to its descriptor.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (m *Manager) Room(worldID, roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[worldID]
	if !ok {
		return nil, false
	}
	r, ok := w.Rooms[roomID]
	return r, ok
}

// Navigate resolves movement from a room in a direction.
//
// Precondition: (worldID, fromRoomID) must exist.
// Postcondition: Returns the destination room, or an error if the exit or
// its target is missing.
func (m *Manager) Navigate(worldID, fromRoomID string, dir Direction) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.worlds[worldID]
	if !ok {
		return nil, fmt.Errorf("world %q not found", worldID)
	}
	from, ok := w.Rooms[fromRoomID]
	if !ok {
		return nil, fmt.Errorf("room %q not found in world %q", fromRoomID, worldID)
	}
	exit, ok := from.ExitForDirection(dir)
	if !ok {
		return nil, fmt.Errorf("no exit %q from %q", dir, fromRoomID)
	}
	target, ok := w.Rooms[exit.TargetRoom]
	if !ok {
		return nil, fmt.Errorf("exit %q from %q targets unknown room %q", dir, fromRoomID, exit.TargetRoom)
	}
	return target, nil
}

// DungeonByEntry returns the dungeon whose entry command matches the given
// token from the given room, if any. Used as the command-dispatch fallback
// after exit-name matching fails.
//
// Postcondition: Returns (dungeon, true) only when the player stands in the
// dungeon's entry room and the token matches its entry command.
func (m *Manager) DungeonByEntry(worldID, roomID, token string) (*Dungeon, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.worlds[worldID]
	if !ok {
		return nil, false
	}
	token = strings.ToLower(token)
	for _, d := range w.Dungeons {
		if d.EntryRoom == roomID && d.EntryCommand == token {
			return d, true
		}
	}
	return nil, false
}

// DungeonExitRoom returns the overworld room a player leaves to when exiting
// the dungeon containing the given room.
//
// Postcondition: Returns ("", false) when the room is not a dungeon room.
func (m *Manager) DungeonExitRoom(worldID, roomID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.worlds[worldID]
	if !ok {
		return "", false
	}
	room, ok := w.Rooms[roomID]
	if !ok || room.DungeonID == "" {
		return "", false
	}
	d, ok := w.Dungeons[room.DungeonID]
	if !ok {
		return "", false
	}
	return d.EntryRoom, true
}

// HubRoom returns the safe hub room ID for a world, falling back to the
// start room.
//
// Postcondition: Returns ("", false) for unknown worlds.
func (m *Manager) HubRoom(worldID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.worlds[worldID]
	if !ok {
		return "", false
	}
	return w.Hub(), true
}

// RoomCount returns the total number of rooms across all worlds.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, w := range m.worlds {
		n += len(w.Rooms)
	}
	return n
}
