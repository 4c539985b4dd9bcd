package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Directory errors.
var (
	ErrNameOnline     = errors.New("directory: character already online")
	ErrPlayerNotFound = errors.New("directory: player not found")
)

// Presence is the directory's public view of a connected player, used for
// who listings and inspect.
type Presence struct {
	Name       string
	Level      int
	Class      string
	Race       string
	WorldID    string
	RoomID     string
	AFK        bool
	AFKMessage string
}

type roomKey struct {
	worldID string
	roomID  string
}

type entry struct {
	presence Presence
	outbox   *Outbox
	channels map[string]bool
}

// Directory tracks all connected players and room occupancy.
// All methods are safe for concurrent use. Names are matched
// case-insensitively; one session per character name.
type Directory struct {
	mu       sync.RWMutex
	players  map[string]*entry           // lowercased name → entry
	roomSets map[roomKey]map[string]bool // room → set of lowercased names
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		players:  make(map[string]*entry),
		roomSets: make(map[roomKey]map[string]bool),
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register reserves the character name and returns the new session's
// outbox.
//
// Precondition: p.Name, p.WorldID, and p.RoomID must be non-empty.
// Postcondition: The player occupies their room, or ErrNameOnline if the
// name is already connected.
func (d *Directory) Register(p Presence, bufferSize int) (*Outbox, error) {
	key := nameKey(p.Name)
	if key == "" {
		return nil, fmt.Errorf("directory: empty player name")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.players[key]; exists {
		return nil, ErrNameOnline
	}

	e := &entry{
		presence: p,
		outbox:   NewOutbox(p.Name, bufferSize),
		channels: make(map[string]bool),
	}
	d.players[key] = e
	d.addToRoomLocked(key, roomKey{p.WorldID, p.RoomID})
	return e.outbox, nil
}

// Unregister removes a player, closing their outbox.
func (d *Directory) Unregister(name string) error {
	key := nameKey(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.players[key]
	if !exists {
		return ErrPlayerNotFound
	}
	d.removeFromRoomLocked(key, roomKey{e.presence.WorldID, e.presence.RoomID})
	_ = e.outbox.Close()
	delete(d.players, key)
	return nil
}

// Move relocates a player to a new room and returns the previous room ID.
func (d *Directory) Move(name, worldID, roomID string) (string, error) {
	key := nameKey(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.players[key]
	if !exists {
		return "", ErrPlayerNotFound
	}
	oldRoom := e.presence.RoomID
	d.removeFromRoomLocked(key, roomKey{e.presence.WorldID, e.presence.RoomID})
	e.presence.WorldID = worldID
	e.presence.RoomID = roomID
	d.addToRoomLocked(key, roomKey{worldID, roomID})
	return oldRoom, nil
}

func (d *Directory) addToRoomLocked(key string, rk roomKey) {
	if d.roomSets[rk] == nil {
		d.roomSets[rk] = make(map[string]bool)
	}
	d.roomSets[rk][key] = true
}

func (d *Directory) removeFromRoomLocked(key string, rk roomKey) {
	if rs, ok := d.roomSets[rk]; ok {
		delete(rs, key)
		if len(rs) == 0 {
			delete(d.roomSets, rk)
		}
	}
}

// UpdatePresence applies fn to the player's presence under the directory
// lock. Location changes must go through Move, so fn's world/room edits are
// ignored.
func (d *Directory) UpdatePresence(name string, fn func(*Presence)) error {
	key := nameKey(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.players[key]
	if !exists {
		return ErrPlayerNotFound
	}
	worldID, roomID := e.presence.WorldID, e.presence.RoomID
	fn(&e.presence)
	e.presence.WorldID = worldID
	e.presence.RoomID = roomID
	return nil
}

// Lookup returns a player's presence by name.
func (d *Directory) Lookup(name string) (Presence, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.players[nameKey(name)]
	if !ok {
		return Presence{}, false
	}
	return e.presence, true
}

// NamesInRoom returns the display names of players in a room, excluding
// exclude (matched case-insensitively), sorted.
func (d *Directory) NamesInRoom(worldID, roomID, exclude string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rs, ok := d.roomSets[roomKey{worldID, roomID}]
	if !ok {
		return nil
	}
	exclKey := nameKey(exclude)
	names := make([]string, 0, len(rs))
	for key := range rs {
		if key == exclKey {
			continue
		}
		if e, ok := d.players[key]; ok {
			names = append(names, e.presence.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Who returns every connected player's presence, sorted by name.
func (d *Directory) Who() []Presence {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Presence, 0, len(d.players))
	for _, e := range d.players {
		out = append(out, e.presence)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of connected players.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.players)
}

// Deliver pushes a line to a single player. Delivery is best-effort.
func (d *Directory) Deliver(name, line string) error {
	d.mu.RLock()
	e, ok := d.players[nameKey(name)]
	d.mu.RUnlock()
	if !ok {
		return ErrPlayerNotFound
	}
	return e.outbox.Push(line)
}

// BroadcastRoom pushes a line to every player in a room except exclude.
// Full or closed outboxes are skipped; a slow reader never blocks the
// broadcaster.
func (d *Directory) BroadcastRoom(worldID, roomID, line, exclude string) {
	for _, o := range d.roomOutboxes(worldID, roomID, exclude) {
		_ = o.Push(line)
	}
}

func (d *Directory) roomOutboxes(worldID, roomID, exclude string) []*Outbox {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rs, ok := d.roomSets[roomKey{worldID, roomID}]
	if !ok {
		return nil
	}
	exclKey := nameKey(exclude)
	outboxes := make([]*Outbox, 0, len(rs))
	for key := range rs {
		if key == exclKey {
			continue
		}
		if e, ok := d.players[key]; ok {
			outboxes = append(outboxes, e.outbox)
		}
	}
	return outboxes
}

// BroadcastGlobal pushes a line to every connected player except exclude.
func (d *Directory) BroadcastGlobal(line, exclude string) {
	d.mu.RLock()
	exclKey := nameKey(exclude)
	outboxes := make([]*Outbox, 0, len(d.players))
	for key, e := range d.players {
		if key == exclKey {
			continue
		}
		outboxes = append(outboxes, e.outbox)
	}
	d.mu.RUnlock()

	for _, o := range outboxes {
		_ = o.Push(line)
	}
}

// Subscribe adds or removes a player's chat channel membership.
func (d *Directory) Subscribe(name, channel string, on bool) error {
	key := nameKey(name)

	d.mu.Lock()
	defer d.mu.Unlock()

	e, exists := d.players[key]
	if !exists {
		return ErrPlayerNotFound
	}
	if on {
		e.channels[channel] = true
	} else {
		delete(e.channels, channel)
	}
	return nil
}

// BroadcastChannel pushes a line to every subscriber of a chat channel
// except exclude.
func (d *Directory) BroadcastChannel(channel, line, exclude string) {
	d.mu.RLock()
	exclKey := nameKey(exclude)
	outboxes := make([]*Outbox, 0, len(d.players))
	for key, e := range d.players {
		if key == exclKey || !e.channels[channel] {
			continue
		}
		outboxes = append(outboxes, e.outbox)
	}
	d.mu.RUnlock()

	for _, o := range outboxes {
		_ = o.Push(line)
	}
}
