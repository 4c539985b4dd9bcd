// Package world provides the read-only game topology: worlds, rooms, exits,
// dungeons, and the per-room population rules consumed by the room registry.
package world

import "fmt"

// Direction represents a compass direction or named exit.
type Direction string

// Standard compass directions and vertical movements.
const (
	North     Direction = "north"
	South     Direction = "south"
	East      Direction = "east"
	West      Direction = "west"
	Northeast Direction = "northeast"
	Northwest Direction = "northwest"
	Southeast Direction = "southeast"
	Southwest Direction = "southwest"
	Up        Direction = "up"
	Down      Direction = "down"
)

// StandardDirections contains all standard compass and vertical directions.
var StandardDirections = []Direction{
	North, South, East, West,
	Northeast, Northwest, Southeast, Southwest,
	Up, Down,
}

// directionAliases maps single-letter and two-letter abbreviations to
// directions for command dispatch.
var directionAliases = map[string]Direction{
	"n": North, "s": South, "e": East, "w": West,
	"ne": Northeast, "nw": Northwest, "se": Southeast, "sw": Southwest,
	"u": Up, "d": Down,
}

// ParseDirection resolves a direction name or abbreviation.
//
// Postcondition: Returns ("", false) for unrecognized input.
func ParseDirection(s string) (Direction, bool) {
	if d, ok := directionAliases[s]; ok {
		return d, true
	}
	d := Direction(s)
	if d.IsStandard() {
		return d, true
	}
	return "", false
}

// IsStandard reports whether d is one of the ten standard directions.
func (d Direction) IsStandard() bool {
	for _, sd := range StandardDirections {
		if d == sd {
			return true
		}
	}
	return false
}

// Opposite returns the opposite of a standard direction.
// For custom directions, it returns an empty string.
//
// Precondition: d should be a standard direction for a meaningful result.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Northeast:
		return Southwest
	case Southwest:
		return Northeast
	case Northwest:
		return Southeast
	case Southeast:
		return Northwest
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// Exit represents a passage from one room to another within the same world.
type Exit struct {
	// Direction is the compass direction or named exit (e.g., "stairs").
	Direction Direction
	// TargetRoom is the ID of the destination room.
	TargetRoom string
	// Hidden indicates the exit is not visible by default.
	Hidden bool
}

// SpawnConfig declares that a room sustains up to Count living instances of
// a monster template, with optional overrides over the template defaults.
type SpawnConfig struct {
	// Template is the monster template ID.
	Template string
	// Count is the number of living instances the room sustains.
	Count int
	// LevelMin/LevelMax override the template's level range when both > 0.
	LevelMin int
	LevelMax int
	// RespawnMinSeconds/RespawnMaxSeconds override the default respawn
	// window when > 0. The registry still clamps to the global floor.
	RespawnMinSeconds int
	RespawnMaxSeconds int
}

// AmbientSpawn gives a room a flat per-visit chance of spawning one passive
// monster when none of that template is alive.
type AmbientSpawn struct {
	// Template is the passive monster template ID.
	Template string
	// Chance is the per-visit spawn probability in [0,1].
	Chance float64
}

// Room represents a location in a world.
type Room struct {
	// ID uniquely identifies this room within its world.
	ID string
	// WorldID identifies the world this room belongs to.
	WorldID string
	// Title is the short display name of the room.
	Title string
	// Description is the multi-line room description shown to players.
	Description string
	// Exits lists all passages leading out of this room.
	Exits []Exit
	// Spawns lists the monster templates that populate this room.
	Spawns []SpawnConfig
	// Ambient, when non-nil, adds a chance-based passive spawn on each visit.
	Ambient *AmbientSpawn
	// Aggressive rooms have a random living monster attack entering players.
	Aggressive bool
	// Safe rooms never spawn monsters and suppress aggression.
	Safe bool
	// NPCs lists the NPC template IDs present in this room.
	NPCs []string
	// Items seeds the room's floor with these item IDs at first population.
	Items []string
	// DungeonID is set for rooms belonging to a dungeon.
	DungeonID string
}

// ExitForDirection returns the exit in the given direction, if one exists.
//
// Postcondition: Returns (exit, true) if found, or (Exit{}, false) otherwise.
func (r *Room) ExitForDirection(dir Direction) (Exit, bool) {
	for _, e := range r.Exits {
		if e.Direction == dir {
			return e, true
		}
	}
	return Exit{}, false
}

// VisibleExits returns all non-hidden exits from this room.
//
// Postcondition: Returns a slice of exits where Hidden is false.
func (r *Room) VisibleExits() []Exit {
	var visible []Exit
	for _, e := range r.Exits {
		if !e.Hidden {
			visible = append(visible, e)
		}
	}
	return visible
}

// Dungeon is a sub-graph of rooms reached by an entry command from an
// overworld room rather than a normal exit.
type Dungeon struct {
	// ID uniquely identifies the dungeon within its world.
	ID string
	// Name is the display name.
	Name string
	// Description summarizes the dungeon.
	Description string
	// EntryRoom is the overworld room the entry command is available from.
	EntryRoom string
	// EntryCommand is the bare word that enters the dungeon (e.g. "crypt").
	EntryCommand string
	// FirstRoom is the dungeon room the player arrives in.
	FirstRoom string
	// Rooms lists the IDs of rooms belonging to this dungeon.
	Rooms []string
}

// World is one self-contained room graph.
type World struct {
	// ID uniquely identifies this world.
	ID string
	// Name is the display name of the world.
	Name string
	// Description summarizes the world's theme.
	Description string
	// StartRoom is the ID of the default entry room.
	StartRoom string
	// HubRoom is the safe room players return to on death. Defaults to
	// StartRoom when unset in content.
	HubRoom string
	// Lore is shown to players entering the world for the first time.
	Lore string
	// Rooms contains all rooms in this world (dungeon rooms included),
	// keyed by room ID.
	Rooms map[string]*Room
	// Dungeons contains this world's dungeons, keyed by dungeon ID.
	Dungeons map[string]*Dungeon
	// ScriptDir is the path to Lua room-hook scripts. Empty = no scripts.
	ScriptDir string
	// ScriptInstructionLimit caps the Lua VM for this world's hooks.
	// 0 = use the scripting package default.
	ScriptInstructionLimit int
}

// Validate checks world invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (w *World) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("world ID must not be empty")
	}
	if w.Name == "" {
		return fmt.Errorf("world %q: name must not be empty", w.ID)
	}
	if w.StartRoom == "" {
		return fmt.Errorf("world %q: start_room must not be empty", w.ID)
	}
	if len(w.Rooms) == 0 {
		return fmt.Errorf("world %q: must contain at least one room", w.ID)
	}
	if _, ok := w.Rooms[w.StartRoom]; !ok {
		return fmt.Errorf("world %q: start_room %q not found in rooms", w.ID, w.StartRoom)
	}
	if _, ok := w.Rooms[w.HubRoom]; w.HubRoom != "" && !ok {
		return fmt.Errorf("world %q: hub_room %q not found in rooms", w.ID, w.HubRoom)
	}
	for id, room := range w.Rooms {
		if room.ID != id {
			return fmt.Errorf("world %q: room key %q does not match room ID %q", w.ID, id, room.ID)
		}
		if room.Title == "" {
			return fmt.Errorf("world %q: room %q: title must not be empty", w.ID, id)
		}
		for _, exit := range room.Exits {
			if exit.TargetRoom == "" {
				return fmt.Errorf("world %q: room %q: exit %q has empty target", w.ID, id, exit.Direction)
			}
			if _, ok := w.Rooms[exit.TargetRoom]; !ok {
				return fmt.Errorf("world %q: room %q: exit %q targets unknown room %q", w.ID, id, exit.Direction, exit.TargetRoom)
			}
		}
		for _, spawn := range room.Spawns {
			if spawn.Template == "" {
				return fmt.Errorf("world %q: room %q: spawn with empty template", w.ID, id)
			}
			if spawn.Count < 1 {
				return fmt.Errorf("world %q: room %q: spawn %q count must be >= 1", w.ID, id, spawn.Template)
			}
		}
		if room.Ambient != nil {
			if room.Ambient.Template == "" {
				return fmt.Errorf("world %q: room %q: ambient spawn with empty template", w.ID, id)
			}
			if room.Ambient.Chance < 0 || room.Ambient.Chance > 1 {
				return fmt.Errorf("world %q: room %q: ambient chance must be within [0,1]", w.ID, id)
			}
		}
	}
	for id, d := range w.Dungeons {
		if d.ID != id {
			return fmt.Errorf("world %q: dungeon key %q does not match ID %q", w.ID, id, d.ID)
		}
		if d.EntryCommand == "" {
			return fmt.Errorf("world %q: dungeon %q: entry_command must not be empty", w.ID, id)
		}
		if _, ok := w.Rooms[d.EntryRoom]; !ok {
			return fmt.Errorf("world %q: dungeon %q: entry_room %q not found", w.ID, id, d.EntryRoom)
		}
		if _, ok := w.Rooms[d.FirstRoom]; !ok {
			return fmt.Errorf("world %q: dungeon %q: first_room %q not found", w.ID, id, d.FirstRoom)
		}
		for _, roomID := range d.Rooms {
			room, ok := w.Rooms[roomID]
			if !ok {
				return fmt.Errorf("world %q: dungeon %q: room %q not found", w.ID, id, roomID)
			}
			if room.DungeonID != d.ID {
				return fmt.Errorf("world %q: dungeon %q: room %q not tagged with dungeon ID", w.ID, id, roomID)
			}
		}
	}
	return nil
}

// Hub returns the effective hub room ID (HubRoom, falling back to StartRoom).
func (w *World) Hub() string {
	if w.HubRoom != "" {
		return w.HubRoom
	}
	return w.StartRoom
}
