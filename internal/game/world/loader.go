package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlWorldFile is the top-level YAML structure for world files.
type yamlWorldFile struct {
	World yamlWorld `yaml:"world"`
}

// yamlWorld is the YAML representation of a world.
type yamlWorld struct {
	ID                     string        `yaml:"id"`
	Name                   string        `yaml:"name"`
	Description            string        `yaml:"description"`
	StartRoom              string        `yaml:"start_room"`
	HubRoom                string        `yaml:"hub_room"`
	Lore                   string        `yaml:"lore"`
	ScriptDir              string        `yaml:"script_dir"`
	ScriptInstructionLimit int           `yaml:"script_instruction_limit"`
	Rooms                  []yamlRoom    `yaml:"rooms"`
	Dungeons               []yamlDungeon `yaml:"dungeons"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Exits       []yamlExit  `yaml:"exits"`
	Spawns      []yamlSpawn `yaml:"spawns"`
	Ambient     *yamlSpawn  `yaml:"ambient_spawn"`
	Aggressive  bool        `yaml:"aggressive"`
	Safe        bool        `yaml:"safe"`
	NPCs        []string    `yaml:"npcs"`
	Items       []string    `yaml:"items"`
}

// yamlExit is the YAML representation of an exit.
type yamlExit struct {
	Direction string `yaml:"direction"`
	Target    string `yaml:"target"`
	Hidden    bool   `yaml:"hidden"`
}

// yamlSpawn covers both sustained spawns and ambient chance spawns.
type yamlSpawn struct {
	Template   string  `yaml:"template"`
	Count      int     `yaml:"count"`
	LevelMin   int     `yaml:"level_min"`
	LevelMax   int     `yaml:"level_max"`
	RespawnMin int     `yaml:"respawn_min_seconds"`
	RespawnMax int     `yaml:"respawn_max_seconds"`
	Chance     float64 `yaml:"chance"`
}

// yamlDungeon is the YAML representation of a dungeon. Dungeon rooms are
// declared inline and merged into the world's room map tagged with the
// dungeon ID.
type yamlDungeon struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	EntryRoom    string     `yaml:"entry_room"`
	EntryCommand string     `yaml:"entry_command"`
	Rooms        []yamlRoom `yaml:"rooms"`
}

// LoadWorldFromFile reads and validates a single world YAML file.
//
// Precondition: path must point to a valid YAML world file.
// Postcondition: Returns a validated World or a non-nil error.
func LoadWorldFromFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file %s: %w", path, err)
	}
	return LoadWorldFromBytes(data)
}

// LoadWorldFromBytes parses and validates a world from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the world schema.
// Postcondition: Returns a validated World or a non-nil error.
func LoadWorldFromBytes(data []byte) (*World, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing world YAML: %w", err)
	}

	w, err := convertYAMLWorld(file.World)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("validating world: %w", err)
	}
	return w, nil
}

// LoadWorldsFromDir loads all YAML files in a directory as worlds.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated worlds or the first error encountered.
func LoadWorldsFromDir(dir string) ([]*World, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading world directory %s: %w", dir, err)
	}

	var worlds []*World
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		w, err := LoadWorldFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading world from %s: %w", name, err)
		}
		worlds = append(worlds, w)
	}

	if len(worlds) == 0 {
		return nil, fmt.Errorf("no world files found in %s", dir)
	}
	return worlds, nil
}

// convertYAMLWorld converts the parsed YAML structures into domain types.
func convertYAMLWorld(yw yamlWorld) (*World, error) {
	w := &World{
		ID:                     yw.ID,
		Name:                   yw.Name,
		Description:            yw.Description,
		StartRoom:              yw.StartRoom,
		HubRoom:                yw.HubRoom,
		Lore:                   strings.TrimSpace(yw.Lore),
		ScriptDir:              yw.ScriptDir,
		ScriptInstructionLimit: yw.ScriptInstructionLimit,
		Rooms:                  make(map[string]*Room, len(yw.Rooms)),
		Dungeons:               make(map[string]*Dungeon, len(yw.Dungeons)),
	}

	for _, yr := range yw.Rooms {
		room := convertYAMLRoom(yr, yw.ID, "")
		if _, exists := w.Rooms[room.ID]; exists {
			return nil, fmt.Errorf("world %q: duplicate room ID %q", yw.ID, room.ID)
		}
		w.Rooms[room.ID] = room
	}

	for _, yd := range yw.Dungeons {
		d := &Dungeon{
			ID:           yd.ID,
			Name:         yd.Name,
			Description:  yd.Description,
			EntryRoom:    yd.EntryRoom,
			EntryCommand: strings.ToLower(yd.EntryCommand),
		}
		for i, yr := range yd.Rooms {
			room := convertYAMLRoom(yr, yw.ID, yd.ID)
			if _, exists := w.Rooms[room.ID]; exists {
				return nil, fmt.Errorf("world %q: duplicate room ID %q in dungeon %q", yw.ID, room.ID, yd.ID)
			}
			w.Rooms[room.ID] = room
			d.Rooms = append(d.Rooms, room.ID)
			// The first declared room is the arrival point.
			if i == 0 {
				d.FirstRoom = room.ID
			}
		}
		if _, exists := w.Dungeons[d.ID]; exists {
			return nil, fmt.Errorf("world %q: duplicate dungeon ID %q", yw.ID, d.ID)
		}
		w.Dungeons[d.ID] = d
	}

	return w, nil
}

func convertYAMLRoom(yr yamlRoom, worldID, dungeonID string) *Room {
	room := &Room{
		ID:          yr.ID,
		WorldID:     worldID,
		Title:       yr.Title,
		Description: strings.TrimSpace(yr.Description),
		Aggressive:  yr.Aggressive,
		Safe:        yr.Safe,
		NPCs:        yr.NPCs,
		Items:       yr.Items,
		DungeonID:   dungeonID,
	}
	for _, ye := range yr.Exits {
		room.Exits = append(room.Exits, Exit{
			Direction:  Direction(ye.Direction),
			TargetRoom: ye.Target,
			Hidden:     ye.Hidden,
		})
	}
	for _, ys := range yr.Spawns {
		count := ys.Count
		if count == 0 {
			count = 1
		}
		room.Spawns = append(room.Spawns, SpawnConfig{
			Template:          ys.Template,
			Count:             count,
			LevelMin:          ys.LevelMin,
			LevelMax:          ys.LevelMax,
			RespawnMinSeconds: ys.RespawnMin,
			RespawnMaxSeconds: ys.RespawnMax,
		})
	}
	if yr.Ambient != nil {
		room.Ambient = &AmbientSpawn{
			Template: yr.Ambient.Template,
			Chance:   yr.Ambient.Chance,
		}
	}
	return room
}
