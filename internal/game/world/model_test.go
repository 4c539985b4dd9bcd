package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/dungeonmud/internal/game/world"
)

func validWorld() *world.World {
	return &world.World{
		ID:        "default",
		Name:      "The Default Realm",
		StartRoom: "lobby",
		HubRoom:   "lobby",
		Rooms: map[string]*world.Room{
			"lobby": {
				ID: "lobby", WorldID: "default", Title: "Lobby",
				Safe:  true,
				Exits: []world.Exit{{Direction: world.North, TargetRoom: "field"}},
			},
			"field": {
				ID: "field", WorldID: "default", Title: "Field",
				Exits:  []world.Exit{{Direction: world.South, TargetRoom: "lobby"}},
				Spawns: []world.SpawnConfig{{Template: "goblin", Count: 2}},
			},
		},
		Dungeons: map[string]*world.Dungeon{},
	}
}

func TestDirection_Opposites(t *testing.T) {
	for _, d := range world.StandardDirections {
		opp := d.Opposite()
		assert.NotEmpty(t, opp)
		assert.Equal(t, d, opp.Opposite())
	}
	assert.Empty(t, world.Direction("stairs").Opposite())
}

func TestParseDirection_Abbreviations(t *testing.T) {
	d, ok := world.ParseDirection("n")
	assert.True(t, ok)
	assert.Equal(t, world.North, d)

	d, ok = world.ParseDirection("sw")
	assert.True(t, ok)
	assert.Equal(t, world.Southwest, d)

	d, ok = world.ParseDirection("northeast")
	assert.True(t, ok)
	assert.Equal(t, world.Northeast, d)

	_, ok = world.ParseDirection("sideways")
	assert.False(t, ok)
}

func TestWorldValidate_Valid(t *testing.T) {
	assert.NoError(t, validWorld().Validate())
}

func TestWorldValidate_MissingStartRoom(t *testing.T) {
	w := validWorld()
	w.StartRoom = "nowhere"
	assert.Error(t, w.Validate())
}

func TestWorldValidate_DanglingExit(t *testing.T) {
	w := validWorld()
	w.Rooms["field"].Exits = append(w.Rooms["field"].Exits, world.Exit{Direction: world.East, TargetRoom: "void"})
	assert.Error(t, w.Validate())
}

func TestWorldValidate_SpawnCount(t *testing.T) {
	w := validWorld()
	w.Rooms["field"].Spawns[0].Count = 0
	assert.Error(t, w.Validate())
}

func TestWorldValidate_AmbientChanceRange(t *testing.T) {
	w := validWorld()
	w.Rooms["field"].Ambient = &world.AmbientSpawn{Template: "slime", Chance: 1.3}
	assert.Error(t, w.Validate())
}

func TestHub_FallsBackToStartRoom(t *testing.T) {
	w := validWorld()
	assert.Equal(t, "lobby", w.Hub())
	w.HubRoom = ""
	assert.Equal(t, w.StartRoom, w.Hub())
}

func TestVisibleExits_OmitsHidden(t *testing.T) {
	r := &world.Room{
		ID: "r", Title: "R",
		Exits: []world.Exit{
			{Direction: world.North, TargetRoom: "a"},
			{Direction: world.East, TargetRoom: "b", Hidden: true},
		},
	}
	visible := r.VisibleExits()
	assert.Len(t, visible, 1)
	assert.Equal(t, world.North, visible[0].Direction)
}
