package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dungeonmud/internal/game/world"
)

func managerFixture(t *testing.T) *world.Manager {
	t.Helper()
	w, err := world.LoadWorldFromBytes([]byte(sampleWorldYAML))
	require.NoError(t, err)
	m, err := world.NewManager([]*world.World{w})
	require.NoError(t, err)
	return m
}

func TestNewManager_RejectsEmptyAndDuplicates(t *testing.T) {
	_, err := world.NewManager(nil)
	assert.Error(t, err)

	w := validWorld()
	_, err = world.NewManager([]*world.World{w, w})
	assert.Error(t, err)
}

func TestRoom_ResolvesByWorldAndRoom(t *testing.T) {
	m := managerFixture(t)

	r, ok := m.Room("default", "field")
	require.True(t, ok)
	assert.Equal(t, "Open Field", r.Title)

	_, ok = m.Room("default", "nowhere")
	assert.False(t, ok)
	_, ok = m.Room("other", "field")
	assert.False(t, ok)
}

func TestNavigate_FollowsExits(t *testing.T) {
	m := managerFixture(t)

	dest, err := m.Navigate("default", "lobby", world.North)
	require.NoError(t, err)
	assert.Equal(t, "field", dest.ID)

	_, err = m.Navigate("default", "lobby", world.West)
	assert.Error(t, err)
}

func TestDungeonByEntry_MatchesRoomAndToken(t *testing.T) {
	m := managerFixture(t)

	d, ok := m.DungeonByEntry("default", "field", "CRYPT")
	require.True(t, ok)
	assert.Equal(t, "crypt_hall", d.FirstRoom)

	_, ok = m.DungeonByEntry("default", "lobby", "crypt")
	assert.False(t, ok, "entry command only valid from the entry room")
	_, ok = m.DungeonByEntry("default", "field", "cave")
	assert.False(t, ok)
}

func TestDungeonExitRoom_ReturnsEntryRoom(t *testing.T) {
	m := managerFixture(t)

	exit, ok := m.DungeonExitRoom("default", "crypt_hall")
	require.True(t, ok)
	assert.Equal(t, "field", exit)

	_, ok = m.DungeonExitRoom("default", "lobby")
	assert.False(t, ok)
}

func TestHubRoom_KnownAndUnknownWorlds(t *testing.T) {
	m := managerFixture(t)

	hub, ok := m.HubRoom("default")
	require.True(t, ok)
	assert.Equal(t, "lobby", hub)

	_, ok = m.HubRoom("missing")
	assert.False(t, ok)
}

func TestRoomCount_IncludesDungeonRooms(t *testing.T) {
	m := managerFixture(t)
	assert.Equal(t, 3, m.RoomCount())
}
