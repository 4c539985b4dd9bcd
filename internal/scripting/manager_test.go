package scripting

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoadWorldAndOnRoomEnter(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "rooms.lua", `
function on_enter(room_id, player_name)
	if room_id == "shrine" then
		return "A faint hum rises from the altar as " .. player_name .. " approaches."
	end
	return nil
end
`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("catacombs", dir, 0))

	msg := m.OnRoomEnter("catacombs", "shrine", "Zara")
	assert.Equal(t, "A faint hum rises from the altar as Zara approaches.", msg)

	assert.Empty(t, m.OnRoomEnter("catacombs", "bone_hall", "Zara"))
}

func TestOnRoomEnterNoVM(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	assert.Empty(t, m.OnRoomEnter("nowhere", "room", "Zara"))
}

func TestOnRoomEnterMissingHook(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "empty.lua", `local x = 1`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("w", dir, 0))
	assert.Empty(t, m.OnRoomEnter("w", "room", "Zara"))
}

func TestGlobalFallback(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shared.lua", `
function on_enter(room_id, player_name)
	return "shared: " .. room_id
end
`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadGlobal(dir, 0))

	assert.Equal(t, "shared: anywhere", m.OnRoomEnter("unloaded_world", "anywhere", "Zara"))
}

func TestLoadWorldLexicographicOrder(t *testing.T) {
	dir := t.TempDir()
	// Later files override earlier definitions.
	writeScript(t, dir, "01_first.lua", `marker = "first"`)
	writeScript(t, dir, "02_second.lua", `
function on_enter(room_id, player_name)
	return marker .. "_seen"
end
marker = "second"
`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("w", dir, 0))
	assert.Equal(t, "second_seen", m.OnRoomEnter("w", "room", "p"))
}

func TestLoadWorldBadScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", `function on_enter( -- unterminated`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	assert.Error(t, m.LoadWorld("w", dir, 0))
}

func TestLoadWorldMissingDir(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	assert.Error(t, m.LoadWorld("w", "/nonexistent/scripts", 0))
}

func TestRuntimeErrorIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "err.lua", `
function on_enter(room_id, player_name)
	error("boom")
end
`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("w", dir, 0))
	assert.Empty(t, m.OnRoomEnter("w", "room", "p"))
}

func TestReloadWorldReplacesVM(t *testing.T) {
	dirA := t.TempDir()
	writeScript(t, dirA, "a.lua", `function on_enter(r, p) return "old" end`)
	dirB := t.TempDir()
	writeScript(t, dirB, "b.lua", `function on_enter(r, p) return "new" end`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("w", dirA, 0))
	assert.Equal(t, "old", m.OnRoomEnter("w", "r", "p"))

	require.NoError(t, m.LoadWorld("w", dirB, 0))
	assert.Equal(t, "new", m.OnRoomEnter("w", "r", "p"))
}

func TestConcurrentHookCallsSameWorld(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "count.lua", `
calls = 0
function on_enter(room_id, player_name)
	calls = calls + 1
	return room_id
end
`)

	m := NewManager(zaptest.NewLogger(t))
	defer m.Close()
	require.NoError(t, m.LoadWorld("w", dir, 0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "r", m.OnRoomEnter("w", "r", "p"))
		}()
	}
	wg.Wait()
}
