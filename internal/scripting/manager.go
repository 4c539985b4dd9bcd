package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalWorldID is the reserved key for shared scripts loaded via LoadGlobal.
// Hook dispatch falls back to this VM when no world VM is found.
const globalWorldID = "__global__"

// Manager owns one sandboxed LState per world and dispatches room hooks.
//
// Manager is safe for concurrent hook calls after all LoadWorld calls
// complete. Each world's LState is single-threaded; worldLock serializes
// concurrent calls into the same VM while different worlds run concurrently.
type Manager struct {
	mu        sync.RWMutex
	states    map[string]*lua.LState
	cancels   map[string]func()
	worldLock map[string]*sync.Mutex
	logger    *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	Broadcast func(worldID, roomID, msg string)
	Deliver   func(playerName, msg string)
	GiveItem  func(playerName, itemID string) error
	Heal      func(playerName string, amount int)
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty world map.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		states:    make(map[string]*lua.LState),
		cancels:   make(map[string]func()),
		worldLock: make(map[string]*sync.Mutex),
		logger:    logger,
	}
}

// LoadWorld creates a sandboxed VM for worldID, registers all engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: worldID must be non-empty; scriptDir must be a readable directory.
// Postcondition: World VM is registered; returns error on Lua load failure.
func (m *Manager) LoadWorld(worldID, scriptDir string, instLimit int) error {
	return m.loadInto(worldID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible as a
// hook fallback from any world.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalWorldID, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		if oldCancel := m.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	m.states[key] = L
	m.cancels[key] = cancel
	m.worldLock[key] = &sync.Mutex{}
	m.mu.Unlock()
	return nil
}

// Close tears down all VMs.
//
// Postcondition: No further hook calls will execute scripts.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		if cancel := m.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
	}
	m.states = make(map[string]*lua.LState)
	m.cancels = make(map[string]func())
	m.worldLock = make(map[string]*sync.Mutex)
}

// OnRoomEnter calls the Lua global "on_enter" in the world's VM when a player
// enters a room. If the hook returns a string, it is shown to the entering
// player as flavor text.
//
// Postcondition: Returns the hook's string return, or "" if the hook is
// missing, returns nil, or errors. Lua runtime errors are logged, never
// propagated.
func (m *Manager) OnRoomEnter(worldID, roomID, playerName string) string {
	ret := m.callHook(worldID, "on_enter", lua.LString(roomID), lua.LString(playerName))
	if s, ok := ret.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// callHook calls the named Lua global function in worldID's VM. If the world
// has no VM, the __global__ VM is tried as a fallback. Returns LNil if the
// hook is not defined or no VM exists.
func (m *Manager) callHook(worldID, hook string, args ...lua.LValue) lua.LValue {
	m.mu.RLock()
	key := worldID
	L, ok := m.states[key]
	if !ok {
		key = globalWorldID
		L = m.states[key]
	}
	lock := m.worldLock[key]
	m.mu.RUnlock()

	if L == nil {
		return lua.LNil
	}

	lock.Lock()
	defer lock.Unlock()

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("world", worldID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret
}
