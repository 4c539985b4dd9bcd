package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the engine.* Lua table into L. Each function is
// backed by a Manager callback field; nil callbacks make the Lua function a
// no-op so scripts load before wiring completes.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L with broadcast, deliver,
// give_item, and heal.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	L.SetField(engine, "broadcast", L.NewFunction(func(L *lua.LState) int {
		worldID := L.CheckString(1)
		roomID := L.CheckString(2)
		msg := L.CheckString(3)
		if m.Broadcast != nil {
			m.Broadcast(worldID, roomID, msg)
		}
		return 0
	}))

	L.SetField(engine, "deliver", L.NewFunction(func(L *lua.LState) int {
		playerName := L.CheckString(1)
		msg := L.CheckString(2)
		if m.Deliver != nil {
			m.Deliver(playerName, msg)
		}
		return 0
	}))

	L.SetField(engine, "give_item", L.NewFunction(func(L *lua.LState) int {
		playerName := L.CheckString(1)
		itemID := L.CheckString(2)
		if m.GiveItem == nil {
			L.Push(lua.LFalse)
			return 1
		}
		if err := m.GiveItem(playerName, itemID); err != nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetField(engine, "heal", L.NewFunction(func(L *lua.LState) int {
		playerName := L.CheckString(1)
		amount := L.CheckInt(2)
		if m.Heal != nil {
			m.Heal(playerName, amount)
		}
		return 0
	}))

	L.SetGlobal("engine", engine)
}
