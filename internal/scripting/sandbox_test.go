package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	lua "github.com/yuin/gopher-lua"
)

func TestSandboxSafeLibsAvailable(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	err := L.DoString(`
		local s = string.upper("ok")
		local n = math.floor(3.7)
		local t = {}
		table.insert(t, s)
		result = t[1] .. tostring(n)
	`)
	assert.NoError(t, err)
	assert.Equal(t, "OK3", L.GetGlobal("result").String())
}

func TestSandboxDangerousGlobalsRemoved(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "global %q should be removed", name)
	}
}

func TestSandboxNoOSOrIO(t *testing.T) {
	L, cancel := NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	assert.Equal(t, lua.LNil, L.GetGlobal("os"))
	assert.Equal(t, lua.LNil, L.GetGlobal("io"))
}

func TestSandboxInstructionLimit(t *testing.T) {
	L, cancel := NewSandboxedState(1000)
	defer cancel()
	defer L.Close()

	err := L.DoString(`while true do end`)
	assert.Error(t, err, "infinite loop must be terminated by the opcode limit")
}

func TestSandboxLimitAllowsShortScripts(t *testing.T) {
	L, cancel := NewSandboxedState(10_000)
	defer cancel()
	defer L.Close()

	err := L.DoString(`
		local sum = 0
		for i = 1, 100 do sum = sum + i end
		total = sum
	`)
	assert.NoError(t, err)
	assert.Equal(t, "5050", L.GetGlobal("total").String())
}
