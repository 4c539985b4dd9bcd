package scripting

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newModuleState(t *testing.T) (*Manager, func(script string) error) {
	t.Helper()
	m := NewManager(zaptest.NewLogger(t))
	L, cancel := NewSandboxedState(0)
	t.Cleanup(func() {
		cancel()
		L.Close()
	})
	m.RegisterModules(L)
	return m, L.DoString
}

func TestEngineBroadcast(t *testing.T) {
	m, do := newModuleState(t)

	var gotWorld, gotRoom, gotMsg string
	m.Broadcast = func(worldID, roomID, msg string) {
		gotWorld, gotRoom, gotMsg = worldID, roomID, msg
	}

	require.NoError(t, do(`engine.broadcast("catacombs", "shrine", "The altar glows.")`))
	assert.Equal(t, "catacombs", gotWorld)
	assert.Equal(t, "shrine", gotRoom)
	assert.Equal(t, "The altar glows.", gotMsg)
}

func TestEngineDeliver(t *testing.T) {
	m, do := newModuleState(t)

	var gotPlayer, gotMsg string
	m.Deliver = func(playerName, msg string) {
		gotPlayer, gotMsg = playerName, msg
	}

	require.NoError(t, do(`engine.deliver("Zara", "A whisper follows you.")`))
	assert.Equal(t, "Zara", gotPlayer)
	assert.Equal(t, "A whisper follows you.", gotMsg)
}

func TestEngineGiveItem(t *testing.T) {
	m, do := newModuleState(t)

	m.GiveItem = func(playerName, itemID string) error {
		if itemID == "cursed_idol" {
			return errors.New("refused")
		}
		return nil
	}

	require.NoError(t, do(`ok = engine.give_item("Zara", "potion")`))
	require.NoError(t, do(`assert(ok == true)`))

	require.NoError(t, do(`failed = engine.give_item("Zara", "cursed_idol")`))
	require.NoError(t, do(`assert(failed == false)`))
}

func TestEngineGiveItemNilCallback(t *testing.T) {
	_, do := newModuleState(t)
	require.NoError(t, do(`ok = engine.give_item("Zara", "potion")`))
	require.NoError(t, do(`assert(ok == false)`))
}

func TestEngineHeal(t *testing.T) {
	m, do := newModuleState(t)

	var gotPlayer string
	var gotAmount int
	m.Heal = func(playerName string, amount int) {
		gotPlayer, gotAmount = playerName, amount
	}

	require.NoError(t, do(`engine.heal("Zara", 15)`))
	assert.Equal(t, "Zara", gotPlayer)
	assert.Equal(t, 15, gotAmount)
}

func TestEngineNilCallbacksAreNoOps(t *testing.T) {
	_, do := newModuleState(t)
	assert.NoError(t, do(`
		engine.broadcast("w", "r", "msg")
		engine.deliver("p", "msg")
		engine.heal("p", 5)
	`))
}

func TestEngineBadArgumentTypes(t *testing.T) {
	_, do := newModuleState(t)
	assert.Error(t, do(`engine.heal("Zara", "not_a_number")`))
}
