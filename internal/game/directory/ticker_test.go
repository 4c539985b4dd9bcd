package directory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
)

func TestRegenTicker_SingleStep(t *testing.T) {
	now := time.Unix(0, 0)
	ticker := directory.NewRegenTicker(3*time.Second, func() time.Time { return now })

	var got []int
	ticker.Register("alice", func(steps int) { got = append(got, steps) })

	now = now.Add(3 * time.Second)
	ticker.Fire()
	assert.Equal(t, []int{1}, got)
}

func TestRegenTicker_CatchUpAfterStall(t *testing.T) {
	now := time.Unix(0, 0)
	ticker := directory.NewRegenTicker(3*time.Second, func() time.Time { return now })

	var got []int
	ticker.Register("alice", func(steps int) { got = append(got, steps) })

	// A ten second stall covers three whole intervals; the remainder
	// carries into the next fire.
	now = now.Add(10 * time.Second)
	ticker.Fire()
	now = now.Add(2 * time.Second)
	ticker.Fire()
	assert.Equal(t, []int{3, 1}, got)
}

func TestRegenTicker_NoFireBeforeInterval(t *testing.T) {
	now := time.Unix(0, 0)
	ticker := directory.NewRegenTicker(3*time.Second, func() time.Time { return now })

	fired := false
	ticker.Register("alice", func(int) { fired = true })

	now = now.Add(2 * time.Second)
	ticker.Fire()
	assert.False(t, fired)
}

func TestRegenTicker_Unregister(t *testing.T) {
	now := time.Unix(0, 0)
	ticker := directory.NewRegenTicker(3*time.Second, func() time.Time { return now })

	fired := false
	ticker.Register("alice", func(int) { fired = true })
	ticker.Unregister("alice")

	now = now.Add(time.Minute)
	ticker.Fire()
	assert.False(t, fired)
}

func TestRegenTicker_ZeroIntervalPanics(t *testing.T) {
	assert.Panics(t, func() { directory.NewRegenTicker(0, nil) })
}
