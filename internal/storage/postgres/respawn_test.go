package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/testutil"
)

func TestRespawnRepository_RegisterAndQuery(t *testing.T) {
	repo := postgres.NewRespawnRepository(testutil.NewPool(t))
	ctx := context.Background()

	err := repo.RegisterMonsterDeath(ctx, "catacombs", "bone_hall", "goblin", 1, 5*time.Minute)
	require.NoError(t, err)

	statuses, err := repo.RoomRespawns(ctx, "catacombs", "bone_hall")
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	status, ok := statuses[room.RespawnKey("goblin", 1)]
	require.True(t, ok)
	assert.False(t, status.CanRespawn)
	assert.Greater(t, status.TimeRemaining, 4*time.Minute)
}

func TestRespawnRepository_ExpiredSlotCanRespawn(t *testing.T) {
	repo := postgres.NewRespawnRepository(testutil.NewPool(t))
	ctx := context.Background()

	// Negative delay backdates the deadline so the slot is already free.
	err := repo.RegisterMonsterDeath(ctx, "catacombs", "bone_hall", "goblin", 2, -time.Second)
	require.NoError(t, err)

	statuses, err := repo.RoomRespawns(ctx, "catacombs", "bone_hall")
	require.NoError(t, err)

	status, ok := statuses[room.RespawnKey("goblin", 2)]
	require.True(t, ok)
	assert.True(t, status.CanRespawn)
	assert.Equal(t, time.Duration(0), status.TimeRemaining)
}

func TestRespawnRepository_ReRegisterReplacesDeadline(t *testing.T) {
	repo := postgres.NewRespawnRepository(testutil.NewPool(t))
	ctx := context.Background()

	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "r", "slime", 1, -time.Second))
	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "r", "slime", 1, 10*time.Minute))

	statuses, err := repo.RoomRespawns(ctx, "w", "r")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[room.RespawnKey("slime", 1)].CanRespawn)
}

func TestRespawnRepository_RoomIsolation(t *testing.T) {
	repo := postgres.NewRespawnRepository(testutil.NewPool(t))
	ctx := context.Background()

	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "north", "goblin", 1, 5*time.Minute))
	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "south", "goblin", 1, 5*time.Minute))

	statuses, err := repo.RoomRespawns(ctx, "w", "north")
	require.NoError(t, err)
	assert.Len(t, statuses, 1)

	statuses, err = repo.RoomRespawns(ctx, "w", "empty")
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestRespawnRepository_CleanupExpired(t *testing.T) {
	repo := postgres.NewRespawnRepository(testutil.NewPool(t))
	ctx := context.Background()

	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "r", "goblin", 1, -time.Second))
	require.NoError(t, repo.RegisterMonsterDeath(ctx, "w", "r", "goblin", 2, 10*time.Minute))

	deleted, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	statuses, err := repo.RoomRespawns(ctx, "w", "r")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	_, ok := statuses[room.RespawnKey("goblin", 2)]
	assert.True(t, ok)
}
