package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeonmud/internal/game/room"
)

// RespawnRepository persists monster death records so respawn timers
// survive a server restart. It implements room.RespawnStore.
type RespawnRepository struct {
	db *pgxpool.Pool
}

// NewRespawnRepository creates a RespawnRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRespawnRepository(db *pgxpool.Pool) *RespawnRepository {
	return &RespawnRepository{db: db}
}

// RegisterMonsterDeath records a kill with its rolled respawn delay.
// Re-recording the same slot replaces the previous deadline.
//
// Precondition: delay must be positive.
// Postcondition: The slot is blocked until NOW() + delay.
func (r *RespawnRepository) RegisterMonsterDeath(ctx context.Context, worldID, roomID, templateID string, instanceID int, delay time.Duration) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO monster_respawns (world_id, room_id, template_id, instance_id, respawn_at)
		VALUES ($1, $2, $3, $4, NOW() + $5)
		ON CONFLICT (world_id, room_id, template_id, instance_id)
		DO UPDATE SET respawn_at = EXCLUDED.respawn_at, created_at = NOW()`,
		worldID, roomID, templateID, instanceID, delay,
	)
	if err != nil {
		return fmt.Errorf("recording monster death: %w", err)
	}
	return nil
}

// RoomRespawns returns the pending respawn slots for a room, keyed by
// "template_instance".
//
// Postcondition: Slots whose deadline has passed are reported with
// CanRespawn true and zero TimeRemaining.
func (r *RespawnRepository) RoomRespawns(ctx context.Context, worldID, roomID string) (map[string]room.RespawnStatus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT template_id, instance_id, GREATEST(respawn_at - NOW(), INTERVAL '0')
		FROM monster_respawns
		WHERE world_id = $1 AND room_id = $2`,
		worldID, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying respawns: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]room.RespawnStatus)
	for rows.Next() {
		var (
			templateID string
			instanceID int
			remaining  time.Duration
		)
		if err := rows.Scan(&templateID, &instanceID, &remaining); err != nil {
			return nil, fmt.Errorf("scanning respawn row: %w", err)
		}
		statuses[room.RespawnKey(templateID, instanceID)] = room.RespawnStatus{
			TimeRemaining: remaining,
			CanRespawn:    remaining <= 0,
		}
	}
	return statuses, rows.Err()
}

// CleanupExpired removes entries whose delay has fully elapsed.
//
// Postcondition: Returns the number of rows deleted.
func (r *RespawnRepository) CleanupExpired(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM monster_respawns WHERE respawn_at <= NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up respawns: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ room.RespawnStore = (*RespawnRepository)(nil)
