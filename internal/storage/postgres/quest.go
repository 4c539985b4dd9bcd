package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
)

// ErrQuestNotFound is returned when a generated quest lookup yields no results.
var ErrQuestNotFound = errors.New("quest not found")

// questObjectiveRecord is the JSONB shape of one objective.
type questObjectiveRecord struct {
	Type   string `json:"type"`
	Target string `json:"target"`
	Amount int    `json:"amount"`
}

// questRecord is the JSONB shape of a generated quest definition.
type questRecord struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Lore        string                 `json:"lore,omitempty"`
	Objectives  []questObjectiveRecord `json:"objectives"`
	RewardGold  int                    `json:"reward_gold"`
	RewardXP    int                    `json:"reward_xp"`
	RewardItems []string               `json:"reward_items,omitempty"`
}

// QuestRepository persists runtime-generated quest definitions so that a
// player's quest journal still resolves after a restart. Content-authored
// quests live in YAML and are never stored here.
type QuestRepository struct {
	db *pgxpool.Pool
}

// NewQuestRepository creates a QuestRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewQuestRepository(db *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{db: db}
}

// SaveGenerated stores a generated quest definition. Saving an existing
// quest ID overwrites the previous definition.
//
// Precondition: q must pass Validate.
// Postcondition: The quest is retrievable by ID.
func (r *QuestRepository) SaveGenerated(ctx context.Context, q *catalog.QuestTemplate) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("validating quest: %w", err)
	}

	definition, err := json.Marshal(toQuestRecord(q))
	if err != nil {
		return fmt.Errorf("encoding quest: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO generated_quests (id, giver_npc, definition)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET definition = EXCLUDED.definition`,
		q.ID, q.GiverNPC, definition,
	)
	if err != nil {
		return fmt.Errorf("inserting quest: %w", err)
	}
	return nil
}

// GetGenerated retrieves a generated quest by ID.
//
// Postcondition: Returns the quest or ErrQuestNotFound.
func (r *QuestRepository) GetGenerated(ctx context.Context, id string) (*catalog.QuestTemplate, error) {
	var (
		giverNPC   string
		definition []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT giver_npc, definition FROM generated_quests WHERE id = $1`,
		id,
	).Scan(&giverNPC, &definition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("querying quest: %w", err)
	}

	return decodeQuest(id, giverNPC, definition)
}

// ListGenerated returns all stored generated quests, used to rehydrate the
// quest manager at startup.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *QuestRepository) ListGenerated(ctx context.Context) ([]*catalog.QuestTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, giver_npc, definition FROM generated_quests ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*catalog.QuestTemplate, 0)
	for rows.Next() {
		var (
			id         string
			giverNPC   string
			definition []byte
		)
		if err := rows.Scan(&id, &giverNPC, &definition); err != nil {
			return nil, fmt.Errorf("scanning quest row: %w", err)
		}
		q, err := decodeQuest(id, giverNPC, definition)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func toQuestRecord(q *catalog.QuestTemplate) questRecord {
	objectives := make([]questObjectiveRecord, 0, len(q.Objectives))
	for _, o := range q.Objectives {
		objectives = append(objectives, questObjectiveRecord{
			Type:   o.Type,
			Target: o.Target,
			Amount: o.Amount,
		})
	}
	return questRecord{
		Name:        q.Name,
		Description: q.Description,
		Lore:        q.Lore,
		Objectives:  objectives,
		RewardGold:  q.Rewards.Gold,
		RewardXP:    q.Rewards.Experience,
		RewardItems: q.Rewards.Items,
	}
}

func decodeQuest(id, giverNPC string, definition []byte) (*catalog.QuestTemplate, error) {
	var rec questRecord
	if err := json.Unmarshal(definition, &rec); err != nil {
		return nil, fmt.Errorf("decoding quest %q: %w", id, err)
	}

	q := &catalog.QuestTemplate{
		ID:          id,
		Name:        rec.Name,
		Description: rec.Description,
		Lore:        rec.Lore,
		GiverNPC:    giverNPC,
		Rewards: catalog.QuestRewards{
			Gold:       rec.RewardGold,
			Experience: rec.RewardXP,
			Items:      rec.RewardItems,
		},
	}
	for _, o := range rec.Objectives {
		q.Objectives = append(q.Objectives, catalog.QuestObjective{
			Type:   o.Type,
			Target: o.Target,
			Amount: o.Amount,
		})
	}
	return q, nil
}
