package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dungeonmud/internal/game/player"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// ErrPlayerNameTaken is returned when creating a player with a name that
// already exists. Names are globally unique, not per-account.
var ErrPlayerNameTaken = errors.New("player name already taken")

// PlayerSummary is the light listing row shown at character selection.
type PlayerSummary struct {
	ID        int64
	Name      string
	Class     string
	Race      string
	Level     int
	CreatedAt time.Time
}

// playerState is the JSONB bundle holding everything beyond the indexed
// columns. Spell cooldowns are transient and deliberately not persisted.
type playerState struct {
	MaxHP          int      `json:"max_hp"`
	CurrentHP      int      `json:"current_hp"`
	MaxStamina     int      `json:"max_stamina"`
	CurrentStamina int      `json:"current_stamina"`
	Experience     int      `json:"experience"`
	Attack         int      `json:"attack"`
	Defense        int      `json:"defense"`
	Gold           int      `json:"gold"`
	UnspentPoints  int      `json:"unspent_points"`
	Gender         string   `json:"gender,omitempty"`
	Inventory      []string `json:"inventory"`

	Equipment map[string]string `json:"equipment"`

	ActiveQuests    []string                  `json:"active_quests"`
	QuestProgress   map[string]map[string]int `json:"quest_progress"`
	CompletedQuests []string                  `json:"completed_quests"`

	KnownSpells    map[string]int  `json:"known_spells"`
	EquippedSpells []string        `json:"equipped_spells"`
	ActivePerks    []string        `json:"active_perks"`
	Channels       map[string]bool `json:"channels"`
}

// PlayerRepository provides player persistence operations.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player and returns its assigned ID.
//
// Precondition: accountID must reference an existing account; p.Name must be non-empty.
// Postcondition: Returns the new row ID, or ErrPlayerNameTaken on duplicate.
func (r *PlayerRepository) Create(ctx context.Context, accountID int64, p *player.Player) (int64, error) {
	state, err := json.Marshal(bundleState(p))
	if err != nil {
		return 0, fmt.Errorf("encoding player state: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO players (account_id, name, class, race, world_id, room_id, level, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		accountID, p.Name, p.Class, p.Race, p.WorldID, p.RoomID, p.Level, state,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrPlayerNameTaken
		}
		return 0, fmt.Errorf("inserting player: %w", err)
	}
	return id, nil
}

// GetByName retrieves a player by name (case-insensitive).
//
// Precondition: name must be non-empty.
// Postcondition: Returns the rehydrated Player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByName(ctx context.Context, name string) (*player.Player, error) {
	var (
		p     player.Player
		state []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT name, class, race, world_id, room_id, level, state
		FROM players WHERE LOWER(name) = LOWER($1)`,
		name,
	).Scan(&p.Name, &p.Class, &p.Race, &p.WorldID, &p.RoomID, &p.Level, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}

	var s playerState
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("decoding player state: %w", err)
	}
	restoreState(&p, s)
	return &p, nil
}

// AccountForName returns the owning account ID of the named player.
//
// Postcondition: Returns the account ID or ErrPlayerNotFound.
func (r *PlayerRepository) AccountForName(ctx context.Context, name string) (int64, error) {
	var accountID int64
	err := r.db.QueryRow(ctx,
		`SELECT account_id FROM players WHERE LOWER(name) = LOWER($1)`,
		name,
	).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("querying player account: %w", err)
	}
	return accountID, nil
}

// ListByAccount returns summaries of all players owned by the account,
// ordered by creation time.
//
// Precondition: accountID must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlayerRepository) ListByAccount(ctx context.Context, accountID int64) ([]PlayerSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, class, race, level, created_at
		FROM players WHERE account_id = $1 ORDER BY created_at ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	summaries := make([]PlayerSummary, 0)
	for rows.Next() {
		var s PlayerSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Class, &s.Race, &s.Level, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning player row: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Save persists the player's full current state.
//
// Precondition: the player must already exist (created via Create).
// Postcondition: Location, level, and the state bundle are updated,
// or ErrPlayerNotFound if no row matched.
func (r *PlayerRepository) Save(ctx context.Context, p *player.Player) error {
	state, err := json.Marshal(bundleState(p))
	if err != nil {
		return fmt.Errorf("encoding player state: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE players
		SET world_id = $2, room_id = $3, level = $4, state = $5, updated_at = NOW()
		WHERE LOWER(name) = LOWER($1)`,
		p.Name, p.WorldID, p.RoomID, p.Level, state,
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func bundleState(p *player.Player) playerState {
	return playerState{
		MaxHP:           p.MaxHP,
		CurrentHP:       p.CurrentHP,
		MaxStamina:      p.MaxStamina,
		CurrentStamina:  p.CurrentStamina,
		Experience:      p.Experience,
		Attack:          p.Attack,
		Defense:         p.Defense,
		Gold:            p.Gold,
		UnspentPoints:   p.UnspentPoints,
		Gender:          p.Gender,
		Inventory:       p.Inventory,
		Equipment:       p.Equipment,
		ActiveQuests:    p.ActiveQuests,
		QuestProgress:   p.QuestProgress,
		CompletedQuests: p.CompletedQuests,
		KnownSpells:     p.KnownSpells,
		EquippedSpells:  p.EquippedSpells,
		ActivePerks:     p.ActivePerks,
		Channels:        p.Channels,
	}
}

// restoreState fills p from the decoded bundle, normalising nil maps and
// slices so the model's non-nil invariant holds for old rows.
func restoreState(p *player.Player, s playerState) {
	p.MaxHP = s.MaxHP
	p.CurrentHP = s.CurrentHP
	p.MaxStamina = s.MaxStamina
	p.CurrentStamina = s.CurrentStamina
	p.Experience = s.Experience
	p.Attack = s.Attack
	p.Defense = s.Defense
	p.Gold = s.Gold
	p.UnspentPoints = s.UnspentPoints
	p.Gender = s.Gender

	p.Inventory = s.Inventory
	if p.Inventory == nil {
		p.Inventory = []string{}
	}
	p.Equipment = s.Equipment
	if p.Equipment == nil {
		p.Equipment = map[string]string{}
	}
	p.ActiveQuests = s.ActiveQuests
	if p.ActiveQuests == nil {
		p.ActiveQuests = []string{}
	}
	p.QuestProgress = s.QuestProgress
	if p.QuestProgress == nil {
		p.QuestProgress = map[string]map[string]int{}
	}
	p.CompletedQuests = s.CompletedQuests
	if p.CompletedQuests == nil {
		p.CompletedQuests = []string{}
	}
	p.KnownSpells = s.KnownSpells
	if p.KnownSpells == nil {
		p.KnownSpells = map[string]int{}
	}
	p.EquippedSpells = s.EquippedSpells
	if p.EquippedSpells == nil {
		p.EquippedSpells = []string{}
	}
	p.ActivePerks = s.ActivePerks
	if p.ActivePerks == nil {
		p.ActivePerks = []string{}
	}
	p.Channels = s.Channels
	if p.Channels == nil {
		p.Channels = map[string]bool{player.LocalChannel: true}
	}
	p.SpellCooldowns = map[string]time.Time{}
}
