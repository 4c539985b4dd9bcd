package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
)

// Registry errors.
var (
	ErrInstanceNotFound = errors.New("room: instance not found")
	ErrInstanceDead     = errors.New("room: instance is dead")
	ErrItemNotOnFloor   = errors.New("room: item not on floor")
)

// Default respawn window, applied when a spawn config has no override. The
// minimum is also the hard floor: content cannot configure faster respawns.
const (
	DefaultRespawnMinSeconds = 300
	DefaultRespawnMaxSeconds = 600
)

// AmbientSpawnChance is the per-visit chance of an ambient monster appearing
// when the room has an ambient spawn configured and no override.
const AmbientSpawnChance = 0.30

// RespawnStatus reports whether a killed spawn slot is eligible to refill.
type RespawnStatus struct {
	TimeRemaining time.Duration
	CanRespawn    bool
}

// RespawnStore persists monster death timestamps so respawn delays survive
// a server restart.
type RespawnStore interface {
	// RegisterMonsterDeath records a kill with its rolled respawn delay.
	RegisterMonsterDeath(ctx context.Context, worldID, roomID, templateID string, instanceID int, delay time.Duration) error
	// RoomRespawns returns the pending respawn slots for a room, keyed by
	// "template_instance".
	RoomRespawns(ctx context.Context, worldID, roomID string) (map[string]RespawnStatus, error)
	// CleanupExpired removes entries whose delay has fully elapsed.
	CleanupExpired(ctx context.Context) (int, error)
}

// RespawnKey builds the store key for a killed spawn slot.
func RespawnKey(templateID string, instanceID int) string {
	return templateID + "_" + strconv.Itoa(instanceID)
}

// Key identifies one room's entity state.
type Key struct {
	WorldID string
	RoomID  string
}

func (k Key) String() string { return k.WorldID + "/" + k.RoomID }

// entry holds the mutable state for one room. All fields are guarded by mu.
type entry struct {
	mu         sync.Mutex
	instances  map[int]*Instance
	floorItems []string
	counter    int
	seeded     bool
}

// Registry manages live monster instances and floor items for every visited
// room. Rooms are populated lazily on first visit and re-checked on each
// subsequent visit so respawns and ambient spawns happen as players move.
//
// Instance IDs are monotonic per room: a new instance never reuses the ID of
// a previous one, alive or dead.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry

	catalog *catalog.Catalog
	store   RespawnStore
	src     roll.Source
	logger  *zap.Logger
}

// NewRegistry constructs a registry.
//
// Precondition: catalog, store, src, and logger must be non-nil.
func NewRegistry(cat *catalog.Catalog, store RespawnStore, src roll.Source, logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[Key]*entry),
		catalog: cat,
		store:   store,
		src:     src,
		logger:  logger,
	}
}

func (r *Registry) entryFor(key Key) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{instances: make(map[int]*Instance)}
		r.entries[key] = e
	}
	return e
}

// Populate brings a room's entity state up to date for a visit: seeds floor
// items and base spawns on first visit, purges dead instances, refills spawn
// slots whose respawn delay has elapsed, and rolls the ambient spawn. Safe
// rooms never spawn monsters.
//
// Populate is idempotent for concurrent visits: two sessions entering the
// same room at once observe a single consistent population.
func (r *Registry) Populate(ctx context.Context, rm *world.Room) error {
	key := Key{WorldID: rm.WorldID, RoomID: rm.ID}
	e := r.entryFor(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.seeded {
		e.floorItems = append(e.floorItems, rm.Items...)
		e.seeded = true
	}

	// Dead instances linger only until the next visit.
	for id, inst := range e.instances {
		if !inst.IsAlive() {
			delete(e.instances, id)
		}
	}

	if rm.Safe {
		return nil
	}

	pending, err := r.store.RoomRespawns(ctx, rm.WorldID, rm.ID)
	if err != nil {
		return fmt.Errorf("populate %s: %w", key, err)
	}

	for _, spawn := range rm.Spawns {
		tmpl, ok := r.catalog.Monster(spawn.Template)
		if !ok {
			r.logger.Warn("room references unknown monster template",
				zap.String("world", rm.WorldID),
				zap.String("room", rm.ID),
				zap.String("template", spawn.Template))
			continue
		}
		living := e.countTemplate(spawn.Template)
		blocked := countBlocked(pending, spawn.Template)
		for living+blocked < spawn.Count {
			e.spawnLocked(tmpl, spawn.LevelMin, spawn.LevelMax, r.src)
			living++
		}
	}

	if rm.Ambient != nil {
		r.rollAmbientLocked(e, rm)
	}

	return nil
}

// countTemplate counts living instances of a template. Caller holds e.mu.
func (e *entry) countTemplate(templateID string) int {
	n := 0
	for _, inst := range e.instances {
		if inst.TemplateID == templateID && inst.IsAlive() {
			n++
		}
	}
	return n
}

// countBlocked counts pending respawn slots for a template whose delay has
// not yet elapsed.
func countBlocked(pending map[string]RespawnStatus, templateID string) int {
	prefix := templateID + "_"
	n := 0
	for key, status := range pending {
		if strings.HasPrefix(key, prefix) && !status.CanRespawn {
			n++
		}
	}
	return n
}

// spawnLocked allocates the next instance ID and adds a new instance.
// Caller holds e.mu.
func (e *entry) spawnLocked(tmpl *catalog.MonsterTemplate, levelMin, levelMax int, src roll.Source) *Instance {
	e.counter++
	inst := newInstance(e.counter, tmpl, levelMin, levelMax, src)
	e.instances[inst.ID] = inst
	return inst
}

// rollAmbientLocked rolls the room's ambient spawn. At most one ambient
// instance is alive at a time. Caller holds e.mu.
func (r *Registry) rollAmbientLocked(e *entry, rm *world.Room) {
	if e.countTemplate(rm.Ambient.Template) > 0 {
		return
	}
	chance := rm.Ambient.Chance
	if chance <= 0 {
		chance = AmbientSpawnChance
	}
	if !roll.Chance(r.src, chance) {
		return
	}
	tmpl, ok := r.catalog.Monster(rm.Ambient.Template)
	if !ok {
		r.logger.Warn("room references unknown ambient template",
			zap.String("world", rm.WorldID),
			zap.String("room", rm.ID),
			zap.String("template", rm.Ambient.Template))
		return
	}
	e.spawnLocked(tmpl, tmpl.LevelMin, tmpl.LevelMax, r.src)
}

// Snapshot returns value copies of the living instances in a room, ordered
// by instance ID, plus a copy of the floor items.
func (r *Registry) Snapshot(worldID, roomID string) ([]Instance, []string) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	instances := make([]Instance, 0, len(e.instances))
	for _, inst := range e.instances {
		if inst.IsAlive() {
			instances = append(instances, *inst)
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })

	items := make([]string, len(e.floorItems))
	copy(items, e.floorItems)
	return instances, items
}

// FindTarget resolves a player's attack target: a numeric token matches an
// instance ID exactly, otherwise the token is matched against instance names
// case-insensitively, by substring, lowest ID first. Only living instances
// match.
func (r *Registry) FindTarget(worldID, roomID, token string) (Instance, error) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, err := strconv.Atoi(token); err == nil {
		inst, ok := e.instances[id]
		if !ok || !inst.IsAlive() {
			return Instance{}, ErrInstanceNotFound
		}
		return *inst, nil
	}

	needle := strings.ToLower(strings.TrimSpace(token))
	if needle == "" {
		return Instance{}, ErrInstanceNotFound
	}
	ids := make([]int, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		inst := e.instances[id]
		if inst.IsAlive() && strings.Contains(strings.ToLower(inst.Name), needle) {
			return *inst, nil
		}
	}
	return Instance{}, ErrInstanceNotFound
}

// DamageInstance applies damage of the given elemental type to an instance
// and returns the damage dealt plus a post-damage copy. Resistances,
// weaknesses, and defense are applied inside; pass the attacker's raw
// damage.
func (r *Registry) DamageInstance(worldID, roomID string, instanceID, amount int, damageType string) (int, Instance, error) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return 0, Instance{}, ErrInstanceNotFound
	}
	if !inst.IsAlive() {
		return 0, Instance{}, ErrInstanceDead
	}
	dealt := inst.applyDamage(amount, damageType)
	return dealt, *inst, nil
}

// CounterAttack rolls an instance's damage against the given total defense.
// The instance must be alive. Returns the damage the player should take
// before their own TakeDamage floor is applied.
func (r *Registry) CounterAttack(worldID, roomID string, instanceID int) (int, error) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return 0, ErrInstanceNotFound
	}
	if !inst.IsAlive() {
		return 0, ErrInstanceDead
	}
	return inst.rollDamage(r.src), nil
}

// ResolveDeath finalizes a kill: removes the instance, records the death
// with a rolled respawn delay so the slot stays empty for the window, and
// returns the reward copy. The instance must already be at 0 HP.
func (r *Registry) ResolveDeath(ctx context.Context, rm *world.Room, instanceID int) (Instance, error) {
	e := r.entryFor(Key{WorldID: rm.WorldID, RoomID: rm.ID})
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return Instance{}, ErrInstanceNotFound
	}
	if inst.IsAlive() {
		return Instance{}, fmt.Errorf("room: instance %d in %s/%s is still alive", instanceID, rm.WorldID, rm.ID)
	}
	delete(e.instances, instanceID)

	// Ambient spawns come back on their own roll, not on a respawn timer.
	if rm.Ambient == nil || rm.Ambient.Template != inst.TemplateID {
		delay := respawnDelay(rm, inst.TemplateID, r.src)
		if err := r.store.RegisterMonsterDeath(ctx, rm.WorldID, rm.ID, inst.TemplateID, inst.ID, delay); err != nil {
			r.logger.Error("failed to record monster death",
				zap.String("world", rm.WorldID),
				zap.String("room", rm.ID),
				zap.String("template", inst.TemplateID),
				zap.Int("instance", inst.ID),
				zap.Error(err))
		}
	}
	return *inst, nil
}

// respawnDelay rolls the respawn delay for a template killed in a room,
// using the spawn config's override window when present. The result is never
// below the default minimum.
func respawnDelay(rm *world.Room, templateID string, src roll.Source) time.Duration {
	minS, maxS := DefaultRespawnMinSeconds, DefaultRespawnMaxSeconds
	for _, spawn := range rm.Spawns {
		if spawn.Template != templateID {
			continue
		}
		if spawn.RespawnMinSeconds > 0 {
			minS = spawn.RespawnMinSeconds
		}
		if spawn.RespawnMaxSeconds > 0 {
			maxS = spawn.RespawnMaxSeconds
		}
		break
	}
	if minS < DefaultRespawnMinSeconds {
		minS = DefaultRespawnMinSeconds
	}
	if maxS < minS {
		maxS = minS
	}
	return time.Duration(roll.Between(src, minS, maxS)) * time.Second
}

// AggressorIn returns a random living aggressive instance in the room, used
// to start unprovoked combat when a player enters an aggressive room.
func (r *Registry) AggressorIn(worldID, roomID string) (Instance, bool) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := make([]*Instance, 0, len(e.instances))
	for _, inst := range e.instances {
		if inst.IsAlive() && !inst.Passive {
			candidates = append(candidates, inst)
		}
	}
	if len(candidates) == 0 {
		return Instance{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return *candidates[roll.Pick(r.src, len(candidates))], true
}

// DropItem places an item on the room floor.
func (r *Registry) DropItem(worldID, roomID, itemID string) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()
	e.floorItems = append(e.floorItems, itemID)
}

// TakeItem removes one copy of an item from the room floor. The token is
// matched against item IDs exactly first, then case-insensitively.
func (r *Registry) TakeItem(worldID, roomID, token string) (string, error) {
	e := r.entryFor(Key{WorldID: worldID, RoomID: roomID})
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, id := range e.floorItems {
		if id == token {
			idx = i
			break
		}
	}
	if idx < 0 {
		needle := strings.ToLower(token)
		for i, id := range e.floorItems {
			if strings.ToLower(id) == needle {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return "", ErrItemNotOnFloor
	}
	item := e.floorItems[idx]
	e.floorItems = append(e.floorItems[:idx], e.floorItems[idx+1:]...)
	return item, nil
}
