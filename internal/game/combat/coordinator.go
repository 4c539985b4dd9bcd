// Package combat implements turn-based encounters between one player and
// one monster instance. An encounter is owned by a single session; all
// shared state (the monster itself) lives in the room registry, so two
// players may fight the same instance concurrently and damage interleaves
// safely.
package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
)

// Coordinator errors.
var (
	ErrNoTarget      = errors.New("combat: no such target")
	ErrInvalidChoice = errors.New("combat: choice outside menu")
)

// MaxMenuOptions caps the combat menu at single-digit choices.
const MaxMenuOptions = 9

// PhysicalDamageType is the damage type of plain weapon attacks.
const PhysicalDamageType = "physical"

// OptionKind discriminates combat menu entries.
type OptionKind int

const (
	// OptionAttack is a basic weapon attack.
	OptionAttack OptionKind = iota
	// OptionSpell casts an equipped spell.
	OptionSpell
	// OptionItem consumes a carried consumable.
	OptionItem
)

// Option is one numbered entry of a combat menu. The menu shown to the
// player is a snapshot: selections are validated against current state
// before executing, so a cooldown or an emptied flask between render and
// choice refuses the action instead of acting on stale data.
type Option struct {
	Kind  OptionKind
	Ref   string
	Label string
}

// Encounter is a session's active fight. It references the monster by
// instance ID only; the authoritative monster state stays in the registry.
type Encounter struct {
	Room        *world.Room
	InstanceID  int
	MonsterName string
	Menu        []Option
}

// Outcome reports the result of one combat turn.
type Outcome struct {
	// Lines is the player-facing narration, in order.
	Lines []string
	// Refused is set when the chosen option was stale or illegal; the
	// encounter continues with a rebuilt menu and no monster turn.
	Refused bool
	// MonsterDied and PlayerDied end the encounter.
	MonsterDied bool
	PlayerDied  bool
	// KilledTemplate is the template ID of the slain monster, for quest
	// progress tracking.
	KilledTemplate string
	// Experience, Gold, and LevelsGained are the kill rewards applied.
	Experience   int
	Gold         int
	LevelsGained []int
	// LootDropped is the item ID dropped to the room floor, if any.
	LootDropped string
	// Next is the auto-chained follow-up encounter when more monsters
	// remain in the room after a kill.
	Next *Encounter
}

// Ended reports whether the encounter is over after this turn.
func (o *Outcome) Ended() bool {
	return o.MonsterDied || o.PlayerDied
}

// Coordinator resolves combat turns against the room registry.
type Coordinator struct {
	registry *room.Registry
	catalog  *catalog.Catalog
	src      roll.Source
	now      func() time.Time
	logger   *zap.Logger
}

// NewCoordinator constructs a coordinator. now may be nil to use time.Now.
func NewCoordinator(reg *room.Registry, cat *catalog.Catalog, src roll.Source, now func() time.Time, logger *zap.Logger) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{registry: reg, catalog: cat, src: src, now: now, logger: logger}
}

// Start begins an encounter against the monster matching token (instance ID
// or name fragment) in the player's room.
func (c *Coordinator) Start(p *player.Player, rm *world.Room, token string) (*Encounter, error) {
	inst, err := c.registry.FindTarget(rm.WorldID, rm.ID, token)
	if err != nil {
		return nil, ErrNoTarget
	}
	return c.startWith(p, rm, inst), nil
}

// StartAgainst begins an encounter with a known instance, used for
// aggressive rooms where the monster strikes first.
func (c *Coordinator) StartAgainst(p *player.Player, rm *world.Room, inst room.Instance) *Encounter {
	return c.startWith(p, rm, inst)
}

func (c *Coordinator) startWith(p *player.Player, rm *world.Room, inst room.Instance) *Encounter {
	return &Encounter{
		Room:        rm,
		InstanceID:  inst.ID,
		MonsterName: inst.Name,
		Menu:        c.BuildMenu(p),
	}
}

// BuildMenu assembles the numbered action menu: attack first, then equipped
// spells that are off cooldown and affordable, then carried consumables.
// The menu never exceeds MaxMenuOptions entries.
func (c *Coordinator) BuildMenu(p *player.Player) []Option {
	now := c.now()
	menu := []Option{{Kind: OptionAttack, Label: "Attack"}}

	for _, spellID := range p.EquippedSpells {
		if len(menu) >= MaxMenuOptions {
			break
		}
		tmpl, ok := c.catalog.Spell(spellID)
		if !ok {
			c.logger.Warn("equipped spell missing from catalog",
				zap.String("player", p.Name),
				zap.String("spell", spellID))
			continue
		}
		level := p.KnownSpells[spellID]
		cost := SpellCost(tmpl, level)
		if !p.SpellReady(spellID, now) || p.CurrentStamina < cost {
			continue
		}
		menu = append(menu, Option{
			Kind:  OptionSpell,
			Ref:   spellID,
			Label: fmt.Sprintf("Cast %s (%d stamina)", tmpl.Name, cost),
		})
	}

	seen := make(map[string]bool)
	for _, itemID := range p.Inventory {
		if len(menu) >= MaxMenuOptions {
			break
		}
		if seen[itemID] {
			continue
		}
		seen[itemID] = true
		tmpl, ok := c.catalog.Item(itemID)
		if !ok || tmpl.Type != catalog.ItemTypeConsumable {
			continue
		}
		menu = append(menu, Option{
			Kind:  OptionItem,
			Ref:   itemID,
			Label: fmt.Sprintf("Use %s", tmpl.Name),
		})
	}
	return menu
}

// Resolve executes the player's numbered choice against the encounter's
// menu snapshot, then runs the monster's counter-turn when the fight
// continues. On a stale choice the outcome is a refusal and the menu is
// rebuilt in place.
func (c *Coordinator) Resolve(ctx context.Context, p *player.Player, enc *Encounter, choice int) (*Outcome, error) {
	if choice < 1 || choice > len(enc.Menu) {
		return nil, ErrInvalidChoice
	}
	opt := enc.Menu[choice-1]

	var out *Outcome
	var err error
	switch opt.Kind {
	case OptionAttack:
		out, err = c.resolveAttack(ctx, p, enc)
	case OptionSpell:
		out, err = c.resolveSpell(ctx, p, enc, opt.Ref)
	case OptionItem:
		out = c.resolveItem(p, enc, opt.Ref)
	default:
		return nil, ErrInvalidChoice
	}
	if err != nil {
		return nil, err
	}
	if !out.Ended() {
		enc.Menu = c.BuildMenu(p)
	}
	return out, nil
}

func (c *Coordinator) resolveAttack(ctx context.Context, p *player.Player, enc *Encounter) (*Outcome, error) {
	damage := p.TotalAttack(c.catalog)
	return c.applyPlayerDamage(ctx, p, enc, damage, PhysicalDamageType,
		func(dealt int) string {
			return fmt.Sprintf("You strike %s for %d damage!", enc.MonsterName, dealt)
		})
}

func (c *Coordinator) resolveSpell(ctx context.Context, p *player.Player, enc *Encounter, spellID string) (*Outcome, error) {
	tmpl, ok := c.catalog.Spell(spellID)
	if !ok {
		return c.refuse(p, "That spell fizzles into nothing."), nil
	}
	level := p.KnownSpells[spellID]
	cost := SpellCost(tmpl, level)
	now := c.now()
	if !p.SpellReady(spellID, now) {
		return c.refuse(p, fmt.Sprintf("%s is still on cooldown.", tmpl.Name)), nil
	}
	if !p.UseStamina(cost) {
		return c.refuse(p, fmt.Sprintf("You are too exhausted to cast %s.", tmpl.Name)), nil
	}

	// Stamina and cooldown are spent even when the cast fails.
	p.StartCooldown(spellID, now.Add(time.Duration(tmpl.CooldownSeconds)*time.Second))

	if tmpl.Healing {
		amount := SpellPower(tmpl, level, p.Level, p.TotalAttack(c.catalog))
		p.Heal(amount)
		out := &Outcome{Lines: []string{
			fmt.Sprintf("You cast %s and restore %d HP!", tmpl.Name, amount),
		}}
		return c.monsterTurn(p, enc, out), nil
	}

	if roll.Chance(c.src, FailChance(level)) {
		out := &Outcome{Lines: []string{fmt.Sprintf("Your %s fails!", tmpl.Name)}}
		return c.monsterTurn(p, enc, out), nil
	}

	damage := SpellPower(tmpl, level, p.Level, p.TotalAttack(c.catalog))
	return c.applyPlayerDamage(ctx, p, enc, damage, tmpl.DamageType,
		func(dealt int) string {
			return fmt.Sprintf("You cast %s at %s for %d damage!", tmpl.Name, enc.MonsterName, dealt)
		})
}

func (c *Coordinator) resolveItem(p *player.Player, enc *Encounter, itemID string) *Outcome {
	tmpl, ok := c.catalog.Item(itemID)
	if !ok || !p.HasItem(itemID) {
		return c.refuse(p, "You no longer have that.")
	}
	restored := make([]string, 0, 2)
	if tmpl.Stats.RestoreHP > 0 {
		before := p.CurrentHP
		p.Heal(tmpl.Stats.RestoreHP)
		if gained := p.CurrentHP - before; gained > 0 {
			restored = append(restored, fmt.Sprintf("%d HP", gained))
		}
	}
	if tmpl.Stats.RestoreStamina > 0 {
		before := p.CurrentStamina
		p.RestoreStamina(tmpl.Stats.RestoreStamina)
		if gained := p.CurrentStamina - before; gained > 0 {
			restored = append(restored, fmt.Sprintf("%d stamina", gained))
		}
	}
	if len(restored) == 0 {
		return c.refuse(p, fmt.Sprintf("%s has no effect.", tmpl.Name))
	}
	if err := p.RemoveItem(itemID); err != nil {
		return c.refuse(p, "You no longer have that.")
	}
	out := &Outcome{Lines: []string{
		fmt.Sprintf("You use %s and recover %s.", tmpl.Name, joinAnd(restored)),
	}}
	// Using an item costs the turn; the monster still swings.
	return c.monsterTurn(p, enc, out)
}

func (c *Coordinator) refuse(p *player.Player, line string) *Outcome {
	return &Outcome{Lines: []string{line}, Refused: true}
}

// applyPlayerDamage damages the monster and either resolves its death or
// lets it counter-attack.
func (c *Coordinator) applyPlayerDamage(ctx context.Context, p *player.Player, enc *Encounter, damage int, damageType string, narrate func(dealt int) string) (*Outcome, error) {
	dealt, after, err := c.registry.DamageInstance(enc.Room.WorldID, enc.Room.ID, enc.InstanceID, damage, damageType)
	if errors.Is(err, room.ErrInstanceNotFound) || errors.Is(err, room.ErrInstanceDead) {
		// Someone else landed the killing blow between turns.
		return &Outcome{
			Lines:       []string{fmt.Sprintf("%s is already dead.", enc.MonsterName)},
			MonsterDied: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	out := &Outcome{Lines: []string{narrate(dealt)}}
	if !after.IsAlive() {
		return c.resolveMonsterDeath(ctx, p, enc, out)
	}
	out.Lines = append(out.Lines, fmt.Sprintf("%s is %s.", after.Name, after.HealthDescription()))
	return c.monsterTurn(p, enc, out), nil
}

// monsterTurn runs the monster's counter-attack and appends its narration.
func (c *Coordinator) monsterTurn(p *player.Player, enc *Encounter, out *Outcome) *Outcome {
	dmg, err := c.registry.CounterAttack(enc.Room.WorldID, enc.Room.ID, enc.InstanceID)
	if err != nil {
		// The monster died to someone else mid-turn; nothing swings back.
		return out
	}
	taken := p.TakeDamage(dmg, p.TotalDefense(c.catalog))
	out.Lines = append(out.Lines,
		fmt.Sprintf("%s attacks you for %d damage!", enc.MonsterName, taken),
		fmt.Sprintf("HP %d/%d  Stamina %d/%d", p.CurrentHP, p.MaxHP, p.CurrentStamina, p.MaxStamina))
	if !p.IsAlive() {
		out.PlayerDied = true
	}
	return out
}

// resolveMonsterDeath finalizes a kill: rewards, loot to the room floor,
// and the auto-chained next encounter when more monsters remain.
func (c *Coordinator) resolveMonsterDeath(ctx context.Context, p *player.Player, enc *Encounter, out *Outcome) (*Outcome, error) {
	inst, err := c.registry.ResolveDeath(ctx, enc.Room, enc.InstanceID)
	if errors.Is(err, room.ErrInstanceNotFound) {
		out.MonsterDied = true
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	out.MonsterDied = true
	out.KilledTemplate = inst.TemplateID
	out.Lines = append(out.Lines, fmt.Sprintf("You have slain %s!", inst.Name))

	out.Experience = inst.ExperienceValue()
	out.LevelsGained = p.GainExperience(out.Experience)
	out.Lines = append(out.Lines, fmt.Sprintf("You gain %d experience.", out.Experience))
	for _, lvl := range out.LevelsGained {
		out.Lines = append(out.Lines, fmt.Sprintf("You reached level %d!", lvl))
	}

	if gold := inst.GoldDrop(c.src); gold > 0 {
		p.Gold += gold
		out.Gold = gold
		out.Lines = append(out.Lines, fmt.Sprintf("You receive %d gold.", gold))
	}

	if loot := inst.RollLoot(c.src); loot != "" {
		c.registry.DropItem(enc.Room.WorldID, enc.Room.ID, loot)
		out.LootDropped = loot
		name := loot
		if tmpl, ok := c.catalog.Item(loot); ok {
			name = tmpl.Name
		}
		out.Lines = append(out.Lines, fmt.Sprintf("%s dropped %s. Use 'get %s' to pick it up.", inst.Name, name, name))
	}

	// Remaining monsters press the attack immediately.
	if next, ok := c.nextLiving(enc.Room); ok {
		out.Next = c.StartAgainst(p, enc.Room, next)
		out.Lines = append(out.Lines, fmt.Sprintf("%s turns on you!", next.Label()))
	} else {
		out.Lines = append(out.Lines, "The room falls silent.")
	}
	return out, nil
}

func (c *Coordinator) nextLiving(rm *world.Room) (room.Instance, bool) {
	instances, _ := c.registry.Snapshot(rm.WorldID, rm.ID)
	if len(instances) == 0 {
		return room.Instance{}, false
	}
	return instances[0], true
}

// ApplyDeathPenalty processes a player defeat: one random carried item is
// lost, the player is moved to the hub room, and HP is fully restored.
// Returns the lost item ID, or "" when the inventory was empty.
func ApplyDeathPenalty(p *player.Player, hubRoomID string, src roll.Source) string {
	lost := ""
	if len(p.Inventory) > 0 {
		lost = p.Inventory[roll.Pick(src, len(p.Inventory))]
		_ = p.RemoveItem(lost)
	}
	p.RoomID = hubRoomID
	p.CurrentHP = p.MaxHP
	return lost
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + " and " + parts[1]
	}
}
