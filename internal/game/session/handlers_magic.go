package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// spellName resolves a spell ID to its display name, falling back to the ID.
func (s *session) spellName(spellID string) string {
	if tmpl, ok := s.h.deps.Catalog.Spell(spellID); ok {
		return tmpl.Name
	}
	return spellID
}

// matchKnownSpell matches a token against the player's known spells.
func (s *session) matchKnownSpell(token string) (string, bool) {
	var candidates []catalog.Candidate
	for id := range s.plr.KnownSpells {
		candidates = append(candidates, catalog.Candidate{ID: id, Name: s.spellName(id)})
	}
	return catalog.BestMatch(token, candidates)
}

// handleSpells lists known, prepared, and learnable spells.
func (s *session) handleSpells() {
	p := s.plr
	now := time.Now()

	if len(p.KnownSpells) == 0 {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You know no spells."))
	} else {
		s.writeLine(telnet.Colorize(telnet.BrightWhite, "Known spells:"))
		for _, tmpl := range s.h.deps.Catalog.SpellsForClass(p.Class) {
			level, known := p.KnownSpells[tmpl.ID]
			if !known {
				continue
			}
			cost := combat.SpellCost(tmpl, level)
			marker := ""
			if equippedSpell(p, tmpl.ID) {
				marker = telnet.Colorize(telnet.Green, " [prepared]")
			}
			if !p.SpellReady(tmpl.ID, now) {
				remaining := time.Until(p.SpellCooldowns[tmpl.ID]).Round(time.Second)
				marker += telnet.Colorf(telnet.Yellow, " (cooldown %s)", remaining)
			}
			s.writef(telnet.Cyan, "  %s L%d — %d stamina%s", tmpl.Name, level, cost, marker)
		}
	}

	var learnable []string
	for _, tmpl := range s.h.deps.Catalog.SpellsForClass(p.Class) {
		if _, known := p.KnownSpells[tmpl.ID]; known {
			continue
		}
		if tmpl.LevelRequired <= p.Level {
			learnable = append(learnable, tmpl.Name)
		}
	}
	if len(learnable) > 0 {
		s.writef(telnet.Dim, "You could learn: %s", strings.Join(learnable, ", "))
	}
}

func equippedSpell(p *player.Player, spellID string) bool {
	for _, id := range p.EquippedSpells {
		if id == spellID {
			return true
		}
	}
	return false
}

// handlePrepare equips a known spell for combat.
func (s *session) handlePrepare(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: prepare <spell>"))
		return
	}
	token := strings.Join(args, " ")
	spellID, ok := s.matchKnownSpell(token)
	if !ok {
		s.writef(telnet.Yellow, "You do not know %s.", token)
		return
	}
	if err := s.plr.EquipSpell(spellID); err != nil {
		if errors.Is(err, player.ErrSpellSlotsFull) {
			s.writef(telnet.Yellow, "You can prepare at most %d spells. Unprepare one first.", player.MaxEquippedSpells)
			return
		}
		s.writef(telnet.Yellow, "You do not know %s.", token)
		return
	}
	s.writef(telnet.Green, "You prepare %s.", s.spellName(spellID))
	s.save(ctx)
}

// handleUnprepare removes a spell from the prepared set.
func (s *session) handleUnprepare(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: unprepare <spell>"))
		return
	}
	token := strings.Join(args, " ")
	spellID, ok := s.matchKnownSpell(token)
	if !ok || !equippedSpell(s.plr, spellID) {
		s.writef(telnet.Yellow, "You have not prepared %s.", token)
		return
	}
	s.plr.UnequipSpell(spellID)
	s.writef(telnet.Green, "You unprepare %s.", s.spellName(spellID))
	s.save(ctx)
}

// handleCast casts a healing spell outside combat. Damage spells need a
// target and are combat-only.
func (s *session) handleCast(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: cast <spell>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	spellID, ok := s.matchKnownSpell(token)
	if !ok {
		s.writef(telnet.Yellow, "You do not know %s.", token)
		return
	}
	tmpl, ok := s.h.deps.Catalog.Spell(spellID)
	if !ok {
		s.writef(telnet.Yellow, "You do not know %s.", token)
		return
	}
	if !tmpl.Healing {
		s.writef(telnet.Yellow, "%s needs a target. Use 'attack' to enter combat.", tmpl.Name)
		return
	}

	now := time.Now()
	if !p.SpellReady(spellID, now) {
		remaining := time.Until(p.SpellCooldowns[spellID]).Round(time.Second)
		s.writef(telnet.Yellow, "%s is still cooling down (%s).", tmpl.Name, remaining)
		return
	}
	level := p.KnownSpells[spellID]
	cost := combat.SpellCost(tmpl, level)
	if !p.UseStamina(cost) {
		s.writef(telnet.Yellow, "You are too exhausted to cast %s (%d stamina needed).", tmpl.Name, cost)
		return
	}
	p.StartCooldown(spellID, now.Add(time.Duration(tmpl.CooldownSeconds)*time.Second))

	if roll.Chance(s.h.deps.Rand, combat.FailChance(level)) {
		s.writef(telnet.Yellow, "Your %s fizzles.", tmpl.Name)
		s.save(ctx)
		return
	}

	amount := combat.SpellPower(tmpl, level, p.Level, p.TotalAttack(s.h.deps.Catalog))
	p.Heal(amount)
	s.writef(telnet.BrightGreen, "You cast %s and restore %d hp. (%d/%d hp)",
		tmpl.Name, amount, p.CurrentHP, p.MaxHP)
	s.save(ctx)
}

// handleLearn teaches a class spell the player qualifies for.
func (s *session) handleLearn(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: learn <spell>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	var candidates []catalog.Candidate
	for _, tmpl := range s.h.deps.Catalog.SpellsForClass(p.Class) {
		if _, known := p.KnownSpells[tmpl.ID]; known {
			continue
		}
		candidates = append(candidates, catalog.Candidate{ID: tmpl.ID, Name: tmpl.Name})
	}
	spellID, ok := catalog.BestMatch(token, candidates)
	if !ok {
		s.writef(telnet.Yellow, "There is no %s for you to learn.", token)
		return
	}
	tmpl, _ := s.h.deps.Catalog.Spell(spellID)
	if tmpl.LevelRequired > p.Level {
		s.writef(telnet.Yellow, "%s requires level %d.", tmpl.Name, tmpl.LevelRequired)
		return
	}

	p.KnownSpells[spellID] = 1
	s.writef(telnet.BrightGreen, "You learn %s!", tmpl.Name)
	s.save(ctx)
}

// handlePoints spends unspent skill points: points spell|perk <name>.
// A bare name is treated as a spell.
func (s *session) handlePoints(ctx context.Context, args []string) {
	p := s.plr
	if len(args) == 0 {
		s.writef(telnet.BrightWhite, "You have %d unspent points.", p.UnspentPoints)
		s.writeLine(telnet.Colorize(telnet.Dim, "Spend with 'points spell <name>' or 'points perk <name>'."))
		return
	}

	kind := "spell"
	name := strings.Join(args, " ")
	switch strings.ToLower(args[0]) {
	case "spell", "perk":
		kind = strings.ToLower(args[0])
		name = strings.Join(args[1:], " ")
	}
	if name == "" {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: points spell|perk <name>"))
		return
	}
	if p.UnspentPoints < 1 {
		s.writeLine(telnet.Colorize(telnet.Yellow, "You have no unspent points."))
		return
	}

	switch kind {
	case "spell":
		spellID, ok := s.matchKnownSpell(name)
		if !ok {
			s.writef(telnet.Yellow, "You do not know %s.", name)
			return
		}
		p.KnownSpells[spellID]++
		p.UnspentPoints--
		s.writef(telnet.BrightGreen, "%s rises to level %d.", s.spellName(spellID), p.KnownSpells[spellID])

	case "perk":
		perk := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
		for _, existing := range p.ActivePerks {
			if existing == perk {
				s.writef(telnet.Yellow, "You already have the %s perk.", name)
				return
			}
		}
		p.ActivePerks = append(p.ActivePerks, perk)
		p.UnspentPoints--
		s.writef(telnet.BrightGreen, "You gain the %s perk.", name)
	}
	s.save(ctx)
}
