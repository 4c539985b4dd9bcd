package quest

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
)

// Generator produces a new quest for an NPC to offer. Implementations may
// be template-driven or call out to a model; callers persist the result and
// register it with the Manager.
type Generator interface {
	Generate(ctx context.Context, npc *catalog.NPCTemplate, worldLore string) (*catalog.QuestTemplate, error)
}

// TemplateGenerator builds quests from a small set of shapes with rolled
// targets and rewards. It never fails and serves as the fallback when no
// model-backed generator is configured.
type TemplateGenerator struct {
	src roll.Source
}

// NewTemplateGenerator constructs a template generator.
func NewTemplateGenerator(src roll.Source) *TemplateGenerator {
	return &TemplateGenerator{src: src}
}

// Generate rolls one of the quest shapes for the NPC.
func (g *TemplateGenerator) Generate(_ context.Context, npc *catalog.NPCTemplate, _ string) (*catalog.QuestTemplate, error) {
	id := fmt.Sprintf("generated_%s_%04d", npc.ID, roll.Between(g.src, 1000, 9999))

	switch roll.Pick(g.src, 2) {
	case 0:
		return &catalog.QuestTemplate{
			ID:          id,
			Name:        fmt.Sprintf("%s's Errand", npc.Name),
			Description: fmt.Sprintf("%s needs your help thinning out the goblins.", npc.Name),
			Lore:        fmt.Sprintf("A task offered by %s.", npc.Name),
			Objectives: []catalog.QuestObjective{
				{Type: "kill", Target: "goblin", Amount: roll.Between(g.src, 3, 7)},
			},
			Rewards: catalog.QuestRewards{
				Gold:       roll.Between(g.src, 50, 200),
				Experience: roll.Between(g.src, 25, 100),
			},
			GiverNPC: npc.ID,
		}, nil
	default:
		return &catalog.QuestTemplate{
			ID:          id,
			Name:        fmt.Sprintf("Gathering for %s", npc.Name),
			Description: fmt.Sprintf("%s needs supplies gathered from the wilds.", npc.Name),
			Lore:        fmt.Sprintf("A task offered by %s.", npc.Name),
			Objectives: []catalog.QuestObjective{
				{Type: "collect", Target: "herb", Amount: roll.Between(g.src, 5, 10)},
			},
			Rewards: catalog.QuestRewards{
				Gold:       roll.Between(g.src, 30, 150),
				Experience: roll.Between(g.src, 20, 80),
				Items:      []string{"potion"},
			},
			GiverNPC: npc.ID,
		}, nil
	}
}

// FallbackGenerator tries a primary generator and falls back when it fails.
// Quest progress and completion never see which generator produced a quest.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
	onError  func(error)
}

// NewFallbackGenerator constructs the chain. onError observes primary
// failures and may be nil.
func NewFallbackGenerator(primary, fallback Generator, onError func(error)) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback, onError: onError}
}

// Generate returns the primary's quest, or the fallback's when the primary
// errors.
func (g *FallbackGenerator) Generate(ctx context.Context, npc *catalog.NPCTemplate, worldLore string) (*catalog.QuestTemplate, error) {
	q, err := g.primary.Generate(ctx, npc, worldLore)
	if err == nil {
		return q, nil
	}
	if g.onError != nil {
		g.onError(err)
	}
	return g.fallback.Generate(ctx, npc, worldLore)
}
