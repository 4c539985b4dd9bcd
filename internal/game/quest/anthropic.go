package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
)

const questSystemPrompt = "You design quests for a text-based multiplayer dungeon game. Always answer with a single valid JSON object and nothing else."

// ModelGenerator produces quests by prompting a model with the NPC's lore
// and the world's context.
type ModelGenerator struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// NewModelGenerator constructs a model-backed generator.
//
// Precondition: apiKey and model must be non-empty.
func NewModelGenerator(apiKey, model string, logger *zap.Logger) *ModelGenerator {
	return &ModelGenerator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: 1024,
		logger:    logger,
	}
}

// Generate prompts the model for a quest and parses its JSON reply.
func (g *ModelGenerator) Generate(ctx context.Context, npc *catalog.NPCTemplate, worldLore string) (*catalog.QuestTemplate, error) {
	prompt := buildQuestPrompt(npc, worldLore)

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: questSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("quest generation request: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	quest, err := ParseGeneratedQuest(text.String(), npc.ID)
	if err != nil {
		g.logger.Warn("model returned an unusable quest",
			zap.String("npc", npc.ID),
			zap.Error(err))
		return nil, err
	}
	return quest, nil
}

func buildQuestPrompt(npc *catalog.NPCTemplate, worldLore string) string {
	var b strings.Builder
	b.WriteString("Create a quest for this game world.\n\n")
	fmt.Fprintf(&b, "NPC: %s\n", npc.Name)
	if npc.Lore != "" {
		fmt.Fprintf(&b, "NPC lore: %s\n", npc.Lore)
	}
	if worldLore != "" {
		fmt.Fprintf(&b, "World lore: %s\n", worldLore)
	}
	b.WriteString(`
The quest needs a short evocative name, a 2-3 sentence description, a lore
paragraph tying it to the NPC, one or two objectives, and rewards.

Reply with exactly this JSON shape:
{
  "name": "Quest Name",
  "description": "What the player must do",
  "lore": "Story context",
  "objectives": [{"type": "kill", "target": "monster_id", "amount": 5}],
  "rewards": {"gold": 100, "experience": 50, "items": ["item_id"]}
}

Objective types are "kill" and "collect" only. Return ONLY the JSON, no
markdown fences.`)
	return b.String()
}

type generatedQuest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Lore        string `json:"lore"`
	Objectives  []struct {
		Type   string `json:"type"`
		Target string `json:"target"`
		Amount int    `json:"amount"`
	} `json:"objectives"`
	Rewards struct {
		Gold       int      `json:"gold"`
		Experience int      `json:"experience"`
		Items      []string `json:"items"`
	} `json:"rewards"`
}

// ParseGeneratedQuest parses a model reply into a validated quest template.
// Markdown fences around the JSON are tolerated.
func ParseGeneratedQuest(reply, npcID string) (*catalog.QuestTemplate, error) {
	cleaned := stripFences(reply)

	var gq generatedQuest
	if err := json.Unmarshal([]byte(cleaned), &gq); err != nil {
		return nil, fmt.Errorf("quest reply is not valid JSON: %w", err)
	}

	quest := &catalog.QuestTemplate{
		ID:          "ai_" + npcID + "_" + uuid.NewString()[:8],
		Name:        strings.TrimSpace(gq.Name),
		Description: strings.TrimSpace(gq.Description),
		Lore:        strings.TrimSpace(gq.Lore),
		Rewards: catalog.QuestRewards{
			Gold:       gq.Rewards.Gold,
			Experience: gq.Rewards.Experience,
			Items:      gq.Rewards.Items,
		},
		GiverNPC: npcID,
	}
	for _, obj := range gq.Objectives {
		if obj.Amount < 1 {
			obj.Amount = 1
		}
		quest.Objectives = append(quest.Objectives, catalog.QuestObjective{
			Type:   obj.Type,
			Target: obj.Target,
			Amount: obj.Amount,
		})
	}
	if err := quest.Validate(); err != nil {
		return nil, err
	}
	return quest, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
