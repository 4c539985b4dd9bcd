package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/quest"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// roomNPCs resolves the current room's NPC templates.
func (s *session) roomNPCs() []*catalog.NPCTemplate {
	rm, ok := s.currentRoom()
	if !ok {
		return nil
	}
	var npcs []*catalog.NPCTemplate
	for _, id := range rm.NPCs {
		if npc, ok := s.h.deps.Catalog.NPC(id); ok {
			npcs = append(npcs, npc)
		}
	}
	return npcs
}

// findRoomNPC matches a token against the room's NPCs. An empty token
// resolves only when exactly one NPC is present.
func (s *session) findRoomNPC(token string) (*catalog.NPCTemplate, bool) {
	npcs := s.roomNPCs()
	if token == "" {
		if len(npcs) == 1 {
			return npcs[0], true
		}
		return nil, false
	}
	var candidates []catalog.Candidate
	for _, npc := range npcs {
		candidates = append(candidates, catalog.Candidate{ID: npc.ID, Name: npc.Name})
	}
	id, ok := catalog.BestMatch(token, candidates)
	if !ok {
		return nil, false
	}
	npc, ok := s.h.deps.Catalog.NPC(id)
	return npc, ok
}

// handleTalk greets an NPC: a dialogue line, then any quests on offer.
// Quest givers whose static quests are exhausted generate a fresh quest.
func (s *session) handleTalk(ctx context.Context, args []string) {
	token := strings.Join(args, " ")
	npc, ok := s.findRoomNPC(token)
	if !ok {
		if token == "" {
			s.writeLine(telnet.Colorize(telnet.Yellow, "There is nobody here to talk to."))
		} else {
			s.writef(telnet.Yellow, "There is no %s here.", token)
		}
		return
	}

	if len(npc.Dialogue) > 0 {
		line := npc.Dialogue[roll.Pick(s.h.deps.Rand, len(npc.Dialogue))]
		s.writef(telnet.BrightWhite, "%s says: \"%s\"", npc.Name, line)
	} else {
		s.writef(telnet.BrightWhite, "%s nods at you.", npc.Name)
	}

	offers := s.questOffers(npc)
	if len(offers) == 0 && s.isQuestGiver(npc) {
		if q := s.generateQuest(ctx, npc); q != nil {
			offers = append(offers, q)
		}
	}
	for _, q := range offers {
		s.writef(telnet.BrightGreen, "%s offers: %s — %s", npc.Name, q.Name, q.Description)
		s.writef(telnet.Dim, "Type 'accept %s' to take it on.", strings.ToLower(q.Name))
	}
	if len(npc.ShopItems) > 0 {
		s.writeLine(telnet.Colorize(telnet.Dim, "They have wares for sale. Try 'shop'."))
	}
}

func (s *session) isQuestGiver(npc *catalog.NPCTemplate) bool {
	return len(npc.Quests) > 0 || npc.Lore != ""
}

// questOffers lists the NPC's quests the player can still accept: static
// quests not yet active or completed, plus pending generated offers.
func (s *session) questOffers(npc *catalog.NPCTemplate) []*catalog.QuestTemplate {
	p := s.plr
	var offers []*catalog.QuestTemplate
	for _, id := range npc.Quests {
		q, ok := s.h.deps.Quests.Quest(id)
		if !ok {
			continue
		}
		if s.h.deps.Quests.Active(p, q.ID) || completedQuest(p.CompletedQuests, q.ID) {
			continue
		}
		offers = append(offers, q)
	}
	for _, q := range s.offered {
		if q.GiverNPC == npc.ID && !s.h.deps.Quests.Active(p, q.ID) && !completedQuest(p.CompletedQuests, q.ID) {
			offers = append(offers, q)
		}
	}
	return offers
}

func completedQuest(completed []string, questID string) bool {
	for _, id := range completed {
		if id == questID {
			return true
		}
	}
	return false
}

// generateQuest asks the configured generator for a fresh quest from this
// NPC, registers it, and persists it for reuse. Failures degrade to no
// offer.
func (s *session) generateQuest(ctx context.Context, npc *catalog.NPCTemplate) *catalog.QuestTemplate {
	if s.h.deps.QuestGen == nil {
		return nil
	}
	lore := ""
	if w, ok := s.h.deps.Worlds.World(s.plr.WorldID); ok {
		lore = w.Lore
	}
	q, err := s.h.deps.QuestGen.Generate(ctx, npc, lore)
	if err != nil {
		s.h.deps.Logger.Warn("generating quest",
			zap.String("npc", npc.ID), zap.Error(err))
		return nil
	}
	if err := s.h.deps.Quests.AddGenerated(q); err != nil {
		s.h.deps.Logger.Warn("registering generated quest",
			zap.String("quest", q.ID), zap.Error(err))
		return nil
	}
	if s.h.deps.QuestSink != nil {
		if err := s.h.deps.QuestSink.SaveGenerated(ctx, q); err != nil {
			s.h.deps.Logger.Warn("persisting generated quest",
				zap.String("quest", q.ID), zap.Error(err))
		}
	}
	s.offered[q.ID] = q
	return q
}

// handleShop lists an NPC's wares.
func (s *session) handleShop(args []string) {
	npc, ok := s.findRoomNPC(strings.Join(args, " "))
	if !ok || len(npc.ShopItems) == 0 {
		s.writeLine(telnet.Colorize(telnet.Yellow, "Nobody here has anything to sell."))
		return
	}
	s.writef(telnet.BrightWhite, "%s's wares (you have %d gold):", npc.Name, s.plr.Gold)
	for _, entry := range npc.ShopItems {
		s.writef(telnet.Cyan, "  %-24s %d gold", s.itemName(entry.ItemID), entry.Price)
	}
	s.writeLine(telnet.Colorize(telnet.Dim, "Type 'buy <item>' or 'sell <item>'."))
}

// handleBuy purchases from any shopkeeper in the room. Insufficient gold is
// a clean rejection with no state change.
func (s *session) handleBuy(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: buy <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	var seller *catalog.NPCTemplate
	var price int
	var itemID string
	for _, npc := range s.roomNPCs() {
		var candidates []catalog.Candidate
		for _, entry := range npc.ShopItems {
			candidates = append(candidates, catalog.Candidate{ID: entry.ItemID, Name: s.itemName(entry.ItemID)})
		}
		id, ok := catalog.BestMatch(token, candidates)
		if !ok {
			continue
		}
		for _, entry := range npc.ShopItems {
			if entry.ItemID == id {
				seller, itemID, price = npc, id, entry.Price
				break
			}
		}
		if seller != nil {
			break
		}
	}
	if seller == nil {
		s.writef(telnet.Yellow, "Nobody here sells %s.", token)
		return
	}
	if p.Gold < price {
		s.writef(telnet.Yellow, "You cannot afford the %s (%d gold, you have %d).",
			s.itemName(itemID), price, p.Gold)
		return
	}

	p.Gold -= price
	p.AddItem(itemID)
	s.writef(telnet.Green, "You buy the %s for %d gold. (%d gold left)",
		s.itemName(itemID), price, p.Gold)

	for _, line := range s.h.deps.Quests.RecordCollect(p, itemID) {
		s.writeLine(telnet.Colorize(telnet.BrightGreen, line))
	}
	s.save(ctx)
}

// handleSell sells a carried item to any shopkeeper in the room for half
// its value.
func (s *session) handleSell(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: sell <item>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	var shopkeeper *catalog.NPCTemplate
	for _, npc := range s.roomNPCs() {
		if len(npc.ShopItems) > 0 {
			shopkeeper = npc
			break
		}
	}
	if shopkeeper == nil {
		s.writeLine(telnet.Colorize(telnet.Yellow, "Nobody here is buying."))
		return
	}

	itemID, ok := s.matchInventoryItem(token)
	if !ok {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}
	tmpl, ok := s.h.deps.Catalog.Item(itemID)
	if !ok || tmpl.Value <= 0 {
		s.writef(telnet.Yellow, "%s shakes their head. \"Worthless to me.\"", shopkeeper.Name)
		return
	}
	price := tmpl.Value / 2
	if price < 1 {
		price = 1
	}
	if err := p.RemoveItem(itemID); err != nil {
		s.writef(telnet.Yellow, "You are not carrying a %s.", token)
		return
	}

	p.Gold += price
	s.writef(telnet.Green, "You sell the %s for %d gold. (%d gold)", tmpl.Name, price, p.Gold)
	s.save(ctx)
}

// matchActiveQuest matches a token against the player's active quests.
func (s *session) matchActiveQuest(token string) (*catalog.QuestTemplate, bool) {
	var candidates []catalog.Candidate
	for _, id := range s.plr.ActiveQuests {
		if q, ok := s.h.deps.Quests.Quest(id); ok {
			candidates = append(candidates, catalog.Candidate{ID: q.ID, Name: q.Name})
		}
	}
	id, ok := catalog.BestMatch(token, candidates)
	if !ok {
		return nil, false
	}
	return s.h.deps.Quests.Quest(id)
}

// handleQuests renders the quest journal.
func (s *session) handleQuests() {
	p := s.plr
	if len(p.ActiveQuests) == 0 {
		s.writeLine(telnet.Colorize(telnet.Yellow, "Your journal is empty."))
	} else {
		s.writeLine(telnet.Colorize(telnet.BrightWhite, "Active quests:"))
		for _, id := range p.ActiveQuests {
			q, ok := s.h.deps.Quests.Quest(id)
			if !ok {
				continue
			}
			marker := ""
			if s.h.deps.Quests.IsComplete(p, q) {
				marker = telnet.Colorize(telnet.BrightGreen, " (ready to turn in)")
			}
			s.writef(telnet.Cyan, "  %s%s", q.Name, marker)
			for _, line := range s.h.deps.Quests.Status(p, q) {
				s.writef(telnet.Dim, "    %s", line)
			}
		}
	}
	if n := len(p.CompletedQuests); n > 0 {
		s.writef(telnet.Dim, "Completed: %d", n)
	}
}

// handleAccept takes on a quest offered by an NPC in the room.
func (s *session) handleAccept(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: accept <quest>"))
		return
	}
	p := s.plr
	token := strings.Join(args, " ")

	var candidates []catalog.Candidate
	var byID = make(map[string]*catalog.QuestTemplate)
	for _, npc := range s.roomNPCs() {
		for _, q := range s.questOffers(npc) {
			candidates = append(candidates, catalog.Candidate{ID: q.ID, Name: q.Name})
			byID[q.ID] = q
		}
	}
	id, ok := catalog.BestMatch(token, candidates)
	if !ok {
		s.writef(telnet.Yellow, "Nobody here is offering %s.", token)
		return
	}
	q := byID[id]

	if err := s.h.deps.Quests.Accept(p, q); err != nil {
		switch err {
		case quest.ErrAlreadyActive:
			s.writef(telnet.Yellow, "You are already on %s.", q.Name)
		case quest.ErrAlreadyCompleted:
			s.writef(telnet.Yellow, "You have already finished %s.", q.Name)
		default:
			s.writef(telnet.Red, "You cannot take %s right now.", q.Name)
		}
		return
	}
	delete(s.offered, q.ID)

	s.writef(telnet.BrightGreen, "Quest accepted: %s", q.Name)
	if q.Lore != "" {
		s.writeLine(telnet.Colorize(telnet.Dim, q.Lore))
	}
	for _, line := range s.h.deps.Quests.Status(p, q) {
		s.writef(telnet.Dim, "  %s", line)
	}
	s.save(ctx)
}

// handleComplete turns in a finished quest. Quests with an unmet sacrifice
// objective list candidates on the first call and consume the named ability
// when it is repeated with one.
func (s *session) handleComplete(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: complete <quest> [ability]"))
		return
	}
	p := s.plr

	q, ok := s.matchActiveQuest(args[0])
	ability := strings.Join(args[1:], " ")
	if !ok {
		// Multi-word quest names: try the whole line as the quest.
		q, ok = s.matchActiveQuest(strings.Join(args, " "))
		ability = ""
	}
	if !ok {
		s.writef(telnet.Yellow, "You are not on a quest called %s.", strings.Join(args, " "))
		return
	}

	if ability != "" && s.h.deps.Quests.NeedsSacrifice(p, q) {
		given, err := s.h.deps.Quests.Sacrifice(p, q, ability)
		if err != nil {
			switch err {
			case quest.ErrNothingToGive:
				s.writeLine(telnet.Colorize(telnet.Yellow, "You have nothing left to give."))
			case quest.ErrAbilityNotFound:
				s.writef(telnet.Yellow, "You cannot sacrifice %s.", ability)
			default:
				s.writef(telnet.Red, "The offering is refused.")
			}
			return
		}
		s.writef(telnet.BrightMagenta, "You give up %s. The loss is permanent.", given.Name)
	}

	rewards, levels, err := s.h.deps.Quests.Complete(p, q)
	if err != nil {
		switch err {
		case quest.ErrSacrificeRequired:
			s.writef(telnet.Yellow, "%s demands a sacrifice before it is done.", q.Name)
			target := sacrificeTarget(q)
			cands := s.h.deps.Quests.SacrificeCandidates(p, target)
			if len(cands) == 0 {
				s.writeLine(telnet.Colorize(telnet.Yellow, "You have nothing left to give."))
				return
			}
			s.writeLine(telnet.Colorize(telnet.BrightWhite, "You could give up:"))
			for _, c := range cands {
				s.writef(telnet.Cyan, "  %s (%s)", c.Name, c.Kind)
			}
			s.writef(telnet.Dim, "Repeat with 'complete %s <ability>' to make the offering.", args[0])
		case quest.ErrObjectivesPending:
			s.writef(telnet.Yellow, "%s is not finished yet.", q.Name)
			for _, line := range s.h.deps.Quests.Status(p, q) {
				s.writef(telnet.Dim, "  %s", line)
			}
		default:
			s.writef(telnet.Red, "You cannot turn in %s right now.", q.Name)
		}
		return
	}

	s.writef(telnet.BrightGreen, "Quest complete: %s!", q.Name)
	if rewards.Gold > 0 {
		s.writef(telnet.Yellow, "You receive %d gold.", rewards.Gold)
	}
	if rewards.Experience > 0 {
		s.writef(telnet.Yellow, "You gain %d experience.", rewards.Experience)
	}
	for _, itemID := range rewards.Items {
		s.writef(telnet.Yellow, "You receive %s.", s.itemName(itemID))
	}
	for _, lvl := range levels {
		s.writef(telnet.BrightYellow, "You have reached level %d!", lvl)
	}
	if len(levels) > 0 {
		s.syncPresence()
	}
	s.save(ctx)
}

// sacrificeTarget returns the target kind of the quest's first unmet-able
// sacrifice objective, defaulting to any.
func sacrificeTarget(q *catalog.QuestTemplate) string {
	for _, obj := range q.Objectives {
		if obj.Type == "sacrifice_ability" {
			return obj.Target
		}
	}
	return quest.SacrificeAny
}

// handleCancelQuest abandons an active quest.
func (s *session) handleCancelQuest(ctx context.Context, args []string) {
	if len(args) < 1 {
		s.writeLine(telnet.Colorize(telnet.Red, "Usage: cancel <quest>"))
		return
	}
	token := strings.Join(args, " ")
	q, ok := s.matchActiveQuest(token)
	if !ok {
		s.writef(telnet.Yellow, "You are not on a quest called %s.", token)
		return
	}
	if err := s.h.deps.Quests.Cancel(s.plr, q.ID); err != nil {
		s.writef(telnet.Yellow, "You are not on %s.", q.Name)
		return
	}
	s.writef(telnet.Yellow, "You abandon %s.", q.Name)
	s.save(ctx)
}
