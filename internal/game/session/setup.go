package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

// errSetupAborted signals a cancelled or timed-out character setup step.
var errSetupAborted = errors.New("session: character setup aborted")

// characterSetup lets the player pick an existing character or create a new
// one. Each prompt carries the setup read deadline.
//
// Postcondition: Returns (plr, nil) when a character is ready to play,
// (nil, nil) on clean quit or timeout, or (nil, error) on fatal connection
// errors.
func (h *Handler) characterSetup(ctx context.Context, conn *telnet.Conn, acct postgres.Account) (*player.Player, error) {
	conn.SetReadTimeout(h.deps.Options.SetupTimeout)

	for {
		summaries, err := h.deps.Players.ListByAccount(ctx, acct.ID)
		if err != nil {
			h.deps.Logger.Error("listing characters", zap.Error(err))
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Could not load your characters. Please reconnect."))
			return nil, nil
		}

		h.showCharacterMenu(conn, summaries)

		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return nil, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := conn.ReadLine()
		if err != nil {
			if isTimeout(err) {
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Character selection timed out. Goodbye!"))
				return nil, nil
			}
			return nil, fmt.Errorf("reading input: %w", err)
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye!"))
			return nil, nil

		case "play":
			if len(args) < 1 {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: play <name|number>"))
				continue
			}
			name, ok := matchSummary(summaries, args[0])
			if !ok {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "No such character on this account."))
				continue
			}
			plr, err := h.deps.Players.GetByName(ctx, name)
			if err != nil {
				h.deps.Logger.Error("loading character", zap.String("character", name), zap.Error(err))
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Could not load that character."))
				continue
			}
			return plr, nil

		case "create":
			if len(args) < 1 {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: create <name>"))
				continue
			}
			plr, err := h.createCharacter(ctx, conn, acct, args[0])
			if err != nil {
				if errors.Is(err, errSetupAborted) {
					continue
				}
				return nil, err
			}
			return plr, nil

		default:
			// A bare character name or list number selects it.
			if name, ok := matchSummary(summaries, parts[0]); ok {
				plr, err := h.deps.Players.GetByName(ctx, name)
				if err == nil {
					return plr, nil
				}
				h.deps.Logger.Error("loading character", zap.String("character", name), zap.Error(err))
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Could not load that character."))
				continue
			}
			_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Unknown command: %s", cmd))
		}
	}
}

func (h *Handler) showCharacterMenu(conn *telnet.Conn, summaries []postgres.PlayerSummary) {
	if len(summaries) == 0 {
		_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "You have no characters yet. Type 'create <name>' to make one."))
		return
	}
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Your characters:"))
	for i, s := range summaries {
		_ = conn.WriteLine(telnet.Colorf(telnet.Cyan, "  %d. %s — level %d %s %s", i+1, s.Name, s.Level, s.Race, s.Class))
	}
	_ = conn.WriteLine("Type 'play <name>' to enter the world, or 'create <name>' for a new character.")
}

// matchSummary resolves a list number or case-insensitive name against the
// account's characters.
func matchSummary(summaries []postgres.PlayerSummary, token string) (string, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		if n >= 1 && n <= len(summaries) {
			return summaries[n-1].Name, true
		}
		return "", false
	}
	for _, s := range summaries {
		if strings.EqualFold(s.Name, token) {
			return s.Name, true
		}
	}
	return "", false
}

// createCharacter walks the class → race → gender prompts and persists the
// new character at the hub.
//
// Postcondition: Returns errSetupAborted on cancel or timeout; other errors
// are fatal connection errors.
func (h *Handler) createCharacter(ctx context.Context, conn *telnet.Conn, acct postgres.Account, name string) (*player.Player, error) {
	if !validCharacterName(name) {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Names must be 3-24 letters."))
		return nil, errSetupAborted
	}
	if _, err := h.deps.Players.GetByName(ctx, name); err == nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That name is already taken."))
		return nil, errSetupAborted
	} else if !errors.Is(err, postgres.ErrPlayerNotFound) {
		h.deps.Logger.Error("checking character name", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return nil, errSetupAborted
	}

	classes := h.deps.Catalog.Classes()
	cls, err := promptChoice(conn, "Choose a class:", classes,
		func(c *catalog.Class) (string, string) { return c.Name, c.Description })
	if err != nil {
		return nil, err
	}

	races := h.deps.Catalog.RacesForClass(cls.ID)
	if len(races) == 0 {
		races = h.deps.Catalog.Races()
	}
	race, err := promptChoice(conn, "Choose a race:", races,
		func(r *catalog.Race) (string, string) { return r.Name, r.Description })
	if err != nil {
		return nil, err
	}

	genders := h.deps.Catalog.Genders()
	gender, err := promptChoice(conn, "Choose a gender:", genders,
		func(g *catalog.Gender) (string, string) { return g.Name, "" })
	if err != nil {
		return nil, err
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightWhite, "Create %s, the %s %s %s? (yes/no)",
		name, strings.ToLower(gender.Name), strings.ToLower(race.Name), strings.ToLower(cls.Name)))
	if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
		return nil, err
	}
	answer, err := conn.ReadLine()
	if err != nil {
		if isTimeout(err) {
			return nil, errSetupAborted
		}
		return nil, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
	default:
		_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Creation cancelled."))
		return nil, errSetupAborted
	}

	opts := h.deps.Options
	plr := player.New(name, opts.HubWorldID, opts.HubRoomID)
	plr.Class = cls.ID
	plr.Race = race.ID
	plr.Gender = gender.ID
	plr.Gold = 25
	h.grantStartingSpells(plr)

	if _, err := h.deps.Players.Create(ctx, acct.ID, plr); err != nil {
		if errors.Is(err, postgres.ErrPlayerNameTaken) {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "That name is already taken."))
			return nil, errSetupAborted
		}
		h.deps.Logger.Error("creating character", zap.Error(err))
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "An internal error occurred. Please try again."))
		return nil, errSetupAborted
	}

	_ = conn.WriteLine(telnet.Colorf(telnet.BrightGreen, "Welcome to the world, %s!", name))
	return plr, nil
}

// grantStartingSpells teaches every class spell available at level 1 and
// equips as many as the slots allow.
func (h *Handler) grantStartingSpells(plr *player.Player) {
	for _, tmpl := range h.deps.Catalog.SpellsForClass(plr.Class) {
		if tmpl.LevelRequired > 1 {
			continue
		}
		plr.KnownSpells[tmpl.ID] = 1
		_ = plr.EquipSpell(tmpl.ID)
	}
}

// promptChoice renders a numbered menu and reads a selection by number or
// case-insensitive name. "cancel" aborts.
func promptChoice[T any](conn *telnet.Conn, title string, options []T, describe func(T) (string, string)) (T, error) {
	var zero T
	if len(options) == 0 {
		return zero, errSetupAborted
	}

	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, title))
	for i, opt := range options {
		name, desc := describe(opt)
		if desc != "" {
			_ = conn.WriteLine(telnet.Colorf(telnet.Cyan, "  %d. %s — %s", i+1, name, desc))
		} else {
			_ = conn.WriteLine(telnet.Colorf(telnet.Cyan, "  %d. %s", i+1, name))
		}
	}

	for {
		if err := conn.WritePrompt(telnet.Colorize(telnet.BrightWhite, "> ")); err != nil {
			return zero, err
		}
		line, err := conn.ReadLine()
		if err != nil {
			if isTimeout(err) {
				_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Timed out."))
				return zero, errSetupAborted
			}
			return zero, fmt.Errorf("reading choice: %w", err)
		}
		token := strings.TrimSpace(line)
		if token == "" {
			continue
		}
		if strings.EqualFold(token, "cancel") {
			_ = conn.WriteLine(telnet.Colorize(telnet.Yellow, "Creation cancelled."))
			return zero, errSetupAborted
		}
		if n, err := strconv.Atoi(token); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		for _, opt := range options {
			name, _ := describe(opt)
			if strings.EqualFold(name, token) {
				return opt, nil
			}
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Pick a number from the list, or 'cancel'."))
	}
}

func validCharacterName(name string) bool {
	if len(name) < 3 || len(name) > 24 {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
