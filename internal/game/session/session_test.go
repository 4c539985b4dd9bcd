package session_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
	"github.com/cory-johannsen/dungeonmud/internal/game/player"
	"github.com/cory-johannsen/dungeonmud/internal/game/quest"
	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/game/session"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

const sessionCatalogYAML = `
monsters:
  - id: goblin
    name: Goblin
    max_hp: 8
    attack: 4
    defense: 2
    level_min: 1
    level_max: 1
    damage_min: 2
    damage_max: 3
    experience: 10
items:
  - id: rusty_dagger
    name: Rusty Dagger
    type: weapon
    value: 10
    stats:
      attack: 2
  - id: potion
    name: Healing Potion
    type: consumable
    value: 4
    stats:
      restore_hp: 25
spells:
  - id: minor_heal
    name: Minor Heal
    damage_type: heal
    healing: true
    base_damage: 20
    stamina_cost: 10
    cooldown_seconds: 5
    classes: [warrior]
npcs:
  - id: merchant
    name: Maro the Merchant
    dialogue: ["Fine wares, friend."]
    shop_items:
      - item: rusty_dagger
        price: 10
      - item: potion
        price: 4
  - id: elder
    name: Elder Vessna
    dialogue: ["The village needs you."]
    quests: [fetch_potion]
quests:
  - id: fetch_potion
    name: A Draught for the Sick
    description: Bring Elder Vessna a healing potion.
    giver_npc: elder
    objectives:
      - type: collect
        target: potion
        amount: 1
    rewards:
      gold: 7
      experience: 10
classes:
  - id: warrior
    name: Warrior
    description: Steel and grit.
    races: [human]
races:
  - id: human
    name: Human
genders:
  - id: female
    name: Female
  - id: male
    name: Male
`

const sessionWorldYAML = `
world:
  id: default
  name: Testland
  start_room: square
  hub_room: square
  rooms:
    - id: square
      title: Town Square
      description: A quiet cobbled square.
      safe: true
      npcs: [merchant, elder]
      items: [potion]
      exits:
        - direction: north
          target: cave
    - id: cave
      title: Gloomy Cave
      description: Water drips somewhere in the dark.
      exits:
        - direction: south
          target: square
      spawns:
        - template: goblin
          count: 1
          level_min: 1
          level_max: 1
`

type lowSource struct{}

func (lowSource) Intn(int) int { return 0 }

type nullRespawnStore struct{}

func (s *nullRespawnStore) RegisterMonsterDeath(context.Context, string, string, string, int, time.Duration) error {
	return nil
}

func (s *nullRespawnStore) RoomRespawns(context.Context, string, string) (map[string]room.RespawnStatus, error) {
	return nil, nil
}

func (s *nullRespawnStore) CleanupExpired(context.Context) (int, error) { return 0, nil }

// memAccounts is an in-memory AccountStore. Passwords are stored in the
// clear; this is a test double, not a credential store.
type memAccounts struct {
	mu     sync.Mutex
	nextID int64
	accts  map[string]postgres.Account
	passwd map[string]string
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accts: map[string]postgres.Account{}, passwd: map[string]string{}}
}

func (m *memAccounts) seed(username, password string) postgres.Account {
	acct, _ := m.Create(context.Background(), username, password)
	return acct
}

func (m *memAccounts) Create(_ context.Context, username, password string) (postgres.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(username)
	if _, ok := m.accts[key]; ok {
		return postgres.Account{}, postgres.ErrAccountExists
	}
	m.nextID++
	acct := postgres.Account{ID: m.nextID, Username: username, CreatedAt: time.Now()}
	m.accts[key] = acct
	m.passwd[key] = password
	return acct, nil
}

func (m *memAccounts) Authenticate(_ context.Context, username, password string) (postgres.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(username)
	acct, ok := m.accts[key]
	if !ok {
		return postgres.Account{}, postgres.ErrAccountNotFound
	}
	if m.passwd[key] != password {
		return postgres.Account{}, postgres.ErrInvalidCredentials
	}
	return acct, nil
}

func (m *memAccounts) TouchLastSeen(context.Context, int64) error { return nil }

// memPlayers is an in-memory PlayerStore keyed by lowercased name.
type memPlayers struct {
	mu     sync.Mutex
	nextID int64
	owners map[string]int64
	chars  map[string]*player.Player
}

func newMemPlayers() *memPlayers {
	return &memPlayers{owners: map[string]int64{}, chars: map[string]*player.Player{}}
}

func (m *memPlayers) seed(accountID int64, p *player.Player) {
	_, err := m.Create(context.Background(), accountID, p)
	if err != nil {
		panic(err)
	}
}

func (m *memPlayers) Create(_ context.Context, accountID int64, p *player.Player) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(p.Name)
	if _, ok := m.chars[key]; ok {
		return 0, postgres.ErrPlayerNameTaken
	}
	m.nextID++
	m.owners[key] = accountID
	m.chars[key] = p
	return m.nextID, nil
}

func (m *memPlayers) GetByName(_ context.Context, name string) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.chars[strings.ToLower(name)]
	if !ok {
		return nil, postgres.ErrPlayerNotFound
	}
	return p, nil
}

func (m *memPlayers) AccountForName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.owners[strings.ToLower(name)]
	if !ok {
		return 0, postgres.ErrPlayerNotFound
	}
	return id, nil
}

func (m *memPlayers) ListByAccount(_ context.Context, accountID int64) ([]postgres.PlayerSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.PlayerSummary
	for key, p := range m.chars {
		if m.owners[key] != accountID {
			continue
		}
		out = append(out, postgres.PlayerSummary{
			Name:  p.Name,
			Class: p.Class,
			Race:  p.Race,
			Level: p.Level,
		})
	}
	return out, nil
}

func (m *memPlayers) Save(_ context.Context, p *player.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chars[strings.ToLower(p.Name)]; !ok {
		return postgres.ErrPlayerNotFound
	}
	return nil
}

type fixture struct {
	t        *testing.T
	accounts *memAccounts
	players  *memPlayers
	handler  *session.Handler
	dir      *directory.Directory
}

func newFixture(t *testing.T, opts session.Options) *fixture {
	t.Helper()

	cat, err := catalog.LoadFromBytes([]byte(sessionCatalogYAML))
	require.NoError(t, err)
	w, err := world.LoadWorldFromBytes([]byte(sessionWorldYAML))
	require.NoError(t, err)
	worlds, err := world.NewManager([]*world.World{w})
	require.NoError(t, err)

	reg := room.NewRegistry(cat, &nullRespawnStore{}, lowSource{}, zap.NewNop())
	coord := combat.NewCoordinator(reg, cat, lowSource{}, nil, zap.NewNop())

	accounts := newMemAccounts()
	players := newMemPlayers()
	dir := directory.New()

	opts.HubWorldID = "default"
	opts.HubRoomID = "square"

	h, err := session.NewHandler(session.Deps{
		Accounts:  accounts,
		Players:   players,
		Catalog:   cat,
		Worlds:    worlds,
		Rooms:     reg,
		Combat:    coord,
		Quests:    quest.NewManager(cat),
		Directory: dir,
		Ticker:    directory.NewRegenTicker(time.Second, nil),
		Rand:      lowSource{},
		Logger:    zap.NewNop(),
		Options:   opts,
	})
	require.NoError(t, err)

	return &fixture{t: t, accounts: accounts, players: players, handler: h, dir: dir}
}

// seedCharacter registers an account and a ready-to-play character, and
// returns the character for further tweaks before connecting.
func (f *fixture) seedCharacter(username, password, charName string) *player.Player {
	acct := f.accounts.seed(username, password)
	p := player.New(charName, "default", "square")
	p.Class = "warrior"
	p.Race = "human"
	p.Gender = "female"
	p.Gold = 25
	f.players.seed(acct.ID, p)
	return p
}

// client drives one scripted session over a net.Pipe. The pipe is
// unbuffered, so a background goroutine drains server output continuously;
// expect polls the drained buffer.
type client struct {
	t    *testing.T
	conn net.Conn
	done chan error

	mu  sync.Mutex
	buf bytes.Buffer
	off int
}

func (f *fixture) connect() *client {
	serverEnd, clientEnd := net.Pipe()
	tc := telnet.NewConn(serverEnd, 0, 5*time.Second)

	c := &client{t: f.t, conn: clientEnd, done: make(chan error, 1)}
	go func() {
		err := f.handler.HandleSession(context.Background(), tc)
		_ = tc.Close()
		c.done <- err
	}()
	go func() {
		chunk := make([]byte, 4096)
		for {
			n, err := clientEnd.Read(chunk)
			c.mu.Lock()
			c.buf.Write(chunk[:n])
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
	f.t.Cleanup(func() { _ = clientEnd.Close() })
	return c
}

func (c *client) output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// expect waits until substr appears in the output past the last match,
// failing the test after five seconds.
func (c *client) expect(substr string) {
	c.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if i := strings.Index(c.output()[c.off:], substr); i >= 0 {
			c.off += i + len(substr)
			return
		}
		if time.Now().After(deadline) {
			c.t.Fatalf("timed out waiting for %q; output so far:\n%s", substr, c.output())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *client) send(line string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

func (c *client) wait() error {
	c.t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(5 * time.Second):
		c.t.Fatal("session did not end")
		return nil
	}
}

// login drives a seeded client through the auth prompt.
func (c *client) login(username, password string) {
	c.expect("to connect.")
	c.send("login " + username + " " + password)
	c.expect("Welcome back, " + username + "!")
}

// enterWorld logs in and selects the named character.
func (c *client) enterWorld(username, password, charName string) {
	c.login(username, password)
	c.expect("Your characters:")
	c.send("play " + charName)
	c.expect("Town Square")
}

func (c *client) quit() {
	c.send("quit")
	c.expect("Goodbye!")
	require.NoError(c.t, c.wait())
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t, session.Options{})
	c := f.connect()

	c.expect("to connect.")
	c.send("register alice secret1")
	c.expect("Account created: alice. You may now 'login'.")
	c.send("login alice secret1")
	c.expect("Welcome back, alice!")
	c.expect("You have no characters yet.")
	c.send("quit")
	c.expect("Goodbye!")
	require.NoError(t, c.wait())
}

func TestRegisterRejectsShortCredentials(t *testing.T) {
	f := newFixture(t, session.Options{})
	c := f.connect()

	c.expect("to connect.")
	c.send("register al secret1")
	c.expect("Username must be 3-32 characters.")
	c.send("register alice abc")
	c.expect("Password must be at least 4 characters.")
	c.send("quit")
	c.expect("Goodbye!")
	require.NoError(t, c.wait())
}

func TestTooManyFailedLoginsDisconnects(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.accounts.seed("alice", "secret1")
	c := f.connect()

	c.expect("to connect.")
	for i := 0; i < 3; i++ {
		c.send("login alice wrong")
		if i < 2 {
			c.expect("Invalid password.")
		}
	}
	c.expect("Too many failed logins. Goodbye!")
	require.NoError(t, c.wait())
}

func TestCharacterCreationFlow(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.accounts.seed("alice", "secret1")
	c := f.connect()

	c.login("alice", "secret1")
	c.expect("You have no characters yet.")
	c.send("create Asha")
	c.expect("Choose a class:")
	c.expect("1. Warrior")
	c.send("1")
	c.expect("Choose a race:")
	c.send("1")
	c.expect("Choose a gender:")
	c.send("1")
	c.expect("Create Asha, the female human warrior? (yes/no)")
	c.send("yes")
	c.expect("Welcome to the world, Asha!")
	c.expect("Town Square")
	c.quit()

	p, err := f.players.GetByName(context.Background(), "asha")
	require.NoError(t, err)
	require.Equal(t, "warrior", p.Class)
	require.Equal(t, "human", p.Race)
	require.Equal(t, 25, p.Gold)
	require.Contains(t, p.KnownSpells, "minor_heal", "level-1 class spells are granted at creation")
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	f.accounts.seed("bob", "secret2")
	c := f.connect()

	c.login("bob", "secret2")
	c.expect("You have no characters yet.")
	c.send("create Asha")
	c.expect("That name is already taken.")
	c.send("quit")
	c.expect("Goodbye!")
	require.NoError(t, c.wait())
}

func TestLookAndMovement(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.expect("Maro the Merchant is here.")
	c.expect("A Healing Potion lies here.")

	c.send("north")
	c.expect("Gloomy Cave")
	c.expect("Goblin")

	c.send("south")
	c.expect("Town Square")
	c.quit()
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("frobnicate")
	c.expect("Unknown command")
	c.quit()
}

func TestInventoryAndEquipment(t *testing.T) {
	f := newFixture(t, session.Options{})
	p := f.seedCharacter("alice", "secret1", "Asha")
	p.Inventory = append(p.Inventory, "rusty_dagger")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("inventory")
	c.expect("Rusty Dagger")

	c.send("equip dagger")
	c.expect("You equip the Rusty Dagger.")
	c.send("inventory")
	c.expect("[equipped]")

	c.send("unequip weapon")
	c.send("inventory")
	c.expect("Rusty Dagger")
	c.quit()
}

func TestShopBuyRequiresGold(t *testing.T) {
	f := newFixture(t, session.Options{})
	p := f.seedCharacter("alice", "secret1", "Asha")
	p.Gold = 0
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("shop")
	c.expect("Rusty Dagger")
	c.send("buy dagger")
	c.expect("You cannot afford the Rusty Dagger (10 gold, you have 0).")
	c.quit()

	require.Equal(t, 0, p.Gold)
	require.NotContains(t, p.Inventory, "rusty_dagger")
}

func TestShopBuyAndSell(t *testing.T) {
	f := newFixture(t, session.Options{})
	p := f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("buy dagger")
	c.expect("You buy the Rusty Dagger for 10 gold. (15 gold left)")
	c.send("sell dagger")
	c.expect("You sell the Rusty Dagger for 5 gold. (20 gold)")
	c.quit()

	require.Equal(t, 20, p.Gold)
}

func TestCombatEncounter(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")

	// Violence is rejected in the safe hub.
	c.send("attack goblin")
	c.expect("Violence is forbidden here.")

	c.send("north")
	c.expect("Gloomy Cave")
	c.send("attack goblin")
	c.expect("1. Attack")

	// Off-menu numbers re-render instead of resolving a turn.
	c.send("9")
	c.expect("Pick a number between 1 and")

	// Non-numeric input does not leave the encounter.
	c.send("look")
	c.expect("You are fighting Goblin!")

	c.send("1")
	c.expect("You strike Goblin for 8 damage!")
	c.expect("You have slain Goblin!")
	c.expect("You gain 10 experience.")
	c.expect("The room falls silent.")
	c.quit()
}

func TestQuestAcceptCollectComplete(t *testing.T) {
	f := newFixture(t, session.Options{})
	p := f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("accept fetch_potion")
	c.expect("Quest accepted: A Draught for the Sick")

	c.send("get potion")
	c.expect("You pick up the Healing Potion.")

	c.send("quests")
	c.expect("A Draught for the Sick")
	c.expect("(ready to turn in)")

	c.send("complete fetch_potion")
	c.expect("Quest complete: A Draught for the Sick!")
	c.expect("You receive 7 gold.")
	c.quit()

	require.Contains(t, p.CompletedQuests, "fetch_potion")
	require.Equal(t, 32, p.Gold)
}

func TestQuestCancel(t *testing.T) {
	f := newFixture(t, session.Options{})
	p := f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("accept fetch_potion")
	c.expect("Quest accepted: A Draught for the Sick")
	c.send("cancel fetch_potion")
	c.quit()

	require.Empty(t, p.ActiveQuests)
}

func TestYellRequiresGlobalChannel(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.send("yell anyone there")
	c.expect("You must 'join global' before yelling.")
	c.send("join global")
	c.expect("You join the global channel.")
	c.send("yell anyone there")
	c.expect("[global] You yell: anyone there")
	c.quit()
}

func TestGlobalChannelDelivery(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")
	f.seedCharacter("bob", "secret2", "Borin")

	ca := f.connect()
	ca.enterWorld("alice", "secret1", "Asha")
	ca.send("join global")
	ca.expect("You join the global channel.")

	cb := f.connect()
	cb.enterWorld("bob", "secret2", "Borin")
	cb.send("join global")
	cb.expect("You join the global channel.")

	ca.send("yell hello world")
	ca.expect("[global] You yell: hello world")
	cb.expect("[global] Asha yells: hello world")

	cb.send("who")
	cb.expect("Asha")
	cb.expect("Borin")

	ca.quit()
	cb.quit()
}

func TestDuplicateCharacterLoginRejected(t *testing.T) {
	f := newFixture(t, session.Options{})
	f.seedCharacter("alice", "secret1", "Asha")

	ca := f.connect()
	ca.enterWorld("alice", "secret1", "Asha")

	cb := f.connect()
	cb.login("alice", "secret1")
	cb.expect("Your characters:")
	cb.send("play Asha")
	cb.expect("That character is already playing.")
	require.NoError(t, cb.wait())

	ca.quit()
}

func TestIdleDisconnect(t *testing.T) {
	f := newFixture(t, session.Options{IdleTimeout: 150 * time.Millisecond})
	f.seedCharacter("alice", "secret1", "Asha")
	c := f.connect()

	c.enterWorld("alice", "secret1", "Asha")
	c.expect("You drift off.")
	require.NoError(t, c.wait())

	_, ok := f.dir.Lookup("Asha")
	require.False(t, ok, "idle disconnect must clear the presence directory")
}
