// Package command provides the command registry, parser, and built-in
// command definitions for the play loop.
package command

// Categories for organizing commands in help output.
const (
	CategoryMovement      = "movement"
	CategoryWorld         = "world"
	CategoryCombat        = "combat"
	CategoryItems         = "items"
	CategoryMagic         = "magic"
	CategoryQuests        = "quests"
	CategoryCommunication = "communication"
	CategorySystem        = "system"
)

// Handler identifiers mapping commands to session handlers.
const (
	HandlerMove      = "move"
	HandlerLook      = "look"
	HandlerExits     = "exits"
	HandlerInspect   = "inspect"
	HandlerMap       = "map"
	HandlerEnter     = "enter"
	HandlerAttack    = "attack"
	HandlerGet       = "get"
	HandlerDrop      = "drop"
	HandlerInventory = "inventory"
	HandlerUse       = "use"
	HandlerEquip     = "equip"
	HandlerUnequip   = "unequip"
	HandlerEquipment = "equipment"
	HandlerSpells    = "spells"
	HandlerPrepare   = "prepare"
	HandlerUnprepare = "unprepare"
	HandlerCast      = "cast"
	HandlerLearn     = "learn"
	HandlerPoints    = "points"
	HandlerTalk      = "talk"
	HandlerShop      = "shop"
	HandlerBuy       = "buy"
	HandlerSell      = "sell"
	HandlerQuests    = "quests"
	HandlerAccept    = "accept"
	HandlerComplete  = "complete"
	HandlerCancel    = "cancel"
	HandlerSay       = "say"
	HandlerYell      = "yell"
	HandlerTell      = "tell"
	HandlerEmote     = "emote"
	HandlerChannels  = "channels"
	HandlerJoin      = "join"
	HandlerLeave     = "leave"
	HandlerWho       = "who"
	HandlerScore     = "score"
	HandlerAFK       = "afk"
	HandlerLobby     = "lobby"
	HandlerExit      = "exit"
	HandlerHelp      = "help"
	HandlerQuit      = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command for help output.
	Category string
	// Handler names the session handler that executes the command.
	Handler string
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		// Movement
		{Name: "north", Aliases: []string{"n"}, Help: "Move north", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south", Aliases: []string{"s"}, Help: "Move south", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "east", Aliases: []string{"e"}, Help: "Move east", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "west", Aliases: []string{"w"}, Help: "Move west", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "northeast", Aliases: []string{"ne"}, Help: "Move northeast", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "northwest", Aliases: []string{"nw"}, Help: "Move northwest", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "southeast", Aliases: []string{"se"}, Help: "Move southeast", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "southwest", Aliases: []string{"sw"}, Help: "Move southwest", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "up", Aliases: []string{"u"}, Help: "Move up", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "down", Aliases: []string{"d"}, Help: "Move down", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "enter", Aliases: nil, Help: "Enter a dungeon (enter <name>)", Category: CategoryMovement, Handler: HandlerEnter},
		{Name: "exit", Aliases: nil, Help: "Leave the current dungeon", Category: CategoryMovement, Handler: HandlerExit},
		{Name: "lobby", Aliases: []string{"recall"}, Help: "Return to the hub room", Category: CategoryMovement, Handler: HandlerLobby},

		// World
		{Name: "look", Aliases: []string{"l"}, Help: "Look around the current room", Category: CategoryWorld, Handler: HandlerLook},
		{Name: "exits", Aliases: nil, Help: "List available exits", Category: CategoryWorld, Handler: HandlerExits},
		{Name: "inspect", Aliases: []string{"examine", "ex"}, Help: "Inspect a monster, player, NPC, or item", Category: CategoryWorld, Handler: HandlerInspect},
		{Name: "map", Aliases: nil, Help: "Show nearby rooms", Category: CategoryWorld, Handler: HandlerMap},

		// Combat
		{Name: "attack", Aliases: []string{"att", "kill"}, Help: "Attack a monster (attack <number|name>)", Category: CategoryCombat, Handler: HandlerAttack},

		// Items
		{Name: "get", Aliases: []string{"take"}, Help: "Pick up an item from the floor", Category: CategoryItems, Handler: HandlerGet},
		{Name: "drop", Aliases: nil, Help: "Drop an item on the floor", Category: CategoryItems, Handler: HandlerDrop},
		{Name: "inventory", Aliases: []string{"inv", "i"}, Help: "Show your inventory (inventory [page])", Category: CategoryItems, Handler: HandlerInventory},
		{Name: "use", Aliases: nil, Help: "Use a consumable item", Category: CategoryItems, Handler: HandlerUse},
		{Name: "equip", Aliases: []string{"eq", "wield", "wear"}, Help: "Equip a weapon or armor", Category: CategoryItems, Handler: HandlerEquip},
		{Name: "unequip", Aliases: []string{"ueq"}, Help: "Unequip a slot (unequip weapon|armor)", Category: CategoryItems, Handler: HandlerUnequip},
		{Name: "equipment", Aliases: []string{"gear"}, Help: "Show equipped items", Category: CategoryItems, Handler: HandlerEquipment},

		// Magic
		{Name: "spells", Aliases: nil, Help: "List known and prepared spells", Category: CategoryMagic, Handler: HandlerSpells},
		{Name: "prepare", Aliases: nil, Help: "Prepare a known spell for combat", Category: CategoryMagic, Handler: HandlerPrepare},
		{Name: "unprepare", Aliases: nil, Help: "Remove a spell from your prepared set", Category: CategoryMagic, Handler: HandlerUnprepare},
		{Name: "cast", Aliases: nil, Help: "Cast a healing spell outside combat", Category: CategoryMagic, Handler: HandlerCast},
		{Name: "learn", Aliases: nil, Help: "Learn a spell available to your class", Category: CategoryMagic, Handler: HandlerLearn},
		{Name: "points", Aliases: []string{"improve"}, Help: "Spend unspent points (points spell|perk <name>)", Category: CategoryMagic, Handler: HandlerPoints},

		// NPCs, shops, and quests
		{Name: "talk", Aliases: nil, Help: "Talk to an NPC", Category: CategoryQuests, Handler: HandlerTalk},
		{Name: "shop", Aliases: []string{"list"}, Help: "List an NPC's wares", Category: CategoryQuests, Handler: HandlerShop},
		{Name: "buy", Aliases: nil, Help: "Buy an item from an NPC", Category: CategoryQuests, Handler: HandlerBuy},
		{Name: "sell", Aliases: nil, Help: "Sell an item to an NPC", Category: CategoryQuests, Handler: HandlerSell},
		{Name: "quests", Aliases: []string{"journal"}, Help: "Show your quest journal", Category: CategoryQuests, Handler: HandlerQuests},
		{Name: "accept", Aliases: nil, Help: "Accept a quest from an NPC", Category: CategoryQuests, Handler: HandlerAccept},
		{Name: "complete", Aliases: nil, Help: "Turn in a quest (complete <quest> [ability])", Category: CategoryQuests, Handler: HandlerComplete},
		{Name: "cancel", Aliases: []string{"abandon"}, Help: "Abandon an active quest", Category: CategoryQuests, Handler: HandlerCancel},

		// Communication
		{Name: "say", Aliases: nil, Help: "Say something to the room", Category: CategoryCommunication, Handler: HandlerSay},
		{Name: "yell", Aliases: []string{"shout"}, Help: "Yell to the whole world", Category: CategoryCommunication, Handler: HandlerYell},
		{Name: "tell", Aliases: []string{"whisper", "t"}, Help: "Send a private message (tell <player> <message>)", Category: CategoryCommunication, Handler: HandlerTell},
		{Name: "emote", Aliases: []string{"em", "me"}, Help: "Perform an emote action", Category: CategoryCommunication, Handler: HandlerEmote},
		{Name: "channels", Aliases: nil, Help: "List chat channels", Category: CategoryCommunication, Handler: HandlerChannels},
		{Name: "join", Aliases: nil, Help: "Join a chat channel", Category: CategoryCommunication, Handler: HandlerJoin},
		{Name: "leave", Aliases: nil, Help: "Leave a chat channel", Category: CategoryCommunication, Handler: HandlerLeave},

		// System
		{Name: "who", Aliases: nil, Help: "List connected players", Category: CategorySystem, Handler: HandlerWho},
		{Name: "score", Aliases: []string{"stats", "sc"}, Help: "Show your character sheet", Category: CategorySystem, Handler: HandlerScore},
		{Name: "afk", Aliases: nil, Help: "Toggle away-from-keyboard (afk [message])", Category: CategorySystem, Handler: HandlerAFK},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"logout"}, Help: "Disconnect from the game", Category: CategorySystem, Handler: HandlerQuit},
	}
}

// IsMovementCommand reports whether the command name is a movement direction.
func IsMovementCommand(name string) bool {
	switch name {
	case "north", "south", "east", "west",
		"northeast", "northwest", "southeast", "southwest",
		"up", "down":
		return true
	default:
		return false
	}
}
