// Package main runs the DungeonMUD game server: the Telnet listener, the
// shared game services behind it, and the background regen/respawn loops.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeonmud/internal/config"
	"github.com/cory-johannsen/dungeonmud/internal/game/catalog"
	"github.com/cory-johannsen/dungeonmud/internal/game/combat"
	"github.com/cory-johannsen/dungeonmud/internal/game/directory"
	"github.com/cory-johannsen/dungeonmud/internal/game/quest"
	"github.com/cory-johannsen/dungeonmud/internal/game/roll"
	"github.com/cory-johannsen/dungeonmud/internal/game/room"
	"github.com/cory-johannsen/dungeonmud/internal/game/session"
	"github.com/cory-johannsen/dungeonmud/internal/game/world"
	"github.com/cory-johannsen/dungeonmud/internal/observability"
	"github.com/cory-johannsen/dungeonmud/internal/scripting"
	"github.com/cory-johannsen/dungeonmud/internal/server"
	"github.com/cory-johannsen/dungeonmud/internal/storage/postgres"
	"github.com/cory-johannsen/dungeonmud/internal/telnet"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting DungeonMUD",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("content_dir", cfg.Server.ContentDir),
	)

	ctx := context.Background()

	// PostgreSQL
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	accounts := postgres.NewAccountRepository(pool.DB())
	players := postgres.NewPlayerRepository(pool.DB())
	respawns := postgres.NewRespawnRepository(pool.DB())
	questStore := postgres.NewQuestRepository(pool.DB())

	// Content
	cat, err := catalog.LoadFromDir(filepath.Join(cfg.Server.ContentDir, "catalog"))
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	worldsList, err := world.LoadWorldsFromDir(filepath.Join(cfg.Server.ContentDir, "worlds"))
	if err != nil {
		logger.Fatal("loading worlds", zap.Error(err))
	}
	worlds, err := world.NewManager(worldsList)
	if err != nil {
		logger.Fatal("building world manager", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("monsters", len(cat.Monsters())),
		zap.Int("items", len(cat.Items())),
		zap.Int("npcs", len(cat.NPCs())),
		zap.Int("quests", len(cat.Quests())),
		zap.Int("worlds", len(worldsList)),
		zap.Int("rooms", worlds.RoomCount()),
	)

	// Game services
	src := roll.NewCryptoSource()
	registry := room.NewRegistry(cat, respawns, src, logger)
	coordinator := combat.NewCoordinator(registry, cat, src, nil, logger)
	dir := directory.New()
	ticker := directory.NewRegenTicker(cfg.Game.RegenInterval, nil)

	questMgr := quest.NewManager(cat)
	if generated, err := questStore.ListGenerated(ctx); err != nil {
		logger.Warn("loading generated quests", zap.Error(err))
	} else {
		restored := 0
		for _, q := range generated {
			if err := questMgr.AddGenerated(q); err != nil {
				logger.Warn("restoring generated quest", zap.String("quest", q.ID), zap.Error(err))
				continue
			}
			restored++
		}
		logger.Info("generated quests restored", zap.Int("count", restored))
	}

	var questGen quest.Generator
	switch cfg.Quests.Provider {
	case "anthropic":
		model := quest.NewModelGenerator(cfg.Quests.APIKey, cfg.Quests.Model, logger)
		questGen = quest.NewFallbackGenerator(model, quest.NewTemplateGenerator(src), func(err error) {
			logger.Warn("model quest generation failed, using template", zap.Error(err))
		})
		logger.Info("quest generator ready", zap.String("provider", "anthropic"), zap.String("model", cfg.Quests.Model))
	default:
		questGen = quest.NewTemplateGenerator(src)
		logger.Info("quest generator ready", zap.String("provider", "template"))
	}

	// Lua room hooks
	scripts := scripting.NewManager(logger)
	defer scripts.Close()
	scripts.Broadcast = func(worldID, roomID, msg string) {
		dir.BroadcastRoom(worldID, roomID, msg, "")
	}
	scripts.Deliver = func(playerName, msg string) {
		_ = dir.Deliver(playerName, msg)
	}
	if dirExists(cfg.Server.ScriptDir) {
		if err := scripts.LoadGlobal(cfg.Server.ScriptDir, 0); err != nil {
			logger.Fatal("loading global scripts", zap.Error(err))
		}
	}
	for _, w := range worldsList {
		if w.ScriptDir == "" {
			continue
		}
		scriptDir := w.ScriptDir
		if !filepath.IsAbs(scriptDir) {
			scriptDir = filepath.Join(cfg.Server.ContentDir, scriptDir)
		}
		if err := scripts.LoadWorld(w.ID, scriptDir, w.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading world scripts", zap.String("world", w.ID), zap.Error(err))
		}
	}

	handler, err := session.NewHandler(session.Deps{
		Accounts:  accounts,
		Players:   players,
		Catalog:   cat,
		Worlds:    worlds,
		Rooms:     registry,
		Combat:    coordinator,
		Quests:    questMgr,
		QuestGen:  questGen,
		QuestSink: questStore,
		Directory: dir,
		Ticker:    ticker,
		Scripts:   scripts,
		Rand:      src,
		Logger:    logger,
		Options: session.Options{
			ServerName:        cfg.Server.Name,
			HubWorldID:        cfg.Server.HubWorldID,
			HubRoomID:         cfg.Server.HubRoomID,
			AuthTimeout:       cfg.Game.AuthTimeout,
			AuthAttempts:      cfg.Game.AuthAttempts,
			SetupTimeout:      cfg.Game.SetupTimeout,
			IdleTimeout:       cfg.Game.IdleTimeout,
			InventoryPageSize: cfg.Game.InventoryPageSize,
		},
	})
	if err != nil {
		logger.Fatal("building session handler", zap.Error(err))
	}

	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	// Lifecycle
	lifecycle := server.NewLifecycle(logger)
	loopCtx, stopLoops := context.WithCancel(ctx)

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				select {
				case <-loopCtx.Done():
					return nil
				case <-time.After(30 * time.Second):
				}
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	lifecycle.Add("regen", &server.FuncService{
		StartFn: func() error {
			ticker.Start(loopCtx)
			<-loopCtx.Done()
			return nil
		},
		StopFn: stopLoops,
	})

	lifecycle.Add("respawn-cleanup", &server.FuncService{
		StartFn: func() error {
			interval := cfg.Game.RespawnCleanupInterval
			if interval <= 0 {
				interval = time.Minute
			}
			for {
				select {
				case <-loopCtx.Done():
					return nil
				case <-time.After(interval):
				}
				purged, err := respawns.CleanupExpired(ctx)
				if err != nil {
					logger.Warn("purging expired respawns", zap.Error(err))
					continue
				}
				if purged > 0 {
					logger.Debug("expired respawns purged", zap.Int("count", purged))
				}
			}
		},
		StopFn: stopLoops,
	})

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
