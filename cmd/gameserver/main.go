// Package main runs the authoritative Gridlands tick server.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/gridlands/gridlands/internal/config"
	"github.com/gridlands/gridlands/internal/game/session"
	"github.com/gridlands/gridlands/internal/game/world"
	"github.com/gridlands/gridlands/internal/gameserver"
	"github.com/gridlands/gridlands/internal/observability"
	"github.com/gridlands/gridlands/internal/server"
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

	store := world.NewStore(cfg.Game.WorldWidth, cfg.Game.WorldHeight, cfg.Game.ChatHistory)

	objects, err := world.LoadObjectsFromDir(cfg.Game.ObjectsDir, cfg.Game.WorldWidth, cfg.Game.WorldHeight)
	if err != nil {
		logger.Fatal("loading world objects", zap.Error(err))
	}
	store.SeedObjects(objects)
	logger.Info("world loaded",
		zap.Int("objects", len(objects)),
		zap.Int("width", cfg.Game.WorldWidth),
		zap.Int("height", cfg.Game.WorldHeight),
	)

	registry := session.NewRegistry()
	caster := gameserver.NewBroadcaster(registry, logger)
	dispatcher := gameserver.NewDispatcher(store, caster, logger)
	service := gameserver.NewGameService(cfg.Server, store, registry, dispatcher, caster, logger)
	ticker := gameserver.NewTicker(cfg.Game.TickInterval, store, caster, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("gameserver", service)
	lifecycle.Add("ticker", ticker)

	logger.Info("tick server initialized",
		zap.String("addr", cfg.Server.Addr()),
		zap.Duration("tick_interval", cfg.Game.TickInterval),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
