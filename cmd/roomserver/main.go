// Package main provides the room coordinator binary: a WebSocket gateway,
// an optional line-oriented TCP gateway, and a gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/config"
	"github.com/cory-johannsen/roomcoord/internal/coordinator"
	"github.com/cory-johannsen/roomcoord/internal/frontend/telnet"
	"github.com/cory-johannsen/roomcoord/internal/game/dice"
	"github.com/cory-johannsen/roomcoord/internal/game/room"
	"github.com/cory-johannsen/roomcoord/internal/game/session"
	"github.com/cory-johannsen/roomcoord/internal/gateway/ws"
	"github.com/cory-johannsen/roomcoord/internal/observability"
	"github.com/cory-johannsen/roomcoord/internal/server"
	"github.com/cory-johannsen/roomcoord/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	presetsPath := flag.String("presets", "", "path to room preset YAML (overrides game.presets_file)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var opts []coordinator.Option

	presetsFile := cfg.Game.PresetsFile
	if *presetsPath != "" {
		presetsFile = *presetsPath
	}
	if presetsFile != "" {
		presets, err := room.LoadPresets(presetsFile)
		if err != nil {
			logger.Fatal("loading room presets", zap.String("path", presetsFile), zap.Error(err))
		}
		logger.Info("room presets loaded", zap.Int("count", len(presets)))
		opts = append(opts, coordinator.WithPresets(presets))
	}

	lifecycle := server.NewLifecycle(logger)

	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		opts = append(opts, coordinator.WithHistory(postgres.NewHistoryRepository(pool.DB())))

		stop := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				return pool.Watch(ctx, stop, 30*time.Second, 5*time.Second, logger)
			},
			StopFn: func() {
				close(stop)
				pool.Close()
			},
		})
	}

	hub := session.NewHub(cfg.Gateway.OutboxSize, logger)
	coord := coordinator.New(hub, dice.NewCryptoSource(), coordinator.Defaults{
		Mode:      room.Mode(cfg.Game.DefaultMode),
		Imposters: cfg.Game.DefaultImposters,
	}, logger, opts...)

	wsServer := ws.NewServer(cfg.Gateway, coord, hub, logger)
	lifecycle.Add("websocket", wsServer)

	if cfg.Telnet.Enabled {
		lines := telnet.NewLineSession(coord, hub, cfg.Gateway.RatePerSecond, cfg.Gateway.RateBurst, logger)
		lifecycle.Add("telnet", telnet.NewAcceptor(cfg.Telnet, lines, logger))
	}

	if cfg.Health.Enabled {
		health := server.NewHealthService(cfg.Health.Addr(), logger)
		lifecycle.Add("health", health)
		lifecycle.OnReady(health.MarkServing)
	}

	logger.Info("room coordinator initialized",
		zap.String("name", cfg.Server.Name),
		zap.String("ws_addr", cfg.Gateway.Addr()),
		zap.String("ws_path", cfg.Gateway.Path),
		zap.Bool("telnet", cfg.Telnet.Enabled),
		zap.Bool("history", cfg.Database.Enabled),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
