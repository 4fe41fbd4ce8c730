// Package main prints the most recent resolved vote rounds for a room as
// JSON lines, newest first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/config"
	"github.com/cory-johannsen/roomcoord/internal/observability"
	"github.com/cory-johannsen/roomcoord/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	roomID := flag.String("room", "", "room id to list (required)")
	limit := flag.Int("limit", 20, "maximum number of rounds")
	timeout := flag.Duration("timeout", 10*time.Second, "query timeout")
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

	if *roomID == "" {
		logger.Fatal("-room is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	rounds, err := postgres.NewHistoryRepository(pool.DB()).Recent(ctx, *roomID, *limit)
	if err != nil {
		logger.Fatal("listing rounds", zap.String("room_id", *roomID), zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	for _, rec := range rounds {
		if err := enc.Encode(rec); err != nil {
			logger.Fatal("writing round", zap.Error(err))
		}
	}
	logger.Debug("rounds listed", zap.String("room_id", *roomID), zap.Int("count", len(rounds)))
}
