package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/gorilla/sessions"

	"github.com/Real-Nation-Stephen/RN-PPT-Generator/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	var source core.DirectorySource
	switch cfg.DirectorySource {
	case core.DirectorySourceSheets:
		source = core.NewSheetsDirectorySource(cfg.SheetID, cfg.SheetRange, core.SheetsClientOptions(cfg)...)
	case core.DirectorySourcePostgres:
		db, err := core.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to configure database: %v", err)
		}
		defer db.Close()
		source = core.NewPgDirectorySource(db)
	case core.DirectorySourceFile:
		source = core.NewFileDirectorySource(cfg.DirectoryFile)
	default:
		log.Fatalf("unknown DIRECTORY_SOURCE %q (want sheets, postgres or file)", cfg.DirectorySource)
	}

	var stats core.GenerationStats = core.NewMemoryStats()
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		stats = core.NewRedisStats(redisClient)
	}

	// Gorilla cookie store for session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	cache := core.NewDirectoryCache(source)
	gate := core.NewGate(cache)
	assembler := core.NewDeckAssembler(slog.Default())

	router := core.NewRouter(cfg, store, gate, cache, assembler, stats)

	addr := fmt.Sprintf(":%s", cfg.Port)
	slog.Info("starting api server", "addr", addr, "directory_source", cfg.DirectorySource)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
