// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Command server runs the Rookery backend: the feed API, view
// crediting, relationship resolution, and the live engagement hub,
// all under one supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rookery-social/rookery/internal/api"
	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/events"
	"github.com/rookery-social/rookery/internal/feed"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/live"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/storage"
	"github.com/rookery-social/rookery/internal/supervisor"
	"github.com/rookery-social/rookery/internal/views"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Int("port", cfg.Server.Port).
		Bool("in_memory", cfg.Database.InMemory).
		Msg("starting rookery")

	db, err := storage.Open(storage.Options{
		Path:       cfg.Database.Path,
		InMemory:   cfg.Database.InMemory,
		GCInterval: cfg.Database.GCInterval,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("storage close failed")
		}
	}()

	contentStore := storage.NewContentStore(db)
	profileStore := storage.NewProfileStore(db)
	relationshipStore := storage.NewRelationshipStore(db)
	blockStore := storage.NewBlockStore(db)
	viewStore := storage.NewViewStore(db)
	liveStore := storage.NewLiveStore(db)

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("event bus close failed")
		}
	}()

	resolver := graph.NewResolver(relationshipStore, blockStore)
	aggregator := feed.NewAggregator(contentStore, profileStore, resolver, cfg.Feed)
	dedup := views.NewDeduplicator(viewStore, contentStore, bus, cfg.Views)
	hub := live.NewHub(liveStore, bus, cfg.Live)

	handlers := api.NewHandlers(aggregator, resolver, dedup, hub)
	server := api.NewServer(api.NewRouter(handlers, *cfg), cfg.Server)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddStorageService(db)
	tree.AddMessagingService(events.NewMonitor(bus))
	tree.AddMessagingService(hub)
	tree.AddAPIService(server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	logging.Info().Msg("shutdown complete")
	return nil
}
