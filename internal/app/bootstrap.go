package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"ai-fitness-planner/internal/actions"
	"ai-fitness-planner/internal/cache"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/content"
	"ai-fitness-planner/internal/database"
	"ai-fitness-planner/internal/imagegen"
	"ai-fitness-planner/internal/llm"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/metrics"
	"ai-fitness-planner/internal/planner"
	"ai-fitness-planner/internal/speech"
	"ai-fitness-planner/internal/storage"
	"ai-fitness-planner/internal/streak"
)

// AudioRoute is where remote clients fetch synthesized clips.
const AudioRoute = "/api/v1/audio"

// PlayerMode selects where synthesized speech is played.
type PlayerMode int

const (
	// LocalPlayback plays clips on this machine.
	LocalPlayback PlayerMode = iota
	// RemotePlayback stores clips for a client to fetch and play.
	RemotePlayback
)

// Build opens the database and wires every collaborator selected by cfg.
// The returned function releases them.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, mode PlayerMode) (*App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() { db.Close() })

	textGen, genCloser, err := llm.NewTextGenerator(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { genCloser.Close() })

	synth, closeSynth, err := speech.New(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, func() { closeSynth() })

	images, err := imagegen.New(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	catalog, err := content.Load()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	clips, err := storage.NewClipStore(filepath.Join(filepath.Dir(cfg.DatabasePath), "clips"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize clip store: %w", err)
	}

	var player speech.Player = speech.NewProcessPlayer()
	if mode == RemotePlayback {
		player = speech.NewRemotePlayer(clips, AudioRoute)
	}

	metricsStore := metrics.NewStore(db.SQL)
	planCache := cache.New[planner.Sections](cache.WithTTL(cfg.CacheTTL), cache.WithMaxEntries(cfg.CacheMaxEntries))
	generator := planner.NewGenerator(textGen, planCache, catalog.Defaults, cfg.PlanProvider, metricsStore,
		logging.WithComponent(logger, "planner"))

	controller := actions.NewController(images, synth, player, logging.WithComponent(logger, "actions"),
		actions.WithVoice(cfg.SpeechVoice), actions.WithTimeout(cfg.RequestTimeout))

	application := NewApp(Deps{
		Config:    cfg,
		Generator: generator,
		Plans:     planner.NewPlanRepository(db.SQL),
		Actions:   controller,
		Streaks:   streak.NewRepository(db.SQL),
		Metrics:   metricsStore,
		Catalog:   catalog,
		Enricher:  content.NewEnricher(nil, logging.WithComponent(logger, "reads")),
		Clips:     clips,
		Speech:    synth,
		Logger:    logging.WithComponent(logger, "app"),
	})
	closers = append(closers, application.Close)

	if err := application.Restore(ctx); err != nil {
		logger.Warn("failed to restore last plan", logging.Error(err))
	}
	return application, cleanup, nil
}
