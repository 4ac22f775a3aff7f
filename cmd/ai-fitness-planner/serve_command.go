package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/server"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	clipMaxAge        = time.Hour
	clipPruneInterval = 10 * time.Minute
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "CORS origin allowed to call the API (repeatable, default any)")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, origins []string) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}

	dataDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	lock := flock.New(filepath.Join(dataDir, "trainify.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another instance is already serving %s", dataDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", logging.Error(err))
		}
	}()

	application, cleanup, err := app.Build(signalCtx, cfg, logger, app.RemotePlayback)
	if err != nil {
		return err
	}
	defer cleanup()

	signer, err := server.NewExportSigner(cfg.ExportSigningKey)
	if err != nil {
		return err
	}
	if cfg.ExportSigningKey == "" {
		logger.Warn("EXPORT_SIGNING_KEY not set; export links will not survive a restart")
	}

	srv := server.New(application, signer, logging.WithComponent(logger, "server"), server.Options{
		Addr:           ":" + cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: origins,
	})

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		pruneClips(gctx, application, logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exiting")
	return nil
}

// pruneClips removes stale synthesized audio until ctx is done.
func pruneClips(ctx context.Context, application *app.App, logger *slog.Logger) {
	ticker := time.NewTicker(clipPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := application.PruneClips(clipMaxAge)
			if err != nil {
				logger.Warn("failed to prune audio clips", logging.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("pruned audio clips", "count", n)
			}
		}
	}
}
