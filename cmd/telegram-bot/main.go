package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-fitness-planner/internal/app"
	"ai-fitness-planner/internal/config"
	"ai-fitness-planner/internal/logging"
	"ai-fitness-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Wire the planner. Audio is sent to chats as files, never played here.
	application, cleanup, err := app.Build(ctx, cfg, logger, app.RemotePlayback)
	if err != nil {
		logger.Error("failed to initialize application", logging.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, application, logging.WithComponent(logger, "telegram"))
	if err != nil {
		logger.Error("failed to initialize telegram bot", logging.Error(err))
		cleanup()
		os.Exit(1)
	}

	// 4. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("telegram bot server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", logging.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("server forced to shutdown", logging.Error(err))
	}
	bot.Wait()

	logger.Info("server exiting")
}
