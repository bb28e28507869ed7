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

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/note-inspector-go/internal/config"
	"github.com/anime-shed/note-inspector-go/internal/container"
	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logger.Configure(logger.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		MaxAge: cfg.Log.MaxAge,
	})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logFile.Close()

	// Without the reference folder nothing can be authenticated
	if cfg.References.Source == config.SourceLocal && !storage.DirExists(cfg.References.Dir) {
		logger.WithField("reference_dir", cfg.References.Dir).
			Fatal("Reference folder not found. Create it and add reference note images named by denomination (e.g. 500.jpg)")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	c, err := container.NewContainer(startCtx, cfg)
	if err != nil {
		cancelStart()
		logger.WithError(err).Fatal("Failed to initialize container")
	}
	defer c.Close()

	// A failed warm-up is retried lazily by the first request
	if err := c.WarmUp(startCtx); err != nil {
		logger.WithError(err).Warn("Reference warm-up failed")
	}
	cancelStart()

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":          cfg.ServerAddress(),
			"timeout":          cfg.RequestTimeout,
			"reference_source": cfg.References.Source,
			"scoring_mode":     cfg.Engine.ScoringMode,
			"threshold":        cfg.Engine.AcceptanceThreshold,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
