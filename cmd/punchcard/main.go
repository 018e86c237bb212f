package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/punchcard/internal/backup"
	"github.com/dukerupert/punchcard/internal/config"
	"github.com/dukerupert/punchcard/internal/database"
	"github.com/dukerupert/punchcard/internal/geocode"
	"github.com/dukerupert/punchcard/internal/logging"
	"github.com/dukerupert/punchcard/internal/server"
	"github.com/dukerupert/punchcard/internal/store"
	"github.com/dukerupert/punchcard/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	geocoder := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.GeocodeBaseURL,
		UserAgent: cfg.GeocodeUserAgent,
		Timeout:   cfg.GeocodeTimeout,
	}, logger.With("component", "geocode"))

	pool := worker.NewPool(cfg.WorkerCount, cfg.QueueSize, logger.With("component", "worker"))
	pool.Start(context.Background())
	defer pool.Stop()

	mgr := backup.NewManager(cfg.Backup, cfg.DBPath, db, store.NewBackupStore(db), logger.With("component", "backup"))
	if mgr != nil {
		mgr.Start(context.Background())
		defer mgr.Stop()
	}

	srv := server.New(db, cfg, geocoder, pool, logger)

	// Evict idle login rate-limit buckets.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("punchcard listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
