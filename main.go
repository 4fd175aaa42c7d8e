// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/pokerbot/cliparse"
	"github.com/danielhkuo/pokerbot/db"
	"github.com/danielhkuo/pokerbot/events"
	"github.com/danielhkuo/pokerbot/handlers"
	"github.com/danielhkuo/pokerbot/notify"
	"github.com/danielhkuo/pokerbot/round"
	"github.com/danielhkuo/pokerbot/router"
	"github.com/danielhkuo/pokerbot/scales"
	"github.com/danielhkuo/pokerbot/session"
	"github.com/danielhkuo/pokerbot/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var err error

	// Load .env if present; real env and flags still win
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the config/record database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	store := storage.NewSQLStore(dbConn, cfg.StoreTimeout)

	// Round state lives in Redis when shared across instances
	var sessions session.Store
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		sessions = redisStore
		slog.Info("Using redis session store", "ttl", cfg.SessionTTL)
	} else {
		sessions = session.NewMemoryStore()
		slog.Info("Using in-memory session store")
	}

	// Round events
	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		slog.Info("Publishing round events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", "error", err)
		}
	}()

	ctrl := round.NewController(sessions, store, store, scales.NewRegistry(cfg.ImageLocation),
		round.WithPublisher(publisher),
	)
	notifier := notify.New(&http.Client{Timeout: cfg.BroadcastTimeout}, cfg.BroadcastTimeout)

	// Create router
	r := router.NewRouter(handlers.NewCommandHandler(ctrl, cfg, notifier), cfg)

	// Create server
	server := http.Server{
		Handler:           r,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "command", cfg.CommandName)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	// Let in-flight vote broadcasts finish
	notifier.Wait()
}
