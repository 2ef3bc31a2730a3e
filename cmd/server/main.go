package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"herdbook/internal/bus"
	"herdbook/internal/config"
	"herdbook/internal/core"
	_ "herdbook/internal/core/categories" // Register all categories
	"herdbook/internal/logging"
	"herdbook/internal/notify"
	"herdbook/internal/store"
	"herdbook/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"notify_enabled", cfg.Notify.WebhookURL != "" || cfg.Notify.BotToken != "",
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	// Bootstrap ledger tables
	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	slog.Info("categories registered", "count", len(core.All()))

	// Event bus and notifier; an unconfigured notifier subscribes to nothing
	eventBus := bus.New()
	notifier := notify.New(notify.Config{
		WebhookURL:     cfg.Notify.WebhookURL,
		BotToken:       cfg.Notify.BotToken,
		ChatID:         cfg.Notify.ChatID,
		RawPayload:     cfg.Notify.RawPayload,
		MaxAttempts:    cfg.Notify.MaxAttempts,
		BackoffBase:    cfg.Notify.BackoffBase,
		RequestTimeout: cfg.Notify.RequestTimeout,
	})
	notifier.Register(eventBus)

	// Pipeline service and server
	service := core.NewService(st, eventBus, core.Options{
		MaxConcurrent:        cfg.Import.MaxConcurrent,
		MaxWait:              cfg.Import.MaxWaitTime,
		Timeout:              cfg.Import.Timeout,
		CheckDuplicateSource: cfg.Import.CheckDuplicateSource,
	})
	server := web.NewServer(service, st, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		// Let in-flight notifications finish
		if err := eventBus.Drain(shutdownCtx); err != nil {
			slog.Warn("event handlers did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
