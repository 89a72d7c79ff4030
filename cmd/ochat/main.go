// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/config"
	"github.com/olegiv/ochat-go/internal/handler"
	"github.com/olegiv/ochat-go/internal/handler/api"
	"github.com/olegiv/ochat-go/internal/logging"
	"github.com/olegiv/ochat-go/internal/middleware"
	"github.com/olegiv/ochat-go/internal/model"
	"github.com/olegiv/ochat-go/internal/poller"
	"github.com/olegiv/ochat-go/internal/render"
	"github.com/olegiv/ochat-go/internal/scheduler"
	"github.com/olegiv/ochat-go/internal/service"
	"github.com/olegiv/ochat-go/internal/session"
	"github.com/olegiv/ochat-go/internal/store"
	"github.com/olegiv/ochat-go/internal/version"
	"github.com/olegiv/ochat-go/web"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oChat - multi-user chat server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_SESSION_SECRET     Session and token signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_STORE              Record store: sqlite|memory (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_DB_PATH            SQLite database path (default: ./data/ochat.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_REDIS_URL          Redis URL for a shared cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_REFRESH_INTERVAL   Chat refresh period (default: 30s)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCHAT_ADMIN_USERNAME     Bootstrap admin created at startup (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/ochat-go\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(version.Current().String("ochat"))
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Current()

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(textHandler))

	gw, sessionManager, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// From here on WARN and ERROR records also land in the events table.
	logger := slog.New(logging.NewEventLogHandler(textHandler, gw))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	backend, cacheInfo := cache.NewCache(cache.CacheConfig{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.MessagesTTL,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	cacheManager := cache.NewManager(backend, cacheInfo, cfg.MessagesTTL, cfg.RosterTTL)
	defer func() {
		if err := cacheManager.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	if cacheInfo.IsFallback {
		slog.Warn("cache manager initialized", "backend", cacheInfo.Backend, "note", "Redis unavailable, using fallback")
	} else {
		slog.Info("cache manager initialized", "backend", cacheInfo.Backend,
			"messages_ttl", cfg.MessagesTTL, "roster_ttl", cfg.RosterTTL)
	}

	identity := service.NewIdentityService(gw, cacheManager)
	messages := service.NewMessageService(gw, cacheManager)
	events := service.NewEventService(gw)
	chatView := service.NewChatView(identity, messages)

	ctx := context.Background()
	if created, err := service.EnsureAdmin(ctx, identity, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("creating bootstrap admin: %w", err)
	} else if created {
		slog.Info("bootstrap admin ready", "username", cfg.AdminUsername)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates(),
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	sched := scheduler.New(logger)
	err = sched.RegisterMaintenance(scheduler.Config{
		MessageRetention: cfg.MessageRetention,
		EventRetention:   cfg.EventRetention,
		PruneEvery:       10 * cfg.RefreshInterval,
	}, messages, events, cacheManager)
	if err != nil {
		return fmt.Errorf("registering maintenance jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	hub := poller.NewHub()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// 10 requests per second with burst of 20 per IP
	publicRateLimiter := middleware.NewGlobalRateLimiter(10.0, 20)

	authHandler := handler.NewAuthHandler(identity, events, renderer, sessionManager, loginProtection)
	chatHandler := handler.NewChatHandler(chatView, messages, hub, renderer, cfg.RefreshInterval)
	adminHandler := handler.NewAdminHandler(identity, messages, events, sched, hub, renderer)
	healthHandler := handler.NewHealthHandler(gw, cacheManager, versionInfo)
	apiHandler := api.NewHandler(api.Config{
		Identity:        identity,
		Messages:        messages,
		View:            chatView,
		Hub:             hub,
		Secret:          []byte(cfg.SessionSecret),
		TokenTTL:        cfg.APITokenTTL,
		LoginProtection: loginProtection,
	})

	r := newRouter(cfg, routes{
		sessions:    sessionManager,
		bans:        identity,
		auth:        authHandler,
		chat:        chatHandler,
		admin:       adminHandler,
		health:      healthHandler,
		api:         apiHandler,
		login:       loginProtection,
		publicLimit: publicRateLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	srv.RegisterOnShutdown(chatHandler.Close)

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env,
			"store", cfg.Store, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()
	_ = events.LogInfo(ctx, model.EventCategorySystem, "Server started", "",
		map[string]any{"version": versionInfo.Version, "store": cfg.Store, "cache": cacheInfo.Backend})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped", "open_streams", hub.Count())
	return nil
}

// openStore opens the configured record store and the session store that
// goes with it. The returned func releases them.
func openStore(cfg *config.Config) (store.Gateway, *scs.SessionManager, func(), error) {
	if cfg.UseMemoryStore() {
		slog.Warn("using in-memory record store; all data is lost on exit")
		return store.NewMemoryGateway(), session.NewMemory(cfg.IsDevelopment()), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing database: %w", err)
	}

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}
	return store.NewSheetGateway(db), session.New(db, cfg.IsDevelopment()), closeDB, nil
}
