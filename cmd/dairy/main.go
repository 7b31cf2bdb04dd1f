// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/jaalnock/dairy-project-sub000/internal/backend"
	"github.com/jaalnock/dairy-project-sub000/internal/cache"
	"github.com/jaalnock/dairy-project-sub000/internal/config"
	"github.com/jaalnock/dairy-project-sub000/internal/handler"
	"github.com/jaalnock/dairy-project-sub000/internal/logging"
	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/scheduler"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/session"
	"github.com/jaalnock/dairy-project-sub000/internal/store"
	"github.com/jaalnock/dairy-project-sub000/internal/version"
	"github.com/jaalnock/dairy-project-sub000/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Dairy Cooperative portal\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_SESSION_SECRET        Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_DB_PATH               SQLite database path (default: ./data/dairy.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_SERVER_PORT           Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_ENV                   Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_BACKEND_URL           REST backend base URL (default: http://localhost:8000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_REDIS_URL             Redis URL for sessions and the description cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_CAROUSEL_INTERVAL_MS  Slider autoplay interval (default: 5000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_CAROUSEL_IDLE_MINUTES Unmount a visitor's carousel after this idle time (default: 30)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  DAIRY_CAROUSEL_MAX_MOUNTS   Most carousel instances mounted at once (default: 10000)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	if *showVersion {
		_, _ = fmt.Printf("dairy %s\n", info)
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(info version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the Event Log database
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Session manager: Redis when configured, SQLite otherwise
	var (
		sessionManager   *scs.SessionManager
		sessionPinger    handler.Pinger
		descriptionCache cache.Cache
	)
	if cfg.UseRedisSessions() {
		client, err := session.ConnectRedis(cfg.RedisURL, 5*time.Second)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				slog.Error("error closing redis connection", "error", err)
			}
		}()
		sessionManager = session.NewRedisManager(client, cfg.SessionPrefix, cfg.IsDevelopment())
		sessionPinger = session.NewRedisStore(client, cfg.SessionPrefix)
		descriptionCache = cache.NewRedisCache(client, cfg.CachePrefix, cfg.CacheTTL())
		slog.Info("session manager initialized", "store", "redis")
	} else {
		sessionManager = session.NewManager(db, cfg.IsDevelopment())
		descriptionCache = cache.NewMemoryCache(cache.MemoryOptions{
			DefaultTTL:      cfg.CacheTTL(),
			MaxItems:        1000,
			CleanupInterval: 5 * time.Minute,
		})
		slog.Info("session manager initialized", "store", "sqlite")
	}
	defer func() { _ = descriptionCache.Close() }()

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeoutDuration())
	tasks := session.NewTasks(logger)

	eventService := service.NewEventService(db)
	sliderService := service.NewSliderService(db,
		service.WithCarouselInterval(cfg.CarouselInterval()),
		service.WithMaxInstances(cfg.CarouselMaxMounts),
		service.WithDescriptionCache(descriptionCache, cfg.CacheTTL()),
		service.WithSliderLogger(logger),
	)

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		Version:        info.Version,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	static, err := staticFS(web.Static)
	if err != nil {
		return err
	}

	sched := scheduler.New(logger)
	if err := sched.RegisterDefaultJobs(sliderService, cfg.SliderSyncSpec, eventService, cfg.EventRetention()); err != nil {
		return fmt.Errorf("registering jobs: %w", err)
	}
	if err := sched.RegisterCarouselSweep(sliderService, scheduler.CarouselSweepSpec, cfg.CarouselIdle()); err != nil {
		return fmt.Errorf("registering jobs: %w", err)
	}
	sched.Start()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	a := &app{
		isDev:           cfg.IsDevelopment(),
		port:            cfg.ServerPort,
		csrfKey:         []byte(cfg.SessionSecret),
		sessionManager:  sessionManager,
		renderer:        renderer,
		sliders:         sliderService,
		events:          eventService,
		auth:            backendClient,
		signOuter:       backendClient,
		tasks:           tasks,
		loginProtection: loginProtection,
		apiLimiter:      middleware.NewAPIRateLimiter(20, 40),
		health:          handler.NewHealthHandler(db, sessionPinger, backendClient, info.String()),
		static:          static,
		logger:          logger,
		requestLogging:  true,
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           a.routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)

	sched.Stop(ctx)
	sliderService.Close()
	loginProtection.Stop()
	if err := tasks.Wait(ctx); err != nil {
		slog.Warn("pending sign-out calls abandoned", "error", err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("server shutdown: %w", shutdownErr)
	}
	slog.Info("server stopped")
	return nil
}
