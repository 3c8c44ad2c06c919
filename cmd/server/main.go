package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/certlab/studyguide/internal/ai"
	"github.com/certlab/studyguide/internal/api"
	"github.com/certlab/studyguide/internal/curriculum"
	"github.com/certlab/studyguide/internal/platform/cache"
	"github.com/certlab/studyguide/internal/platform/config"
	"github.com/certlab/studyguide/internal/platform/database"
	"github.com/certlab/studyguide/internal/progress"
	"github.com/certlab/studyguide/internal/study"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	catalog, err := curriculum.NewCatalog(cfg.CurriculumPath)
	if err != nil {
		slog.Error("failed to load curriculum", "path", cfg.CurriculumPath, "error", err)
		os.Exit(1)
	}

	backend, cleanup, err := newProgressBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up progress backend", "backend", cfg.Progress.Backend, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	tracker := progress.NewTracker(backend)

	tutor := newTutor(cfg)
	controller := study.NewController(catalog, tracker, tutor)

	srv := &api.Server{
		Catalog:    catalog,
		Tracker:    tracker,
		Controller: controller,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(cfg.Server.AllowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newProgressBackend builds the configured completion-set backend and a
// cleanup function that releases its connections.
func newProgressBackend(ctx context.Context, cfg *config.Config) (progress.Backend, func(), error) {
	switch cfg.Progress.Backend {
	case config.ProgressBackendRedis:
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return progress.NewRedisBackend(c.Client), func() { c.Close() }, nil

	case config.ProgressBackendPostgres:
		db, err := database.New(ctx, cfg.Database.URL, database.Options{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
			ConnMaxIdleTime: time.Duration(cfg.Database.ConnMaxIdleMinutes) * time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		backend, err := progress.NewPostgresBackend(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("init postgres backend: %w", err)
		}
		return backend, func() { db.Close() }, nil

	default:
		return progress.NewFileBackend(cfg.Progress.Path), func() {}, nil
	}
}

// newTutor wires the configured AI providers into a tutor. With no API key
// set the tutor reports disabled and the app serves static content only.
func newTutor(cfg *config.Config) *ai.Tutor {
	router := ai.NewRouter()
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey))
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey))
	}
	if !cfg.HasAIProvider() {
		slog.Warn("no AI provider configured, assistant features disabled")
	}

	opts := []ai.TutorOption{
		ai.WithTimeout(time.Duration(cfg.AI.TimeoutSeconds) * time.Second),
	}
	if cfg.AI.Model != "" {
		opts = append(opts, ai.WithModel(cfg.AI.Model))
	}
	return ai.NewTutor(router, opts...)
}
