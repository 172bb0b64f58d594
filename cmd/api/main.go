// Package main is the entry point for the Marginalia API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/mwhite/marginalia/internal/cache"
	"github.com/mwhite/marginalia/internal/config"
	"github.com/mwhite/marginalia/internal/handler"
	"github.com/mwhite/marginalia/internal/middleware"
	"github.com/mwhite/marginalia/internal/repo"
	"github.com/mwhite/marginalia/internal/service"
	"github.com/mwhite/marginalia/internal/summary"
	"github.com/mwhite/marginalia/internal/webpage"
	"github.com/mwhite/marginalia/migrations"
)

const maxBodyBytes = 1 << 20 // 1 MiB request body cap

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// log/slog is the stdlib structured logger. JSON handler writes
	// machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// Apply pending migrations at bootstrap. goose needs database/sql, not
	// the pgx pool, so open a short-lived stdlib connection for it.
	if err := migrate(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// --- Listing cache (optional) -----------------------------------------
	var listingCache service.ListingCache
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		listingCache = cache.NewListingCache(client, 60*time.Second)
		slog.Info("listing cache enabled", "addr", cfg.RedisAddr)
	} else {
		slog.Info("REDIS_ADDR not set, listing cache disabled")
	}

	// --- Enrichment collaborators -----------------------------------------
	fetcher := webpage.NewFetcher(nil)
	generator := summary.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
	if generator == nil {
		slog.Info("OPENAI_API_KEY not set, summaries disabled")
	}

	// --- Services ---------------------------------------------------------
	bookmarkRepo := repo.NewBookmarkRepo(pool)
	tagRepo := repo.NewTagRepo(pool)
	tagSvc := service.NewTagService(tagRepo, listingCache, logger)
	bookmarkSvc := service.NewBookmarkService(
		bookmarkRepo, tagRepo, tagSvc, fetcher, generator, listingCache, logger,
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body size cap. The auth middleware only wraps the API routes,
	// leaving /healthz open for load balancer probes.
	srv := handler.NewServer(bookmarkSvc, tagSvc)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	r.Get("/healthz", srv.GetHealth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuth(cfg.AuthSecret))
		srv.Routes(r)
	})

	// --- HTTP Server ------------------------------------------------------
	// No WriteTimeout: enrichment waits on outbound fetch and summarization
	// calls with no explicit deadline of their own; a hung external call
	// blocks only the requesting operation.
	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies all pending goose migrations from the embedded FS.
func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "source", res.Source.Path)
	}
	return nil
}
