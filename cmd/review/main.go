package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gamma-omg/lexi-review/internal/catalog"
	"github.com/gamma-omg/lexi-review/internal/config"
	"github.com/gamma-omg/lexi-review/internal/intro"
	"github.com/gamma-omg/lexi-review/internal/pkg/middleware"
	"github.com/gamma-omg/lexi-review/internal/pkg/router"
	"github.com/gamma-omg/lexi-review/internal/rest"
	"github.com/gamma-omg/lexi-review/internal/service"
	"github.com/gamma-omg/lexi-review/internal/srs"
	"github.com/gamma-omg/lexi-review/internal/store"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func run(ctx context.Context) error {
	slog.Info("starting review service")

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using process environment")
	}

	cfg := config.FromEnv()
	db, err := store.NewPostgresDB(store.PostgresConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DB:       cfg.DB.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to db: %w", err)
	}
	defer db.Close()

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pgs := store.NewPostgresStore(db)

	cat := catalog.NewRemoteCatalog(catalog.RemoteConfig{
		BaseURL:   cfg.Catalog.Endpoint,
		CacheTTL:  cfg.Catalog.CacheTTL,
		CacheKeys: cfg.Catalog.CacheKeys,
		CacheCost: cfg.Catalog.CacheCost,
	})

	var counter intro.Counter
	if cfg.Redis.Addr != "" {
		counter = intro.NewRedisCounter(intro.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		slog.Info("using redis intro counter", "addr", cfg.Redis.Addr)
	} else {
		counter = intro.NewStoreCounter(pgs)
		slog.Info("using store-backed intro counter")
	}

	params := srs.DefaultParams()
	params.MaxIntervalDays = float64(cfg.Review.MaxIntervalDays)

	srv := service.NewReviewService(pgs, cat, counter, params, service.ReviewServiceConfig{
		SessionCap:    cfg.Review.SessionCap,
		DailyNewCap:   cfg.Review.DailyNewCap,
		UpsertRetries: cfg.Review.UpsertRetries,
		RetryBackoff:  cfg.Review.RetryBackoff,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	rt := router.New()
	api := rt.SubRouter("/api/v1/review")
	api.Use(middleware.Log(), middleware.Recover(), middleware.Auth([]byte(cfg.AuthSecret)))
	api.Handle("/", rest.NewAPI(srv))
	mux.Handle("/api/v1/review/", rt)

	httpSrv := &http.Server{
		Addr:         cfg.Http.ListenAddr,
		IdleTimeout:  cfg.Http.IdleTimeout,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		Handler:      mux,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("review service terminated with error", "error", err)
		os.Exit(1)
	}
}
