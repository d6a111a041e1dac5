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

	"github.com/Tristan28-web/Edu-Track-sub000/internal/curriculum"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/engine"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/identity"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/platform/cache"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/platform/config"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/platform/database"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/quiz"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/ranking"
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

	catalog, err := curriculum.LoadCatalog(cfg.Curriculum.CatalogPath)
	if err != nil {
		slog.Error("failed to load curriculum", "error", err)
		os.Exit(1)
	}
	bank, err := quiz.LoadBank(cfg.Curriculum.QuizBankDir)
	if err != nil {
		slog.Error("failed to load quiz bank", "error", err)
		os.Exit(1)
	}

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		slog.Error("failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	store, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create progress store", "error", err)
		os.Exit(1)
	}
	if err := store.Migrate(ctx); err != nil {
		slog.Error("failed to migrate progress schema", "error", err)
		os.Exit(1)
	}

	events := engine.NewPostgresEventLogger(db.Pool)
	if err := events.Migrate(ctx); err != nil {
		slog.Error("failed to migrate events schema", "error", err)
		os.Exit(1)
	}

	agg := progress.NewAggregator(cfg.Grading.UnlockThreshold, cfg.Grading.MasteredBound)
	attempts := quiz.NewAttemptManager(rdb.Client, cfg.Quiz.DeadlineSecret,
		time.Duration(cfg.Quiz.AttemptRetainTTL)*time.Hour)

	eng := engine.New(engine.Config{
		Catalog:    catalog,
		Bank:       bank,
		Attempts:   attempts,
		Store:      store,
		Aggregator: agg,
		Events:     events,
	})

	roster, err := ranking.LoadRoster(cfg.Curriculum.RosterPath)
	if err != nil {
		slog.Error("failed to load roster", "error", err)
		os.Exit(1)
	}

	api := &handlers{
		eng:       eng,
		catalog:   catalog,
		ranker:    ranking.NewEngine(agg, catalog.Len()),
		rankCache: ranking.NewCache(rdb.Client, time.Duration(cfg.Ranking.CacheTTL)*time.Second),
		roster:    roster,
		store:     store,
		identity:  identity.Static{},
	}

	mux := newMux(db, rdb)
	api.register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// newMux creates the HTTP router with health check endpoints.
func newMux(db *database.DB, rdb *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(db, rdb))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(db *database.DB, rdb *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"database unavailable"}`))
				return
			}
		}
		if rdb != nil {
			if err := rdb.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"cache unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
