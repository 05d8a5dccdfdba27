package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"quiz-engine/internal/auth"
	"quiz-engine/internal/httpapi"
	"quiz-engine/internal/lib/slogcolor"
	"quiz-engine/internal/quiz"
	"quiz-engine/internal/quiz/postgres"
	"quiz-engine/internal/quiz/sqlite"
	"quiz-engine/internal/seed"
)

// storage is everything a backend must provide; both the sqlite and the
// postgres store satisfy it.
type storage interface {
	quiz.CatalogStore
	quiz.AttemptStore
	quiz.UserStore
	quiz.CatalogSeeder
	quiz.UserSeeder
}

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", envOr("DB_PATH", "quiz.db"), "sqlite database path")
	dsn := flag.String("dsn", os.Getenv("DATABASE_DSN"), "postgres DSN (overrides -db when set)")
	seedPath := flag.String("seed", os.Getenv("SEED_FILE"), "fixture file to load before serving")
	attemptTTL := flag.Duration("attempt-ttl", envDurationOr("ATTEMPT_TTL", 30*time.Minute), "time limit per attempt, 0 disables expiry")
	tokenTTL := flag.Duration("token-ttl", envDurationOr("TOKEN_TTL", 24*time.Hour), "bearer token lifetime")
	flag.Parse()

	log := slog.New(slogcolor.NewHandler(os.Stdout, slog.LevelDebug))
	slog.SetDefault(log)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	var store storage
	if *dsn != "" {
		pg, err := postgres.NewStore(ctx, *dsn)
		if err != nil {
			slog.Error("connect postgres", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
		slog.Info("using postgres storage")
	} else {
		sq, err := sqlite.NewStore(*dbPath)
		if err != nil {
			slog.Error("open sqlite", "err", err, "path", *dbPath)
			os.Exit(1)
		}
		defer sq.Close()
		store = sq
		slog.Info("using sqlite storage", "path", *dbPath)
	}

	if *seedPath != "" {
		fixture, err := seed.Load(*seedPath)
		if err != nil {
			slog.Error("load fixture", "err", err, "path", *seedPath)
			os.Exit(1)
		}
		if err := seed.Apply(ctx, fixture, store, store); err != nil {
			slog.Error("apply fixture", "err", err)
			os.Exit(1)
		}
	}

	sessions := quiz.NewSessionManager(store, store, store, *attemptTTL)
	tokens := auth.NewTokenAuth(store, []byte(jwtSecret), *tokenTTL)

	server := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewRouter(store, sessions, tokens, tokens),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("quiz-service listening", "addr", *addr, "attempt_ttl", *attemptTTL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
