package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/api"
	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/auth"
	"github.com/careloop/hms-backend/internal/cache"
	"github.com/careloop/hms-backend/internal/config"
	"github.com/careloop/hms-backend/internal/db"
	"github.com/careloop/hms-backend/internal/export"
	redisclient "github.com/careloop/hms-backend/internal/redis"
	"github.com/careloop/hms-backend/internal/schedule"
	"github.com/careloop/hms-backend/internal/user"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := newLogger(cfg.Env).With().Str("component", "api-server").Logger()
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("schema migration error")
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	store := cache.NewStore(rdb, log)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	grid := schedule.DefaultGrid()

	users := user.NewService(user.NewPgRepository(pgPool))
	sched := schedule.NewService(schedule.NewPgRepository(pgPool), grid, store)
	appts := appointment.NewService(appointment.NewPgRepository(pgPool), grid, locker, store)
	exports := export.NewQueue(rdb, cfg.ExportRetention)

	handler := api.NewRouter(api.RouterConfig{
		Users:        users,
		Appointments: appts,
		Schedule:     sched,
		Exports:      exports,
		Tokens:       tokens,
		Cache:        store,
		PgPool:       pgPool,
		Redis:        rdb,
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
