package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/cache"
	"github.com/careloop/hms-backend/internal/config"
	"github.com/careloop/hms-backend/internal/db"
	"github.com/careloop/hms-backend/internal/export"
	redisclient "github.com/careloop/hms-backend/internal/redis"
	"github.com/careloop/hms-backend/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "export-worker").Logger()
	log.Info().Str("env", cfg.Env).Str("dir", cfg.ExportDir).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()

	store := cache.NewStore(rdb, log)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	appts := appointment.NewService(appointment.NewPgRepository(pgPool), schedule.DefaultGrid(), locker, store)

	queue := export.NewQueue(rdb, cfg.ExportRetention)
	runner := export.NewRunner(queue, appts, cfg.ExportDir, log)

	if err := runner.Run(rootCtx); err != nil && rootCtx.Err() == nil {
		log.Fatal().Err(err).Msg("runner stopped")
	}
	log.Info().Msg("shut down")
}
