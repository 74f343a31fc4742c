package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payout/internal/config"
	"payout/internal/fraud"
	"payout/internal/kv"
	"payout/internal/lock"
	"payout/internal/notifier"
	"payout/internal/repository/migration"
	"payout/internal/repository/postgresql"
	"payout/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The worker triggers the due-batch on a timer. Several instances can run
// at once; the distributed lock decides which one scans on each tick.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	logger := newLogger(cfg.Logger.LoggerLevel)
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DB.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DB.MaxOpenConnection)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConnection)
	db.SetConnMaxLifetime(cfg.DB.ConnectionLifetime)

	if err := migration.RunMigrations(db); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient)
	svc := service.NewWithdrawalService(
		postgresql.NewWithdrawalRepository(db),
		postgresql.NewAccountRepository(db),
		postgresql.NewTxRunner(db),
		lock.NewManager(store, logger),
		fraud.NewEngine(store, logger),
		notifier.NewWebhook(cfg.Notifier.WebhookURL),
		logger,
		service.Config{
			LockKey: cfg.Worker.LockKey,
			LockTTL: cfg.Worker.LockTTL,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Worker.Interval)
	defer ticker.Stop()

	logger.Info("worker started", zap.Duration("interval", cfg.Worker.Interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			processed, err := svc.ProcessDueScheduled(ctx)
			if err != nil {
				logger.Error("due batch failed", zap.Error(err))
				continue
			}
			if processed > 0 {
				logger.Info("due batch processed", zap.Int("count", processed))
			}
		}
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	return logger
}
