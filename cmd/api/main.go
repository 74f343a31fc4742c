package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payout/internal/config"
	"payout/internal/fraud"
	handler "payout/internal/handler/http"
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
	locks := lock.NewManager(store, logger)
	fraudEngine := fraud.NewEngine(store, logger)
	webhook := notifier.NewWebhook(cfg.Notifier.WebhookURL)

	svc := service.NewWithdrawalService(
		postgresql.NewWithdrawalRepository(db),
		postgresql.NewAccountRepository(db),
		postgresql.NewTxRunner(db),
		locks,
		fraudEngine,
		webhook,
		logger,
		service.Config{
			LockKey: cfg.Worker.LockKey,
			LockTTL: cfg.Worker.LockTTL,
		},
	)

	router := handler.NewRouter(handler.NewWithdrawalHandler(svc, logger))
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
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
