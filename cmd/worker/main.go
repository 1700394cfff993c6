// Package main runs the background job worker (ticket PDF rendering, email).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chaf-events/backend/config"
	"github.com/chaf-events/backend/internal/categories"
	"github.com/chaf-events/backend/internal/registrations"
	"github.com/chaf-events/backend/internal/tickets"
	"github.com/chaf-events/backend/internal/worker"
	"github.com/chaf-events/backend/pkg/database"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/redis"
	"github.com/chaf-events/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			TicketsBucket:        cfg.AWS.TicketsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, pdf jobs will be skipped", zap.Error(err))
		}
	}

	regRepo := registrations.NewRepository(pool)
	categoryRepo := categories.NewRepository(pool)
	ticketRepo := tickets.NewRepository(pool)
	ticketService := tickets.NewService(ticketRepo, regRepo, regRepo, categoryRepo, cfg.Event.Name, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(regRepo, ticketRepo, ticketService, s3Client, jobQueue, cfg.Email, cfg.Event.Name, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go processor.Run(runCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
