// Package main runs the background job worker (session stats aggregation,
// clip ingest to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/frameline/meetups-backend/config"
	"github.com/frameline/meetups-backend/internal/clips"
	"github.com/frameline/meetups-backend/internal/photoevents"
	"github.com/frameline/meetups-backend/internal/sessions"
	"github.com/frameline/meetups-backend/internal/worker"
	"github.com/frameline/meetups-backend/pkg/database"
	"github.com/frameline/meetups-backend/pkg/queue"
	"github.com/frameline/meetups-backend/pkg/redis"
	"github.com/frameline/meetups-backend/pkg/storage"
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
	if cfg.AWS.Region != "" && cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			PhotosBucket:         cfg.AWS.PhotosBucket,
			ClipsBucket:          cfg.AWS.ClipsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
	}

	eventRepo := photoevents.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	statsRepo := sessions.NewStatsRepository(pool)
	clipRepo := clips.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(eventRepo, sessionRepo, statsRepo, clipRepo, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
