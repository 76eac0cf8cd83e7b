// Package main runs the meetups HTTP server with WebSocket photo sync and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/frameline/meetups-backend/config"
	"github.com/frameline/meetups-backend/internal/albums"
	"github.com/frameline/meetups-backend/internal/auth"
	"github.com/frameline/meetups-backend/internal/clips"
	"github.com/frameline/meetups-backend/internal/hms"
	"github.com/frameline/meetups-backend/internal/meetups"
	"github.com/frameline/meetups-backend/internal/middleware"
	"github.com/frameline/meetups-backend/internal/photoevents"
	"github.com/frameline/meetups-backend/internal/realtime"
	"github.com/frameline/meetups-backend/internal/sessions"
	"github.com/frameline/meetups-backend/internal/worker"
	"github.com/frameline/meetups-backend/pkg/database"
	"github.com/frameline/meetups-backend/pkg/queue"
	"github.com/frameline/meetups-backend/pkg/redis"
	"github.com/frameline/meetups-backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Repositories
	meetupRepo := meetups.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	statsRepo := sessions.NewStatsRepository(pool)
	eventRepo := photoevents.NewRepository(pool)
	albumRepo := albums.NewRepository(pool)
	clipRepo := clips.NewRepository(pool)

	// Jobs
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(eventRepo, sessionRepo, statsRepo, clipRepo, s3Client, jobQueue, logger)

	// 100ms video rooms and tokens
	var roomClient *hms.RoomClient
	if cfg.HMS.ManagementToken != "" && cfg.HMS.TemplateID != "" {
		roomClient = hms.NewRoomClient(cfg.HMS.APIBaseURL, cfg.HMS.ManagementToken, cfg.HMS.TemplateID, logger)
	}
	tokenService := hms.NewTokenService(cfg.HMS.AccessKey, cfg.HMS.AppSecret, cfg.HMS.TokenValidHours)
	tokenHandler := hms.NewHandler(tokenService, meetupRepo, cfg.HMS.DefaultRoomID, logger)
	webhookHandler := hms.NewWebhookHandler(meetupRepo, sessionRepo, jobQueue, cfg.HMS.WebhookSecret, logger)

	// Handlers
	var provisioner meetups.RoomProvisioner
	if roomClient != nil {
		provisioner = roomClient
	}
	meetupHandler := meetups.NewHandler(meetupRepo, sessionRepo, statsRepo, eventRepo, provisioner, logger)
	sessionHandler := sessions.NewHandler(sessionRepo, meetupRepo, eventRepo, logger)
	eventHandler := photoevents.NewHandler(eventRepo, logger)
	albumHandler := albums.NewHandler(albumRepo, s3Client, logger)
	clipHandler := clips.NewHandler(clipRepo, s3Client, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), string(claims.Role), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public reads: shared-link meetup resolution, album catalog, clip archive
	router.GET("/meetups/:id", meetupHandler.Get)
	router.GET("/albums/:id/photos", albumHandler.Photos)
	router.GET("/photos/:id/meetup-clips", clipHandler.ListByPhoto)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole("host"), authHandler.List)

		// Meetups
		api.POST("/meetups/:id/schedule", middleware.RequireRole("host"), meetupHandler.Schedule)
		api.POST("/meetups/:id/invites", middleware.RequireRole("host"), meetupHandler.Invite)
		api.GET("/meetups/:id/summary", meetupHandler.Summary)
		api.GET("/meetups/:id/auth-token", tokenHandler.AuthToken)

		// Sessions and the durable navigation log
		api.POST("/meetups/:id/session", sessionHandler.Create)
		api.GET("/meetups/:id/session/current", sessionHandler.Current)
		api.POST("/meetups/:id/photo-events", eventHandler.Append)
	}

	// Webhooks (no JWT; secret checked in handler when configured)
	router.POST("/webhooks/hms", webhookHandler.Handle)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, meetupRepo, eventRepo, sessionRepo))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (session stats + clip ingest)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)
	logger.Info("worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
