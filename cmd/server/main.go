// Package main runs the event registration HTTP server with graceful shutdown.
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

	"github.com/chaf-events/backend/config"
	"github.com/chaf-events/backend/internal/admin"
	"github.com/chaf-events/backend/internal/auth"
	"github.com/chaf-events/backend/internal/categories"
	"github.com/chaf-events/backend/internal/middleware"
	"github.com/chaf-events/backend/internal/payments"
	"github.com/chaf-events/backend/internal/registrations"
	"github.com/chaf-events/backend/internal/tickets"
	"github.com/chaf-events/backend/internal/worker"
	"github.com/chaf-events/backend/pkg/database"
	"github.com/chaf-events/backend/pkg/queue"
	"github.com/chaf-events/backend/pkg/redis"
	"github.com/chaf-events/backend/pkg/response"
	"github.com/chaf-events/backend/pkg/storage"
	"github.com/chaf-events/backend/pkg/utils"
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
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			TicketsBucket:        cfg.AWS.TicketsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		hash, hErr := utils.HashPassword(cfg.Admin.Password)
		if hErr != nil {
			logger.Fatal("hash admin password", zap.Error(hErr))
		}
		if err := authRepo.SeedAdmin(ctx, cfg.Admin.Username, hash); err != nil {
			logger.Fatal("seed admin", zap.Error(err))
		}
	}

	// Categories
	categoryRepo := categories.NewRepository(pool)
	categoryHandler := categories.NewHandler(categoryRepo, logger)

	// Registrations and payments
	registrationRepo := registrations.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, categoryRepo, paymentRepo, jobQueue, cfg, logger)
	paystack := payments.NewPaystackClient(cfg.Paystack)
	paymentHandler := payments.NewHandler(paystack, paymentRepo, registrationRepo, logger)

	// Tickets and certificates
	ticketRepo := tickets.NewRepository(pool)
	ticketService := tickets.NewService(ticketRepo, registrationRepo, registrationRepo, categoryRepo, cfg.Event.Name, logger)
	ticketHandler := tickets.NewHandler(ticketService, registrationRepo, jobQueue, s3Client, logger)

	// Admin surface
	adminHandler := admin.NewHandler(registrationRepo, paymentRepo, ticketService, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Public registration flow
	router.GET("/categories", categoryHandler.List)
	router.POST("/registrations/school", registrationHandler.CreateSchool)
	router.POST("/registrations/individual", registrationHandler.CreateIndividual)
	router.POST("/registrations/recover", registrationHandler.Recover)
	router.GET("/registrations/:tracking", registrationHandler.Lookup)
	router.POST("/registrations/:tracking/attest", registrationHandler.Attest)
	router.GET("/registrations/:tracking/dashboard", registrationHandler.Dashboard)

	// Public payments (gateway)
	router.POST("/payments/initialize", paymentHandler.Initialize)
	router.GET("/payments/verify/:reference", paymentHandler.Verify)
	router.POST("/payments/retry", paymentHandler.Retry)
	if cfg.Paystack.Enabled() {
		router.POST("/webhooks/paystack", paymentHandler.Webhook)
	} else {
		logger.Warn("paystack gateway disabled, bank transfer attestation only")
	}

	// Public tickets and certificates (gated by payment state, not JWT)
	router.GET("/tickets/:tracking", ticketHandler.Get)
	router.GET("/tickets/:tracking/pdf", ticketHandler.PDF)
	router.GET("/tickets/:tracking/holders", ticketHandler.ListHolders)
	router.POST("/tickets/:tracking/holders", ticketHandler.CreateHolder)
	router.GET("/certificates/:tracking", ticketHandler.Certificate)
	router.GET("/certificates/:tracking/pdf", ticketHandler.CertificatePDF)

	// Staff API (JWT required)
	api := router.Group("/admin")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/stats", adminHandler.Stats)
		api.GET("/registrations/school", adminHandler.ListSchool)
		api.GET("/registrations/individual", adminHandler.ListIndividual)
		api.GET("/registrations/export", middleware.RequireRole("admin"), adminHandler.ExportCSV)
		api.POST("/registrations/:kind/:id/verify", middleware.RequireRole("admin"), adminHandler.Verify)
		api.POST("/checkin", adminHandler.CheckIn)
		api.GET("/tickets/:number", adminHandler.TicketLookup)
		api.POST("/categories", middleware.RequireRole("admin"), categoryHandler.Create)
		api.POST("/operators", middleware.RequireRole("admin"), authHandler.CreateOperator)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process worker for deployments without a dedicated worker binary.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	processor := worker.NewProcessor(registrationRepo, ticketRepo, ticketService, s3Client, jobQueue, cfg.Email, cfg.Event.Name, logger)
	go processor.Run(workerCtx)

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
