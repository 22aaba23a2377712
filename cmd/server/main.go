package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridemarket/internal/config"
	handlers "ridemarket/internal/handlers/shared"
	"ridemarket/internal/middleware"
	mongorepo "ridemarket/internal/repositories/mongodb"
	"ridemarket/internal/services"
	"ridemarket/pkg/cache"
	"ridemarket/pkg/database"
	"ridemarket/pkg/email"
	"ridemarket/pkg/logger"
	"ridemarket/pkg/payment"
	"ridemarket/pkg/push"
	"ridemarket/pkg/sms"
	"ridemarket/pkg/websocket"
	"ridemarket/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Storage
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Warnf("Redis unavailable, running without cache: %v", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	bookingRepo := mongorepo.NewBookingRepository(db, redisCache)
	checkpointRepo := mongorepo.NewCheckpointRepository(db)

	// Notification transports
	emailSender, err := email.NewSender(&email.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromEmail,
		FromName:    cfg.SMTP.FromName,
	})
	if err != nil {
		appLogger.Warnf("SMTP unavailable, email notifications disabled: %v", err)
		emailSender = nil
	}

	var smsProvider sms.SMSProvider
	if cfg.SMS.Twilio.AccountSID != "" {
		smsProvider = sms.NewTwilioProvider(cfg.SMS.Twilio.AccountSID, cfg.SMS.Twilio.AuthToken, cfg.SMS.Twilio.FromNumber)
	}

	var pushProvider push.PushProvider
	if cfg.Push.FCM.Credentials != "" {
		pushProvider, err = push.NewFCMProvider(cfg.Push.FCM.Credentials)
		if err != nil {
			appLogger.Warnf("FCM unavailable, push notifications disabled: %v", err)
		}
	}

	notifier := services.NewNotifier(emailSender, smsProvider, pushProvider, appLogger)

	// Realtime
	wsHandler := websocket.NewHandler()

	// Services
	bookingService := services.NewBookingService(bookingRepo, notifier, appLogger)
	messageService := services.NewMessageService(bookingRepo, notifier, wsHandler, appLogger)
	activityService := services.NewActivityService(bookingRepo, checkpointRepo, wsHandler, appLogger)
	reportService := services.NewReportService(bookingRepo, notifier, appLogger)

	stripeProvider := payment.NewStripeProvider(cfg.Payment.Stripe.SecretKey, cfg.Payment.Stripe.WebhookSecret)

	// Handlers
	bookingHandler := handlers.NewBookingHandler(bookingService)
	messageHandler := handlers.NewMessageHandler(messageService)
	activityHandler := handlers.NewActivityHandler(activityService)
	reportHandler := handlers.NewReportHandler(reportService)
	paymentHandler := handlers.NewPaymentHandler(stripeProvider, bookingService, cfg.Payment, appLogger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.RateLimit(redisCache, cfg.Security.RateLimitPerMinute))

	v1 := router.Group("/api/v1")
	{
		routes.SetupBookingRoutes(v1, cfg.Security.JWTSecret, bookingHandler, messageHandler, reportHandler, paymentHandler)
		routes.SetupActivityRoutes(v1, cfg.Security.JWTSecret, activityHandler, wsHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	// The aggregator follows the change feed for as long as the server
	// runs.
	aggregatorCtx, stopAggregator := context.WithCancel(context.Background())
	defer stopAggregator()
	go func() {
		if err := activityService.Run(aggregatorCtx); err != nil && err != context.Canceled {
			appLogger.WithError(err).Error("Activity aggregator stopped")
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting server on port %d", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	stopAggregator()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}
}
