package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/skillmint/regsync/internal/api/handlers"
	"github.com/skillmint/regsync/internal/api/middleware"
	"github.com/skillmint/regsync/internal/api/routes"
	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/mailer"
	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/internal/domain/sheetsync"
	"github.com/skillmint/regsync/internal/infrastructure/cache"
	"github.com/skillmint/regsync/internal/infrastructure/feed"
	"github.com/skillmint/regsync/internal/infrastructure/mail"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/connection"
	"github.com/skillmint/regsync/internal/infrastructure/persistence/postgres/migrations"
	"github.com/skillmint/regsync/internal/infrastructure/scheduler"
	"github.com/skillmint/regsync/internal/infrastructure/sheets"
	"github.com/skillmint/regsync/pkg/config"
	"github.com/skillmint/regsync/pkg/logger"
	"github.com/skillmint/regsync/pkg/security/auth"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	// .env is a local-development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("")
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database and migrations.
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional: without it, rate limiting and resync markers
	// degrade, everything else keeps working.
	var redisClient *cache.RedisClient
	if rc, err := cache.NewRedisClient(cache.NewConfigFromEnv(cfg)); err != nil {
		log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	// Timezone for sheet timestamps.
	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		log.Warn("Invalid sync timezone, falling back to UTC", zap.String("timezone", cfg.Sync.Timezone))
		loc = time.UTC
	}

	// Domain services.
	regRepo := registration.NewRepository(db)
	eventRepo := event.NewRepository(db)
	regService := registration.NewService(regRepo, log.Logger)
	eventService := event.NewService(eventRepo, log.Logger)

	// Google sinks. Missing credentials disable sync rather than abort
	// boot; the platform still takes registrations.
	var (
		resolver sheetsync.SinkResolver
		writer   sheetsync.SinkWriter
	)
	if cfg.Google.Enabled() {
		client, err := sheets.NewClient(rootCtx, cfg.Google, log)
		if err != nil {
			log.Fatal("Failed to initialize sheet client", zap.Error(err))
		}
		resolver = sheets.NewResolver(client, cfg.Google.ParentFolderID, log)
		writer = client
	} else {
		log.Warn("Google credentials not configured, sheet sync disabled")
	}

	syncService := sheetsync.NewService(regRepo, eventRepo, resolver, writer, redisClient, sheetsync.Config{
		Enabled:          cfg.Google.Enabled(),
		Location:         loc,
		ResyncEventDelay: cfg.Sync.ResyncEventDelay,
	}, log)

	// Change feed watchers over Postgres NOTIFY.
	watcherCfg := sheetsync.WatcherConfig{
		RestartDelay:    cfg.Sync.RestartDelay,
		NetRestartDelay: cfg.Sync.NetRestartDelay,
	}
	regFeed := feed.NewListener(db.DSN(), migrations.RegistrationChannel, log)
	eventFeed := feed.NewListener(db.DSN(), migrations.EventChannel, log)
	regWatcher := sheetsync.NewRegistrationWatcher(regFeed, syncService, watcherCfg, log)
	eventWatcher := sheetsync.NewEventWatcher(eventFeed, syncService, watcherCfg, log)
	if syncService.Enabled() {
		go regWatcher.Run(rootCtx)
		go eventWatcher.Run(rootCtx)
	}

	// Nightly full resync heals whatever the watchers missed.
	nightly := scheduler.NewScheduler(syncService, cfg.Sync.NightlyResyncHour, loc, log)
	nightly.Start(rootCtx)

	// Bulk mail, optional like Redis.
	mailLogger := logrus.New()
	mailLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		mailLogger.SetLevel(logrus.InfoLevel)
	} else {
		mailLogger.SetLevel(logrus.DebugLevel)
	}
	var mailService *mailer.Service
	if sender, err := mail.NewSMTPSender(cfg.Mail); err != nil {
		log.Warn("SMTP not configured, bulk mail disabled", zap.Error(err))
	} else {
		mailService = mailer.NewService(sender, regRepo, mailer.Config{
			Concurrency: cfg.Mail.BulkConcurrency,
			Delay:       cfg.Mail.BulkDelay,
		}, mailLogger)
	}

	// Auth and rate limiting.
	jwtService := auth.NewJWTService(cfg.Auth)
	var rateLimiter auth.RateLimiter
	if redisClient != nil {
		rateLimiter = auth.NewRedisRateLimiter(redisClient.GetClient(), 1*time.Minute, 60)
	}

	// HTTP surface.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	regHandler := handlers.NewRegistrationHandler(regService, syncService, regWatcher, log)
	eventHandler := handlers.NewEventHandler(eventService, syncService, eventWatcher, log)
	syncHandler := handlers.NewSyncHandler(syncService, mailService, regWatcher, eventWatcher)

	routes.NewRegistrationRoutes(regHandler, jwtService, rateLimiter).RegisterRoutes(router)
	routes.NewEventRoutes(eventHandler, jwtService).RegisterRoutes(router)
	routes.NewSyncRoutes(syncHandler, jwtService).RegisterRoutes(router)
	routes.SetupHealthRoutes(router, db, redisClient)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped")
}
