// cmd/server/main.go
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

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkgate/internal/analytics"
	"linkgate/internal/cache"
	"linkgate/internal/config"
	"linkgate/internal/device"
	"linkgate/internal/domain"
	"linkgate/internal/geo"
	"linkgate/internal/handler"
	"linkgate/internal/messaging"
	"linkgate/internal/qrcode"
	"linkgate/internal/repository"
	"linkgate/internal/repository/memory"
	postgresRepo "linkgate/internal/repository/postgres"
	"linkgate/internal/restriction"
	"linkgate/internal/service"
	customLogger "linkgate/pkg/logger"
)

// gormWriter wraps our custom logger to implement gorm's logger.Writer interface
type gormWriter struct {
	logger *customLogger.Logger
}

// Printf implements the logger.Writer interface
func (w *gormWriter) Printf(format string, args ...interface{}) {
	w.logger.Info(fmt.Sprintf(format, args...))
}

func main() {
	// Simple health check for Docker - just make HTTP request to existing server
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8081"
		}
		resp, err := http.Get("http://localhost:" + port + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load environment variables from .env file (development only)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load application configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	appLogger := customLogger.NewLogger(customLogger.Options{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		FilePath:    cfg.LogFile,
	})
	defer appLogger.Sync()
	appLogger.Infow("Starting linkgate", "environment", cfg.Environment, "storage", cfg.StorageDriver)

	// Initialize storage
	links, clicks, err := initStorage(cfg, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize storage", "error", err)
	}

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		appLogger.Warnw("Failed to initialize Redis cache, continuing without cache", "error", err)
		redisCache = nil // Continue without cache
	}
	linkCache := cache.NewLinkCache(redisCache, cfg.LinkCacheTTL, cfg.NegativeCacheTTL)

	// Geo resolution
	geoResolver := initGeo(cfg, appLogger)

	// Click event stream
	var publisher analytics.Publisher
	var kafka *messaging.KafkaPublisher
	if cfg.KafkaEnabled() {
		kafka, err = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			appLogger.Warnw("Failed to connect to Kafka, click events will not be streamed", "error", err)
		} else {
			publisher = kafka
			appLogger.Infow("Streaming click events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		}
	}

	// Click analytics
	recorder := analytics.NewRecorder(
		links, clicks,
		analytics.NewFingerprinter(cfg.FingerprintSalt, cfg.FingerprintWindow),
		publisher,
		analytics.Options{
			Workers:    cfg.AnalyticsWorkers,
			QueueSize:  cfg.AnalyticsQueueSize,
			JobTimeout: cfg.AnalyticsTimeout,
		},
		appLogger.Named("analytics"),
	)

	// Initialize service layer with dependency injection
	resolver := service.NewLinkResolver(
		links, linkCache, geoResolver,
		device.NewClassifier(), restriction.NewEvaluator(), recorder,
		cfg.BaseURL, appLogger,
	)
	linkService := service.NewLinkService(links, linkCache, cfg.BaseURL, cfg.ShortCodeLength, appLogger)

	// Initialize HTTP handlers and router
	router := handler.NewRouter(cfg, appLogger,
		handler.NewRedirectHandler(resolver, qrcode.NewEncoder(), cfg, appLogger),
		handler.NewLinkHandler(linkService, appLogger),
	)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine for graceful shutdown
	go func() {
		appLogger.Infow("Server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with 30 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Server forced to shutdown", "error", err)
	}

	// No new visits can arrive now; flush queued clicks
	if err := recorder.Close(ctx); err != nil {
		appLogger.Errorw("Click recorder did not drain", "error", err)
	}

	if kafka != nil {
		if err := kafka.Close(); err != nil {
			appLogger.Errorw("Error closing Kafka producer", "error", err)
		}
	}

	// Close Redis connection
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			appLogger.Errorw("Error closing Redis connection", "error", err)
		}
	}

	if err := geoResolver.Close(); err != nil {
		appLogger.Errorw("Error closing geo database", "error", err)
	}

	appLogger.Info("Server exited successfully")
}

// initStorage returns the link and click repositories for the configured driver
func initStorage(cfg *config.Config, log *customLogger.Logger) (repository.LinkRepository, repository.ClickRepository, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("Using in-memory storage, links will not survive a restart")
		store := memory.NewStore()
		return store, store, nil
	}

	db, err := initDatabase(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := postgresRepo.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return postgresRepo.NewLinkRepository(db), postgresRepo.NewClickRepository(db), nil
}

// initGeo builds the geo resolver. Without a database every visitor resolves
// to the configured default location.
func initGeo(cfg *config.Config, log *customLogger.Logger) *geo.Resolver {
	fallback := domain.Location{
		Country:  cfg.GeoDefaultCountry,
		Region:   cfg.GeoDefaultRegion,
		Timezone: cfg.GeoDefaultTimezone,
	}

	var db geo.Database
	if cfg.GeoDBPath != "" {
		reader, err := geo.OpenDatabase(cfg.GeoDBPath)
		if err != nil {
			log.Warnw("Geo database unavailable, using default location", "error", err)
		} else {
			db = reader
		}
	} else {
		log.Warn("GEO_DB_PATH not set, using default location for every visitor")
	}

	return geo.NewResolver(db, geo.NewCache(cfg.GeoCacheSize, cfg.GeoCacheTTL), fallback, log.Named("geo"))
}

// initDatabase initializes the PostgreSQL database connection with connection pooling
func initDatabase(cfg *config.Config, log *customLogger.Logger) (*gorm.DB, error) {
	writer := &gormWriter{logger: log}

	gormLogger := logger.New(
		writer, // Use our custom writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// Connect to PostgreSQL with retry logic
	var db *gorm.DB
	var err error

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                 gormLogger,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
			TranslateError:         true,
		})

		if err == nil {
			break
		}

		log.Warnw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(5 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// Get underlying SQL DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool for optimal performance
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established successfully")
	return db, nil
}
