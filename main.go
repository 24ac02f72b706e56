// Package main provides the main entry point for the conference registry service
//
// @title Conference Registry API
// @version 1.0
// @description Conference registrations and abstracts with sequential, human readable public identifiers.
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amirphl/conference-registry/app/handlers"
	"github.com/amirphl/conference-registry/app/router"
	"github.com/amirphl/conference-registry/app/scheduler"
	businessflow "github.com/amirphl/conference-registry/business_flow"
	"github.com/amirphl/conference-registry/config"
	"github.com/amirphl/conference-registry/repository"
	"github.com/amirphl/conference-registry/sequence"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting conference registry %s (%s, built %s) in %s",
		cfg.Deployment.Version, cfg.Deployment.CommitHash, cfg.Deployment.BuildTime, cfg.Deployment.Environment)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers and close connections after in-flight requests drain
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	log.Println("Server stopped")
}

// initializeLogging points the standard logger at stdout, a rotated file, or both
func initializeLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	if cfg.Output == "stdout" {
		return func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		log.Printf("Failed to create log directory, logging to stdout: %v", err)
		return func() {}
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotating
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotating)
	}
	log.SetOutput(out)

	return func() {
		log.SetOutput(os.Stdout)
		_ = rotating.Close()
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues in the logs.
// The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeSequenceStore picks the durable counter store for identifier allocation
func initializeSequenceStore(cfg config.SequenceConfig, db *gorm.DB, rc *redis.Client) (sequence.Store, error) {
	switch cfg.Backend {
	case config.SequenceBackendPostgres:
		return repository.NewSequenceCounterRepository(db), nil
	case config.SequenceBackendRedis:
		if rc == nil {
			return nil, fmt.Errorf("sequence backend redis requires a redis cache connection")
		}
		return sequence.NewRedisStore(rc, cfg.RedisKeyPrefix), nil
	case config.SequenceBackendMemory:
		log.Println("WARNING: in-memory sequence store, identifiers restart after a process restart")
		return sequence.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown sequence backend %q", cfg.Backend)
	}
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	stopFuncs = append(stopFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	abstractRepo := repository.NewAbstractRepository(db)

	// Initialize identifier allocation
	store, err := initializeSequenceStore(cfg.Sequence, db, rc)
	if err != nil {
		return nil, err
	}
	allocator := sequence.NewAllocator(
		repository.NewEventNamespaceConfigSource(eventRepo),
		repository.NewPublicIDScanner(db),
		store,
		sequence.WithStoreTimeout(cfg.Sequence.StoreTimeout),
		sequence.WithMaxBlockSize(cfg.Sequence.MaxBlockSize),
		sequence.WithLogger(log.Default()),
		sequence.WithMetrics(sequence.NewMetrics(prometheus.DefaultRegisterer)),
	)
	log.Printf("Identifier allocation using %s store, timeout %s", cfg.Sequence.Backend, cfg.Sequence.StoreTimeout)

	// Initialize business flows
	eventFlow := businessflow.NewEventFlow(eventRepo, cfg.Sequence.DefaultPadWidth)
	registrationFlow := businessflow.NewRegistrationFlow(eventRepo, registrationRepo, allocator)
	registrationImportFlow := businessflow.NewRegistrationImportFlow(eventRepo, registrationRepo, allocator, db)
	abstractFlow := businessflow.NewAbstractFlow(eventRepo, registrationRepo, abstractRepo, allocator)
	sequenceAdminFlow := businessflow.NewSequenceAdminFlow(allocator)

	// Initialize handlers
	eventHandler := handlers.NewEventHandler(eventFlow)
	registrationHandler := handlers.NewRegistrationHandler(registrationFlow, registrationImportFlow)
	abstractHandler := handlers.NewAbstractHandler(abstractFlow)
	sequenceAdminHandler := handlers.NewSequenceAdminHandler(sequenceAdminFlow)

	appRouter := router.NewFiberRouter(
		router.Options{
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			AdminAPIKeys:     cfg.Security.AdminAPIKeys,
			MetricsEnabled:   cfg.Metrics.Enabled,
			MetricsPath:      cfg.Metrics.Path,
			RateLimitPerMin:  cfg.Security.GlobalRateLimit,
			WriteLimitPerMin: cfg.Security.WriteRateLimit,
			ReadTimeout:      cfg.Server.ReadTimeout,
			WriteTimeout:     cfg.Server.WriteTimeout,
			IdleTimeout:      cfg.Server.IdleTimeout,
			BodyLimit:        cfg.Server.BodyLimit,
		},
		eventHandler,
		registrationHandler,
		abstractHandler,
		sequenceAdminHandler,
	)

	if cfg.Scheduler.ReconcileEnabled {
		sched := scheduler.NewReconcileScheduler(
			eventRepo,
			allocator,
			log.Default(),
			cfg.Scheduler.ReconcileInterval,
			cfg.Scheduler.ReconcileConcurrency,
		).WithLogDir(cfg.Scheduler.LogDir)
		stopFuncs = append(stopFuncs, sched.Start(context.Background()))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		server:    appRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
