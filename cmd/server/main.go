package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountingapp "github.com/corebank/backend/internal/application/accounting"
	accrualapp "github.com/corebank/backend/internal/application/accrual"
	catalogapp "github.com/corebank/backend/internal/application/catalog"
	depositapp "github.com/corebank/backend/internal/application/deposit"
	eventapp "github.com/corebank/backend/internal/application/event"
	"github.com/corebank/backend/internal/domain/shared"
	"github.com/corebank/backend/internal/infrastructure/cache"
	"github.com/corebank/backend/internal/infrastructure/config"
	"github.com/corebank/backend/internal/infrastructure/event"
	"github.com/corebank/backend/internal/infrastructure/ledgerclient"
	"github.com/corebank/backend/internal/infrastructure/logger"
	"github.com/corebank/backend/internal/infrastructure/persistence"
	"github.com/corebank/backend/internal/infrastructure/scheduler"
	"github.com/corebank/backend/internal/infrastructure/telemetry"
	"github.com/corebank/backend/internal/interfaces/http/handler"
	"github.com/corebank/backend/internal/interfaces/http/middleware"
	"github.com/corebank/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
)

//	@title			Deposits Backend API
//	@version		1.0
//	@description	Deposit account product management backed by an external double-entry ledger

//	@contact.name	API Support
//	@contact.url	https://github.com/corebank/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Deposits Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// SQL logs route through zap at a level derived from the app level
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database query tracing
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.DB.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database.DBName))); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	definitionRepo := persistence.NewGormProductDefinitionRepository(db.DB)
	instanceRepo := persistence.NewGormProductInstanceRepository(db.DB)
	dividendRepo := persistence.NewGormDividendDistributionRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// The publisher writes events in the same transaction as the
	// aggregate change, which is what makes the outbox transactional
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	definitionRepo.SetOutboxEventSaver(outboxPublisher)
	instanceRepo.SetOutboxEventSaver(outboxPublisher)

	// Idempotency store: Redis when reachable, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Ledger connection: the external double-entry ledger holds the books,
	// and its beat scheduler drives the daily accrual
	ledgerClient := ledgerclient.NewHTTPLedgerClient(cfg.Ledger, log)
	beatClient := ledgerclient.NewHTTPBeatClient(cfg.Ledger.BaseURL,
		&http.Client{Timeout: cfg.Ledger.CallTimeout}, log)

	bridge := accountingapp.NewBridge(ledgerClient, accountingapp.Config{
		EquityLedgerIdentifier:    cfg.Ledger.EquityLedgerIdentifier,
		ClearingAccountIdentifier: cfg.Ledger.ClearingAccountIdentifier,
		FeeIncomeAccount:          cfg.Ledger.FeeIncomeAccount,
		InterestExpenseAccount:    cfg.Ledger.InterestExpenseAccount,
		CallTimeout:               cfg.Ledger.CallTimeout,
		FallbackScanPageSize:      cfg.Ledger.FallbackScanPageSize,
	}, log)

	definitionService := catalogapp.NewDefinitionService(definitionRepo, dividendRepo, instanceRepo)
	instanceService := depositapp.NewInstanceService(instanceRepo, definitionRepo)
	commandProcessor := depositapp.NewCommandProcessor(instanceRepo, definitionRepo, bridge,
		idempotencyStore, shared.DefaultIdempotencyConfig(), log)
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
		outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
		outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
		outboxProcessorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		outboxProcessorConfig.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Daily accrual: register the beat with the ledger's scheduler and run a
	// local trigger as a fallback for when the external beat does not arrive
	accrualService := accrualapp.NewService(instanceRepo, definitionRepo, dividendRepo,
		commandProcessor, beatClient, accrualapp.Config{
			OwnerApp:       cfg.Accrual.OwnerApp,
			BeatIdentifier: cfg.Accrual.BeatIdentifier,
			AlignmentHour:  cfg.Accrual.AlignmentHour,
		}, log)

	if cfg.Accrual.Enabled {
		accrualService.RegisterBeat(context.Background())

		accrualTrigger := scheduler.NewAccrualTrigger(scheduler.AccrualTriggerConfig{
			AlignmentHour: cfg.Accrual.AlignmentHour,
			CheckInterval: cfg.Accrual.CheckInterval,
		}, accrualService, persistence.NewGormTenantProvider(db.DB), log)
		if err := accrualTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start accrual trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := accrualTrigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping accrual trigger", zap.Error(err))
			}
		}()
		log.Info("Accrual trigger started",
			zap.Int("alignment_hour", cfg.Accrual.AlignmentHour),
			zap.Duration("check_interval", cfg.Accrual.CheckInterval),
		)
	}

	definitionHandler := handler.NewDefinitionHandler(definitionService)
	instanceHandler := handler.NewInstanceHandler(instanceService, commandProcessor, bridge)
	outboxHandler := handler.NewOutboxHandler(outboxService)
	systemHandler := handler.NewSystemHandler()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order matters: the request ID must exist before the
	// logger runs, and recovery has to sit above everything that can
	// panic. Tracing, security headers, CORS, the body cap and rate
	// limiting follow.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Tenant resolution for all API routes
	engine.Use(middleware.OptionalTenantMiddleware())

	// Health stays outside API versioning so probes never move
	engine.GET("/health", healthHandler(db, log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Product definition catalog
	definitionRoutes := router.NewDomainGroup("definitions", "/definitions")
	definitionRoutes.POST("", definitionHandler.Create)
	definitionRoutes.GET("", definitionHandler.List)
	definitionRoutes.GET("/:identifier", definitionHandler.Get)
	definitionRoutes.PUT("/:identifier", definitionHandler.Update)
	definitionRoutes.DELETE("/:identifier", definitionHandler.Delete)
	definitionRoutes.POST("/:identifier/commands", definitionHandler.ApplyCommand)
	definitionRoutes.GET("/:identifier/commands", definitionHandler.ListCommands)
	definitionRoutes.POST("/:identifier/dividends", definitionHandler.RecordDividend)
	definitionRoutes.GET("/:identifier/dividends", definitionHandler.ListDividends)

	// Product instances (customer accounts)
	instanceRoutes := router.NewDomainGroup("instances", "/instances")
	instanceRoutes.POST("", instanceHandler.Create)
	instanceRoutes.GET("/:account", instanceHandler.Get)
	instanceRoutes.PUT("/:account", instanceHandler.Update)
	instanceRoutes.POST("/:account/commands", instanceHandler.ApplyCommand)
	instanceRoutes.POST("/:account/transactions", instanceHandler.PostTransaction)
	instanceRoutes.GET("/:account/entries", instanceHandler.ListEntries)

	// Customer-scoped views
	customerRoutes := router.NewDomainGroup("customers", "/customers")
	customerRoutes.GET("/:id/instances", instanceHandler.ListByCustomer)
	customerRoutes.GET("/:id/transaction-types", instanceHandler.TransactionTypes)

	// System and outbox administration
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/outbox/dead", outboxHandler.GetDeadLetterEntries)
	systemRoutes.GET("/outbox/stats", outboxHandler.GetStats)
	systemRoutes.GET("/outbox/:id", outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/:id/retry", outboxHandler.RetryDeadEntry)
	systemRoutes.POST("/outbox/dead/retry-all", outboxHandler.RetryAllDeadEntries)

	r.Register(definitionRoutes).
		Register(instanceRoutes).
		Register(customerRoutes).
		Register(systemRoutes)
	r.Setup()

	// A bare ping for load balancers that only speak the API prefix
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports healthy only while the database answers pings.
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
