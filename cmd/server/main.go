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

	ledgerapp "github.com/stockcore/backend/internal/application/ledger"
	"github.com/stockcore/backend/internal/domain/ledger"
	"github.com/stockcore/backend/internal/domain/shared"
	"github.com/stockcore/backend/internal/infrastructure/config"
	"github.com/stockcore/backend/internal/infrastructure/logger"
	"github.com/stockcore/backend/internal/infrastructure/persistence"
	"github.com/stockcore/backend/internal/infrastructure/telemetry"
	"github.com/stockcore/backend/internal/interfaces/http/handler"
	"github.com/stockcore/backend/internal/interfaces/http/middleware"
	"github.com/stockcore/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection with zap-backed GORM logging
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.EnableTracing(cfg.Telemetry.DBTraceEnabled, log); err != nil {
		log.Fatal("Failed to enable database tracing", zap.Error(err))
	}

	// Wire the application services over one transactional scope
	scope := persistence.NewGormTransactionScope(db.DB)
	notifier := ledgerapp.NewLoggingThresholdNotifier(log)

	eventBus := shared.NewInProcessEventBus()
	registerEventLogging(eventBus, log)

	availabilityService := ledgerapp.NewAvailabilityService(scope)
	movementService := ledgerapp.NewMovementService(scope, log)
	movementService.SetThresholdNotifier(notifier)
	movementService.SetEventPublisher(eventBus)
	reservationService := ledgerapp.NewReservationService(scope, log,
		ledgerapp.WithConflictRetries(cfg.Ledger.ConflictRetries),
		ledgerapp.WithThresholdNotifier(notifier),
		ledgerapp.WithEventPublisher(eventBus))
	commitmentService := ledgerapp.NewCommitmentService(scope, log)
	commitmentService.SetThresholdNotifier(notifier)
	commitmentService.SetEventPublisher(eventBus)
	reversalService := ledgerapp.NewReversalService(scope, log)
	reversalService.SetThresholdNotifier(notifier)
	reversalService.SetEventPublisher(eventBus)

	// Handlers
	stockHandler := handler.NewStockHandler(availabilityService, movementService)
	movementHandler := handler.NewMovementHandler(availabilityService, reversalService)
	reservationHandler := handler.NewReservationHandler(reservationService, commitmentService)

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

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	// Routes
	router.RegisterHealthRoutes(engine, db.Ping)
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(router.NewLedgerRoutes(stockHandler, movementHandler, reservationHandler)).
		Setup()

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registerEventLogging subscribes an audit log handler for every ledger event type.
func registerEventLogging(bus *shared.InProcessEventBus, log *zap.Logger) {
	handleEvent := func(ctx context.Context, event shared.DomainEvent) error {
		log.Info("Domain event",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_type", event.AggregateType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Time("occurred_at", event.OccurredAt()))
		return nil
	}
	for _, eventType := range []string{
		ledger.EventTypeStockBelowThreshold,
		ledger.EventTypeStockReserved,
		ledger.EventTypeReservationFulfilled,
		ledger.EventTypeReservationReleased,
		ledger.EventTypeMovementReversed,
	} {
		bus.Subscribe(eventType, handleEvent)
	}
}
