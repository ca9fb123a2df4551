package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applog "github.com/partdb/backend/internal/application/logsystem"
	appparts "github.com/partdb/backend/internal/application/parts"
	"github.com/partdb/backend/internal/bootstrap"
	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/event"
	"github.com/partdb/backend/internal/infrastructure/logger"
	"github.com/partdb/backend/internal/infrastructure/messaging"
	"github.com/partdb/backend/internal/infrastructure/persistence"
	"github.com/partdb/backend/internal/infrastructure/telemetry"
	"github.com/partdb/backend/internal/interfaces/http/handler"
	"github.com/partdb/backend/internal/interfaces/http/middleware"
	"github.com/partdb/backend/internal/interfaces/http/router"
)

//go:generate swag init -g main.go -d ./,../../internal/interfaces/http/handler,../../internal/interfaces/http/dto -o ../../docs --parseDependency --parseInternal

//	@title			Part-DB API
//	@version		1.0
//	@description	Inventory of electronic parts with an audit log that supports undo and revert.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Part-DB backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.TraceConfigFrom(cfg.Telemetry, cfg.App.Version), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry, cfg.App.Version), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(cfg.Telemetry, cfg.App.Version), log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfigFrom(cfg.Telemetry, db.Driver), log); err != nil {
		log.Warn("Database tracing not registered", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, mp, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
		log.Warn("Database metrics not registered", zap.Error(err))
	}

	opts := bootstrap.Options{Config: cfg, Logger: log, DB: db}
	if mp.IsEnabled() {
		auditMetrics, err := telemetry.NewAuditMetrics(mp.Meter("partdb/audit"), telemetry.NewGormInventoryStats(db.DB), log)
		if err != nil {
			log.Warn("Audit metrics not registered", zap.Error(err))
		} else {
			opts.Metrics = auditMetrics
		}
	}

	bus := event.NewInMemoryEventBus(log)
	opts.Publisher = bus
	if cfg.Audit.ForwardEnabled {
		sink := messaging.NewAMQPSink(cfg.Messaging, log)
		defer func() {
			if err := sink.Close(); err != nil {
				log.Warn("Closing log forwarder failed", zap.Error(err))
			}
		}()
		bus.Subscribe(applog.NewForwardingHandler(sink))
		log.Info("Log forwarding enabled",
			zap.String("exchange", cfg.Messaging.Exchange),
			zap.String("routing_key", cfg.Messaging.RoutingKey),
		)
	}

	svc, err := bootstrap.Build(ctx, opts)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("Closing services failed", zap.Error(err))
		}
	}()
	bus.Subscribe(appparts.NewCacheInvalidationHandler(svc.Cache, log))

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			log.Warn("Event bus did not drain", zap.Error(err))
		}
	}()

	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(svc.Auth),
		Part:         handler.NewPartHandler(svc.Parts, svc.LogService),
		Lot:          handler.NewLotHandler(svc.Lots),
		Orderdetail:  handler.NewOrderdetailHandler(svc.Orderdetails),
		Structural:   handler.NewStructuralHandler(svc.Kinds, svc.LogService),
		DataIO:       handler.NewDataIOHandler(svc.Exporter, svc.Importer),
		User:         handler.NewUserHandler(svc.Users),
		Permission:   handler.NewPermissionHandler(svc.Permissions),
		Log:          handler.NewLogHandler(svc.LogService, svc.Undo),
		Attachment:   handler.NewAttachmentHandler(svc.Attachments),
		Label:        handler.NewLabelHandler(svc.Labels),
		InfoProvider: handler.NewInfoProviderHandler(svc.InfoProviders),
		Tools:        handler.NewToolsHandler(svc.Statistics),
		System:       handler.NewSystemHandler(svc.ServerInfo),
	}

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

	// Order: request ID, recovery, access log, tracing and metrics, security
	// headers, CORS
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if tp.IsEnabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	if mp.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: mp,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", healthHandler(db, log))
	router.MountDocs(engine, middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     svc.JWT,
		TokenBlacklist: svc.Blacklist,
		Logger:         log,
	}))

	var authLimiter *middleware.RateLimiter
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Stop()
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     svc.JWT,
		TokenBlacklist: svc.Blacklist,
		AllowAnonymous: true,
		Logger:         log,
	}))
	if tp.IsEnabled() {
		r.Use(middleware.TracingAttributeInjector())
	}
	limits := router.Limits{Body: cfg.HTTP.MaxBodySize, Upload: cfg.Storage.MaxUploadSize}
	for _, group := range router.APIGroups(handlers, svc.Permissions, authLimiter, limits) {
		r.Register(group)
	}
	r.Setup()
	log.Info("Routes registered", zap.Int("count", len(r.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Warn("Health check failed", zap.Error(err))
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
