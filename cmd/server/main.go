package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/config"
	"github.com/shipping/backend/internal/infrastructure/event"
	"github.com/shipping/backend/internal/infrastructure/logger"
	"github.com/shipping/backend/internal/infrastructure/migration"
	"github.com/shipping/backend/internal/infrastructure/persistence"
	"github.com/shipping/backend/internal/infrastructure/storage"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"github.com/shipping/backend/internal/interfaces/http/handler"
	"github.com/shipping/backend/internal/interfaces/http/middleware"
	"github.com/shipping/backend/migrations"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
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

	// Telemetry providers must exist before the database plugin and the
	// HTTP middleware are built.
	tp, err := telemetry.Setup(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Failed to shut down telemetry", zap.Error(err))
		}
	}()
	log = telemetry.BridgeLogger(log, tp, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting shipping backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", tp.Enabled()),
		zap.Bool("profiling", cfg.Telemetry.Profiling.Enabled),
	)

	prof := cfg.Telemetry.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:              prof.Enabled,
		ServerAddress:        prof.ServerAddress,
		ApplicationName:      prof.ApplicationName,
		BasicAuthUser:        prof.BasicAuthUser,
		BasicAuthPassword:    prof.BasicAuthPassword,
		ProfileTypes:         prof.ProfileTypes,
		MutexProfileFraction: prof.MutexProfileFraction,
		BlockProfileRate:     prof.BlockProfileRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Failed to stop profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && prof.SpanProfiles {
		tp.EnableSpanProfiles()
	}

	var meter metric.Meter
	if tp.Enabled() {
		meter = tp.Meter("shipping")
	}

	// Database
	db, err := openDatabase(cfg, meter, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := applyMigrations(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	var shippingMetrics *telemetry.ShippingMetrics
	if meter != nil {
		shippingMetrics, err = telemetry.NewShippingMetrics(telemetry.ShippingMetricsConfig{Meter: meter, Logger: log})
		if err != nil {
			log.Fatal("Failed to create shipping metrics", zap.Error(err))
		}
	}

	// Event broker and application services
	broker := event.NewBroker[*shipping.ShipmentEvent](cfg.Event.BrokerCapacity)
	defer broker.Close()

	repos := persistence.NewRepositories(db.DB)
	shipmentService := shippingapp.NewShipmentService(
		repos.Shipments, repos.Dewars, repos.Containers, repos.Samples, broker, log.Named("shipment"),
	)
	shipmentService.SetShippingMetrics(shippingMetrics)
	queryService := shippingapp.NewQueryService(
		repos.Shipments, repos.Dewars, repos.Containers, repos.Samples, repos.Proposals, repos.People,
	)
	subscriptionService := shippingapp.NewSubscriptionService(broker, log.Named("subscription"))
	subscriptionService.SetShippingMetrics(shippingMetrics)

	// Manifest export to S3
	var manifestStore *storage.S3ManifestStore
	if cfg.Storage.ManifestEnabled {
		manifestStore, err = openManifestStore(cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize manifest storage", zap.Error(err))
		}
	}

	// In-process event consumers
	var dispatcher *event.Dispatcher[*shipping.ShipmentEvent]
	if cfg.Event.DispatcherEnabled {
		dispatcher = event.NewDispatcher[*shipping.ShipmentEvent](broker, log.Named("dispatcher"),
			event.WithLagObserver(func(skipped uint64) {
				shippingMetrics.RecordSubscriberLag(context.Background(), "dispatcher", skipped)
			}),
		)

		if cfg.Event.RedisRelayEnabled {
			redisClient := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr(),
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer func() {
				_ = redisClient.Close()
			}()
			if err := redisClient.Ping(context.Background()).Err(); err != nil {
				log.Warn("Redis not reachable, relay will retry per event", zap.Error(err))
			}

			serializer := event.NewEventSerializer()
			serializer.Register(shipping.EventTypeShipmentCreated, &shipping.ShipmentEvent{})
			relay := event.NewRedisRelay(redisClient, serializer,
				event.WithRelayChannel(cfg.Event.RedisChannel),
				event.WithRelayLogger(log.Named("redis-relay")),
			)
			dispatcher.Subscribe(relay, relay.EventTypes()...)
			log.Info("Redis event relay enabled", zap.String("channel", relay.Channel()))
		}

		if manifestStore != nil {
			exporter := shippingapp.NewManifestExportHandler(queryService, manifestStore, log.Named("manifest"))
			dispatcher.Subscribe(exporter, exporter.EventTypes()...)
		}

		if err := dispatcher.Start(context.Background()); err != nil {
			log.Fatal("Failed to start event dispatcher", zap.Error(err))
		}
	}

	// HTTP handlers
	shipmentHandler := handler.NewShipmentHandler(shipmentService, queryService)
	if manifestStore != nil {
		shipmentHandler.WithManifestReader(manifestStore)
	}
	handlers := &handler.Handlers{
		Shipments: shipmentHandler,
		Catalog:   handler.NewCatalogHandler(queryService),
		Stream: handler.NewShipmentStreamHandler(subscriptionService,
			handler.WithSSELogger(log.Named("sse")),
			handler.WithSSEHeartbeat(cfg.HTTP.SSEHeartbeat),
			handler.WithSSEMaxClients(cfg.HTTP.SSEMaxClients),
			handler.WithSSEMetrics(shippingMetrics),
		),
		WS: handler.NewShipmentWSHandler(subscriptionService,
			handler.WithWSLogger(log.Named("ws")),
			handler.WithWSMaxClients(cfg.HTTP.SSEMaxClients),
			handler.WithWSMetrics(shippingMetrics),
			handler.WithWSCheckOrigin(originChecker(cfg.HTTP.CORSAllowOrigins)),
		),
		Health: handler.NewHealthHandler(db),
	}

	engine, err := newEngine(cfg, meter, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	apiRouter := handlers.Register(engine)
	log.Debug("Routes registered", zap.Strings("routes", apiRouter.Routes()))

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("Shutting down server...", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Streams never end on their own; close them before draining requests.
	handlers.Stream.Stop()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if dispatcher != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Event.StopTimeout)
		if err := dispatcher.Stop(stopCtx); err != nil {
			log.Error("Failed to stop event dispatcher", zap.Error(err))
		}
		stopCancel()
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects to PostgreSQL with the zap query logger and, when a
// meter is given, the telemetry plugin and pool metrics.
func openDatabase(cfg *config.Config, meter metric.Meter, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(
		log.Named("gorm"),
		logger.MapGormLogLevel(cfg.Database.LogLevel),
		cfg.Telemetry.DBSlowQueryThresh,
	)
	opts := []persistence.Option{persistence.WithLogger(gormLog)}

	if meter != nil || cfg.Telemetry.DBTraceEnabled {
		plugin, err := telemetry.NewGormPlugin(telemetry.GormPluginConfig{
			TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
			Meter:              meter,
		}, log.Named("gorm"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, persistence.WithPlugins(plugin))
	}

	db, err := persistence.NewDatabase(&cfg.Database, opts...)
	if err != nil {
		return nil, err
	}

	if meter != nil {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return nil, err
		}
		if _, err := telemetry.RegisterPoolMetrics(meter, sqlDB); err != nil {
			log.Warn("Failed to register connection pool metrics", zap.Error(err))
		}
	}
	return db, nil
}

// applyMigrations brings the schema up to date from the embedded migrations.
// It uses its own connection, since closing the migrator closes its database.
func applyMigrations(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log.Named("migrate"))
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	if err := m.Up(); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("Database schema up to date", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// openManifestStore connects to S3 and makes sure the manifest bucket exists
func openManifestStore(cfg *config.Config, log *zap.Logger) (*storage.S3ManifestStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.NewS3ManifestStore(ctx, &cfg.Storage, storage.WithLogger(log.Named("s3")))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Manifest export enabled", zap.String("bucket", store.Bucket()))
	return store, nil
}

// newEngine builds the gin engine with the middleware stack in order:
// request id, recovery, request logging, tracing, metrics, CORS, body limit.
func newEngine(cfg *config.Config, meter metric.Meter, log *zap.Logger) (*gin.Engine, error) {
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

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		httpMetrics,
		middleware.Profiling(cfg.Telemetry.Profiling.Enabled, "/health"),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	return engine, nil
}

// originChecker accepts WebSocket upgrades from the configured CORS origins,
// or from the same origin when none are configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
