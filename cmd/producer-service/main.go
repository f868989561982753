package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cuongbtq/queue-producer/internal/api/handler"
	"github.com/cuongbtq/queue-producer/internal/api/router"
	"github.com/cuongbtq/queue-producer/internal/api/storage"
	"github.com/cuongbtq/queue-producer/internal/config"
	"github.com/cuongbtq/queue-producer/internal/metrics"
	"github.com/cuongbtq/queue-producer/internal/producer"
	"github.com/cuongbtq/queue-producer/shared/logger"
	"github.com/cuongbtq/queue-producer/shared/management"
	"github.com/cuongbtq/queue-producer/shared/postgresql"
	"github.com/cuongbtq/queue-producer/shared/rabbitmq"
	"github.com/cuongbtq/queue-producer/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("PRODUCER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/producer-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateProducerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting producer service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("mode", cfg.Producer.Mode),
	)

	// Startup is cancelled by SIGINT/SIGTERM so a long retry loop can be interrupted
	startupCtx, stopStartup := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopStartup()

	shutdownTracing, err := initTelemetry(startupCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			appLogger.Error("Failed to shut down tracing", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	var (
		dbClient *postgresql.Client
		store    *storage.Storage
	)
	if cfg.Database.Enabled {
		dbClient, store, err = initHistory(startupCtx, &cfg.Database, appLogger.Component("postgresql"))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()
	}

	rabbitClient, err := initRabbitMQ(startupCtx, cfg, appLogger.Component("rabbitmq"), appMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	publisherCfg := &producer.PublisherConfig{
		Channel: rabbitClient.Channel(),
		Logger:  appLogger.Component("publisher"),
		Metrics: appMetrics,
	}
	if store != nil {
		publisherCfg.Recorder = store
	}
	publisher := producer.NewPublisher(publisherCfg)

	scheduler := producer.NewScheduler(&producer.SchedulerConfig{
		Publisher: publisher,
		Logger:    appLogger.Component("scheduler"),
		Metrics:   appMetrics,
	})

	deps := &handler.Dependencies{
		Logger:      appLogger.Logger,
		ServiceName: cfg.App.Name,
		Broker:      rabbitClient,
		Publisher:   publisher,
		Scheduler:   scheduler,
		Producer: handler.ProducerSettings{
			Periodic:        cfg.Producer.Mode == config.ModePeriodic,
			QueueDurable:    cfg.RabbitMQ.Queue.Durable,
			DefaultInterval: cfg.Producer.Interval,
		},
	}
	if store != nil {
		deps.Store = store
	}
	if cfg.RabbitMQ.Management.URL != "" {
		deps.Management = initManagement(&cfg.RabbitMQ.Management, appLogger.Component("management"))
	}

	r := initRouter(cfg.App.Environment, deps, router.Options{Metrics: appMetrics, Gatherer: registry})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	appLogger.Info("Producer service is running",
		slog.String("address", addr),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case serveErr = <-errChan:
		appLogger.Error("Server failed", slog.Any("error", serveErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	// The periodic task goes first; the broker connection is closed exactly once after it.
	if err := scheduler.Shutdown(ctx); err != nil {
		appLogger.Error("Periodic task did not stop in time", slog.Any("error", err))
	}
	if err := rabbitClient.Close(); err != nil {
		appLogger.Error("Failed to close RabbitMQ client", slog.Any("error", err))
	}

	appLogger.Info("Producer service shutdown complete")
	return serveErr
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      cfg.App.Name,
	})
}

func initTelemetry(ctx context.Context, cfg *config.Config) (telemetry.ShutdownFunc, error) {
	if !cfg.Telemetry.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	return telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.App.Version,
		TracingURL:     cfg.Telemetry.TracingURL,
	})
}

// initHistory connects to PostgreSQL and prepares the publish history table
func initHistory(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, *storage.Storage, error) {
	dbClient, err := postgresql.NewClient(ctx, &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := dbClient.Migrate(ctx, storage.Schema...); err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	return dbClient, storage.NewStorage(dbClient.GetDB()), nil
}

// initRabbitMQ blocks until the broker accepts a connection and the queue is declared
func initRabbitMQ(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.RabbitMQ.Host,
		Port:              cfg.RabbitMQ.Port,
		User:              cfg.RabbitMQ.User,
		Password:          cfg.RabbitMQ.Password,
		VHost:             cfg.RabbitMQ.VHost,
		ConnectionName:    cfg.App.Name,
		QueueName:         cfg.RabbitMQ.Queue.Name,
		QueueDurable:      cfg.RabbitMQ.Queue.Durable,
		RetryAttempts:     cfg.RabbitMQ.Connection.RetryAttempts,
		RetryInterval:     cfg.RabbitMQ.Connection.RetryInterval,
		Heartbeat:         cfg.RabbitMQ.Connection.Heartbeat,
		ConnectionTimeout: cfg.RabbitMQ.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(ctx, rabbitConfig, logger,
		rabbitmq.WithAttemptObserver(func(int) { m.ConnectionAttempts.Inc() }),
	)
}

func initManagement(cfg *config.ManagementConfig, logger *slog.Logger) *management.Client {
	return management.NewClient(&management.Config{
		URL:      cfg.URL,
		User:     cfg.User,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies, opts router.Options) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, opts)
}
