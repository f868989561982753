package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/queue-producer/internal/api/storage"
	"github.com/cuongbtq/queue-producer/internal/config"
	"github.com/cuongbtq/queue-producer/internal/producer"
	"github.com/cuongbtq/queue-producer/shared/logger"
	"github.com/cuongbtq/queue-producer/shared/postgresql"
	"github.com/cuongbtq/queue-producer/shared/rabbitmq"
	"github.com/cuongbtq/queue-producer/shared/telemetry"
)

// ticker-service publishes the configured periodic stream without an HTTP surface.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("TICKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/ticker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateTickerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting ticker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer closeTracing(appLogger.Logger, shutdownTracing)

	var recorder producer.Recorder
	if cfg.Database.Enabled {
		dbClient, err := initPostgreSQL(ctx, &cfg.Database, appLogger.Component("postgresql"))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		if err := dbClient.Migrate(ctx, storage.Schema...); err != nil {
			return fmt.Errorf("failed to prepare publish history: %w", err)
		}
		recorder = storage.NewStorage(dbClient.GetDB())
	}

	rabbitClient, err := initRabbitMQ(ctx, cfg, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	publisher := producer.NewPublisher(&producer.PublisherConfig{
		Channel:  rabbitClient.Channel(),
		Logger:   appLogger.Component("publisher"),
		Recorder: recorder,
	})

	scheduler := producer.NewScheduler(&producer.SchedulerConfig{
		Publisher: publisher,
		Logger:    appLogger.Component("scheduler"),
	})

	task, err := scheduler.Start(producer.TaskParams{
		QueueName:  cfg.RabbitMQ.Queue.Name,
		ProcessTag: cfg.Producer.ProcessTag,
		MinLength:  cfg.Producer.MinLength,
		MaxLength:  cfg.Producer.MaxLength,
		Interval:   cfg.Producer.Interval,
	})
	if err != nil {
		return fmt.Errorf("failed to start periodic task: %w", err)
	}

	select {
	case <-ctx.Done():
		appLogger.Info("Received signal, shutting down gracefully")
	case <-task.Done():
		// fail-stop: the task already released its slot
		if err := task.Err(); err != nil {
			return fmt.Errorf("periodic task stopped: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Periodic task shutdown timeout exceeded", slog.Any("error", err))
	}

	snap := task.Snapshot()
	appLogger.Info("Ticker service shutdown complete",
		slog.Int("published", snap.Published),
	)
	return nil
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

// closeTracing flushes pending spans and logs a failed flush
func closeTracing(logger *slog.Logger, shutdown telemetry.ShutdownFunc) {
	if err := shutdown(context.Background()); err != nil {
		logger.Error("Failed to shut down tracing", slog.Any("error", err))
	}
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(ctx, &postgresql.Config{
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
}

// initRabbitMQ blocks until the broker accepts a connection and the queue is declared
func initRabbitMQ(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(ctx, &rabbitmq.Config{
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
	}, logger)
}
