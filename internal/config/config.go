package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Producer modes
const (
	ModeOneShot  = "oneshot"
	ModePeriodic = "periodic"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Producer  ProducerConfig  `yaml:"producer"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// RabbitMQConfig holds broker connection and queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" validate:"required"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user" validate:"required"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Queue      QueueConfig      `yaml:"queue"`
	Connection ConnectionConfig `yaml:"connection"`
	Management ManagementConfig `yaml:"management"`
}

// QueueConfig describes the queue declared at startup
type QueueConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Durable bool   `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" validate:"gte=1"`
	RetryInterval     time.Duration `yaml:"retry_interval" validate:"gte=0"`
	Heartbeat         time.Duration `yaml:"heartbeat" validate:"gte=0"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" validate:"gte=0"`
}

// ManagementConfig points at the RabbitMQ management API
type ManagementConfig struct {
	URL      string        `yaml:"url" validate:"omitempty,url"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ProducerConfig controls what POST /parameters/ and the ticker do
type ProducerConfig struct {
	Mode       string        `yaml:"mode" validate:"oneof=oneshot periodic"`
	ProcessTag string        `yaml:"process_tag"`
	MinLength  int           `yaml:"min_length" validate:"gte=0"`
	MaxLength  int           `yaml:"max_length" validate:"gtefield=MinLength,lte=1048576"`
	Interval   time.Duration `yaml:"interval" validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the publish history
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database" validate:"required_if=Enabled true"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format       string `yaml:"format" validate:"omitempty,oneof=json console"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name" validate:"required_if=Enabled true"`
	TracingURL  string `yaml:"tracing_url" validate:"required_if=Enabled true"`
}

// Default returns a Config populated with the values used when a key is absent
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "queue-producer",
			Environment: "development",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Port:  5672,
			VHost: "/",
			Queue: QueueConfig{Durable: true},
			Connection: ConnectionConfig{
				RetryAttempts:     30,
				RetryInterval:     5 * time.Second,
				Heartbeat:         10 * time.Second,
				ConnectionTimeout: 30 * time.Second,
			},
			Management: ManagementConfig{Timeout: 5 * time.Second},
		},
		Producer: ProducerConfig{
			Mode:      ModeOneShot,
			MinLength: 5,
			MaxLength: 20,
			Interval:  10 * time.Second,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file, expands ${VAR} references from the
// environment and overlays the result on Default.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks the settings shared by every binary
func (c *Config) Validate() error {
	if err := checkPort("rabbitmq", c.RabbitMQ.Port); err != nil {
		return err
	}

	if c.Database.Enabled {
		if err := checkPort("database", c.Database.Port); err != nil {
			return err
		}
	}

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid %s: failed on %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	return nil
}

// ValidateProducerConfig adds the HTTP service requirements to Validate
func (c *Config) ValidateProducerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return checkPort("server", c.Server.Port)
}

// ValidateTickerConfig adds the headless ticker requirements to Validate
func (c *Config) ValidateTickerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Producer.ProcessTag == "" {
		return errors.New("producer process_tag is required")
	}

	return nil
}

func checkPort(name string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", name, port, MinPort, MaxPort)
	}
	return nil
}
