package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TEST_RABBITMQ_PASSWORD", "s3cret")

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, "producer-service", cfg.App.Name)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
			assert.Equal(t, "localhost", cfg.RabbitMQ.Host)
			assert.Equal(t, "s3cret", cfg.RabbitMQ.Password)
			assert.Equal(t, "orders", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, 10, cfg.RabbitMQ.Connection.RetryAttempts)
			assert.Equal(t, 2*time.Second, cfg.RabbitMQ.Connection.RetryInterval)
			assert.Equal(t, "http://localhost:15672", cfg.RabbitMQ.Management.URL)
			assert.Equal(t, "s3cret", cfg.RabbitMQ.Management.Password)
			assert.Equal(t, ModePeriodic, cfg.Producer.Mode)
			assert.Equal(t, "svc-a", cfg.Producer.ProcessTag)
			assert.Equal(t, 2*time.Second, cfg.Producer.Interval)
			assert.True(t, cfg.Database.Enabled)
			assert.Equal(t, "producer_db", cfg.Database.Database)
			assert.Equal(t, "json", cfg.Logging.Format)
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml")
	require.NoError(t, err)

	assert.Equal(t, "rabbitmq", cfg.RabbitMQ.Host)
	assert.Equal(t, 5672, cfg.RabbitMQ.Port)
	assert.Equal(t, "/", cfg.RabbitMQ.VHost)
	assert.True(t, cfg.RabbitMQ.Queue.Durable)
	assert.Equal(t, 30, cfg.RabbitMQ.Connection.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RabbitMQ.Connection.RetryInterval)
	assert.Equal(t, ModeOneShot, cfg.Producer.Mode)
	assert.Equal(t, 10*time.Second, cfg.Producer.Interval)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)

	assert.NoError(t, cfg.ValidateProducerConfig())
}

func validConfig() *Config {
	cfg := Default()
	cfg.RabbitMQ.Host = "localhost"
	cfg.RabbitMQ.User = "guest"
	cfg.RabbitMQ.Queue.Name = "orders"
	cfg.Producer.ProcessTag = "svc-a"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "missing rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			errString: "Config.RabbitMQ.Host",
		},
		{
			name:      "missing queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			errString: "Config.RabbitMQ.Queue.Name",
		},
		{
			name:      "invalid rabbitmq port",
			mutate:    func(c *Config) { c.RabbitMQ.Port = 70000 },
			errString: "invalid rabbitmq port",
		},
		{
			name:      "zero retry attempts",
			mutate:    func(c *Config) { c.RabbitMQ.Connection.RetryAttempts = 0 },
			errString: "Config.RabbitMQ.Connection.RetryAttempts",
		},
		{
			name:      "unknown mode",
			mutate:    func(c *Config) { c.Producer.Mode = "burst" },
			errString: "Config.Producer.Mode",
		},
		{
			name:      "inverted length range",
			mutate:    func(c *Config) { c.Producer.MinLength, c.Producer.MaxLength = 10, 2 },
			errString: "Config.Producer.MaxLength",
		},
		{
			name:      "length above limit",
			mutate:    func(c *Config) { c.Producer.MaxLength = 1<<20 + 1 },
			errString: "Config.Producer.MaxLength",
		},
		{
			name:      "zero interval",
			mutate:    func(c *Config) { c.Producer.Interval = 0 },
			errString: "Config.Producer.Interval",
		},
		{
			name:      "database enabled without host",
			mutate:    func(c *Config) { c.Database.Enabled = true; c.Database.Database = "db" },
			errString: "Config.Database.Host",
		},
		{
			name:   "database disabled ignores missing fields",
			mutate: func(c *Config) { c.Database.Port = 0 },
		},
		{
			name:      "telemetry enabled without url",
			mutate:    func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.ServiceName = "producer" },
			errString: "Config.Telemetry.TracingURL",
		},
		{
			name:      "invalid management url",
			mutate:    func(c *Config) { c.RabbitMQ.Management.URL = "not a url" },
			errString: "Config.RabbitMQ.Management.URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateProducerConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0

	err := cfg.ValidateProducerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}

func TestConfig_ValidateTickerConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.ValidateTickerConfig())

	cfg.Producer.ProcessTag = ""
	err := cfg.ValidateTickerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process_tag is required")
}
