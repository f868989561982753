package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultRetryAttempts is the number of handshakes tried before giving up
	DefaultRetryAttempts = 30
	// DefaultRetryInterval is the fixed wait between two handshakes
	DefaultRetryInterval = 5 * time.Second
	// MaxDeclaredQueues caps how many runtime declarations are remembered.
	// Past it, declarations still go to the broker but are not cached.
	MaxDeclaredQueues = 1024
)

// Status is the lifecycle state of the broker connection
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	ConnectionName    string
	QueueName         string
	QueueDurable      bool
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
}

// URL builds the AMQP URI for the configured broker
func (c *Config) URL() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}

	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     c.Host,
		Port:     c.Port,
		Username: c.User,
		Password: c.Password,
		Vhost:    vhost,
	}
	return uri.String()
}

// Option customises a Client
type Option func(*Client)

// WithDialer replaces the transport used to reach the broker
func WithDialer(dial Dialer) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// WithSleep replaces the wait used between connection attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithAttemptObserver registers a callback run before every handshake
func WithAttemptObserver(observe func(attempt int)) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// Client owns the single broker connection of the process and its publishing channel
type Client struct {
	config  *Config
	logger  *slog.Logger
	dial    Dialer
	sleep   func(ctx context.Context, d time.Duration) error
	observe func(attempt int)

	mu       sync.RWMutex
	conn     Connection
	channel  Channel
	status   Status
	attempts int
	declared map[string]bool
	closed   bool
}

// NewClient connects to RabbitMQ, retrying with a fixed delay, and declares the
// configured queue as durable. It blocks until connected, the retry budget is
// exhausted, the queue turns out to be misconfigured, or ctx is done.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	cfg := *config
	client := &Client{
		config:   &cfg,
		logger:   logger,
		dial:     DialAMQP,
		sleep:    sleepContext,
		status:   StatusDisconnected,
		declared: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.config.RetryAttempts <= 0 {
		client.config.RetryAttempts = DefaultRetryAttempts
	}
	if client.config.RetryInterval < 0 {
		client.config.RetryInterval = DefaultRetryInterval
	}

	if err := client.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect runs the retry loop around handshake
func (c *Client) connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)

	maxAttempts := c.config.RetryAttempts
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			c.setStatus(StatusFailed)
			return fmt.Errorf("connection aborted after %d attempts: %w", attempt-1, err)
		}

		c.mu.Lock()
		c.attempts = attempt
		c.mu.Unlock()
		if c.observe != nil {
			c.observe(attempt)
		}

		c.logger.Info("Connecting to RabbitMQ",
			slog.String("host", c.config.Host),
			slog.Int("port", c.config.Port),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
		)

		conn, ch, err := c.handshake()
		if err == nil {
			c.install(conn, ch)
			return nil
		}

		if errors.Is(err, ErrConfiguration) {
			c.logger.Error("RabbitMQ queue declaration rejected",
				slog.String("queue", c.config.QueueName),
				slog.Any("error", err),
			)
			c.setStatus(StatusFailed)
			return err
		}

		lastErr = err
		if attempt == maxAttempts {
			c.logger.Error("Failed to connect to RabbitMQ",
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxAttempts),
			)
			break
		}

		c.logger.Warn("RabbitMQ not ready, retrying",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("retry_in", c.config.RetryInterval),
		)

		if err := c.sleep(ctx, c.config.RetryInterval); err != nil {
			c.setStatus(StatusFailed)
			return fmt.Errorf("connection aborted after %d attempts: %w", attempt, err)
		}
	}

	c.setStatus(StatusFailed)
	return fmt.Errorf("%w after %d attempts: %w", ErrConnectionExhausted, maxAttempts, lastErr)
}

// handshake dials, opens the publishing channel and declares the target queue
func (c *Client) handshake() (Connection, Channel, error) {
	amqpConfig := amqp.Config{
		Heartbeat:  c.config.Heartbeat,
		Locale:     "en_US",
		Properties: amqp.NewConnectionProperties(),
	}
	if c.config.ConnectionName != "" {
		amqpConfig.Properties.SetClientConnectionName(c.config.ConnectionName)
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	conn, err := c.dial(c.config.URL(), amqpConfig)
	if err != nil {
		return nil, nil, &ConnectivityError{Op: "dial", Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, &ConnectivityError{Op: "open channel", Err: err}
	}

	if err := declareQueue(ch, c.config.QueueName, c.config.QueueDurable); err != nil {
		ch.Close()
		conn.Close()
		if isPreconditionFailed(err) {
			return nil, nil, fmt.Errorf("%w: queue %q: %v", ErrConfiguration, c.config.QueueName, err)
		}
		return nil, nil, &ConnectivityError{Op: "declare queue", Err: err}
	}

	return conn, ch, nil
}

// install publishes a successful handshake and starts watching for transport drops
func (c *Client) install(conn Connection, ch Channel) {
	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.status = StatusConnected
	c.declared[c.config.QueueName] = c.config.QueueDurable
	attempts := c.attempts
	c.mu.Unlock()

	go c.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))

	c.logger.Info("RabbitMQ client initialized",
		slog.String("queue", c.config.QueueName),
		slog.Bool("durable", c.config.QueueDurable),
		slog.Int("attempts", attempts),
	)
}

// watch marks the client disconnected when the broker drops the connection
func (c *Client) watch(notify <-chan *amqp.Error) {
	amqpErr, ok := <-notify

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.status = StatusDisconnected
	c.mu.Unlock()

	if ok && amqpErr != nil {
		c.logger.Warn("RabbitMQ connection lost",
			slog.Int("code", amqpErr.Code),
			slog.String("reason", amqpErr.Reason),
		)
		return
	}
	c.logger.Warn("RabbitMQ connection closed by broker")
}

// DeclareQueue idempotently declares a queue. Repeating a declaration with the
// same durability is a no-op; a different durability is a configuration fault.
func (c *Client) DeclareQueue(name string, durable bool) error {
	c.mu.RLock()
	conn := c.conn
	usable := !c.closed && c.status == StatusConnected && conn != nil
	prev, known := c.declared[name]
	c.mu.RUnlock()

	if known {
		if prev == durable {
			return nil
		}
		return fmt.Errorf("%w: queue %q already declared with durable=%t", ErrConfiguration, name, prev)
	}

	if !usable {
		return ErrNotConnected
	}

	// A rejected declaration closes the channel it was issued on, so keep
	// that away from the shared publishing channel.
	ch, err := conn.Channel()
	if err != nil {
		return &ConnectivityError{Op: "open channel", Err: err}
	}
	defer ch.Close()

	if err := declareQueue(ch, name, durable); err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: queue %q: %v", ErrConfiguration, name, err)
		}
		return fmt.Errorf("failed to declare queue %q: %w", name, err)
	}

	c.mu.Lock()
	if len(c.declared) < MaxDeclaredQueues {
		c.declared[name] = durable
	}
	c.mu.Unlock()

	c.logger.Info("Queue declared",
		slog.String("queue", name),
		slog.Bool("durable", durable),
	)

	return nil
}

func declareQueue(ch Channel, name string, durable bool) error {
	_, err := ch.QueueDeclare(
		name,    // name
		durable, // durable
		false,   // auto-delete
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	return err
}

// Channel returns the publishing channel, or nil when not connected
func (c *Client) Channel() Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Status returns the current connection state
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Attempts returns how many handshakes NewClient needed
func (c *Client) Attempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempts
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status == StatusConnected && c.conn != nil && !c.conn.IsClosed()
}

// Close releases the channel and the connection. Calling it again is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.status = StatusDisconnected
	ch, conn := c.channel, c.conn
	c.mu.Unlock()

	c.logger.Info("Closing RabbitMQ connection")

	if ch != nil {
		if err := ch.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
