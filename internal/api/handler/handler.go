package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cuongbtq/queue-producer/internal/api/model"
	"github.com/cuongbtq/queue-producer/internal/api/storage"
	"github.com/cuongbtq/queue-producer/internal/producer"
	"github.com/cuongbtq/queue-producer/shared/rabbitmq"
)

// Broker is the part of the connection manager the handlers depend on
type Broker interface {
	Status() rabbitmq.Status
	DeclareQueue(name string, durable bool) error
}

// MessageStore lists the publish history
type MessageStore interface {
	ListMessages(ctx context.Context, filter storage.MessageFilter) ([]model.PublishedMessage, error)
}

// QueueLister lists queues through the broker management API
type QueueLister interface {
	ListQueues(ctx context.Context) (json.RawMessage, error)
}

// ProducerSettings carries the configured producer behaviour
type ProducerSettings struct {
	Periodic        bool // POST /parameters/ starts a periodic task instead of publishing once
	QueueDurable    bool
	DefaultInterval time.Duration
}

// Dependencies holds all dependencies needed by handlers.
// Store and Management are optional.
type Dependencies struct {
	Logger      *slog.Logger
	ServiceName string
	Broker      Broker
	Publisher   producer.Sender
	Scheduler   *producer.Scheduler
	Store       MessageStore
	Management  QueueLister
	Producer    ProducerSettings
	Now         func() time.Time
}

// ProducerHandler handles publish and periodic task requests
type ProducerHandler struct {
	logger    *slog.Logger
	broker    Broker
	publisher producer.Sender
	scheduler *producer.Scheduler
	settings  ProducerSettings
	now       func() time.Time
}

// NewProducerHandler creates a new ProducerHandler instance
func NewProducerHandler(deps *Dependencies) *ProducerHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &ProducerHandler{
		logger:    deps.Logger,
		broker:    deps.Broker,
		publisher: deps.Publisher,
		scheduler: deps.Scheduler,
		settings:  deps.Producer,
		now:       now,
	}
}

// HistoryHandler serves the publish history
type HistoryHandler struct {
	logger *slog.Logger
	store  MessageStore
}

// NewHistoryHandler creates a new HistoryHandler instance
func NewHistoryHandler(deps *Dependencies) *HistoryHandler {
	return &HistoryHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}

// QueueHandler proxies the management API
type QueueHandler struct {
	logger     *slog.Logger
	management QueueLister
}

// NewQueueHandler creates a new QueueHandler instance
func NewQueueHandler(deps *Dependencies) *QueueHandler {
	return &QueueHandler{
		logger:     deps.Logger,
		management: deps.Management,
	}
}

// HealthHandler reports liveness and broker state
type HealthHandler struct {
	service   string
	broker    Broker
	scheduler *producer.Scheduler
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		service:   deps.ServiceName,
		broker:    deps.Broker,
		scheduler: deps.Scheduler,
	}
}
