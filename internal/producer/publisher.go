package producer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/cuongbtq/queue-producer/internal/metrics"
	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

const tracerName = "github.com/cuongbtq/queue-producer/internal/producer"

// Channel is what the Publisher needs from an AMQP channel
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Recorder keeps a history of published messages
type Recorder interface {
	RecordMessage(ctx context.Context, messageID string, payload domain.Payload) error
}

// PublisherConfig holds publisher dependencies
type PublisherConfig struct {
	Channel  Channel
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Recorder Recorder
}

// Publisher sends encoded payloads to the default exchange
type Publisher struct {
	channel  Channel
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder Recorder
	tracer   trace.Tracer
}

// NewPublisher creates a new Publisher instance
func NewPublisher(cfg *PublisherConfig) *Publisher {
	return &Publisher{
		channel:  cfg.Channel,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		recorder: cfg.Recorder,
		tracer:   otel.Tracer(tracerName),
	}
}

type sourceKey struct{}

// WithSource tags ctx with the origin of the publish, used as a metric label
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if source, ok := ctx.Value(sourceKey{}).(string); ok {
		return source
	}
	return metrics.SourceOneShot
}

// Publish encodes payload and publishes it as a persistent message routed to
// queueName through the default exchange. Transport errors are returned to the
// caller without retry.
func (p *Publisher) Publish(ctx context.Context, queueName string, payload domain.Payload) error {
	source := sourceFrom(ctx)
	messageID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, "Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("rabbitmq"),
			semconv.MessagingDestinationKey.String(queueName),
			semconv.MessagingRabbitmqRoutingKeyKey.String(queueName),
			semconv.MessagingMessageIDKey.String(messageID),
		),
	)
	defer span.End()

	body, err := domain.Encode(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObservePublish(queueName, source, err)
		return err
	}

	traceHeaders := make(map[string]string)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(traceHeaders))

	headers := make(amqp.Table, len(traceHeaders))
	for k, v := range traceHeaders {
		headers[k] = v
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  domain.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    payload.CreatedAt,
			Headers:      headers,
			Body:         body,
		},
	)
	p.metrics.ObservePublish(queueName, source, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("queue", queueName),
			slog.String("source", source),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message to %q: %w", queueName, err)
	}

	span.SetAttributes(attribute.Int("messaging.message_payload_size_bytes", len(body)))

	p.logger.Info("Message sent",
		slog.String("message_id", messageID),
		slog.String("queue", queueName),
		slog.String("process_name", payload.ProcessTag),
		slog.String("random_string", payload.RandomString),
		slog.Time("created_at", payload.CreatedAt),
		slog.String("source", source),
	)

	if p.recorder != nil {
		if err := p.recorder.RecordMessage(ctx, messageID, payload); err != nil {
			p.logger.Warn("Failed to record published message",
				slog.String("message_id", messageID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}
