package producer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/queue-producer/internal/metrics"
	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

// --- Mocks ---

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, mandatory, immediate, msg).Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordMessage(ctx context.Context, messageID string, payload domain.Payload) error {
	return m.Called(messageID, payload).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestPublisher_Publish(t *testing.T) {
	ch := new(mockChannel)
	var published amqp.Publishing
	ch.On("PublishWithContext", "", "orders", false, false, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(4).(amqp.Publishing)
		}).
		Return(nil)

	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(&PublisherConfig{Channel: ch, Logger: discardLogger(), Metrics: m})

	payload := domain.NewPayload("orders", "svc-a", "abc", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, pub.Publish(context.Background(), "orders", payload))

	ch.AssertExpectations(t)
	assert.Equal(t, amqp.Persistent, published.DeliveryMode)
	assert.Equal(t, domain.ContentType, published.ContentType)
	assert.NotEmpty(t, published.MessageId)
	assert.True(t, payload.CreatedAt.Equal(published.Timestamp))

	decoded, err := domain.Decode(published.Body)
	require.NoError(t, err)
	assert.Equal(t, payload.QueueName, decoded.QueueName)
	assert.Equal(t, payload.ProcessTag, decoded.ProcessTag)
	assert.Equal(t, payload.RandomString, decoded.RandomString)
	assert.True(t, payload.CreatedAt.Equal(decoded.CreatedAt))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesPublished.WithLabelValues("orders", metrics.SourceOneShot)))
}

func TestPublisher_Publish_PropagatesTransportError(t *testing.T) {
	closedErr := amqp.ErrClosed

	ch := new(mockChannel)
	ch.On("PublishWithContext", "", "orders", false, false, mock.Anything).Return(closedErr)

	rec := new(mockRecorder)
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(&PublisherConfig{Channel: ch, Logger: discardLogger(), Metrics: m, Recorder: rec})

	payload := domain.NewPayload("orders", "svc-a", "abc", time.Now())
	err := pub.Publish(WithSource(context.Background(), metrics.SourcePeriodic), "orders", payload)

	require.Error(t, err)
	assert.ErrorIs(t, err, closedErr)
	ch.AssertNumberOfCalls(t, "PublishWithContext", 1)
	rec.AssertNotCalled(t, "RecordMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("orders", metrics.SourcePeriodic)))
}

func TestPublisher_Publish_RecordsHistory(t *testing.T) {
	ch := new(mockChannel)
	ch.On("PublishWithContext", "", "orders", false, false, mock.Anything).Return(nil)

	payload := domain.NewPayload("orders", "svc-a", "abc", time.Now())

	rec := new(mockRecorder)
	rec.On("RecordMessage", mock.AnythingOfType("string"), payload).Return(nil)

	pub := NewPublisher(&PublisherConfig{Channel: ch, Logger: discardLogger(), Recorder: rec})
	require.NoError(t, pub.Publish(context.Background(), "orders", payload))

	rec.AssertExpectations(t)
}

func TestPublisher_Publish_RecorderErrorIsNotFatal(t *testing.T) {
	ch := new(mockChannel)
	ch.On("PublishWithContext", "", "orders", false, false, mock.Anything).Return(nil)

	rec := new(mockRecorder)
	rec.On("RecordMessage", mock.Anything, mock.Anything).Return(errors.New("database is down"))

	pub := NewPublisher(&PublisherConfig{Channel: ch, Logger: discardLogger(), Recorder: rec})
	payload := domain.NewPayload("orders", "svc-a", "abc", time.Now())

	assert.NoError(t, pub.Publish(context.Background(), "orders", payload))
	rec.AssertNumberOfCalls(t, "RecordMessage", 1)
}

func TestSourceFrom(t *testing.T) {
	assert.Equal(t, metrics.SourceOneShot, sourceFrom(context.Background()))
	assert.Equal(t, metrics.SourcePeriodic, sourceFrom(WithSource(context.Background(), metrics.SourcePeriodic)))
}
