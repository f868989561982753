package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePublish(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePublish("orders", SourceOneShot, nil)
	m.ObservePublish("orders", SourceOneShot, nil)
	m.ObservePublish("orders", SourcePeriodic, errors.New("channel closed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesPublished.WithLabelValues("orders", SourceOneShot)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MessagesPublished.WithLabelValues("orders", SourcePeriodic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("orders", SourcePeriodic)))
}

func TestSetPeriodicRunning(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetPeriodicRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PeriodicRunning))

	m.SetPeriodicRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PeriodicRunning))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePublish("orders", SourceOneShot, nil)
		m.SetPeriodicRunning(true)
	})
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
