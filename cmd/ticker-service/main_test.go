package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/queue-producer/internal/config"
)

func TestCloseTracing(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLog bool
	}{
		{name: "clean flush", err: nil, wantLog: false},
		{name: "exporter unreachable", err: errors.New("collector unreachable"), wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			called := false
			closeTracing(logger, func(context.Context) error {
				called = true
				return tt.err
			})

			assert.True(t, called)
			if tt.wantLog {
				assert.Contains(t, buf.String(), "Failed to shut down tracing")
				assert.Contains(t, buf.String(), "collector unreachable")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestInitTelemetry_Disabled(t *testing.T) {
	cfg := config.Default()

	shutdown, err := initTelemetry(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
