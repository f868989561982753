package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayload_NormalizesToUTC(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	createdAt := time.Date(2024, 3, 1, 10, 30, 0, 123456789, rome)

	p := NewPayload("orders", "svc-a", "abc", createdAt)

	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.True(t, p.CreatedAt.Equal(createdAt))
}

func TestEncode_Format(t *testing.T) {
	p := NewPayload("orders", "svc-a", "Xy9", time.Date(2024, 3, 1, 9, 30, 0, 123000000, time.UTC))

	body, err := Encode(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))

	assert.Equal(t, "orders", fields["queue_name"])
	assert.Equal(t, "svc-a", fields["process_name"])
	assert.Equal(t, "Xy9", fields["random_string"])
	assert.Equal(t, "2024-03-01T09:30:00.123Z", fields["created_at"])
	assert.Len(t, fields, 4)
}

func TestEncode_ConvertsNonUTCTimestamp(t *testing.T) {
	p := Payload{
		QueueName:    "orders",
		ProcessTag:   "svc-a",
		RandomString: "abc",
		CreatedAt:    time.Date(2024, 3, 1, 11, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
	}

	body, err := Encode(p)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"created_at":"2024-03-01T09:00:00Z"`)
}

func TestDecode_RoundTrip(t *testing.T) {
	payloads := []Payload{
		NewPayload("orders", "svc-a", "abc", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)),
		NewPayload("q", "tag", "", time.Date(1999, 12, 31, 23, 59, 59, 999999999, time.UTC)),
		NewPayload("telemetry", "worker-7", "AbCdEf0123456789", time.Now()),
	}

	for _, p := range payloads {
		body, err := Encode(p)
		require.NoError(t, err)

		decoded, err := Decode(body)
		require.NoError(t, err)

		assert.Equal(t, p.QueueName, decoded.QueueName)
		assert.Equal(t, p.ProcessTag, decoded.ProcessTag)
		assert.Equal(t, p.RandomString, decoded.RandomString)
		assert.True(t, p.CreatedAt.Equal(decoded.CreatedAt), "created_at %s != %s", p.CreatedAt, decoded.CreatedAt)
		assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		errString string
	}{
		{name: "not json", body: "not-json", errString: "invalid payload"},
		{name: "missing queue", body: `{"process_name":"a","random_string":"x","created_at":"2024-01-01T00:00:00Z"}`, errString: "queue_name is required"},
		{name: "missing process", body: `{"queue_name":"q","random_string":"x","created_at":"2024-01-01T00:00:00Z"}`, errString: "process_name is required"},
		{name: "missing timestamp", body: `{"queue_name":"q","process_name":"a","random_string":"x"}`, errString: "created_at is required"},
		{name: "bad timestamp", body: `{"queue_name":"q","process_name":"a","created_at":"yesterday"}`, errString: "invalid payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
