package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the message envelope published to the broker
type Payload struct {
	QueueName    string    `json:"queue_name"`
	ProcessTag   string    `json:"process_name"`
	RandomString string    `json:"random_string"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewPayload stamps the envelope with createdAt in UTC
func NewPayload(queueName, processTag, randomString string, createdAt time.Time) Payload {
	return Payload{
		QueueName:    queueName,
		ProcessTag:   processTag,
		RandomString: randomString,
		CreatedAt:    createdAt.UTC(),
	}
}

// Encode serializes p as a JSON object with an RFC 3339 UTC timestamp
func Encode(p Payload) ([]byte, error) {
	p.CreatedAt = p.CreatedAt.UTC()

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return body, nil
}

// Decode parses a body produced by Encode
func Decode(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if p.QueueName == "" {
		return Payload{}, fmt.Errorf("%w: queue_name is required", ErrInvalidPayload)
	}
	if p.ProcessTag == "" {
		return Payload{}, fmt.Errorf("%w: process_name is required", ErrInvalidPayload)
	}
	if p.CreatedAt.IsZero() {
		return Payload{}, fmt.Errorf("%w: created_at is required", ErrInvalidPayload)
	}

	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
