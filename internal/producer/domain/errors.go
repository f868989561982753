package domain

import "errors"

var (
	// ErrAlreadyRunning is returned when a periodic task is requested while one is active
	ErrAlreadyRunning = errors.New("periodic task already running")

	// ErrNotRunning is returned when stopping a periodic task while none is active
	ErrNotRunning = errors.New("no periodic task running")

	// ErrInvalidRange is returned when string length bounds are negative, min > max or max exceeds MaxStringLength
	ErrInvalidRange = errors.New("invalid length range")

	// ErrInvalidInterval is returned when the periodic interval is not positive
	ErrInvalidInterval = errors.New("interval must be greater than 0")

	// ErrInvalidPayload is returned when a message body cannot be decoded into a Payload
	ErrInvalidPayload = errors.New("invalid payload")
)
