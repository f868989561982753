package rabbitmq

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrConnectionExhausted is returned when every connection attempt failed
	ErrConnectionExhausted = errors.New("rabbitmq connection attempts exhausted")

	// ErrConfiguration is returned when the broker rejects the requested setup,
	// e.g. a queue that already exists with different parameters
	ErrConfiguration = errors.New("rabbitmq configuration mismatch")

	// ErrNotConnected is returned when the client has no usable channel
	ErrNotConnected = errors.New("not connected to RabbitMQ")
)

// ConnectivityError wraps transient transport failures that are worth retrying
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return "rabbitmq " + e.Op + ": " + e.Err.Error()
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivityError reports whether err is a retryable transport failure
func IsConnectivityError(err error) bool {
	var connErr *ConnectivityError
	return errors.As(err, &connErr)
}

// isPreconditionFailed reports whether the broker answered 406 PRECONDITION_FAILED,
// which is what a queue redeclared with different arguments produces
func isPreconditionFailed(err error) bool {
	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Code == amqp.PreconditionFailed
	}
	return false
}
