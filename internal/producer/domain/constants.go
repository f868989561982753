package domain

// Periodic task states
const (
	TaskStatusIdle    = "IDLE"
	TaskStatusRunning = "RUNNING"
	TaskStatusStopped = "STOPPED"
	TaskStatusFailed  = "FAILED"
)

// MaxStringLength bounds the generated random string of a single message
const MaxStringLength = 1 << 20

// ContentType of every encoded Payload
const ContentType = "application/json"
