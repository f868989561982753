package model

import "time"

// PublishedMessage is one row of the publish history
type PublishedMessage struct {
	MessageID    string    `db:"message_id"`
	QueueName    string    `db:"queue_name"`
	ProcessName  string    `db:"process_name"`
	RandomString string    `db:"random_string"`
	CreatedAt    time.Time `db:"created_at"`
	RecordedAt   time.Time `db:"recorded_at"`
}
