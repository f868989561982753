package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/queue-producer/internal/api/model"
	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

// Schema creates the publish history table
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS published_messages (
		message_id    TEXT PRIMARY KEY,
		queue_name    TEXT NOT NULL,
		process_name  TEXT NOT NULL,
		random_string TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_published_messages_created
		ON published_messages (created_at DESC, message_id DESC)`,
}

type Storage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db:  db,
		now: time.Now,
	}
}

// RecordMessage stores a message after it has been published
func (s *Storage) RecordMessage(ctx context.Context, messageID string, payload domain.Payload) error {
	query := `
		INSERT INTO published_messages (
			message_id, queue_name, process_name,
			random_string, created_at, recorded_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		messageID,
		payload.QueueName,
		payload.ProcessTag,
		payload.RandomString,
		payload.CreatedAt,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}

	return nil
}

type MessageFilter struct {
	QueueName   string
	ProcessName string
	PageSize    int
	Cursor      *MessageCursor
}

type MessageCursor struct {
	CreatedAt time.Time
	MessageID string
}

// ListMessages returns up to PageSize+1 rows, newest first, so the caller can
// tell whether another page exists.
func (s *Storage) ListMessages(ctx context.Context, filter MessageFilter) ([]model.PublishedMessage, error) {
	query := `
		SELECT
			message_id, queue_name, process_name,
			random_string, created_at, recorded_at
		FROM published_messages
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.QueueName != "" {
		query += fmt.Sprintf(" AND queue_name = $%d", argIdx)
		args = append(args, filter.QueueName)
		argIdx++
	}

	if filter.ProcessName != "" {
		query += fmt.Sprintf(" AND process_name = $%d", argIdx)
		args = append(args, filter.ProcessName)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, message_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.MessageID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, message_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var messages []model.PublishedMessage
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}
