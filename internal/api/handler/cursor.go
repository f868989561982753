package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/queue-producer/internal/api/storage"
)

func DecodeMessageCursor(cursorStr string) (*storage.MessageCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	createdAtPart, messageID, ok := strings.Cut(string(decoded), "|")
	if !ok || messageID == "" {
		return nil, errors.New("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(createdAtPart, "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at in cursor: %w", err)
	}

	return &storage.MessageCursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		MessageID: messageID,
	}, nil
}

func EncodeMessageCursor(cursor *storage.MessageCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.MessageID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
