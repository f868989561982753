package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/queue-producer/internal/api/dto"
	"github.com/cuongbtq/queue-producer/internal/api/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListMessages handles GET /api/v1/messages
// Lists recorded messages, newest first, with cursor pagination
func (h *HistoryHandler) ListMessages(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotImplemented, dto.ErrorResponse{Error: "Publish history is disabled"})
		return
	}

	var req dto.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeMessageCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cursor"})
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), storage.MessageFilter{
		QueueName:   req.QueueName,
		ProcessName: req.ProcessName,
		PageSize:    req.PageSize,
		Cursor:      cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list messages", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list messages"})
		return
	}

	hasMore := len(messages) > req.PageSize
	if hasMore {
		messages = messages[:req.PageSize]
	}

	resp := dto.ListMessagesResponse{Messages: make([]dto.MessageDTO, len(messages))}
	for i, m := range messages {
		resp.Messages[i] = dto.MessageDTO{
			MessageID:    m.MessageID,
			QueueName:    m.QueueName,
			ProcessName:  m.ProcessName,
			RandomString: m.RandomString,
			CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339Nano),
			RecordedAt:   m.RecordedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	if hasMore {
		last := messages[len(messages)-1]
		resp.NextCursor = EncodeMessageCursor(&storage.MessageCursor{
			CreatedAt: last.CreatedAt,
			MessageID: last.MessageID,
		})
	}

	c.JSON(http.StatusOK, resp)
}
