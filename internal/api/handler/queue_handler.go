package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/queue-producer/internal/api/dto"
)

// ListQueues handles GET /rabbitmq/queues
func (h *QueueHandler) ListQueues(c *gin.Context) {
	if h.management == nil {
		c.JSON(http.StatusNotImplemented, dto.ErrorResponse{Error: "Management API is not configured"})
		return
	}

	queues, err := h.management.ListQueues(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list queues", slog.Any("error", err))
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "Failed to query RabbitMQ management API"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", queues)
}
