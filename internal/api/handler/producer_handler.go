package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/queue-producer/internal/api/dto"
	"github.com/cuongbtq/queue-producer/internal/metrics"
	"github.com/cuongbtq/queue-producer/internal/producer"
	"github.com/cuongbtq/queue-producer/internal/producer/domain"
)

// errBadRequest marks request errors that are safe to echo back
var errBadRequest = errors.New("bad request")

// Parameters handles POST /parameters/
// Publishes once or starts the periodic task, depending on producer.mode
func (h *ProducerHandler) Parameters(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if h.settings.Periodic {
		h.startPeriodic(c, &req, h.settings.DefaultInterval)
		return
	}
	h.publishOnce(c, &req)
}

// Publish handles POST /api/v1/messages
func (h *ProducerHandler) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	h.publishOnce(c, &req)
}

// StartPeriodic handles POST /api/v1/periodic
func (h *ProducerHandler) StartPeriodic(c *gin.Context) {
	var req dto.StartPeriodicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	interval := h.settings.DefaultInterval
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "interval must be a positive duration such as 10s"})
			return
		}
		interval = d
	}

	h.startPeriodic(c, &req.PublishRequest, interval)
}

// GetPeriodic handles GET /api/v1/periodic
// Reports the active task, or the last one if none is running
func (h *ProducerHandler) GetPeriodic(c *gin.Context) {
	task := h.scheduler.Last()
	if task == nil {
		c.JSON(http.StatusOK, dto.PeriodicResponse{Status: domain.TaskStatusIdle})
		return
	}

	taskDTO := toTaskDTO(task.Snapshot())
	c.JSON(http.StatusOK, dto.PeriodicResponse{Status: taskDTO.Status, Task: &taskDTO})
}

// StopPeriodic handles DELETE /api/v1/periodic
func (h *ProducerHandler) StopPeriodic(c *gin.Context) {
	task, err := h.scheduler.StopActive(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrNotRunning):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "No periodic task is running"})
		return
	case err != nil:
		h.logger.Error("Failed to stop periodic task", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to stop periodic task"})
		return
	}

	taskDTO := toTaskDTO(task.Snapshot())
	c.JSON(http.StatusOK, dto.PeriodicResponse{Status: taskDTO.Status, Task: &taskDTO})
}

func (h *ProducerHandler) publishOnce(c *gin.Context, req *dto.PublishRequest) {
	minLength, maxLength, err := validatePublishRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.broker.DeclareQueue(req.QueueName, h.settings.QueueDurable); err != nil {
		h.logger.Error("Failed to declare queue",
			slog.String("queue", req.QueueName),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to declare queue"})
		return
	}

	body, err := producer.RandomString(minLength, maxLength)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	payload := domain.NewPayload(req.QueueName, req.Tag(), body, h.now())
	ctx := producer.WithSource(c.Request.Context(), metrics.SourceOneShot)
	if err := h.publisher.Publish(ctx, req.QueueName, payload); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to publish message"})
		return
	}

	c.JSON(http.StatusOK, dto.PublishResponse{
		Status:  "published",
		Message: toMessageDTO(payload),
	})
}

func (h *ProducerHandler) startPeriodic(c *gin.Context, req *dto.PublishRequest, interval time.Duration) {
	minLength, maxLength, err := validatePublishRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if h.scheduler.Active() != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: domain.ErrAlreadyRunning.Error()})
		return
	}

	if err := h.broker.DeclareQueue(req.QueueName, h.settings.QueueDurable); err != nil {
		h.logger.Error("Failed to declare queue",
			slog.String("queue", req.QueueName),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to declare queue"})
		return
	}

	task, err := h.scheduler.Start(producer.TaskParams{
		QueueName:  req.QueueName,
		ProcessTag: req.Tag(),
		MinLength:  minLength,
		MaxLength:  maxLength,
		Interval:   interval,
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, producer.ErrSchedulerClosed):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Service is shutting down"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	taskDTO := toTaskDTO(task.Snapshot())
	c.JSON(http.StatusOK, dto.PeriodicResponse{Status: "started", Task: &taskDTO})
}

func validatePublishRequest(req *dto.PublishRequest) (int, int, error) {
	if req.Tag() == "" {
		return 0, 0, fmt.Errorf("%w: process_tag or process_name is required", errBadRequest)
	}

	minLength, maxLength := *req.Range.Min, *req.Range.Max
	if err := producer.ValidateRange(minLength, maxLength); err != nil {
		return 0, 0, err
	}
	return minLength, maxLength, nil
}

func toMessageDTO(p domain.Payload) dto.MessageDTO {
	return dto.MessageDTO{
		QueueName:    p.QueueName,
		ProcessName:  p.ProcessTag,
		RandomString: p.RandomString,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toTaskDTO(s producer.TaskSnapshot) dto.TaskDTO {
	taskDTO := dto.TaskDTO{
		TaskID:      s.ID,
		Status:      s.Status,
		QueueName:   s.Params.QueueName,
		ProcessName: s.Params.ProcessTag,
		MinLength:   s.Params.MinLength,
		MaxLength:   s.Params.MaxLength,
		Interval:    s.Params.Interval.String(),
		StartedAt:   s.StartedAt.Format(time.RFC3339Nano),
		Published:   s.Published,
		Error:       s.Error,
	}
	if !s.LastPublishedAt.IsZero() {
		taskDTO.LastPublishedAt = s.LastPublishedAt.Format(time.RFC3339Nano)
	}
	return taskDTO
}
