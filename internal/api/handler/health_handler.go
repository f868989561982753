package handler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/queue-producer/internal/api/dto"
	"github.com/cuongbtq/queue-producer/shared/rabbitmq"
)

const welcomePage = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>Welcome to %s</h1>
<p>Service status: <a href="/health">/health</a></p>
</body>
</html>`

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.broker.Status()

	resp := dto.HealthResponse{
		Status:   "healthy",
		Service:  h.service,
		RabbitMQ: status.String(),
		Periodic: h.scheduler != nil && h.scheduler.Active() != nil,
	}

	if status != rabbitmq.StatusConnected {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Welcome handles GET /
func (h *HealthHandler) Welcome(c *gin.Context) {
	name := html.EscapeString(h.service)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(welcomePage, name, name)))
}
