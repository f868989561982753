package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/queue-producer/internal/api/handler"
	"github.com/cuongbtq/queue-producer/internal/metrics"
)

// Options holds what the router needs beyond the handler dependencies
type Options struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(MetricsMiddleware(opts.Metrics))
	r.Use(CORSMiddleware())

	healthHandler := handler.NewHealthHandler(deps)
	producerHandler := handler.NewProducerHandler(deps)
	historyHandler := handler.NewHistoryHandler(deps)
	queueHandler := handler.NewQueueHandler(deps)

	r.GET("/", healthHandler.Welcome)
	r.GET("/health", healthHandler.Health)

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// POST /parameters/ - publish once or start the periodic task, per producer.mode
	r.POST("/parameters/", producerHandler.Parameters)

	v1 := r.Group("/api/v1")
	{
		messages := v1.Group("/messages")
		{
			// POST /api/v1/messages - publish one message
			messages.POST("", producerHandler.Publish)

			// GET /api/v1/messages - publish history with cursor pagination
			messages.GET("", historyHandler.ListMessages)
		}

		periodic := v1.Group("/periodic")
		{
			periodic.POST("", producerHandler.StartPeriodic)
			periodic.GET("", producerHandler.GetPeriodic)
			periodic.DELETE("", producerHandler.StopPeriodic)
		}
	}

	r.GET("/rabbitmq/queues", queueHandler.ListQueues)

	return r
}
