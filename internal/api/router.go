package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/py-sit/skyalert/internal/config"
	"github.com/py-sit/skyalert/internal/logging"
)

func NewRouter(h *Handler, registry *prometheus.Registry, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group(cfg.API.BasePath)
	{
		// Scheduler control
		api.POST("/weather-alert/start", h.StartScheduler)
		api.POST("/weather-alert/stop", h.StopScheduler)
		api.POST("/weather-alert/run", h.RunCycle)
		api.GET("/weather-alert/status", h.SchedulerStatus)

		// Manual review
		api.GET("/notifications/pending", h.PendingNotifications)
		api.POST("/notifications/:notification_id/approve", h.ApproveNotification)
		api.POST("/notifications/:notification_id/reject", h.RejectNotification)

		// Queue maintenance
		api.POST("/tasks/:task_id/reset", h.ResetTask)
		api.POST("/queues/clear", h.ClearQueues)

		// Reviewer push channel
		api.GET("/ws", h.ReviewerSocket)
	}
	return r
}
