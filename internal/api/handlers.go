package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/py-sit/skyalert/internal/alert"
	"github.com/py-sit/skyalert/internal/db"
	"github.com/py-sit/skyalert/internal/logging"
)

type Handler struct {
	service   *alert.Service
	scheduler *alert.Scheduler
	hub       *Hub
	logger    *logging.Logger
}

func NewHandler(service *alert.Service, scheduler *alert.Scheduler, hub *Hub, logger *logging.Logger) *Handler {
	return &Handler{service: service, scheduler: scheduler, hub: hub, logger: logger}
}

// Start implements the trigger-control surface shared with the Kafka
// consumer.
func (h *Handler) Start(ctx context.Context) error {
	return h.scheduler.Start(ctx)
}

func (h *Handler) Stop() error {
	return h.scheduler.Stop()
}

// TriggerCycle runs one cycle immediately, outside the schedule.
func (h *Handler) TriggerCycle(ctx context.Context) {
	if _, err := h.service.RunCycle(ctx); err != nil {
		h.logger.Errorf("Triggered cycle failed: %v", err)
	}
}

func (h *Handler) StartScheduler(c *gin.Context) {
	if err := h.scheduler.Start(context.Background()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (h *Handler) StopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.scheduler.IsRunning()})
}

func (h *Handler) RunCycle(c *gin.Context) {
	result, err := h.service.RunCycle(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Manual cycle failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cycle failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) PendingNotifications(c *gin.Context) {
	pending, err := h.service.PendingReviews(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list pending notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending notifications"})
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *Handler) ApproveNotification(c *gin.Context) {
	id := c.Param("notification_id")
	if err := h.service.Approve(c.Request.Context(), id); err != nil {
		h.respondResolveError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "notification_id": id})
}

func (h *Handler) RejectNotification(c *gin.Context) {
	id := c.Param("notification_id")
	if err := h.service.Reject(c.Request.Context(), id); err != nil {
		h.respondResolveError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected", "notification_id": id})
}

func (h *Handler) respondResolveError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
	case errors.Is(err, db.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "Notification already resolved"})
	default:
		h.logger.Errorf("Failed to resolve notification %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve notification"})
	}
}

func (h *Handler) ResetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.service.ResetTask(c.Request.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		case errors.Is(err, db.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "Only failed tasks can be reset"})
		default:
			h.logger.Errorf("Failed to reset task %s: %v", taskID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset task"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending", "task_id": taskID})
}

func (h *Handler) ClearQueues(c *gin.Context) {
	tasks, notifications, err := h.service.ClearQueues(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to clear queues: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear queues"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks_deleted": tasks, "notifications_deleted": notifications})
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "scheduler_running": h.scheduler.IsRunning()})
}

// ReviewerSocket upgrades the connection and keeps it registered until the
// client goes away. Inbound frames are discarded; the socket exists for
// pushes only.
func (h *Handler) ReviewerSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.AddConnection(conn)
	defer func() {
		h.hub.RemoveConnection(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
