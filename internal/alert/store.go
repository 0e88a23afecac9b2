package alert

import (
	"context"
	"time"

	"github.com/py-sit/skyalert/internal/models"
)

// Store is the persistence surface the pipeline needs. *db.DB implements
// it; tests substitute an in-memory fake.
type Store interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	GetCustomers(ctx context.Context) ([]models.Customer, error)
	GetActiveRules(ctx context.Context) ([]models.AlertRule, error)
	GetActiveTemplates(ctx context.Context) ([]models.Template, error)

	EnqueueTask(ctx context.Context, taskID, payload string, isTest bool) error
	ClaimTasks(ctx context.Context, isTest *bool, limit int) ([]models.MailTask, error)
	CompleteTask(ctx context.Context, taskID string) error
	FailTask(ctx context.Context, taskID, errText string) error
	ResetTask(ctx context.Context, taskID string) error
	DeleteAllTasks(ctx context.Context) (int64, error)

	CreateNotification(ctx context.Context, n models.Notification) error
	GetNotification(ctx context.Context, notificationID string) (models.Notification, error)
	PendingNotifications(ctx context.Context) ([]models.Notification, error)
	ResolveNotification(ctx context.Context, notificationID, status string) error
	DeleteAllNotifications(ctx context.Context) (int64, error)

	AppendLogEntry(ctx context.Context, e models.DeliveryLogEntry) error
	RecentLogEntries(ctx context.Context, since time.Time) ([]models.DeliveryLogEntry, error)
	TrimLog(ctx context.Context, keep int) (int64, error)
}

// Sender delivers one rendered alert email.
type Sender interface {
	Send(ctx context.Context, payload models.EmailPayload) error
}

// Forecaster fetches forecasts for a set of regions, returning partial
// results plus the regions that failed.
type Forecaster interface {
	FetchAll(ctx context.Context, regions []string, advanceDays, retryCount int) (map[string]models.RegionForecast, []string)
}

// ReviewerPush notifies connected reviewers that a candidate awaits manual
// approval.
type ReviewerPush interface {
	PushPending(n models.Notification)
}

// AdminNotifier delivers an out-of-band summary to the administrator.
type AdminNotifier interface {
	Notify(ctx context.Context, text string) error
}
