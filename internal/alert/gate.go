package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/py-sit/skyalert/internal/logging"
	"github.com/py-sit/skyalert/internal/models"
	"github.com/py-sit/skyalert/internal/store"
)

// Gate routes deduplicated payloads according to the approval mode: in
// auto-approval mode they go straight onto the durable mail queue, in
// manual mode they become pending notifications awaiting a reviewer.
type Gate struct {
	db       Store
	pending  *store.PendingFile
	sender   Sender
	push     ReviewerPush
	notifier AdminNotifier
	clock    clockwork.Clock
	logger   *logging.Logger
}

func NewGate(db Store, pending *store.PendingFile, sender Sender, push ReviewerPush, notifier AdminNotifier, clock clockwork.Clock, logger *logging.Logger) *Gate {
	return &Gate{
		db:       db,
		pending:  pending,
		sender:   sender,
		push:     push,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// Route dispatches the payloads to the queue or the review set. It returns
// how many were queued for sending and how many await manual approval.
func (g *Gate) Route(ctx context.Context, payloads []models.EmailPayload, settings models.Settings) (queued, staged int, err error) {
	if len(payloads) == 0 {
		return 0, 0, nil
	}

	if settings.AutoApproval {
		for _, p := range payloads {
			data, err := json.Marshal(p)
			if err != nil {
				return queued, 0, fmt.Errorf("marshal payload for %s: %w", p.ToEmail, err)
			}
			if err := g.db.EnqueueTask(ctx, newTaskID(g.clock, p.ToEmail), string(data), p.IsTest); err != nil {
				return queued, 0, fmt.Errorf("enqueue for %s: %w", p.ToEmail, err)
			}
			queued++
		}
		g.logger.Infof("Auto-approval: queued %d alert emails", queued)
		return queued, 0, nil
	}

	for _, p := range payloads {
		data, err := json.Marshal(p)
		if err != nil {
			return 0, staged, fmt.Errorf("marshal payload for %s: %w", p.ToEmail, err)
		}
		n := models.Notification{
			NotificationID: newNotificationID(),
			Timestamp:      g.clock.Now(),
			Recipient:      p.ToEmail,
			Title:          p.Subject,
			Content:        p.Content,
			Status:         models.NotificationPending,
			EmailData:      string(data),
			IsTest:         p.IsTest,
		}
		if err := g.db.CreateNotification(ctx, n); err != nil {
			return 0, staged, fmt.Errorf("create notification for %s: %w", p.ToEmail, err)
		}
		if g.push != nil {
			g.push.PushPending(n)
		}
		staged++
	}

	// Mirror the review set into the legacy staging file so an operator
	// restart does not lose sight of unreviewed alerts.
	if err := g.pending.Replace(payloads); err != nil {
		g.logger.Errorf("Staging pending emails failed: %v", err)
	}

	g.logger.Infof("Manual approval: %d alerts await review", staged)
	g.notifyAdmin(ctx, settings, payloads)
	return 0, staged, nil
}

// Approve resolves a pending notification and sends its email immediately.
// Resolution happens first so two reviewers cannot both win.
func (g *Gate) Approve(ctx context.Context, notificationID string) error {
	n, err := g.db.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	var payload models.EmailPayload
	if err := json.Unmarshal([]byte(n.EmailData), &payload); err != nil {
		return fmt.Errorf("notification %s has unreadable email data: %w", notificationID, err)
	}
	if err := g.db.ResolveNotification(ctx, notificationID, models.NotificationApproved); err != nil {
		return err
	}

	sendErr := g.sender.Send(ctx, payload)
	entry := logEntryFor(payload, g.clock.Now())
	if sendErr != nil {
		entry.Status = fmt.Sprintf("failed: %v", sendErr)
		g.logger.Errorf("Approved alert to %s failed to send: %v", payload.ToEmail, sendErr)
	} else {
		entry.Status = models.LogStatusSent
		g.logger.Infof("Approved alert sent to %s", payload.ToEmail)
	}
	if err := g.db.AppendLogEntry(ctx, entry); err != nil {
		g.logger.Errorf("Append delivery log failed: %v", err)
	}
	if err := g.pending.Remove(payload); err != nil {
		g.logger.Errorf("Remove staged email failed: %v", err)
	}
	return sendErr
}

// Reject resolves a pending notification without sending.
func (g *Gate) Reject(ctx context.Context, notificationID string) error {
	n, err := g.db.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if err := g.db.ResolveNotification(ctx, notificationID, models.NotificationRejected); err != nil {
		return err
	}
	var payload models.EmailPayload
	if err := json.Unmarshal([]byte(n.EmailData), &payload); err == nil {
		if err := g.pending.Remove(payload); err != nil {
			g.logger.Errorf("Remove staged email failed: %v", err)
		}
	}
	g.logger.Infof("Alert to %s rejected", n.Recipient)
	return nil
}

func (g *Gate) notifyAdmin(ctx context.Context, settings models.Settings, payloads []models.EmailPayload) {
	if !settings.AdminNotify || g.notifier == nil || len(payloads) == 0 {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d weather alerts await review:\n", len(payloads))
	for _, p := range payloads {
		fmt.Fprintf(&sb, "- %s / %s -> %s\n", p.Region, p.WeatherType, p.ToEmail)
	}
	if err := g.notifier.Notify(ctx, sb.String()); err != nil {
		g.logger.Warnf("Admin notice failed: %v", err)
	}
}

func newTaskID(clock clockwork.Clock, email string) string {
	return fmt.Sprintf("task_%d_%s_%s", clock.Now().Unix(), email, uuid.NewString()[:8])
}

func newNotificationID() string {
	return fmt.Sprintf("notif_%s", uuid.NewString())
}

// logEntryFor builds the delivery log row for a payload; the caller fills
// in Status.
func logEntryFor(p models.EmailPayload, now time.Time) models.DeliveryLogEntry {
	return models.DeliveryLogEntry{
		Timestamp:   now,
		Recipient:   p.ToEmail,
		ToName:      p.ToName,
		WeatherType: p.WeatherType,
		Region:      p.Region,
		Subject:     p.Subject,
		Content:     p.Content,
		AlertDate:   p.AlertDate,
		Condition:   p.Condition,
		Category:    p.Category,
		IsTest:      p.IsTest,
	}
}
