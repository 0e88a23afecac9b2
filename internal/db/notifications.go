package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/py-sit/skyalert/internal/models"
)

const notificationColumns = `id, notification_id, timestamp, recipient, title, COALESCE(content, ''), status, email_data, is_test`

// CreateNotification stages a candidate for manual review.
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	query := `
        INSERT INTO notifications (notification_id, timestamp, recipient, title, content, status, email_data, is_test)
        VALUES ($1, now(), $2, $3, $4, 'pending', $5, $6)`
	_, err := d.Pool.Exec(ctx, query,
		n.NotificationID, n.Recipient, n.Title, n.Content, n.EmailData, n.IsTest)
	if err != nil {
		return fmt.Errorf("failed to create notification %s: %w", n.NotificationID, err)
	}
	return nil
}

// GetNotification returns one notification by its external id.
func (d *DB) GetNotification(ctx context.Context, notificationID string) (models.Notification, error) {
	var n models.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE notification_id = $1`
	err := d.Pool.QueryRow(ctx, query, notificationID).Scan(
		&n.ID, &n.NotificationID, &n.Timestamp, &n.Recipient, &n.Title,
		&n.Content, &n.Status, &n.EmailData, &n.IsTest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Notification{}, fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
		}
		return models.Notification{}, fmt.Errorf("failed to get notification %s: %w", notificationID, err)
	}
	return n, nil
}

// PendingNotifications lists unresolved notifications, newest first.
func (d *DB) PendingNotifications(ctx context.Context) ([]models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE status = 'pending' ORDER BY timestamp DESC`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.NotificationID, &n.Timestamp, &n.Recipient,
			&n.Title, &n.Content, &n.Status, &n.EmailData, &n.IsTest); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// ResolveNotification transitions a pending notification to approved or
// rejected. The status predicate makes the transition one-shot: resolving a
// notification that is missing or already resolved returns
// ErrAlreadyResolved, never a silent overwrite.
func (d *DB) ResolveNotification(ctx context.Context, notificationID, status string) error {
	if status != models.NotificationApproved && status != models.NotificationRejected {
		return fmt.Errorf("invalid resolution status %q", status)
	}
	query := `UPDATE notifications SET status = $1 WHERE notification_id = $2 AND status = 'pending'`
	result, err := d.Pool.Exec(ctx, query, status, notificationID)
	if err != nil {
		return fmt.Errorf("failed to resolve notification %s: %w", notificationID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s not pending: %w", notificationID, ErrAlreadyResolved)
	}
	return nil
}

// DeleteAllNotifications removes every notification. Destructive; used only
// by the operator queue reset.
func (d *DB) DeleteAllNotifications(ctx context.Context) (int64, error) {
	result, err := d.Pool.Exec(ctx, `DELETE FROM notifications`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected(), nil
}
