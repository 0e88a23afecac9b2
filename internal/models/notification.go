package models

import "time"

// Notification statuses. A notification is resolved exactly once:
// pending -> approved or pending -> rejected.
const (
	NotificationPending  = "pending"
	NotificationApproved = "approved"
	NotificationRejected = "rejected"
)

// Notification is a candidate alert staged for manual review. Only created
// in manual-approval mode; auto-approval bypasses the review set entirely.
type Notification struct {
	ID             int       `json:"id"`
	NotificationID string    `json:"notification_id"`
	Timestamp      time.Time `json:"timestamp"`
	Recipient      string    `json:"recipient"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Status         string    `json:"status"`
	EmailData      string    `json:"-"`
	IsTest         bool      `json:"is_test"`
}
