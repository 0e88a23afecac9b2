package models

import (
	"strings"
	"time"
)

// Delivery log statuses. Older records carry suffixed variants of these
// (e.g. a note about why a duplicate was recorded), so dedup matches on
// prefix rather than equality.
const (
	LogStatusSent      = "sent"
	LogStatusDuplicate = "recorded-duplicate"
)

// DeliveryLogEntry is one append-only delivery outcome record. The log is
// the lookback corpus for duplicate detection.
type DeliveryLogEntry struct {
	ID          int       `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Recipient   string    `json:"recipient"`
	ToName      string    `json:"to_name,omitempty"`
	WeatherType string    `json:"weather_type"`
	Region      string    `json:"region"`
	Subject     string    `json:"subject,omitempty"`
	Content     string    `json:"content,omitempty"`
	AlertDate   string    `json:"alert_date,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status"`
	IsTest      bool      `json:"is_test"`
}

// CountsForDedup reports whether the entry's status makes it part of the
// duplicate fingerprint corpus: sent records and recorded-duplicate records
// both block a resend.
func (e DeliveryLogEntry) CountsForDedup() bool {
	return strings.HasPrefix(e.Status, LogStatusSent) || strings.HasPrefix(e.Status, LogStatusDuplicate)
}
