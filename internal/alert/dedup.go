package alert

import (
	"strings"
	"time"

	"github.com/py-sit/skyalert/internal/models"
)

// Lookback windows for duplicate suppression. The full-fingerprint window
// covers recipient-level alerts; the shorter legacy window guards the
// file-staged path, which predates per-recipient fingerprints.
const (
	DedupWindow       = 7 * 24 * time.Hour
	LegacyDedupWindow = 3 * 24 * time.Hour
)

// DuplicateWithinWeek reports whether an equivalent alert was already sent
// or recorded within the 7-day window. The fingerprint is recipient, region
// and weather type; condition and category narrow the match only when both
// sides carry a value, so older log rows without those fields still block a
// resend. The forecast date is deliberately not part of the fingerprint: a
// later cycle predicting the same event for an adjacent day is still the
// same alert.
func DuplicateWithinWeek(entries []models.DeliveryLogEntry, now time.Time, p models.EmailPayload) bool {
	cutoff := now.Add(-DedupWindow)
	for _, e := range entries {
		if !e.CountsForDedup() || e.Timestamp.Before(cutoff) {
			continue
		}
		if e.Recipient != p.ToEmail || e.Region != p.Region || e.WeatherType != p.WeatherType {
			continue
		}
		if e.Condition != "" && p.Condition != "" && e.Condition != p.Condition {
			continue
		}
		if e.Category != "" && p.Category != "" && e.Category != p.Category {
			continue
		}
		return true
	}
	return false
}

// DuplicateWithinThreeDays reports whether any alert for the region and
// weather type went out within the legacy 3-day window, regardless of
// recipient. Only actually-sent records count here.
func DuplicateWithinThreeDays(entries []models.DeliveryLogEntry, now time.Time, region, weatherType string) bool {
	cutoff := now.Add(-LegacyDedupWindow)
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if e.Region == region && e.WeatherType == weatherType && strings.HasPrefix(e.Status, models.LogStatusSent) {
			return true
		}
	}
	return false
}
