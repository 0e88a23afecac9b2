package models

// Settings is the per-cycle snapshot of operator-tunable behavior. A change
// takes effect at the next cycle; changing the schedule fields triggers the
// scheduler restart protocol.
type Settings struct {
	// FirstAlertTime is the time of day of the first alert, "HH:MM".
	FirstAlertTime string `json:"first_alert_time"`
	// IntervalHours is the cadence between evaluation cycles.
	IntervalHours int `json:"interval_hours"`
	// AdvanceDays is the global advance-days fallback for rules without
	// their own override.
	AdvanceDays int `json:"advance_days"`
	// IntervalPrediction enables the 0..advance-days sweep instead of the
	// single-day point check.
	IntervalPrediction bool `json:"interval_prediction"`
	// AutoApproval routes candidates straight to the mail queue instead of
	// the manual review set.
	AutoApproval bool `json:"auto_approval"`
	// RetryCount bounds weather API fetch attempts per region.
	RetryCount int `json:"retry_count"`
	// AdminNotify sends the administrator a summary when candidates await
	// manual review.
	AdminNotify bool   `json:"admin_notify"`
	AdminEmail  string `json:"admin_email,omitempty"`
}
