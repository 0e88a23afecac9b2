package models

// Alert kinds distinguish how a rule's condition string is interpreted.
const (
	AlertKindParameter = "parameter"
	AlertKindKeyword   = "keyword"
	AlertKindText      = "text"
)

// AlertRule is a subscriber-defined alert condition for one weather type.
// Rules are immutable during an evaluation cycle; the rule-management API
// owns all mutation.
type AlertRule struct {
	ID          int    `json:"id"`
	WeatherType string `json:"weather_type"`
	Condition   string `json:"condition"`
	AlertKind   string `json:"alert_kind"`
	// AdvanceDays overrides the global advance-days setting when non-nil.
	AdvanceDays *int `json:"advance_days,omitempty"`
	Active      bool `json:"active"`
}

// EffectiveAdvanceDays resolves the per-rule override against the global
// setting.
func (r AlertRule) EffectiveAdvanceDays(globalDays int) int {
	if r.AdvanceDays != nil {
		return *r.AdvanceDays
	}
	return globalDays
}
