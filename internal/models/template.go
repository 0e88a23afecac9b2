package models

// Template target roles.
const (
	TargetRoleAll      = "all"
	TargetRoleCustomer = "customer"
	TargetRoleEngineer = "engineer"
)

// Template is an email template for one weather type and audience.
type Template struct {
	ID          int      `json:"id"`
	WeatherType string   `json:"weather_type"`
	TargetRole  string   `json:"target_role"`
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
	Active      bool     `json:"active"`
}

// SuitableFor reports whether the template may be used for the given
// personnel category: customers take "all" or "customer" templates,
// engineers take "all" or "engineer".
func (t Template) SuitableFor(category string) bool {
	switch category {
	case CategoryEngineer:
		return t.TargetRole == TargetRoleAll || t.TargetRole == TargetRoleEngineer
	default:
		return t.TargetRole == TargetRoleAll || t.TargetRole == TargetRoleCustomer
	}
}
