package models

// Candidate is an unsent, not-yet-deduplicated notification produced by the
// evaluator when a rule matched for a customer's region. Candidates live
// only for the duration of one evaluation cycle.
type Candidate struct {
	Customer     Customer
	Region       string
	WeatherType  string
	Condition    string
	ForecastDate string
	Template     Template
}

// EmailPayload is the rendered, serializable form of a Candidate. It is the
// payload stored on MailTasks and pending Notifications, and the record
// format of the legacy pending-email file.
type EmailPayload struct {
	ToEmail     string   `json:"to_email"`
	ToName      string   `json:"to_name"`
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	Company     string   `json:"company,omitempty"`
	Region      string   `json:"region"`
	WeatherType string   `json:"weather_type"`
	AlertDate   string   `json:"alert_date"`
	Condition   string   `json:"condition"`
	Category    string   `json:"category"`
	Attachments []string `json:"attachments,omitempty"`
	IsTest      bool     `json:"is_test"`
}
