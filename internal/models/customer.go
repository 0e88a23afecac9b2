package models

// Personnel categories. Stored values match the legacy data set.
const (
	CategoryCustomer = "客户"
	CategoryEngineer = "工程师"
)

// Customer is one subscriber: a person in a region with a set of weather
// types they want alerts for. Read as a snapshot once per cycle.
type Customer struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Company      string   `json:"company"`
	Region       string   `json:"region"`
	Category     string   `json:"category"`
	WeatherTypes []string `json:"weather_types"`
}

// Subscribed reports whether the customer wants alerts for the weather type.
func (c Customer) Subscribed(weatherType string) bool {
	for _, t := range c.WeatherTypes {
		if t == weatherType {
			return true
		}
	}
	return false
}
