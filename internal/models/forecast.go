package models

import "time"

// DateLayout is the day granularity used throughout forecasts and alerts.
const DateLayout = "2006-01-02"

// ForecastPoint is one day of forecast data for a region. Numeric fields
// keep the provider's string form; coercion happens at evaluation time so a
// malformed field makes a single condition non-matching instead of failing
// the fetch.
type ForecastPoint struct {
	Date      string `json:"date"`
	TempMax   string `json:"temp_max"`
	TempMin   string `json:"temp_min"`
	TextDay   string `json:"text_day"`
	TextNight string `json:"text_night"`
	WindSpeed string `json:"wind_speed"`
	WindDir   string `json:"wind_dir"`
	Precip    string `json:"precip"`
	Vis       string `json:"vis"`
}

// RegionForecast is the forecast series for one region, ordered by date.
type RegionForecast struct {
	Region    string          `json:"region"`
	UpdatedAt time.Time       `json:"updated_at"`
	Days      []ForecastPoint `json:"days"`
}

// OnDate returns the forecast entry whose date matches exactly, or nil.
func (rf RegionForecast) OnDate(date string) *ForecastPoint {
	for i := range rf.Days {
		if rf.Days[i].Date == date {
			return &rf.Days[i]
		}
	}
	return nil
}
