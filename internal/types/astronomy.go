package types

import "time"

// AstronomyDay holds sun and moon events for one calendar date.
// Moonrise/moonset may be absent on dates where the moon does not rise or
// set; all moon fields are absent on days seeded from a sun-only source.
type AstronomyDay struct {
	Date             string     `json:"date"` // YYYY-MM-DD
	Sunrise          time.Time  `json:"sunrise"`
	Sunset           time.Time  `json:"sunset"`
	Moonrise         *time.Time `json:"moonrise,omitempty"`
	Moonset          *time.Time `json:"moonset,omitempty"`
	MoonTransit      *time.Time `json:"moon_transit,omitempty"`
	MoonIllumination *float64   `json:"moon_illumination,omitempty"` // fraction [0,1]
}

// DateKey formats a time as the calendar-date key used for AstronomyDay maps.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
