package types

import "time"

// TideExtreme is one high or low water event.
type TideExtreme struct {
	Type    ExtremeType `json:"type"`
	Time    time.Time   `json:"time"`
	HeightM float64     `json:"height_m"`
}

// TideState captures the tidal situation at the request instant: the current
// water level, the bracketing extreme events, the extreme-to-extreme range,
// the signed rate of change, and the provenance of the data.
type TideState struct {
	WaterLevelM  float64      `json:"water_level_m"`
	NextExtreme  *TideExtreme `json:"next_extreme,omitempty"`
	PrevExtreme  *TideExtreme `json:"prev_extreme,omitempty"`
	RangeM       float64      `json:"range_m"`
	RateMPerHour float64      `json:"rate_m_per_hour"`
	Rising       bool         `json:"rising"`

	StationID         string     `json:"station_id,omitempty"`
	StationName       string     `json:"station_name,omitempty"`
	StationDistanceKm *float64   `json:"station_distance_km,omitempty"`
	Source            TideSource `json:"source"`
}

// HoursToNextExtreme returns the time until the next extreme event from the
// given instant, or 0 when no next extreme is known.
func (t *TideState) HoursToNextExtreme(now time.Time) float64 {
	if t.NextExtreme == nil {
		return 0
	}
	d := t.NextExtreme.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d.Hours()
}

// NearSlack reports whether the instant falls within the given window of a
// tidal direction change, the period of minimal current.
func (t *TideState) NearSlack(now time.Time, window time.Duration) bool {
	if t.NextExtreme != nil {
		d := t.NextExtreme.Time.Sub(now)
		if d >= 0 && d <= window {
			return true
		}
	}
	if t.PrevExtreme != nil {
		d := now.Sub(t.PrevExtreme.Time)
		if d >= 0 && d <= window {
			return true
		}
	}
	return false
}
