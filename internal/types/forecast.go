package types

import "time"

// Sample is one timestamped environmental reading. Optional fields are
// pointers so that "channel did not report" is distinct from a zero value.
// A Sample is immutable once built; series carry strictly increasing
// timestamps, one per target cadence slot.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`

	// Primary weather channel.
	TemperatureC      *float64 `json:"temperature_c,omitempty"`
	PressureHPa       *float64 `json:"pressure_hpa,omitempty"`
	WindSpeedMS       *float64 `json:"wind_speed_ms,omitempty"`
	WindGustMS        *float64 `json:"wind_gust_ms,omitempty"`
	WindDirectionDeg  *float64 `json:"wind_direction_deg,omitempty"`
	PrecipitationMM   *float64 `json:"precipitation_mm,omitempty"`
	CloudCoverPct     *float64 `json:"cloud_cover_pct,omitempty"`
	VisibilityM       *float64 `json:"visibility_m,omitempty"`
	SunshineDurationS *float64 `json:"sunshine_duration_s,omitempty"`
	CAPE              *float64 `json:"cape,omitempty"`
	LightningPoten    *float64 `json:"lightning_potential,omitempty"`

	// Marine enrichment channel.
	SeaSurfaceTempC     *float64 `json:"sea_surface_temp_c,omitempty"`
	WaveHeightM         *float64 `json:"wave_height_m,omitempty"`
	WavePeriodS         *float64 `json:"wave_period_s,omitempty"`
	WaveDirectionDeg    *float64 `json:"wave_direction_deg,omitempty"`
	SwellHeightM        *float64 `json:"swell_height_m,omitempty"`
	SwellPeriodS        *float64 `json:"swell_period_s,omitempty"`
	SwellDirectionDeg   *float64 `json:"swell_direction_deg,omitempty"`
	CurrentSpeedMS      *float64 `json:"current_speed_ms,omitempty"`
	CurrentDirectionDeg *float64 `json:"current_direction_deg,omitempty"`
}

// HasMarine reports whether any marine channel field was merged into the sample.
func (s *Sample) HasMarine() bool {
	return s.WaveHeightM != nil || s.SwellHeightM != nil ||
		s.CurrentSpeedMS != nil || s.SeaSurfaceTempC != nil
}

// Float64Ptr returns a pointer to v. Convenience for building samples.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ValidateSeries checks the strictly-increasing timestamp invariant.
// Returns false at the first violation.
func ValidateSeries(samples []Sample) bool {
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			return false
		}
	}
	return true
}
