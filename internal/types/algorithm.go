package types

import "time"

// PressurePoint is one entry in the rolling pressure history.
type PressurePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	PressureHPa float64   `json:"pressure_hpa"`
}

// SpeciesParams is the tagged-variant interface for per-species context
// parameters. Each species model declares a concrete params struct listing
// exactly the optional knobs it consumes; models type-assert to their own
// variant and fall back to defaults when absent.
type SpeciesParams interface {
	Species() Species
}

// OctopusParams carries the stated target depth used to scale the maximum
// safe current threshold.
type OctopusParams struct {
	TargetDepthM float64 `json:"target_depth_m"`
}

func (OctopusParams) Species() Species { return SpeciesOctopus }

// TautogParams carries structure-fishing overrides: the heading of the
// structure being fished and the drift ceiling above which position cannot
// be held.
type TautogParams struct {
	StructureHeadingDeg *float64 `json:"structure_heading_deg,omitempty"`
	MaxCombinedDriftMS  *float64 `json:"max_combined_drift_ms,omitempty"`
}

func (TautogParams) Species() Species { return SpeciesTautog }

// RockfishParams carries optional overrides for the current-decay constant.
type RockfishParams struct {
	CurrentDecayKappa *float64 `json:"current_decay_kappa,omitempty"`
}

func (RockfishParams) Species() Species { return SpeciesRockfish }

// SeabassParams carries the preferred wind direction for the point being
// fished, when the caller knows it.
type SeabassParams struct {
	PreferredWindDirDeg *float64 `json:"preferred_wind_dir_deg,omitempty"`
}

func (SeabassParams) Species() Species { return SpeciesSeabass }

// CrabParams carries trap-hauling limits.
type CrabParams struct {
	MaxHaulWindMS *float64 `json:"max_haul_wind_ms,omitempty"`
	MaxHaulSwellM *float64 `json:"max_haul_swell_m,omitempty"`
}

func (CrabParams) Species() Species { return SpeciesCrab }

// SquidParams carries jigging overrides.
type SquidParams struct {
	SwellHeightLimitM *float64 `json:"swell_height_limit_m,omitempty"`
	SwellPeriodMinS   *float64 `json:"swell_period_min_s,omitempty"`
}

func (SquidParams) Species() Species { return SpeciesSquid }

// AlgorithmContext carries the per-request parameters passed to every species
// model alongside the sample under evaluation. It is read-only to models.
type AlgorithmContext struct {
	Sunrise      time.Time `json:"sunrise"`
	Sunset       time.Time `json:"sunset"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	LocationName string    `json:"location_name"`

	// PressureHistory holds up to six hours of readings preceding the sample,
	// oldest first.
	PressureHistory []PressurePoint `json:"pressure_history,omitempty"`

	// MoonIllumination is the lit fraction [0,1] for the sample's date, when
	// the astronomy channel supplied one.
	MoonIllumination *float64 `json:"moon_illumination,omitempty"`

	// RecentCatch is an optional signal from logged catches near the location,
	// normalized to [0,1].
	RecentCatch *float64 `json:"recent_catch,omitempty"`

	// FieldReport is optional free text from recent activity reports, used by
	// keyword-detecting models.
	FieldReport string `json:"field_report,omitempty"`

	// Params is the species-specific variant, or nil when the caller supplied
	// no overrides.
	Params SpeciesParams `json:"-"`
}

// PressureTrendHPa returns the pressure change over the history window in
// hPa (negative = falling). Returns 0 when fewer than two points exist.
func (c *AlgorithmContext) PressureTrendHPa() float64 {
	if len(c.PressureHistory) < 2 {
		return 0
	}
	first := c.PressureHistory[0]
	last := c.PressureHistory[len(c.PressureHistory)-1]
	return last.PressureHPa - first.PressureHPa
}

// IsDaylight reports whether the sample instant falls between sunrise and sunset.
func (c *AlgorithmContext) IsDaylight(t time.Time) bool {
	if c.Sunrise.IsZero() || c.Sunset.IsZero() {
		return true
	}
	return !t.Before(c.Sunrise) && t.Before(c.Sunset)
}
