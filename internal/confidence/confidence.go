// Package confidence derives per-channel and overall trust scores for a
// forecast bundle and provides the regression that pulls raw scores toward a
// neutral midpoint in proportion to distrust.
package confidence

import "fishcast/internal/types"

// NeutralScore is the uninformative midpoint a degraded score regresses toward.
const NeutralScore = 5.0

// Channel blend weights. Weather carries the most signal, tide second,
// marine least.
const (
	weatherWeight = 0.5
	tideWeight    = 0.3
	marineWeight  = 0.2
)

// Baseline channel confidences.
const (
	weatherBase          = 0.80
	weatherCrossChecked  = 0.90
	marinePresent        = 0.80
	fallbackTide         = 0.30
	tideFloor            = 0.30
)

// tideDistanceSteps maps station distance to confidence for authoritative
// sources. Sorted ascending by distance; the first breakpoint at or beyond
// the distance wins, with tideFloor past the last.
var tideDistanceSteps = []struct {
	maxKm float64
	conf  float64
}{
	{5, 0.95},
	{10, 0.85},
	{15, 0.70},
	{20, 0.50},
}

// TideByDistance returns the [0,1] trust in a tide channel. A fallback
// source is fixed at 0.30 irrespective of distance. An authoritative source
// decays in discrete steps with distance; unknown distance is treated as
// untrustworthy, never as "assume close".
func TideByDistance(distanceKm *float64, source types.TideSource) float64 {
	if source == types.TideSourceFallback {
		return fallbackTide
	}
	if distanceKm == nil {
		return 0
	}
	for _, step := range tideDistanceSteps {
		if *distanceKm <= step.maxKm {
			return step.conf
		}
	}
	return tideFloor
}

// Breakdown reports the per-channel confidences entering the overall blend.
type Breakdown struct {
	Weather float64 `json:"weather"`
	Marine  float64 `json:"marine"`
	Tide    float64 `json:"tide"`
	Overall float64 `json:"overall"`
}

// Overall blends the per-channel confidences for a bundle's metadata into a
// single [0,1] trust value.
func Overall(meta types.DataSourceMetadata) Breakdown {
	b := Breakdown{Weather: weatherBase}
	if meta.EnrichmentAvailable {
		b.Weather = weatherCrossChecked
	}
	if meta.MarineSource != nil {
		b.Marine = marinePresent
	}
	if meta.TideSource != nil {
		b.Tide = TideByDistance(meta.TideStationDistanceKm, *meta.TideSource)
	}

	b.Overall = b.Weather*weatherWeight + b.Tide*tideWeight + b.Marine*marineWeight
	if b.Overall < 0 {
		b.Overall = 0
	} else if b.Overall > 1 {
		b.Overall = 1
	}
	return b
}

// ApplyToScore regresses a raw [0,10] score toward the neutral midpoint in
// proportion to distrust: neutral + (raw-neutral)*confidence, clamped to
// [0,10]. At confidence 1 the raw score passes through; at 0 the result is
// exactly neutral.
func ApplyToScore(raw, conf, neutral float64) float64 {
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	v := neutral + (raw-neutral)*conf
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
