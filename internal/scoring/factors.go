package scoring

import (
	"time"

	"fishcast/internal/types"
)

// Common safety thresholds shared by models that have no species-specific
// override. Individual models tighten these where their method demands it.
const (
	dangerWindMS      = 12.0
	dangerGustMS      = 17.0
	dangerWaveM       = 2.5
	dangerLightning   = 0.6 // provider potential index [0,1]
	slackWindow       = 45 * time.Minute
	primeWindowBefore = 90 * time.Minute
	primeWindowAfter  = 60 * time.Minute
)

// checkCommonSafety trips the evaluation's safety cap on dangerous wind,
// gusts, waves, or lightning potential. Absent readings never trip.
func checkCommonSafety(e *evaluation, s types.Sample) {
	if s.WindSpeedMS != nil && *s.WindSpeedMS > dangerWindMS {
		e.markUnsafe("wind above safe limit")
	}
	if s.WindGustMS != nil && *s.WindGustMS > dangerGustMS {
		e.markUnsafe("gusts above safe limit")
	}
	if s.WaveHeightM != nil && *s.WaveHeightM > dangerWaveM {
		e.markUnsafe("waves above safe limit")
	}
	if s.LightningPoten != nil && *s.LightningPoten > dangerLightning {
		e.markUnsafe("lightning risk")
	}
}

// twilightScore scores proximity to dawn and dusk, the classic feeding
// windows: 1 inside the prime window around sunrise/sunset, fading with
// distance, 0.35 floor at midday, 0.55 at night.
func twilightScore(t time.Time, actx types.AlgorithmContext) float64 {
	if actx.Sunrise.IsZero() || actx.Sunset.IsZero() {
		return 0.5
	}
	best := 0.0
	for _, edge := range []time.Time{actx.Sunrise, actx.Sunset} {
		d := t.Sub(edge)
		var s float64
		switch {
		case d >= -primeWindowBefore && d <= primeWindowAfter:
			s = 1
		case d < 0:
			s = clamp01(1 - float64(-d-primeWindowBefore)/float64(3*time.Hour))
		default:
			s = clamp01(1 - float64(d-primeWindowAfter)/float64(3*time.Hour))
		}
		if s > best {
			best = s
		}
	}
	floor := 0.35
	if !actx.IsDaylight(t) {
		floor = 0.55
	}
	if best < floor {
		return floor
	}
	return best
}

// tideMovementScore rewards moving water: highest mid-cycle, lower near
// slack. Models that prefer slack invert this themselves.
func tideMovementScore(tide *types.TideState, at time.Time) float64 {
	if tide == nil {
		return 0.5
	}
	if tide.NearSlack(at, slackWindow) {
		return 0.4
	}
	return 0.85
}

// moonDarknessScore rewards dark nights: 1 at new moon, 0.3 at full.
func moonDarknessScore(b float64) float64 {
	return clamp01(1 - 0.7*b)
}
