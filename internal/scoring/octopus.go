package scoring

import (
	"fmt"

	"fishcast/internal/types"
)

// OctopusModel scores jigging for octopus. Two mechanics set it apart: the
// maximum workable current scales inversely with the stated target depth
// (more line out, more drag), and the estimated safe-retrieval window
// derived from tidal range enters as a multiplier, rewarding long neap
// windows and punishing short spring ones.
type OctopusModel struct {
	weights map[string]float64
}

const (
	// octopusCurrentDepthK sets maxSafeCurrent = K / depth.
	octopusCurrentDepthK = 12.0
	octopusMinSafeCur    = 0.2
	octopusMaxSafeCur    = 1.2
	octopusDefaultDepthM = 15.0

	// Retrieval-window multiplier bounds.
	octopusWindowMinMult = 0.80
	octopusWindowMaxMult = 1.20
)

func NewOctopusModel() *OctopusModel {
	return &OctopusModel{
		weights: map[string]float64{
			"current":     0.30,
			"water_temp":  0.25,
			"moon_light":  0.15,
			"waves":       0.15,
			"tide_phase":  0.15,
		},
	}
}

func (m *OctopusModel) Species() types.Species { return types.SpeciesOctopus }

// maxSafeCurrent returns the current ceiling for a target depth, clamped to
// a sane band.
func maxSafeCurrent(depthM float64) float64 {
	if depthM < 5 {
		depthM = 5
	}
	return clamp(octopusCurrentDepthK/depthM, octopusMinSafeCur, octopusMaxSafeCur)
}

// retrievalWindowHours estimates the usable low-current window from tidal
// range: neap tides stretch it, spring tides compress it.
func retrievalWindowHours(rangeM float64) float64 {
	return clamp(3.0-rangeM, 0.5, 3.0)
}

// windowMultiplier maps the window length onto the multiplier band.
func windowMultiplier(windowH float64) float64 {
	frac := (windowH - 0.5) / 2.5
	return octopusWindowMinMult + frac*(octopusWindowMaxMult-octopusWindowMinMult)
}

func (m *OctopusModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	e := newEvaluation(m.Species())

	depth := octopusDefaultDepthM
	if p, ok := actx.Params.(types.OctopusParams); ok && p.TargetDepthM > 0 {
		depth = p.TargetDepthM
	}
	maxCur := maxSafeCurrent(depth)
	e.setDebug("max_safe_current_ms", maxCur)

	current := deref(sample.CurrentSpeedMS, 0.2)
	e.addFactor("current", fmtVal(sample.CurrentSpeedMS, "m/s"),
		m.weights["current"], clamp01(1-current/maxCur),
		fmt.Sprintf("current against the %.2fm/s ceiling at %.0fm", maxCur, depth))

	e.addFactor("water_temp", fmtVal(sample.SeaSurfaceTempC, "°C"),
		m.weights["water_temp"], band(deref(sample.SeaSurfaceTempC, 14), 10, 16, 5),
		"octopus move shallow in the cool band")

	// Dark nights fish best under lights.
	moonScore := 0.5
	moonValue := "n/a"
	if actx.MoonIllumination != nil {
		moonScore = moonDarknessScore(*actx.MoonIllumination)
		moonValue = fmt.Sprintf("%.0f%% lit", *actx.MoonIllumination*100)
	}
	e.addFactor("moon_light", moonValue,
		m.weights["moon_light"], moonScore,
		"dark moon concentrates octopus under deck lights")

	wave := deref(sample.WaveHeightM, 0.5)
	e.addFactor("waves", fmtVal(sample.WaveHeightM, "m"),
		m.weights["waves"], rockfishWaveTable.Eval(wave),
		"keeping bottom contact in swell")

	slackScore := 0.5
	if tide != nil {
		if tide.NearSlack(sample.Timestamp, slackWindow) {
			slackScore = 1.0
		} else {
			slackScore = 0.45
		}
	}
	e.addFactor("tide_phase", tideValue(tide),
		m.weights["tide_phase"], slackScore,
		"slack water is prime jigging time")

	// Retrieval-window multiplier, not an additive factor.
	if tide != nil {
		windowH := retrievalWindowHours(tide.RangeM)
		e.setDebug("retrieval_window_h", windowH)
		e.addBonus(windowMultiplier(windowH), "retrieval_window")
	}

	if current > 1.5*maxCur {
		e.markUnsafe("current far beyond workable ceiling for target depth")
	}
	checkCommonSafety(e, sample)

	return e.finalize()
}
