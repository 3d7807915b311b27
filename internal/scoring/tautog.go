package scoring

import (
	"fmt"
	"math"

	"fishcast/internal/types"
)

// TautogModel scores fishing a fixed structure (wreck or reef edge). Its
// defining check is the vector sum of wind-induced and tidal drift: above a
// combined-drift threshold the boat cannot hold position over the structure
// and the spot is unfishable no matter how good everything else looks.
type TautogModel struct {
	weights map[string]float64
}

const (
	// windDriftFactor converts wind speed to estimated surface drift.
	windDriftFactor = 0.035
	// defaultMaxDriftMS is the combined-drift ceiling for holding position.
	defaultMaxDriftMS = 0.9
)

func NewTautogModel() *TautogModel {
	return &TautogModel{
		weights: map[string]float64{
			"holdability":      0.35,
			"drift_alignment":  0.15,
			"water_temp":       0.20,
			"waves":            0.15,
			"tide_phase":       0.15,
		},
	}
}

func (m *TautogModel) Species() types.Species { return types.SpeciesTautog }

// combinedDrift returns the magnitude and heading of the vector sum of wind
// drift and current.
func combinedDrift(sample types.Sample) (float64, float64) {
	windSpeed := deref(sample.WindSpeedMS, 0) * windDriftFactor
	windDir := deref(sample.WindDirectionDeg, 0)
	curSpeed := deref(sample.CurrentSpeedMS, 0)
	curDir := deref(sample.CurrentDirectionDeg, 0)

	// Wind direction is reported as "from"; drift pushes the opposite way.
	windTo := windDir + 180
	x := windSpeed*math.Sin(windTo*math.Pi/180) + curSpeed*math.Sin(curDir*math.Pi/180)
	y := windSpeed*math.Cos(windTo*math.Pi/180) + curSpeed*math.Cos(curDir*math.Pi/180)

	mag := math.Hypot(x, y)
	heading := math.Atan2(x, y) * 180 / math.Pi
	if heading < 0 {
		heading += 360
	}
	return mag, heading
}

func (m *TautogModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	e := newEvaluation(m.Species())

	maxDrift := defaultMaxDriftMS
	var structureHeading *float64
	if p, ok := actx.Params.(types.TautogParams); ok {
		if p.MaxCombinedDriftMS != nil && *p.MaxCombinedDriftMS > 0 {
			maxDrift = *p.MaxCombinedDriftMS
		}
		structureHeading = p.StructureHeadingDeg
	}

	drift, driftHeading := combinedDrift(sample)
	e.setDebug("combined_drift_ms", drift)
	e.setDebug("drift_heading_deg", driftHeading)

	holdScore := clamp01(1 - drift/maxDrift)
	e.addFactor("holdability", fmt.Sprintf("%.2fm/s", drift),
		m.weights["holdability"], holdScore,
		"combined wind and current drift against anchoring limit")

	// Drift running along the structure is workable; across it is not.
	alignScore := 0.6
	alignValue := "n/a"
	if structureHeading != nil && drift > 0.05 {
		diff := angularDiff(driftHeading, *structureHeading)
		if diff > 90 {
			diff = 180 - diff
		}
		alignScore = clamp01(1 - diff/90)
		alignValue = fmt.Sprintf("%.0f°", diff)
	}
	e.addFactor("drift_alignment", alignValue,
		m.weights["drift_alignment"], alignScore,
		"drift along the structure keeps baits in the zone")

	e.addFactor("water_temp", fmtVal(sample.SeaSurfaceTempC, "°C"),
		m.weights["water_temp"], band(deref(sample.SeaSurfaceTempC, 13), 9, 17, 6),
		"bite shuts down outside the band")

	wave := deref(sample.WaveHeightM, 0.5)
	e.addFactor("waves", fmtVal(sample.WaveHeightM, "m"),
		m.weights["waves"], rockfishWaveTable.Eval(wave),
		"holding a mark in swell")

	e.addFactor("tide_phase", tideValue(tide),
		m.weights["tide_phase"], tideMovementScore(tide, sample.Timestamp),
		"fish feed hardest on the early push")

	if drift > maxDrift {
		e.markUnsafe(fmt.Sprintf("combined drift %.2fm/s exceeds %.2fm/s; cannot hold over structure", drift, maxDrift))
		e.addAdvice("wait for the drift to ease before anchoring up")
	}
	checkCommonSafety(e, sample)

	return e.finalize()
}
