package scoring

import (
	"fmt"

	"fishcast/internal/types"
)

// RockfishModel scores bottom fishing over rocky ground. Current is scored
// with a smooth exponential decay rather than discrete bands, and the usual
// "big tidal range is good" rule is inverted: a small neap range means a
// longer low-current window on the bottom.
type RockfishModel struct {
	weights map[string]float64
}

// defaultCurrentKappa is the e-folding constant for the current decay score:
// ~0.37 at 0.35 m/s, effectively zero past 1 m/s.
const defaultCurrentKappa = 0.35

// rockfishMaxUsefulRange is the tidal range at which the inverted range
// score bottoms out.
const rockfishMaxUsefulRange = 3.0

const rockfishSlackBonus = 1.10

func NewRockfishModel() *RockfishModel {
	return &RockfishModel{
		weights: map[string]float64{
			"current":     0.30,
			"tidal_range": 0.20,
			"water_temp":  0.20,
			"waves":       0.15,
			"cloud_cover": 0.15,
		},
	}
}

func (m *RockfishModel) Species() types.Species { return types.SpeciesRockfish }

var rockfishWaveTable = NewTable(0.05,
	Breakpoint{Until: 0.5, Score: 1.0},
	Breakpoint{Until: 1.0, Score: 0.8},
	Breakpoint{Until: 1.5, Score: 0.5},
	Breakpoint{Until: 2.0, Score: 0.2},
)

func (m *RockfishModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	e := newEvaluation(m.Species())

	kappa := defaultCurrentKappa
	if p, ok := actx.Params.(types.RockfishParams); ok && p.CurrentDecayKappa != nil && *p.CurrentDecayKappa > 0 {
		kappa = *p.CurrentDecayKappa
	}

	current := deref(sample.CurrentSpeedMS, 0.3)
	e.addFactor("current", fmtVal(sample.CurrentSpeedMS, "m/s"),
		m.weights["current"], expDecay(current, kappa),
		"bottom rigs need near-still water")
	e.setDebug("current_kappa", kappa)

	// Inverted range rule: neap scores high, spring scores low.
	rangeScore := 0.5
	rangeValue := "n/a"
	if tide != nil {
		rangeScore = clamp01(1 - tide.RangeM/rockfishMaxUsefulRange)
		rangeValue = fmt.Sprintf("%.1fm", tide.RangeM)
	}
	e.addFactor("tidal_range", rangeValue,
		m.weights["tidal_range"], rangeScore,
		"neap range means a longer fishable window")

	e.addFactor("water_temp", fmtVal(sample.SeaSurfaceTempC, "°C"),
		m.weights["water_temp"], band(deref(sample.SeaSurfaceTempC, 14), 10, 18, 7),
		"comfort range over the reef")

	wave := deref(sample.WaveHeightM, 0.5)
	e.addFactor("waves", fmtVal(sample.WaveHeightM, "m"),
		m.weights["waves"], rockfishWaveTable.Eval(wave),
		"swell lifts the rig off the bottom")

	cloud := deref(sample.CloudCoverPct, 50)
	e.addFactor("cloud_cover", fmtVal(sample.CloudCoverPct, "%"),
		m.weights["cloud_cover"], clamp01(0.4+cloud/100*0.6),
		"overcast light keeps fish out of cover")

	if tide != nil && tide.NearSlack(sample.Timestamp, slackWindow) {
		e.addBonus(rockfishSlackBonus, "slack_window")
	}

	if sample.WaveHeightM != nil && *sample.WaveHeightM > 2.0 {
		e.markUnsafe("waves above safe limit for rock marks")
	}
	if sample.WindSpeedMS != nil && *sample.WindSpeedMS > 10 {
		e.markUnsafe("wind above safe limit for rock marks")
	}
	if sample.LightningPoten != nil && *sample.LightningPoten > dangerLightning {
		e.markUnsafe("lightning risk")
	}

	return e.finalize()
}
