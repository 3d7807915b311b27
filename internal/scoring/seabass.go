package scoring

import (
	"fmt"

	"fishcast/internal/types"
)

// SeabassModel scores lure fishing for seabass. It deliberately inverts the
// fair-weather default: a falling barometer paired with precipitation is a
// feeding trigger, not a penalty, and the storm-trigger bonus fires when
// cold water, falling pressure, and a moderate current coincide.
type SeabassModel struct {
	weights map[string]float64
}

// Seabass storm-trigger thresholds.
const (
	seabassColdWaterC      = 12.0
	seabassFallingTrendHPa = -2.0
	seabassTriggerMinCur   = 0.3
	seabassTriggerMaxCur   = 0.8
	seabassStormMultiplier = 1.25
	seabassWindDirBonus    = 1.10
)

var seabassPrecipTable = NewTable(0.35,
	Breakpoint{Until: 0.0, Score: 0.45}, // dry spells are workable, not prime
	Breakpoint{Until: 1.0, Score: 0.75},
	Breakpoint{Until: 4.0, Score: 1.0}, // steady light rain is the sweet spot
	Breakpoint{Until: 8.0, Score: 0.7},
)

var seabassWindTable = NewTable(0.1,
	Breakpoint{Until: 2.0, Score: 0.5}, // flat calm leaves lures too visible
	Breakpoint{Until: 6.0, Score: 1.0},
	Breakpoint{Until: 9.0, Score: 0.7},
	Breakpoint{Until: 12.0, Score: 0.3},
)

func NewSeabassModel() *SeabassModel {
	return &SeabassModel{
		weights: map[string]float64{
			"pressure_trend": 0.25,
			"precipitation":  0.20,
			"wind":           0.15,
			"time_of_day":    0.15,
			"water_temp":     0.15,
			"tide_movement":  0.10,
		},
	}
}

func (m *SeabassModel) Species() types.Species { return types.SpeciesSeabass }

func (m *SeabassModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	e := newEvaluation(m.Species())

	// Falling pressure is positive for this species.
	trend := actx.PressureTrendHPa()
	trendScore := clamp01(0.5 - trend/8.0)
	e.addFactor("pressure_trend", fmt.Sprintf("%+.1fhPa/6h", trend),
		m.weights["pressure_trend"], trendScore,
		"falling barometer switches seabass on")

	precip := deref(sample.PrecipitationMM, 0)
	e.addFactor("precipitation", fmtVal(sample.PrecipitationMM, "mm"),
		m.weights["precipitation"], seabassPrecipTable.Eval(precip),
		"light rain breaks the surface and dulls wariness")

	wind := deref(sample.WindSpeedMS, 3)
	e.addFactor("wind", fmtVal(sample.WindSpeedMS, "m/s"),
		m.weights["wind"], seabassWindTable.Eval(wind),
		"a working chop beats flat calm")

	e.addFactor("time_of_day", sample.Timestamp.Format("15:04"),
		m.weights["time_of_day"], twilightScore(sample.Timestamp, actx),
		"dawn and dusk feeding windows")

	sst := sample.SeaSurfaceTempC
	e.addFactor("water_temp", fmtVal(sst, "°C"),
		m.weights["water_temp"], band(deref(sst, 15), 12, 19, 6),
		"active metabolism range")

	e.addFactor("tide_movement", tideValue(tide),
		m.weights["tide_movement"], tideMovementScore(tide, sample.Timestamp),
		"moving water carries bait")

	// Bonuses in declaration order: storm trigger first, then wind direction.
	current := deref(sample.CurrentSpeedMS, 0)
	if sst != nil && *sst < seabassColdWaterC &&
		trend < seabassFallingTrendHPa &&
		current >= seabassTriggerMinCur && current <= seabassTriggerMaxCur {
		e.addBonus(seabassStormMultiplier, "storm_trigger")
		e.addAdvice("storm trigger conditions: cold water, falling glass, workable current")
	}
	if p, ok := actx.Params.(types.SeabassParams); ok && p.PreferredWindDirDeg != nil && sample.WindDirectionDeg != nil {
		if angularDiff(*p.PreferredWindDirDeg, *sample.WindDirectionDeg) <= 45 {
			e.addBonus(seabassWindDirBonus, "preferred_wind_direction")
		}
	}

	checkCommonSafety(e, sample)
	return e.finalize()
}

func tideValue(tide *types.TideState) string {
	if tide == nil {
		return "n/a"
	}
	if tide.Rising {
		return "rising"
	}
	return "falling"
}
