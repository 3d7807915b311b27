package scoring

import (
	"time"

	"fishcast/internal/types"
)

// CrabModel scores trap fishing for crab. Two hard gates run before any
// factor is computed: the regulatory season check (a closed window returns
// zero immediately, nothing is scored) and the mechanical hauling check
// (excess wind or swell makes working traps impossible and returns zero
// with guidance). Weighted scoring happens only once both gates pass.
type CrabModel struct {
	weights map[string]float64
}

// Spawning closure window: June 1 through August 20, inclusive.
var (
	crabClosureStartMonth = time.June
	crabClosureEndMonth   = time.August
	crabClosureEndDay     = 20
)

// Default mechanical hauling limits; CrabParams may override.
const (
	crabMaxHaulWindMS = 9.0
	crabMaxHaulSwellM = 1.5
)

func NewCrabModel() *CrabModel {
	return &CrabModel{
		weights: map[string]float64{
			"water_temp":     0.30,
			"tidal_range":    0.25,
			"wind":           0.20,
			"time_of_day":    0.15,
			"pressure_trend": 0.10,
		},
	}
}

func (m *CrabModel) Species() types.Species { return types.SpeciesCrab }

// seasonOpen reports whether the regulatory window is open at t.
func seasonOpen(t time.Time) bool {
	month := t.UTC().Month()
	if month < crabClosureStartMonth || month > crabClosureEndMonth {
		return true
	}
	if month == crabClosureEndMonth && t.UTC().Day() > crabClosureEndDay {
		return true
	}
	return false
}

var crabRangeTable = NewTable(0.5,
	Breakpoint{Until: 0.8, Score: 0.4}, // neaps barely move scent lanes
	Breakpoint{Until: 1.8, Score: 1.0},
	Breakpoint{Until: 2.6, Score: 0.7},
)

var crabWindTable = NewTable(0.1,
	Breakpoint{Until: 3.0, Score: 1.0},
	Breakpoint{Until: 6.0, Score: 0.8},
	Breakpoint{Until: 9.0, Score: 0.4},
)

func (m *CrabModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	// Gate 1: regulatory season. Closed means no scoring at all.
	if !seasonOpen(sample.Timestamp) {
		return closedSeason(m.Species(), "crab season is closed during the summer spawning window")
	}

	// Gate 2: mechanical hauling safety.
	maxWind := crabMaxHaulWindMS
	maxSwell := crabMaxHaulSwellM
	if p, ok := actx.Params.(types.CrabParams); ok {
		if p.MaxHaulWindMS != nil && *p.MaxHaulWindMS > 0 {
			maxWind = *p.MaxHaulWindMS
		}
		if p.MaxHaulSwellM != nil && *p.MaxHaulSwellM > 0 {
			maxSwell = *p.MaxHaulSwellM
		}
	}
	if sample.WindSpeedMS != nil && *sample.WindSpeedMS > maxWind {
		return hardStop(m.Species(), "wind beyond trap-hauling limit",
			"traps cannot be worked safely; wait for the wind to drop")
	}
	if sample.SwellHeightM != nil && *sample.SwellHeightM > maxSwell {
		return hardStop(m.Species(), "swell beyond trap-hauling limit",
			"hauling gear in this swell risks snapped lines; sit it out")
	}

	e := newEvaluation(m.Species())

	e.addFactor("water_temp", fmtVal(sample.SeaSurfaceTempC, "°C"),
		m.weights["water_temp"], band(deref(sample.SeaSurfaceTempC, 12), 8, 15, 6),
		"crabs forage hardest in the cool band")

	rangeScore := 0.5
	rangeValue := "n/a"
	if tide != nil {
		rangeScore = crabRangeTable.Eval(tide.RangeM)
		rangeValue = fmtVal(&tide.RangeM, "m")
	}
	e.addFactor("tidal_range", rangeValue,
		m.weights["tidal_range"], rangeScore,
		"a solid exchange spreads bait scent")

	e.addFactor("wind", fmtVal(sample.WindSpeedMS, "m/s"),
		m.weights["wind"], crabWindTable.Eval(deref(sample.WindSpeedMS, 3)),
		"workable deck conditions")

	nightScore := 0.6
	if !actx.IsDaylight(sample.Timestamp) {
		nightScore = 1.0
	}
	e.addFactor("time_of_day", sample.Timestamp.Format("15:04"),
		m.weights["time_of_day"], nightScore,
		"crabs move after dark")

	trend := actx.PressureTrendHPa()
	e.addFactor("pressure_trend", fmtVal(&trend, "hPa/6h"),
		m.weights["pressure_trend"], band(trend, -1, 2, 5),
		"steady glass keeps pots producing")

	if sample.LightningPoten != nil && *sample.LightningPoten > dangerLightning {
		e.markUnsafe("lightning risk")
	}

	return e.finalize()
}
