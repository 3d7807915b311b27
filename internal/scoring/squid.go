package scoring

import (
	"fmt"
	"strings"
	"time"

	"fishcast/internal/types"
)

// SquidModel scores night jigging for squid. The calendar gives only a rough
// seasonal estimate, so free-text recent-activity reports act as a keyword
// detector that can override it: a high-confidence phrase ("squid landed",
// ink on the dock) applies a x1.5 bonus, weaker mentions x1.2. Dark moon and
// gentle, long-period swell do the rest.
type SquidModel struct {
	weights map[string]float64
}

const (
	squidHighConfidenceMult = 1.5
	squidMediumConfMult     = 1.2

	squidDefaultSwellLimitM = 1.0
	squidDefaultMinPeriodS  = 6.0
)

// Report phrases, strongest first. Matching is case-insensitive substring.
var (
	squidHighConfPhrases = []string{
		"squid landed",
		"squid caught",
		"ink on the",
		"full bucket of squid",
		"limited out on squid",
	}
	squidMediumConfPhrases = []string{
		"squid",
		"ink",
		"cephalopod",
	}
)

func NewSquidModel() *SquidModel {
	return &SquidModel{
		weights: map[string]float64{
			"season":      0.25,
			"moon_light":  0.25,
			"swell":       0.20,
			"water_temp":  0.15,
			"time_of_day": 0.15,
		},
	}
}

func (m *SquidModel) Species() types.Species { return types.SpeciesSquid }

// squidSeasonScore is the calendar-based estimate: peaks in late autumn and
// winter, poor through high summer.
func squidSeasonScore(t time.Time) float64 {
	switch t.UTC().Month() {
	case time.November, time.December, time.January:
		return 1.0
	case time.October, time.February:
		return 0.8
	case time.March, time.September:
		return 0.6
	case time.April, time.August:
		return 0.4
	default:
		return 0.25
	}
}

// detectReportSignal scans the free-text report for squid activity phrases
// and returns the bonus multiplier plus the phrase that matched, or 1.
func detectReportSignal(report string) (float64, string) {
	if report == "" {
		return 1, ""
	}
	lower := strings.ToLower(report)
	for _, p := range squidHighConfPhrases {
		if strings.Contains(lower, p) {
			return squidHighConfidenceMult, p
		}
	}
	for _, p := range squidMediumConfPhrases {
		if strings.Contains(lower, p) {
			return squidMediumConfMult, p
		}
	}
	return 1, ""
}

func (m *SquidModel) Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult {
	e := newEvaluation(m.Species())

	e.addFactor("season", sample.Timestamp.UTC().Format("Jan"),
		m.weights["season"], squidSeasonScore(sample.Timestamp),
		"calendar estimate of squid presence")

	moonScore := 0.5
	moonValue := "n/a"
	if actx.MoonIllumination != nil {
		moonScore = moonDarknessScore(*actx.MoonIllumination)
		moonValue = fmt.Sprintf("%.0f%% lit", *actx.MoonIllumination*100)
	}
	e.addFactor("moon_light", moonValue,
		m.weights["moon_light"], moonScore,
		"dark nights make jig lights work")

	swellLimit := squidDefaultSwellLimitM
	minPeriod := squidDefaultMinPeriodS
	if p, ok := actx.Params.(types.SquidParams); ok {
		if p.SwellHeightLimitM != nil && *p.SwellHeightLimitM > 0 {
			swellLimit = *p.SwellHeightLimitM
		}
		if p.SwellPeriodMinS != nil && *p.SwellPeriodMinS > 0 {
			minPeriod = *p.SwellPeriodMinS
		}
	}
	swell := deref(sample.SwellHeightM, 0.4)
	swellScore := clamp01(1 - swell/swellLimit)
	if period := sample.SwellPeriodS; period != nil && *period < minPeriod {
		// Short chop spooks squid off the lights.
		swellScore *= 0.6
	}
	e.addFactor("swell", fmtVal(sample.SwellHeightM, "m"),
		m.weights["swell"], swellScore,
		"gentle long-period swell keeps the jig in view")

	e.addFactor("water_temp", fmtVal(sample.SeaSurfaceTempC, "°C"),
		m.weights["water_temp"], band(deref(sample.SeaSurfaceTempC, 13), 10, 16, 6),
		"squid school inshore in the cool band")

	nightScore := 0.3
	if !actx.IsDaylight(sample.Timestamp) {
		nightScore = 1.0
	}
	e.addFactor("time_of_day", sample.Timestamp.Format("15:04"),
		m.weights["time_of_day"], nightScore,
		"jigging is a night game")

	if mult, phrase := detectReportSignal(actx.FieldReport); mult > 1 {
		e.addBonus(mult, "recent_activity_report")
		e.addAdvice(fmt.Sprintf("recent reports mention %q; squid are around", phrase))
	}

	if sample.SwellHeightM != nil && *sample.SwellHeightM > 2*swellLimit {
		e.markUnsafe("swell far beyond jigging limit")
	}
	checkCommonSafety(e, sample)

	return e.finalize()
}
