package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishcast/internal/types"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// calmSample is a benign reading that trips no safety check.
func calmSample(t *testing.T, ts string) types.Sample {
	t.Helper()
	return types.Sample{
		Timestamp:           mustTime(t, ts),
		TemperatureC:        types.Float64Ptr(14),
		PressureHPa:         types.Float64Ptr(1015),
		WindSpeedMS:         types.Float64Ptr(4),
		WindGustMS:          types.Float64Ptr(6),
		WindDirectionDeg:    types.Float64Ptr(240),
		PrecipitationMM:     types.Float64Ptr(0.5),
		CloudCoverPct:       types.Float64Ptr(60),
		SeaSurfaceTempC:     types.Float64Ptr(13),
		WaveHeightM:         types.Float64Ptr(0.4),
		SwellHeightM:        types.Float64Ptr(0.3),
		SwellPeriodS:        types.Float64Ptr(8),
		CurrentSpeedMS:      types.Float64Ptr(0.3),
		CurrentDirectionDeg: types.Float64Ptr(90),
	}
}

// dangerousSample trips every common safety check.
func dangerousSample(t *testing.T, ts string) types.Sample {
	t.Helper()
	s := calmSample(t, ts)
	s.WindSpeedMS = types.Float64Ptr(20)
	s.WindGustMS = types.Float64Ptr(28)
	s.WaveHeightM = types.Float64Ptr(4.0)
	s.SwellHeightM = types.Float64Ptr(3.5)
	s.LightningPoten = types.Float64Ptr(0.9)
	return s
}

func dayContext(t *testing.T) types.AlgorithmContext {
	t.Helper()
	return types.AlgorithmContext{
		Sunrise: mustTime(t, "2026-11-10T07:10:00Z"),
		Sunset:  mustTime(t, "2026-11-10T17:05:00Z"),
		Lat:     38.7,
		Lon:     -9.4,
	}
}

func risingTide(t *testing.T) *types.TideState {
	t.Helper()
	return &types.TideState{
		WaterLevelM: 1.2,
		PrevExtreme: &types.TideExtreme{Type: types.ExtremeLow, Time: mustTime(t, "2026-11-10T08:00:00Z"), HeightM: 0.4},
		NextExtreme: &types.TideExtreme{Type: types.ExtremeHigh, Time: mustTime(t, "2026-11-10T14:15:00Z"), HeightM: 2.6},
		RangeM:      2.2,
		RateMPerHour: 0.35,
		Rising:      true,
		Source:      types.TideSourceAuthoritative,
	}
}

func TestFinalizeWeightedSum(t *testing.T) {
	e := newEvaluation(types.SpeciesSeabass)
	e.addFactor("a", "x", 0.6, 1.0, "")
	e.addFactor("b", "y", 0.4, 0.5, "")

	res := e.finalize()
	assert.InDelta(t, 8.0, res.Total, 1e-9)
	assert.True(t, res.IsSafe)
	assert.True(t, res.IsInSeason)
	assert.Len(t, res.Factors, 2)
	assert.Equal(t, 0.6, res.Factors["a"].Weight)
}

func TestFinalizeClampsFactorScores(t *testing.T) {
	e := newEvaluation(types.SpeciesSeabass)
	e.addFactor("hot", "x", 1.0, 1.7, "")

	res := e.finalize()
	assert.Equal(t, 10.0, res.Total)
	assert.Equal(t, 1.0, res.Factors["hot"].Score)
}

func TestFinalizeBonusesThenClamp(t *testing.T) {
	e := newEvaluation(types.SpeciesSquid)
	e.addFactor("a", "x", 1.0, 0.9, "")
	e.addBonus(1.25, "first")
	e.addBonus(1.10, "second")

	// 9.0 * 1.25 * 1.10 = 12.375, clamped to 10.
	res := e.finalize()
	assert.Equal(t, 10.0, res.Total)
	assert.Equal(t, 1.25, res.Debug["bonus:first"])
	assert.Equal(t, 1.10, res.Debug["bonus:second"])
}

func TestFinalizeSafetyCapAfterBonuses(t *testing.T) {
	e := newEvaluation(types.SpeciesSeabass)
	e.addFactor("a", "x", 1.0, 0.95, "")
	e.addBonus(1.25, "storm_trigger")
	e.markUnsafe("wind above safe limit")

	res := e.finalize()
	assert.Equal(t, SafetyCapScore, res.Total)
	assert.False(t, res.IsSafe)
	assert.Contains(t, res.Warnings, "wind above safe limit")
}

func TestClosedSeasonShape(t *testing.T) {
	res := closedSeason(types.SpeciesCrab, "closed window")
	assert.Equal(t, 0.0, res.Total)
	assert.False(t, res.IsInSeason)
	assert.True(t, res.IsSafe)
	assert.Empty(t, res.Factors)
	assert.Contains(t, res.Advice, "closed window")
}

func TestHardStopShape(t *testing.T) {
	res := hardStop(types.SpeciesCrab, "too windy", "wait it out")
	assert.Equal(t, 0.0, res.Total)
	assert.False(t, res.IsSafe)
	assert.True(t, res.IsInSeason)
	assert.Empty(t, res.Factors)
	assert.Contains(t, res.Warnings, "too windy")
	assert.Contains(t, res.Advice, "wait it out")
}

func TestModelWeightsSumToOne(t *testing.T) {
	models := map[types.Species]map[string]float64{
		types.SpeciesSeabass:  NewSeabassModel().weights,
		types.SpeciesRockfish: NewRockfishModel().weights,
		types.SpeciesTautog:   NewTautogModel().weights,
		types.SpeciesOctopus:  NewOctopusModel().weights,
		types.SpeciesCrab:     NewCrabModel().weights,
		types.SpeciesSquid:    NewSquidModel().weights,
	}
	for species, weights := range models {
		var sum float64
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "weights for %s must sum to 1", species)
	}
}

func TestRegistryCoversAllSpecies(t *testing.T) {
	r := NewRegistry()
	assert.ElementsMatch(t, types.AllSpecies, r.Species())
	for _, s := range types.AllSpecies {
		assert.NotNil(t, r.Model(s), "model missing for %s", s)
	}
}

func TestRegistryScoreAllSubset(t *testing.T) {
	r := NewRegistry()
	sample := calmSample(t, "2026-11-10T09:00:00Z")
	actx := dayContext(t)

	out := r.ScoreAll(sample, actx, risingTide(t), types.SpeciesSeabass, types.SpeciesRockfish)
	require.Len(t, out, 2)
	assert.Equal(t, types.SpeciesSeabass, out[types.SpeciesSeabass].Species)
	assert.Equal(t, types.SpeciesRockfish, out[types.SpeciesRockfish].Species)
}

// Any tripped safety gate must cap the total at 3.0 for every model, no
// matter how favorable the remaining factors are.
func TestDangerousConditionsCapEveryModel(t *testing.T) {
	r := NewRegistry()
	sample := dangerousSample(t, "2026-11-10T09:00:00Z")
	actx := dayContext(t)
	actx.MoonIllumination = types.Float64Ptr(0.02)

	out := r.ScoreAll(sample, actx, risingTide(t))
	require.Len(t, out, len(types.AllSpecies))
	for species, res := range out {
		assert.False(t, res.IsSafe, "%s must be flagged unsafe", species)
		assert.LessOrEqual(t, res.Total, SafetyCapScore, "%s total must be capped", species)
		assert.NotEmpty(t, res.Warnings, "%s must carry a warning", species)
	}
}

// Every model must stay within [0,10] for absent readings and nil tide.
func TestSparseInputsStayInRange(t *testing.T) {
	r := NewRegistry()
	sample := types.Sample{Timestamp: mustTime(t, "2026-11-10T09:00:00Z")}

	out := r.ScoreAll(sample, types.AlgorithmContext{}, nil)
	for species, res := range out {
		assert.GreaterOrEqual(t, res.Total, 0.0, "%s", species)
		assert.LessOrEqual(t, res.Total, 10.0, "%s", species)
	}
}
