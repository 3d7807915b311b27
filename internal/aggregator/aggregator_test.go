package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishcast/internal/external"
	"fishcast/internal/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// --- Test Doubles ---

type mockWeather struct {
	result *external.WeatherResult
	err    error
	calls  int
}

func (m *mockWeather) FetchForecast(ctx context.Context, lat, lon float64, days int) (*external.WeatherResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockMarine struct {
	samples []types.Sample
}

func (m *mockMarine) FetchMarine(ctx context.Context, lat, lon float64, days int) []types.Sample {
	return m.samples
}

type mockTide struct {
	state       *types.TideState
	byCodeState *types.TideState
	codeCalls   []string
}

func (m *mockTide) StationState(ctx context.Context, code string, lat, lon float64, at time.Time) *types.TideState {
	m.codeCalls = append(m.codeCalls, code)
	return m.byCodeState
}

func (m *mockTide) NearestState(ctx context.Context, lat, lon, radiusKm float64, at time.Time) *types.TideState {
	return m.state
}

type mockEnrich struct {
	crossCheck    *bool
	waterTemp     []types.Sample
	astronomy     map[string]types.AstronomyDay
	fallback      *external.FallbackTide
	fallbackCalls int
}

func (m *mockEnrich) CrossCheckWeather(ctx context.Context, lat, lon float64) *bool {
	return m.crossCheck
}

func (m *mockEnrich) WaterTemperature(ctx context.Context, lat, lon float64, days int) []types.Sample {
	return m.waterTemp
}

func (m *mockEnrich) Astronomy(ctx context.Context, lat, lon float64, days int) map[string]types.AstronomyDay {
	return m.astronomy
}

func (m *mockEnrich) TideFallback(ctx context.Context, lat, lon float64) *external.FallbackTide {
	m.fallbackCalls++
	return m.fallback
}

func hourlyWeather(hours int) *external.WeatherResult {
	samples := make([]types.Sample, hours)
	for i := range samples {
		samples[i] = types.Sample{
			Timestamp:    testNow.Add(time.Duration(i) * time.Hour),
			TemperatureC: types.Float64Ptr(10 + float64(i)*0.1),
			PressureHPa:  types.Float64Ptr(1015),
		}
	}
	return &external.WeatherResult{Samples: samples, Source: "open-meteo"}
}

func authoritativeTide(distanceKm float64) *types.TideState {
	return &types.TideState{
		WaterLevelM:       1.2,
		NextExtreme:       &types.TideExtreme{Type: types.ExtremeHigh, Time: testNow.Add(3 * time.Hour), HeightM: 2.0},
		PrevExtreme:       &types.TideExtreme{Type: types.ExtremeLow, Time: testNow.Add(-3 * time.Hour), HeightM: 0.4},
		RangeM:            1.6,
		Rising:            true,
		StationID:         "ST-08",
		StationDistanceKm: &distanceKm,
		Source:            types.TideSourceAuthoritative,
	}
}

func defaultRequest() Request {
	return Request{
		Lat: 35.1, Lon: 129.1,
		ForecastDays: 14, MarineDays: 5,
		TideMaxRadiusKm:   50,
		IncludeEnrichment: true,
	}
}

func TestPrimaryWeatherFailureIsFatal(t *testing.T) {
	agg := New(
		&mockWeather{err: types.NewAppError(types.ErrCodeUpstreamWeather, "down", nil)},
		&mockMarine{}, &mockTide{}, &mockEnrich{}, nil,
	).WithNowFunc(func() time.Time { return testNow })

	_, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

// Partial outage scenario: a valid 14-day weather series, marine down, an
// authoritative station 8km away. The bundle must still come out whole with
// the outage visible only in metadata.
func TestGracefulDegradationScenario(t *testing.T) {
	agrees := true
	tide := &mockTide{state: authoritativeTide(8.0)}
	agg := New(
		&mockWeather{result: hourlyWeather(14 * 24)},
		&mockMarine{}, // channel unavailable
		tide,
		&mockEnrich{crossCheck: &agrees},
		nil,
	).WithNowFunc(func() time.Time { return testNow })

	bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Nil(t, bundle.Metadata.MarineSource)
	require.NotNil(t, bundle.Metadata.TideSource)
	assert.Equal(t, types.TideSourceAuthoritative, *bundle.Metadata.TideSource)
	require.NotNil(t, bundle.Metadata.TideStationDistanceKm)
	assert.InDelta(t, 8.0, *bundle.Metadata.TideStationDistanceKm, 1e-9)
	require.NotNil(t, bundle.Tide)
	assert.Len(t, bundle.Samples, 14*24)
}

func TestMarineMergeWithinTolerance(t *testing.T) {
	marine := &mockMarine{samples: []types.Sample{
		{
			Timestamp:   testNow.Add(10 * time.Minute), // within 1h of slot 0
			WaveHeightM: types.Float64Ptr(0.8),
		},
		{
			Timestamp:      testNow.Add(30 * time.Hour), // beyond the 24h series
			CurrentSpeedMS: types.Float64Ptr(0.5),
		},
	}}
	agg := New(&mockWeather{result: hourlyWeather(24)}, marine, &mockTide{}, nil, nil).
		WithNowFunc(func() time.Time { return testNow })

	req := defaultRequest()
	req.IncludeEnrichment = false
	bundle, err := agg.FetchForecastBundle(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, bundle.Metadata.MarineSource)
	require.NotNil(t, bundle.Samples[0].WaveHeightM)
	assert.InDelta(t, 0.8, *bundle.Samples[0].WaveHeightM, 1e-9)

	// The out-of-tolerance sample merged nowhere.
	for _, s := range bundle.Samples {
		assert.Nil(t, s.CurrentSpeedMS)
	}
}

func TestExplicitStationCode(t *testing.T) {
	tide := &mockTide{byCodeState: authoritativeTide(2.0)}
	agg := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, tide, nil, nil).
		WithNowFunc(func() time.Time { return testNow })

	req := defaultRequest()
	req.IncludeEnrichment = false
	req.TideStationCode = "ST-08"
	bundle, err := agg.FetchForecastBundle(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"ST-08"}, tide.codeCalls)
	require.NotNil(t, bundle.Tide)
}

func TestFallbackTideOnlyWhenAuthorityEmpty(t *testing.T) {
	fb := &external.FallbackTide{
		Extremes: []types.TideExtreme{
			{Type: types.ExtremeLow, Time: testNow.Add(-2 * time.Hour), HeightM: 0.3},
			{Type: types.ExtremeHigh, Time: testNow.Add(4 * time.Hour), HeightM: 1.9},
		},
	}

	enrich := &mockEnrich{fallback: fb}
	agg := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{}, enrich, nil).
		WithNowFunc(func() time.Time { return testNow })

	bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, enrich.fallbackCalls)
	require.NotNil(t, bundle.Tide)
	assert.Equal(t, types.TideSourceFallback, bundle.Tide.Source)
	assert.Nil(t, bundle.Tide.StationDistanceKm)
	assert.True(t, bundle.Tide.Rising)
	assert.InDelta(t, 1.6, bundle.Tide.RangeM, 1e-9)
	require.NotNil(t, bundle.Metadata.TideSource)
	assert.Equal(t, types.TideSourceFallback, *bundle.Metadata.TideSource)

	// With an authoritative tide present, the fallback is never requested.
	enrich2 := &mockEnrich{fallback: fb}
	agg2 := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{state: authoritativeTide(3)}, enrich2, nil).
		WithNowFunc(func() time.Time { return testNow })
	_, err = agg2.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Zero(t, enrich2.fallbackCalls)
}

func TestTideMetadataInvariant(t *testing.T) {
	// No tide from any source: TideSource must be absent.
	agg := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{}, &mockEnrich{}, nil).
		WithNowFunc(func() time.Time { return testNow })

	bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Nil(t, bundle.Tide)
	assert.Nil(t, bundle.Metadata.TideSource)
}

func TestEnrichmentAvailabilityFlag(t *testing.T) {
	astro := map[string]types.AstronomyDay{
		types.DateKey(testNow): {Date: types.DateKey(testNow), MoonIllumination: types.Float64Ptr(0.4)},
	}
	enrich := &mockEnrich{astronomy: astro}
	agg := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{}, enrich, nil).
		WithNowFunc(func() time.Time { return testNow })

	bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.True(t, bundle.Metadata.EnrichmentAvailable)
	require.NotNil(t, bundle.Metadata.AstronomySource)

	// Every enrichment channel down: flag stays false.
	agg2 := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{}, &mockEnrich{}, nil).
		WithNowFunc(func() time.Time { return testNow })
	bundle2, err := agg2.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.False(t, bundle2.Metadata.EnrichmentAvailable)
}

// Marine samples that all miss the merge tolerance must not claim the
// channel as a source; marine confidence keys off that field.
func TestMarineOutsideToleranceNotFlagged(t *testing.T) {
	marine := &mockMarine{samples: []types.Sample{
		{Timestamp: testNow.Add(30 * time.Hour), WaveHeightM: types.Float64Ptr(0.8)},
	}}
	agg := New(&mockWeather{result: hourlyWeather(24)}, marine, &mockTide{}, nil, nil).
		WithNowFunc(func() time.Time { return testNow })

	req := defaultRequest()
	req.IncludeEnrichment = false
	bundle, err := agg.FetchForecastBundle(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, bundle.Metadata.MarineSource)
	for _, s := range bundle.Samples {
		assert.Nil(t, s.WaveHeightM)
	}
}

// The weather provider's daily sun table must reach the bundle when the
// enrichment astronomy does not cover a date, with moon fields absent.
func TestWeatherSunTimesBackfillAstronomy(t *testing.T) {
	today := types.DateKey(testNow)
	tomorrow := types.DateKey(testNow.Add(24 * time.Hour))

	weather := hourlyWeather(48)
	weather.SunDays = map[string]external.SunTimes{
		today:    {Sunrise: testNow.Add(-5 * time.Hour), Sunset: testNow.Add(6 * time.Hour)},
		tomorrow: {Sunrise: testNow.Add(19 * time.Hour), Sunset: testNow.Add(30 * time.Hour)},
	}

	t.Run("no enrichment", func(t *testing.T) {
		agg := New(&mockWeather{result: weather}, &mockMarine{}, &mockTide{}, nil, nil).
			WithNowFunc(func() time.Time { return testNow })

		req := defaultRequest()
		req.IncludeEnrichment = false
		bundle, err := agg.FetchForecastBundle(context.Background(), req)
		require.NoError(t, err)

		day, ok := bundle.AstronomyFor(testNow)
		require.True(t, ok)
		assert.Equal(t, testNow.Add(-5*time.Hour), day.Sunrise)
		assert.Equal(t, testNow.Add(6*time.Hour), day.Sunset)
		assert.Nil(t, day.MoonIllumination)
		assert.Nil(t, bundle.Metadata.AstronomySource)
	})

	t.Run("enrichment days win", func(t *testing.T) {
		enrich := &mockEnrich{astronomy: map[string]types.AstronomyDay{
			today: {
				Date:             today,
				Sunrise:          testNow.Add(-5*time.Hour + 2*time.Minute),
				Sunset:           testNow.Add(6 * time.Hour),
				MoonIllumination: types.Float64Ptr(0.4),
			},
		}}
		agg := New(&mockWeather{result: weather}, &mockMarine{}, &mockTide{}, enrich, nil).
			WithNowFunc(func() time.Time { return testNow })

		bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
		require.NoError(t, err)

		day, ok := bundle.AstronomyFor(testNow)
		require.True(t, ok)
		require.NotNil(t, day.MoonIllumination)
		assert.InDelta(t, 0.4, *day.MoonIllumination, 1e-9)
		assert.Equal(t, testNow.Add(-5*time.Hour+2*time.Minute), day.Sunrise)

		// The uncovered date is still backfilled from the weather table.
		next, ok := bundle.AstronomyFor(testNow.Add(24 * time.Hour))
		require.True(t, ok)
		assert.Equal(t, testNow.Add(19*time.Hour), next.Sunrise)
		assert.Nil(t, next.MoonIllumination)
	})
}

func TestWaterTemperatureMerge(t *testing.T) {
	enrich := &mockEnrich{waterTemp: []types.Sample{
		{Timestamp: testNow, SeaSurfaceTempC: types.Float64Ptr(9.5)},
	}}
	agg := New(&mockWeather{result: hourlyWeather(24)}, &mockMarine{}, &mockTide{}, enrich, nil).
		WithNowFunc(func() time.Time { return testNow })

	bundle, err := agg.FetchForecastBundle(context.Background(), defaultRequest())
	require.NoError(t, err)

	require.NotNil(t, bundle.Samples[0].SeaSurfaceTempC)
	assert.InDelta(t, 9.5, *bundle.Samples[0].SeaSurfaceTempC, 1e-9)
	assert.True(t, bundle.Metadata.EnrichmentAvailable)
	require.NotNil(t, bundle.Metadata.WaterTempSource)
}
