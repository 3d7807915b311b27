package forecasts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishcast/internal/aggregator"
	"fishcast/internal/cache"
	"fishcast/internal/confidence"
	"fishcast/internal/scoring"
	"fishcast/internal/types"
)

type mockFetcher struct {
	bundle *types.ForecastDataBundle
	err    error
	calls  int
}

func (m *mockFetcher) FetchForecastBundle(_ context.Context, _ aggregator.Request) (*types.ForecastDataBundle, error) {
	m.calls++
	return m.bundle, m.err
}

type mockCache struct {
	payload  *cache.ForecastPayload
	stored   *cache.ForecastPayload
	storeErr error
	gets     int
}

func (m *mockCache) GetCachedForecast(_ context.Context, _, _ string, _ *types.Species, _ time.Time) (*cache.ForecastPayload, bool) {
	m.gets++
	if m.payload == nil {
		return nil, false
	}
	return m.payload, true
}

func (m *mockCache) StoreForecastCache(_ context.Context, _, _ string, _ *types.Species, _ time.Time, payload *cache.ForecastPayload) error {
	m.stored = payload
	return m.storeErr
}

var testNow = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

func testBundle(hours int) *types.ForecastDataBundle {
	samples := make([]types.Sample, hours)
	for i := range samples {
		ts := testNow.Add(time.Duration(i) * time.Hour)
		samples[i] = types.Sample{
			Timestamp:       ts,
			TemperatureC:    types.Float64Ptr(13 + float64(i)*0.1),
			PressureHPa:     types.Float64Ptr(1018 - float64(i)*0.4),
			WindSpeedMS:     types.Float64Ptr(4),
			PrecipitationMM: types.Float64Ptr(0.2),
			CloudCoverPct:   types.Float64Ptr(50),
			SeaSurfaceTempC: types.Float64Ptr(13.5),
			WaveHeightM:     types.Float64Ptr(0.6),
			CurrentSpeedMS:  types.Float64Ptr(0.3),
		}
	}
	source := "open-meteo-marine"
	dist := 8.0
	tideSrc := types.TideSourceAuthoritative
	return &types.ForecastDataBundle{
		Samples: samples,
		Tide: &types.TideState{
			WaterLevelM:       1.1,
			PrevExtreme:       &types.TideExtreme{Type: types.ExtremeLow, Time: testNow.Add(-2 * time.Hour), HeightM: 0.4},
			NextExtreme:       &types.TideExtreme{Type: types.ExtremeHigh, Time: testNow.Add(4 * time.Hour), HeightM: 2.4},
			RangeM:            2.0,
			RateMPerHour:      0.33,
			Rising:            true,
			StationDistanceKm: &dist,
			Source:            tideSrc,
		},
		Astronomy: map[string]types.AstronomyDay{
			types.DateKey(testNow): {
				Date:             types.DateKey(testNow),
				Sunrise:          testNow.Add(time.Hour),
				Sunset:           testNow.Add(12 * time.Hour),
				MoonIllumination: types.Float64Ptr(0.2),
			},
		},
		Metadata: types.DataSourceMetadata{
			WeatherSource:         "open-meteo",
			MarineSource:          &source,
			TideSource:            &tideSrc,
			TideStationDistanceKm: &dist,
			FetchedAt:             testNow,
		},
	}
}

func newTestService(fetcher *mockFetcher, cch *mockCache) *Service {
	svc := NewService(fetcher, scoring.NewRegistry(), cch, nil, Settings{DefaultDays: 7, TideMaxRadiusKm: 25})
	return svc.WithNowFunc(func() time.Time { return testNow })
}

func validRequest() Request {
	return Request{
		Lat:          38.69,
		Lon:          -9.42,
		LocationName: "lisbon",
		Hotspot:      "guincho",
	}
}

func TestGetForecastValidation(t *testing.T) {
	svc := newTestService(&mockFetcher{}, &mockCache{})
	bad := types.Species("kraken")

	tests := []struct {
		name   string
		mutate func(*Request)
		code   types.ErrorCode
	}{
		{"bad latitude", func(r *Request) { r.Lat = 91 }, types.ErrCodeValidationInvalidLat},
		{"bad longitude", func(r *Request) { r.Lon = -181 }, types.ErrCodeValidationInvalidLon},
		{"missing location", func(r *Request) { r.LocationName = "" }, types.ErrCodeValidationMissingField},
		{"unknown species", func(r *Request) { r.Species = &bad }, types.ErrCodeValidationInvalidSpecies},
		{"too many days", func(r *Request) { r.Days = 15 }, types.ErrCodeValidationInvalidDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.GetForecast(context.Background(), req)
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestGetForecastCacheHitSkipsAggregation(t *testing.T) {
	fetcher := &mockFetcher{bundle: testBundle(6)}
	cached := &cache.ForecastPayload{
		Bundle:      *testBundle(6),
		Slots:       []types.ScoredSlot{{Timestamp: testNow.Unix()}},
		Confidence:  confidence.Breakdown{Overall: 0.8},
		GeneratedAt: testNow.Add(-time.Hour),
	}
	svc := newTestService(fetcher, &mockCache{payload: cached})

	fc, err := svc.GetForecast(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, fc.Cached)
	assert.Equal(t, cached.GeneratedAt, fc.Generated)
	assert.Equal(t, cached.Slots, fc.Slots)
	assert.Zero(t, fetcher.calls)
}

func TestGetForecastComputesAndStores(t *testing.T) {
	fetcher := &mockFetcher{bundle: testBundle(6)}
	cch := &mockCache{}
	svc := newTestService(fetcher, cch)

	fc, err := svc.GetForecast(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, fc.Cached)
	assert.Equal(t, 1, fetcher.calls)

	// Six hourly samples expand to 15-minute slots.
	wantSlots := (6-1)*4 + 1
	require.Len(t, fc.Slots, wantSlots)
	for _, slot := range fc.Slots {
		require.Len(t, slot.Results, len(types.AllSpecies))
		for species, res := range slot.Results {
			assert.GreaterOrEqual(t, res.Total, 0.0, "%s", species)
			assert.LessOrEqual(t, res.Total, 10.0, "%s", species)
		}
	}

	require.NotNil(t, cch.stored)
	assert.Equal(t, fc.Slots, cch.stored.Slots)
	assert.Equal(t, fc.Confidence, cch.stored.Confidence)
}

func TestGetForecastSingleSpecies(t *testing.T) {
	fetcher := &mockFetcher{bundle: testBundle(3)}
	svc := newTestService(fetcher, &mockCache{})

	sp := types.SpeciesSeabass
	req := validRequest()
	req.Species = &sp

	fc, err := svc.GetForecast(context.Background(), req)
	require.NoError(t, err)
	for _, slot := range fc.Slots {
		require.Len(t, slot.Results, 1)
		assert.Contains(t, slot.Results, types.SpeciesSeabass)
	}
}

func TestGetForecastWeatherFailurePropagates(t *testing.T) {
	fetcher := &mockFetcher{err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather channel unavailable", nil)}
	svc := newTestService(fetcher, &mockCache{})

	_, err := svc.GetForecast(context.Background(), validRequest())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestGetForecastCacheWriteFailureIsNotFatal(t *testing.T) {
	fetcher := &mockFetcher{bundle: testBundle(3)}
	cch := &mockCache{storeErr: types.NewAppError(types.ErrCodeInternalDB, "store down", nil)}
	svc := newTestService(fetcher, cch)

	fc, err := svc.GetForecast(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Slots)
}

func TestRegressResult(t *testing.T) {
	t.Run("pulls toward neutral", func(t *testing.T) {
		res := regressResult(types.ScoreResult{Total: 9, IsSafe: true, IsInSeason: true}, 0.5)
		assert.InDelta(t, 7.0, res.Total, 1e-9)
	})
	t.Run("closed season untouched", func(t *testing.T) {
		res := regressResult(types.ScoreResult{Total: 0, IsSafe: true, IsInSeason: false}, 0.5)
		assert.Equal(t, 0.0, res.Total)
	})
	t.Run("low confidence cannot lift a capped slot", func(t *testing.T) {
		res := regressResult(types.ScoreResult{Total: 3, IsSafe: false, IsInSeason: true}, 0.2)
		assert.Equal(t, scoring.SafetyCapScore, res.Total)
	})
}
