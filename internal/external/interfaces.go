package external

import (
	"context"
	"time"

	"fishcast/internal/types"
)

// WeatherResult is the primary weather adapter's output: the hourly sample
// series plus the provider's daily sunrise/sunset table.
type WeatherResult struct {
	Samples []types.Sample
	SunDays map[string]SunTimes // keyed by YYYY-MM-DD
	Source  string
}

// SunTimes holds the daily sunrise/sunset pair from the weather provider.
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

// FallbackTide is the enrichment proxy's raw tide payload: extreme events
// paired with a continuous level series. The aggregator converts it to a
// TideState when the authoritative channel yielded nothing.
type FallbackTide struct {
	Extremes []types.TideExtreme
	Levels   []TideLevel
	Source   string
}

// TideLevel is one point of a continuous water-level series.
type TideLevel struct {
	Time    time.Time
	HeightM float64
}

// WeatherAPI is the primary weather channel. It is the sole channel whose
// failure is fatal to an aggregation: FetchForecast returns an error instead
// of failing closed.
type WeatherAPI interface {
	FetchForecast(ctx context.Context, lat, lon float64, days int) (*WeatherResult, error)
}

// MarineAPI is the marine enrichment channel. FetchMarine fails closed: on
// any upstream problem it returns nil and the channel is simply unavailable.
type MarineAPI interface {
	FetchMarine(ctx context.Context, lat, lon float64, days int) []types.Sample
}

// TideAPI is the authoritative tide channel. Both lookups fail closed with a
// nil TideState.
type TideAPI interface {
	// StationState fetches the tide state for an explicit station code.
	// lat/lon are the request coordinates, used to record station distance.
	StationState(ctx context.Context, code string, lat, lon float64, at time.Time) *types.TideState
	// NearestState finds the nearest station within radiusKm and fetches its
	// state. Returns nil when no station is inside the radius.
	NearestState(ctx context.Context, lat, lon, radiusKm float64, at time.Time) *types.TideState
}

// EnrichmentAPI is the key-gated enrichment proxy. Every method fails closed
// with a nil/zero result.
type EnrichmentAPI interface {
	// CrossCheckWeather reports whether the proxy's independent weather feed
	// agrees with the primary channel at the location. nil = unavailable.
	CrossCheckWeather(ctx context.Context, lat, lon float64) *bool
	// WaterTemperature returns hourly sea-surface temperature readings.
	WaterTemperature(ctx context.Context, lat, lon float64, days int) []types.Sample
	// Astronomy returns sun/moon days keyed by calendar date.
	Astronomy(ctx context.Context, lat, lon float64, days int) map[string]types.AstronomyDay
	// TideFallback returns the raw fallback tide payload.
	TideFallback(ctx context.Context, lat, lon float64) *FallbackTide
}
