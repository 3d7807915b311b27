package types

import "time"

// DataSourceMetadata records per-channel provenance for one bundle.
//
// Invariants: TideSource is nil iff the bundle's Tide is nil, and
// EnrichmentAvailable is true iff at least one enrichment channel succeeded.
type DataSourceMetadata struct {
	WeatherSource         string      `json:"weather_source"`
	MarineSource          *string     `json:"marine_source,omitempty"`
	TideSource            *TideSource `json:"tide_source,omitempty"`
	TideStationDistanceKm *float64    `json:"tide_station_distance_km,omitempty"`
	WaterTempSource       *string     `json:"water_temp_source,omitempty"`
	AstronomySource       *string     `json:"astronomy_source,omitempty"`
	EnrichmentAvailable   bool        `json:"enrichment_available"`
	FetchedAt             time.Time   `json:"fetched_at"`
}

// ForecastDataBundle is the single coherent representation produced by the
// aggregator: one weather sample series (optionally marine-merged), an
// optional tide state, optional astronomy days keyed by date, and provenance
// metadata. Built once per request and never mutated afterwards; scoring is
// its only consumer.
type ForecastDataBundle struct {
	Samples   []Sample                `json:"samples"`
	Tide      *TideState              `json:"tide,omitempty"`
	Astronomy map[string]AstronomyDay `json:"astronomy,omitempty"`
	Metadata  DataSourceMetadata      `json:"metadata"`
}

// AstronomyFor returns the astronomy day covering the given instant, if known.
func (b *ForecastDataBundle) AstronomyFor(t time.Time) (AstronomyDay, bool) {
	day, ok := b.Astronomy[DateKey(t)]
	return day, ok
}
