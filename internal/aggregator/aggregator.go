// Package aggregator reconciles the heterogeneous upstream channels into one
// coherent ForecastDataBundle with explicit provenance. Channels fail
// independently; only a dead primary weather feed aborts an aggregation.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fishcast/internal/external"
	"fishcast/internal/types"
)

// MergeTolerance is the maximum timestamp distance at which a marine or
// water-temperature sample is merged into a weather sample. Samples outside
// tolerance stay unmerged; no interpolation happens at this layer.
const MergeTolerance = time.Hour

// Request describes one aggregation.
type Request struct {
	Lat               float64
	Lon               float64
	ForecastDays      int
	MarineDays        int
	TideStationCode   string // empty = nearest-station lookup
	TideMaxRadiusKm   float64
	IncludeEnrichment bool
}

// Aggregator orchestrates the adapter fan-out. It is stateless between
// requests; every field is set at construction.
type Aggregator struct {
	weather external.WeatherAPI
	marine  external.MarineAPI
	tide    external.TideAPI
	enrich  external.EnrichmentAPI
	logger  *slog.Logger
	nowFn   func() time.Time
}

// New creates an Aggregator. enrich may be nil when the proxy is not
// configured; the enrichment phase is skipped entirely in that case.
func New(weather external.WeatherAPI, marine external.MarineAPI, tide external.TideAPI, enrich external.EnrichmentAPI, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		weather: weather,
		marine:  marine,
		tide:    tide,
		enrich:  enrich,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// WithNowFunc overrides the clock; tests use this to pin "now".
func (a *Aggregator) WithNowFunc(fn func() time.Time) *Aggregator {
	a.nowFn = fn
	return a
}

// FetchForecastBundle runs the full aggregation. It rejects only on total
// primary-weather failure; every other channel failure is absorbed into the
// bundle's metadata.
func (a *Aggregator) FetchForecastBundle(ctx context.Context, req Request) (*types.ForecastDataBundle, error) {
	now := a.nowFn().UTC()

	// Phase 1: primary weather and marine in parallel.
	var weather *external.WeatherResult
	var marineSamples []types.Sample

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := a.weather.FetchForecast(gctx, req.Lat, req.Lon, req.ForecastDays)
		if err != nil {
			return err
		}
		weather = w
		return nil
	})
	g.Go(func() error {
		marineSamples = a.marine.FetchMarine(gctx, req.Lat, req.Lon, req.MarineDays)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	samples := weather.Samples
	marineMerged := 0
	if len(marineSamples) > 0 {
		samples, marineMerged = mergeNearest(samples, marineSamples)
	}

	// Phase 2: authoritative tide.
	var tide *types.TideState
	if req.TideStationCode != "" {
		tide = a.tide.StationState(ctx, req.TideStationCode, req.Lat, req.Lon, now)
	} else {
		tide = a.tide.NearestState(ctx, req.Lat, req.Lon, req.TideMaxRadiusKm, now)
	}

	// Phase 3: enrichment fan-out. Tide fallback runs only when the
	// authoritative channel yielded nothing.
	var (
		crossCheck *bool
		waterTemp  []types.Sample
		astronomy  map[string]types.AstronomyDay
		fallback   *external.FallbackTide
	)
	if req.IncludeEnrichment && a.enrich != nil {
		eg, ectx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			crossCheck = a.enrich.CrossCheckWeather(ectx, req.Lat, req.Lon)
			return nil
		})
		eg.Go(func() error {
			waterTemp = a.enrich.WaterTemperature(ectx, req.Lat, req.Lon, req.ForecastDays)
			return nil
		})
		eg.Go(func() error {
			astronomy = a.enrich.Astronomy(ectx, req.Lat, req.Lon, req.ForecastDays)
			return nil
		})
		if tide == nil {
			eg.Go(func() error {
				fallback = a.enrich.TideFallback(ectx, req.Lat, req.Lon)
				return nil
			})
		}
		_ = eg.Wait() // enrichment goroutines never error; they fail closed
	}

	waterMerged := 0
	if len(waterTemp) > 0 {
		samples, waterMerged = mergeNearest(samples, waterTemp)
	}
	if tide == nil && fallback != nil {
		tide = synthesizeFallbackTide(fallback, now)
		if tide == nil {
			a.logger.WarnContext(ctx, "tide fallback payload did not bracket now")
		}
	}

	// Phase 4: metadata and bundle assembly.
	meta := types.DataSourceMetadata{
		WeatherSource:       weather.Source,
		EnrichmentAvailable: crossCheck != nil || len(waterTemp) > 0 || len(astronomy) > 0,
		FetchedAt:           now,
	}
	// A channel counts as a source only when at least one of its samples
	// actually merged; confidence keys off these fields.
	if marineMerged > 0 {
		src := "open-meteo-marine"
		meta.MarineSource = &src
	}
	if tide != nil {
		src := tide.Source
		meta.TideSource = &src
		meta.TideStationDistanceKm = tide.StationDistanceKm
	}
	if waterMerged > 0 {
		src := "enrichment-proxy"
		meta.WaterTempSource = &src
	}
	if len(astronomy) > 0 {
		src := "enrichment-proxy"
		meta.AstronomySource = &src
	}

	// The weather provider's daily sun table backfills dates the enrichment
	// astronomy does not cover. Seeded days carry no moon fields, and the
	// astronomy provenance above stays keyed to the enrichment channel.
	if len(weather.SunDays) > 0 {
		if astronomy == nil {
			astronomy = make(map[string]types.AstronomyDay, len(weather.SunDays))
		}
		for date, sun := range weather.SunDays {
			if _, ok := astronomy[date]; !ok {
				astronomy[date] = types.AstronomyDay{Date: date, Sunrise: sun.Sunrise, Sunset: sun.Sunset}
			}
		}
	}

	a.logger.InfoContext(ctx, "forecast bundle assembled",
		"samples", len(samples),
		"marine", marineMerged > 0,
		"tide", meta.TideSource != nil,
		"enrichment", meta.EnrichmentAvailable,
	)

	return &types.ForecastDataBundle{
		Samples:   samples,
		Tide:      tide,
		Astronomy: astronomy,
		Metadata:  meta,
	}, nil
}

// synthesizeFallbackTide converts the enrichment proxy's raw payload into a
// TideState tagged as fallback-estimated. Fallback states carry no station
// identity or distance.
func synthesizeFallbackTide(fb *external.FallbackTide, now time.Time) *types.TideState {
	state := external.BuildTideState(fb.Extremes, fb.Levels, now)
	if state == nil {
		return nil
	}
	state.Source = types.TideSourceFallback
	return state
}

// mergeNearest merges each enrichment sample into the nearest base sample
// within MergeTolerance, filling only fields the base sample lacks, and
// reports how many samples landed inside tolerance. Both series are ordered
// by timestamp, so a single forward scan suffices.
func mergeNearest(base []types.Sample, enrichment []types.Sample) ([]types.Sample, int) {
	out := make([]types.Sample, len(base))
	copy(out, base)

	merged := 0
	j := 0
	for _, e := range enrichment {
		// Advance until out[j] is the closest slot at or after e.
		for j+1 < len(out) && timestampDiff(out[j+1], e) <= timestampDiff(out[j], e) {
			j++
		}
		if j < len(out) && timestampDiff(out[j], e) <= MergeTolerance {
			fillMissing(&out[j], e)
			merged++
		}
	}
	return out, merged
}

func timestampDiff(a, b types.Sample) time.Duration {
	d := a.Timestamp.Sub(b.Timestamp)
	if d < 0 {
		return -d
	}
	return d
}

// fillMissing copies enrichment-owned fields into dst where dst has none.
func fillMissing(dst *types.Sample, src types.Sample) {
	if dst.SeaSurfaceTempC == nil {
		dst.SeaSurfaceTempC = src.SeaSurfaceTempC
	}
	if dst.WaveHeightM == nil {
		dst.WaveHeightM = src.WaveHeightM
	}
	if dst.WavePeriodS == nil {
		dst.WavePeriodS = src.WavePeriodS
	}
	if dst.WaveDirectionDeg == nil {
		dst.WaveDirectionDeg = src.WaveDirectionDeg
	}
	if dst.SwellHeightM == nil {
		dst.SwellHeightM = src.SwellHeightM
	}
	if dst.SwellPeriodS == nil {
		dst.SwellPeriodS = src.SwellPeriodS
	}
	if dst.SwellDirectionDeg == nil {
		dst.SwellDirectionDeg = src.SwellDirectionDeg
	}
	if dst.CurrentSpeedMS == nil {
		dst.CurrentSpeedMS = src.CurrentSpeedMS
	}
	if dst.CurrentDirectionDeg == nil {
		dst.CurrentDirectionDeg = src.CurrentDirectionDeg
	}
}
