// Package forecasts orchestrates one forecast request end to end: cache
// lookup, channel aggregation, interpolation to the target cadence, species
// scoring, confidence weighting, and the cache write-back.
package forecasts

import (
	"context"
	"log/slog"
	"time"

	"fishcast/internal/aggregator"
	"fishcast/internal/cache"
	"fishcast/internal/confidence"
	"fishcast/internal/interpolate"
	"fishcast/internal/scoring"
	"fishcast/internal/types"
)

// pressureHistoryWindow bounds the rolling pressure history handed to the
// species models.
const pressureHistoryWindow = 6 * time.Hour

// Request describes one forecast computation.
type Request struct {
	Lat          float64
	Lon          float64
	LocationName string
	Hotspot      string

	// Species limits scoring to one species; nil scores all of them.
	Species *types.Species

	// Date selects the cache day. Zero means today.
	Date time.Time

	Days int

	// Optional bio-intel and per-species overrides forwarded to the models.
	FieldReport string
	RecentCatch *float64
	Params      types.SpeciesParams
}

// Forecast is the computed (or cached) result handed to the API layer.
type Forecast struct {
	Location   string                   `json:"location"`
	Hotspot    string                   `json:"hotspot"`
	Cached     bool                     `json:"cached"`
	Generated  time.Time                `json:"generated_at"`
	Confidence confidence.Breakdown     `json:"confidence"`
	Metadata   types.DataSourceMetadata `json:"metadata"`
	Slots      []types.ScoredSlot       `json:"slots"`
}

// bundleFetcher is the aggregation surface the service consumes. Satisfied
// by *aggregator.Aggregator.
type bundleFetcher interface {
	FetchForecastBundle(ctx context.Context, req aggregator.Request) (*types.ForecastDataBundle, error)
}

// forecastCache is the cache surface the service consumes. Satisfied by
// *cache.Service.
type forecastCache interface {
	GetCachedForecast(ctx context.Context, location, hotspot string, species *types.Species, date time.Time) (*cache.ForecastPayload, bool)
	StoreForecastCache(ctx context.Context, location, hotspot string, species *types.Species, date time.Time, payload *cache.ForecastPayload) error
}

// Service computes fishability forecasts.
type Service struct {
	agg      bundleFetcher
	registry *scoring.Registry
	cache    forecastCache
	logger   *slog.Logger
	nowFn    func() time.Time

	defaultDays     int
	tideStationCode string
	tideMaxRadiusKm float64
}

// Settings carries the request defaults resolved from configuration.
type Settings struct {
	DefaultDays     int
	TideStationCode string
	TideMaxRadiusKm float64
}

// NewService creates the forecast service. cacheSvc must not be nil; pass a
// disabled cache.Service when no store is configured.
func NewService(agg bundleFetcher, registry *scoring.Registry, cacheSvc forecastCache, logger *slog.Logger, settings Settings) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.DefaultDays <= 0 {
		settings.DefaultDays = 7
	}
	return &Service{
		agg:             agg,
		registry:        registry,
		cache:           cacheSvc,
		logger:          logger,
		nowFn:           time.Now,
		defaultDays:     settings.DefaultDays,
		tideStationCode: settings.TideStationCode,
		tideMaxRadiusKm: settings.TideMaxRadiusKm,
	}
}

// WithNowFunc overrides the clock; tests use this to pin "now".
func (s *Service) WithNowFunc(fn func() time.Time) *Service {
	s.nowFn = fn
	return s
}

// GetForecast returns the scored forecast for a request, serving from cache
// when a live entry exists.
func (s *Service) GetForecast(ctx context.Context, req Request) (*Forecast, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	date := req.Date
	if date.IsZero() {
		date = s.nowFn().UTC()
	}

	if payload, cached := s.cache.GetCachedForecast(ctx, req.LocationName, req.Hotspot, req.Species, date); cached {
		return &Forecast{
			Location:   req.LocationName,
			Hotspot:    req.Hotspot,
			Cached:     true,
			Generated:  payload.GeneratedAt,
			Confidence: payload.Confidence,
			Metadata:   payload.Bundle.Metadata,
			Slots:      payload.Slots,
		}, nil
	}

	days := req.Days
	if days <= 0 {
		days = s.defaultDays
	}
	bundle, err := s.agg.FetchForecastBundle(ctx, aggregator.Request{
		Lat:               req.Lat,
		Lon:               req.Lon,
		ForecastDays:      days,
		MarineDays:        days,
		TideStationCode:   s.tideStationCode,
		TideMaxRadiusKm:   s.tideMaxRadiusKm,
		IncludeEnrichment: true,
	})
	if err != nil {
		return nil, err
	}

	conf := confidence.Overall(bundle.Metadata)
	slots := s.scoreBundle(bundle, req, conf)

	payload := &cache.ForecastPayload{
		Bundle:      *bundle,
		Slots:       slots,
		Confidence:  conf,
		GeneratedAt: s.nowFn().UTC(),
	}
	if err := s.cache.StoreForecastCache(ctx, req.LocationName, req.Hotspot, req.Species, date, payload); err != nil {
		s.logger.WarnContext(ctx, "forecast cache write failed", "location", req.LocationName, "error", err)
	}

	return &Forecast{
		Location:   req.LocationName,
		Hotspot:    req.Hotspot,
		Generated:  payload.GeneratedAt,
		Confidence: conf,
		Metadata:   bundle.Metadata,
		Slots:      slots,
	}, nil
}

// scoreBundle expands the bundle to the target cadence and evaluates every
// requested species model per slot, regressing raw totals by overall
// confidence.
func (s *Service) scoreBundle(bundle *types.ForecastDataBundle, req Request, conf confidence.Breakdown) []types.ScoredSlot {
	expanded := interpolate.ExpandHourly(bundle.Samples, interpolate.SlotsPerHour)

	var speciesList []types.Species
	if req.Species != nil {
		speciesList = []types.Species{*req.Species}
	}

	// Rolling pressure history shared across slots; histStart advances as
	// the window slides.
	var history []types.PressurePoint
	histStart := 0

	slots := make([]types.ScoredSlot, 0, len(expanded))
	for _, sample := range expanded {
		if sample.PressureHPa != nil {
			history = append(history, types.PressurePoint{Timestamp: sample.Timestamp, PressureHPa: *sample.PressureHPa})
		}
		for histStart < len(history) && sample.Timestamp.Sub(history[histStart].Timestamp) > pressureHistoryWindow {
			histStart++
		}

		actx := types.AlgorithmContext{
			Lat:             req.Lat,
			Lon:             req.Lon,
			LocationName:    req.LocationName,
			PressureHistory: history[histStart:],
			RecentCatch:     req.RecentCatch,
			FieldReport:     req.FieldReport,
			Params:          req.Params,
		}
		if day, ok := bundle.AstronomyFor(sample.Timestamp); ok {
			actx.Sunrise = day.Sunrise
			actx.Sunset = day.Sunset
			actx.MoonIllumination = day.MoonIllumination
		}

		results := s.registry.ScoreAll(sample, actx, bundle.Tide, speciesList...)
		for sp, res := range results {
			results[sp] = regressResult(res, conf.Overall)
		}

		slots = append(slots, types.ScoredSlot{
			Timestamp: sample.Timestamp.Unix(),
			Results:   results,
		})
	}
	return slots
}

// regressResult pulls a raw total toward the neutral midpoint in proportion
// to distrust. Season-gated zeros are left alone: a closed season is a fact,
// not a measurement. The safety cap is re-applied after regression so low
// confidence can never lift a dangerous slot above it.
func regressResult(res types.ScoreResult, conf float64) types.ScoreResult {
	if !res.IsInSeason {
		return res
	}
	res.Total = confidence.ApplyToScore(res.Total, conf, confidence.NeutralScore)
	if !res.IsSafe && res.Total > scoring.SafetyCapScore {
		res.Total = scoring.SafetyCapScore
	}
	return res
}

func validateRequest(req *Request) error {
	if req.Lat < -90 || req.Lat > 90 {
		return types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be within [-90, 90]", nil)
	}
	if req.Lon < -180 || req.Lon > 180 {
		return types.NewAppError(types.ErrCodeValidationInvalidLon, "longitude must be within [-180, 180]", nil)
	}
	if req.LocationName == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "location name is required", nil)
	}
	if req.Species != nil && !req.Species.Valid() {
		return types.NewAppError(types.ErrCodeValidationInvalidSpecies, "unknown species", nil)
	}
	if req.Days < 0 || req.Days > 14 {
		return types.NewAppError(types.ErrCodeValidationInvalidDays, "forecast days must be within [1, 14]", nil)
	}
	return nil
}
