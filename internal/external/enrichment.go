package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"fishcast/internal/types"
)

// EnrichmentClient talks to the key-gated enrichment proxy, which offers
// cross-validation weather, water temperature, astronomy, and a tide
// fallback. Every method fails closed; a missing API key disables the
// channel entirely.
type EnrichmentClient struct {
	base    *BaseClient
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewEnrichmentClient creates the enrichment adapter. An empty apiKey yields
// a client whose every call reports the channel unavailable.
func NewEnrichmentClient(base *BaseClient, baseURL, apiKey string, logger *slog.Logger) *EnrichmentClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichmentClient{base: base, baseURL: baseURL, apiKey: apiKey, logger: logger}
}

// Enabled reports whether the channel is configured at all.
func (p *EnrichmentClient) Enabled() bool {
	return p.apiKey != ""
}

func (p *EnrichmentClient) header() http.Header {
	h := http.Header{}
	h.Set("X-Api-Key", p.apiKey)
	return h
}

// CrossCheckWeather asks the proxy's independent weather feed whether it
// agrees with the primary channel at the location.
func (p *EnrichmentClient) CrossCheckWeather(ctx context.Context, lat, lon float64) *bool {
	if !p.Enabled() {
		return nil
	}
	var payload struct {
		Agrees bool `json:"agrees"`
	}
	u := fmt.Sprintf("%s/v1/weather/crosscheck?%s", p.baseURL, coordQuery(lat, lon, 0))
	if err := p.base.GetJSON(ctx, u, p.header(), &payload); err != nil {
		p.logger.WarnContext(ctx, "weather cross-check unavailable", "error", err)
		return nil
	}
	return &payload.Agrees
}

// WaterTemperature returns hourly sea-surface temperature readings, or nil.
func (p *EnrichmentClient) WaterTemperature(ctx context.Context, lat, lon float64, days int) []types.Sample {
	if !p.Enabled() {
		return nil
	}
	var payload struct {
		Hourly struct {
			Time []int64    `json:"time"`
			SST  []*float64 `json:"sea_surface_temperature"`
		} `json:"hourly"`
	}
	u := fmt.Sprintf("%s/v1/water-temperature?%s", p.baseURL, coordQuery(lat, lon, days))
	if err := p.base.GetJSON(ctx, u, p.header(), &payload); err != nil {
		p.logger.WarnContext(ctx, "water temperature channel unavailable", "error", err)
		return nil
	}

	samples := make([]types.Sample, 0, len(payload.Hourly.Time))
	for i, unix := range payload.Hourly.Time {
		samples = append(samples, types.Sample{
			Timestamp:       time.Unix(unix, 0).UTC(),
			SeaSurfaceTempC: at(payload.Hourly.SST, i),
		})
	}
	return samples
}

// Astronomy returns sun/moon days keyed by calendar date, or nil.
func (p *EnrichmentClient) Astronomy(ctx context.Context, lat, lon float64, days int) map[string]types.AstronomyDay {
	if !p.Enabled() {
		return nil
	}
	var payload struct {
		Days []struct {
			Date             string   `json:"date"`
			Sunrise          int64    `json:"sunrise"`
			Sunset           int64    `json:"sunset"`
			Moonrise         *int64   `json:"moonrise"`
			Moonset          *int64   `json:"moonset"`
			MoonTransit      *int64   `json:"moon_transit"`
			MoonIllumination *float64 `json:"moon_illumination"`
		} `json:"days"`
	}
	u := fmt.Sprintf("%s/v1/astronomy?%s", p.baseURL, coordQuery(lat, lon, days))
	if err := p.base.GetJSON(ctx, u, p.header(), &payload); err != nil {
		p.logger.WarnContext(ctx, "astronomy channel unavailable", "error", err)
		return nil
	}

	out := make(map[string]types.AstronomyDay, len(payload.Days))
	for _, d := range payload.Days {
		out[d.Date] = types.AstronomyDay{
			Date:             d.Date,
			Sunrise:          time.Unix(d.Sunrise, 0).UTC(),
			Sunset:           time.Unix(d.Sunset, 0).UTC(),
			Moonrise:         unixPtr(d.Moonrise),
			Moonset:          unixPtr(d.Moonset),
			MoonTransit:      unixPtr(d.MoonTransit),
			MoonIllumination: d.MoonIllumination,
		}
	}
	return out
}

// TideFallback returns the proxy's raw tide payload, or nil.
func (p *EnrichmentClient) TideFallback(ctx context.Context, lat, lon float64) *FallbackTide {
	if !p.Enabled() {
		return nil
	}
	var payload struct {
		Extremes []struct {
			Type    string  `json:"type"`
			Time    int64   `json:"time"`
			HeightM float64 `json:"height_m"`
		} `json:"extremes"`
		Levels []struct {
			Time    int64   `json:"time"`
			HeightM float64 `json:"height_m"`
		} `json:"levels"`
	}
	u := fmt.Sprintf("%s/v1/tides?%s", p.baseURL, coordQuery(lat, lon, 0))
	if err := p.base.GetJSON(ctx, u, p.header(), &payload); err != nil {
		p.logger.WarnContext(ctx, "tide fallback channel unavailable", "error", err)
		return nil
	}
	if len(payload.Extremes) == 0 {
		return nil
	}

	out := &FallbackTide{Source: "enrichment-proxy"}
	for _, e := range payload.Extremes {
		out.Extremes = append(out.Extremes, types.TideExtreme{
			Type:    types.ExtremeType(e.Type),
			Time:    time.Unix(e.Time, 0).UTC(),
			HeightM: e.HeightM,
		})
	}
	for _, l := range payload.Levels {
		out.Levels = append(out.Levels, TideLevel{Time: time.Unix(l.Time, 0).UTC(), HeightM: l.HeightM})
	}
	return out
}

func coordQuery(lat, lon float64, days int) string {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", lat))
	values.Set("lon", fmt.Sprintf("%.4f", lon))
	if days > 0 {
		values.Set("days", fmt.Sprintf("%d", days))
	}
	return values.Encode()
}

func unixPtr(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
