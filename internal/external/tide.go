package external

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"fishcast/internal/types"
)

// predictionWindow is how far around "now" the adapter requests extremes and
// levels. Two tidal cycles on each side is enough to bracket any instant.
const predictionWindow = 24 * time.Hour

// TideAuthority is the authoritative tide adapter. Both lookups fail closed:
// a nil TideState means the channel is unavailable or no station was found.
type TideAuthority struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewTideAuthority creates the authoritative tide adapter.
func NewTideAuthority(base *BaseClient, baseURL string, logger *slog.Logger) *TideAuthority {
	if logger == nil {
		logger = slog.Default()
	}
	return &TideAuthority{base: base, baseURL: baseURL, logger: logger}
}

type tideStationPayload struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

type tideStationListPayload struct {
	Stations []tideStationPayload `json:"stations"`
}

type tidePredictionsPayload struct {
	Extremes []struct {
		Type    string  `json:"type"` // "high" | "low"
		Time    int64   `json:"time"`
		HeightM float64 `json:"height_m"`
	} `json:"extremes"`
	Levels []struct {
		Time    int64   `json:"time"`
		HeightM float64 `json:"height_m"`
	} `json:"levels"`
}

// StationState fetches the tide state for an explicit station code.
func (p *TideAuthority) StationState(ctx context.Context, code string, lat, lon float64, at time.Time) *types.TideState {
	var station tideStationPayload
	u := fmt.Sprintf("%s/v1/stations/%s", p.baseURL, url.PathEscape(code))
	if err := p.base.GetJSON(ctx, u, nil, &station); err != nil {
		p.logger.WarnContext(ctx, "tide station lookup failed", "station", code, "error", err)
		return nil
	}

	distance := HaversineKm(lat, lon, station.Lat, station.Lon)
	return p.stateFor(ctx, station, &distance, at)
}

// NearestState finds the nearest station within radiusKm and fetches its state.
func (p *TideAuthority) NearestState(ctx context.Context, lat, lon, radiusKm float64, at time.Time) *types.TideState {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%.4f", lat))
	values.Set("lon", fmt.Sprintf("%.4f", lon))
	values.Set("radius_km", fmt.Sprintf("%.1f", radiusKm))

	var payload tideStationListPayload
	u := fmt.Sprintf("%s/v1/stations?%s", p.baseURL, values.Encode())
	if err := p.base.GetJSON(ctx, u, nil, &payload); err != nil {
		p.logger.WarnContext(ctx, "tide station search failed", "error", err)
		return nil
	}
	if len(payload.Stations) == 0 {
		p.logger.InfoContext(ctx, "no tide station within radius",
			"lat", lat, "lon", lon, "radius_km", radiusKm)
		return nil
	}

	nearest := payload.Stations[0]
	for _, st := range payload.Stations[1:] {
		if st.DistanceKm < nearest.DistanceKm {
			nearest = st
		}
	}
	if nearest.DistanceKm > radiusKm {
		return nil
	}
	distance := nearest.DistanceKm
	return p.stateFor(ctx, nearest, &distance, at)
}

// stateFor fetches predictions for a station and assembles the TideState.
func (p *TideAuthority) stateFor(ctx context.Context, station tideStationPayload, distanceKm *float64, at time.Time) *types.TideState {
	values := url.Values{}
	values.Set("from", fmt.Sprintf("%d", at.Add(-predictionWindow).Unix()))
	values.Set("to", fmt.Sprintf("%d", at.Add(predictionWindow).Unix()))

	var payload tidePredictionsPayload
	u := fmt.Sprintf("%s/v1/stations/%s/predictions?%s", p.baseURL, url.PathEscape(station.ID), values.Encode())
	if err := p.base.GetJSON(ctx, u, nil, &payload); err != nil {
		p.logger.WarnContext(ctx, "tide predictions fetch failed", "station", station.ID, "error", err)
		return nil
	}

	extremes := make([]types.TideExtreme, 0, len(payload.Extremes))
	for _, e := range payload.Extremes {
		extremes = append(extremes, types.TideExtreme{
			Type:    types.ExtremeType(e.Type),
			Time:    time.Unix(e.Time, 0).UTC(),
			HeightM: e.HeightM,
		})
	}
	levels := make([]TideLevel, 0, len(payload.Levels))
	for _, l := range payload.Levels {
		levels = append(levels, TideLevel{Time: time.Unix(l.Time, 0).UTC(), HeightM: l.HeightM})
	}

	state := BuildTideState(extremes, levels, at)
	if state == nil {
		p.logger.WarnContext(ctx, "tide predictions did not bracket request time", "station", station.ID)
		return nil
	}
	state.StationID = station.ID
	state.StationName = station.Name
	state.StationDistanceKm = distanceKm
	state.Source = types.TideSourceAuthoritative
	return state
}

// BuildTideState pairs extreme events with a continuous level series into a
// TideState: the next/previous extremes bracket "at", range is their height
// delta, rate is range over the hours between them (signed by direction),
// and rising means the next extreme is a high. Returns nil when the extremes
// do not bracket the instant. The same construction serves the fallback
// channel, which delivers identical raw material.
func BuildTideState(extremes []types.TideExtreme, levels []TideLevel, at time.Time) *types.TideState {
	var prev, next *types.TideExtreme
	for i := range extremes {
		e := extremes[i]
		if !e.Time.After(at) {
			if prev == nil || e.Time.After(prev.Time) {
				prev = &extremes[i]
			}
		} else {
			if next == nil || e.Time.Before(next.Time) {
				next = &extremes[i]
			}
		}
	}
	if prev == nil || next == nil {
		return nil
	}

	rangeM := math.Abs(next.HeightM - prev.HeightM)
	hours := next.Time.Sub(prev.Time).Hours()
	rate := 0.0
	if hours > 0 {
		rate = (next.HeightM - prev.HeightM) / hours
	}

	state := &types.TideState{
		WaterLevelM:  levelAt(levels, at, prev, next),
		NextExtreme:  next,
		PrevExtreme:  prev,
		RangeM:       rangeM,
		RateMPerHour: rate,
		Rising:       next.Type == types.ExtremeHigh,
	}
	return state
}

// levelAt picks the level reading nearest to the instant, falling back to a
// linear estimate between the bracketing extremes when no series exists.
func levelAt(levels []TideLevel, at time.Time, prev, next *types.TideExtreme) float64 {
	if len(levels) == 0 {
		span := next.Time.Sub(prev.Time)
		if span <= 0 {
			return prev.HeightM
		}
		frac := float64(at.Sub(prev.Time)) / float64(span)
		return prev.HeightM + (next.HeightM-prev.HeightM)*frac
	}

	best := levels[0]
	bestDiff := absDuration(at.Sub(best.Time))
	for _, l := range levels[1:] {
		if d := absDuration(at.Sub(l.Time)); d < bestDiff {
			best, bestDiff = l, d
		}
	}
	return best.HeightM
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
