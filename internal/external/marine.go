package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"fishcast/internal/types"
)

const hourlyMarineVars = "sea_surface_temperature,wave_height,wave_period," +
	"wave_direction,swell_wave_height,swell_wave_period,swell_wave_direction," +
	"ocean_current_velocity,ocean_current_direction"

// OpenMeteoMarine is the marine enrichment adapter. It fails closed: any
// upstream problem yields a nil series and a warning log, never an error.
type OpenMeteoMarine struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewOpenMeteoMarine creates the marine adapter. baseURL is the marine API
// root, e.g. https://marine-api.open-meteo.com.
func NewOpenMeteoMarine(base *BaseClient, baseURL string, logger *slog.Logger) *OpenMeteoMarine {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoMarine{base: base, baseURL: baseURL, logger: logger}
}

type openMeteoMarinePayload struct {
	Hourly struct {
		Time                  []int64    `json:"time"`
		SeaSurfaceTemperature []*float64 `json:"sea_surface_temperature"`
		WaveHeight            []*float64 `json:"wave_height"`
		WavePeriod            []*float64 `json:"wave_period"`
		WaveDirection         []*float64 `json:"wave_direction"`
		SwellWaveHeight       []*float64 `json:"swell_wave_height"`
		SwellWavePeriod       []*float64 `json:"swell_wave_period"`
		SwellWaveDirection    []*float64 `json:"swell_wave_direction"`
		OceanCurrentVelocity  []*float64 `json:"ocean_current_velocity"`
		OceanCurrentDirection []*float64 `json:"ocean_current_direction"`
	} `json:"hourly"`
}

// FetchMarine retrieves the hourly sea/wave/current series, or nil when the
// channel is unavailable.
func (p *OpenMeteoMarine) FetchMarine(ctx context.Context, lat, lon float64, days int) []types.Sample {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("hourly", hourlyMarineVars)
	values.Set("forecast_days", fmt.Sprintf("%d", days))
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "UTC")

	var payload openMeteoMarinePayload
	u := fmt.Sprintf("%s/v1/marine?%s", p.baseURL, values.Encode())
	if err := p.base.GetJSON(ctx, u, nil, &payload); err != nil {
		p.logger.WarnContext(ctx, "marine channel unavailable", "error", err)
		return nil
	}
	if len(payload.Hourly.Time) == 0 {
		p.logger.WarnContext(ctx, "marine channel returned empty series")
		return nil
	}

	samples := make([]types.Sample, 0, len(payload.Hourly.Time))
	for i, unix := range payload.Hourly.Time {
		s := types.Sample{Timestamp: time.Unix(unix, 0).UTC()}
		s.SeaSurfaceTempC = at(payload.Hourly.SeaSurfaceTemperature, i)
		s.WaveHeightM = at(payload.Hourly.WaveHeight, i)
		s.WavePeriodS = at(payload.Hourly.WavePeriod, i)
		s.WaveDirectionDeg = at(payload.Hourly.WaveDirection, i)
		s.SwellHeightM = at(payload.Hourly.SwellWaveHeight, i)
		s.SwellPeriodS = at(payload.Hourly.SwellWavePeriod, i)
		s.SwellDirectionDeg = at(payload.Hourly.SwellWaveDirection, i)
		s.CurrentSpeedMS = kmhToMS(at(payload.Hourly.OceanCurrentVelocity, i))
		s.CurrentDirectionDeg = at(payload.Hourly.OceanCurrentDirection, i)
		samples = append(samples, s)
	}
	return samples
}

// kmhToMS converts the provider's km/h current velocity to m/s.
func kmhToMS(v *float64) *float64 {
	if v == nil {
		return nil
	}
	ms := *v / 3.6
	return &ms
}
