package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"fishcast/internal/types"
)

// hourlyWeatherVars are the Open-Meteo hourly variables the engine consumes.
const hourlyWeatherVars = "temperature_2m,pressure_msl,wind_speed_10m," +
	"wind_gusts_10m,wind_direction_10m,precipitation,cloud_cover,visibility," +
	"sunshine_duration,cape,lightning_potential"

// OpenMeteoWeather is the primary weather adapter. Unlike every other
// channel it does not fail closed: a dead primary feed is the one condition
// that aborts an aggregation.
type OpenMeteoWeather struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewOpenMeteoWeather creates the primary weather adapter. baseURL is the
// provider root without a trailing slash, e.g. https://api.open-meteo.com.
func NewOpenMeteoWeather(base *BaseClient, baseURL string, logger *slog.Logger) *OpenMeteoWeather {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenMeteoWeather{base: base, baseURL: baseURL, logger: logger}
}

// openMeteoForecastPayload mirrors the provider's JSON shape with
// timeformat=unixtime. Nullable hourly entries decode to nil pointers.
type openMeteoForecastPayload struct {
	Hourly struct {
		Time             []int64    `json:"time"`
		Temperature2M    []*float64 `json:"temperature_2m"`
		PressureMSL      []*float64 `json:"pressure_msl"`
		WindSpeed10M     []*float64 `json:"wind_speed_10m"`
		WindGusts10M     []*float64 `json:"wind_gusts_10m"`
		WindDirection10M []*float64 `json:"wind_direction_10m"`
		Precipitation    []*float64 `json:"precipitation"`
		CloudCover       []*float64 `json:"cloud_cover"`
		Visibility       []*float64 `json:"visibility"`
		SunshineDuration []*float64 `json:"sunshine_duration"`
		CAPE             []*float64 `json:"cape"`
		LightningPoten   []*float64 `json:"lightning_potential"`
	} `json:"hourly"`
	Daily struct {
		Time    []int64 `json:"time"`
		Sunrise []int64 `json:"sunrise"`
		Sunset  []int64 `json:"sunset"`
	} `json:"daily"`
}

// FetchForecast retrieves the hourly weather series plus daily sun times.
func (p *OpenMeteoWeather) FetchForecast(ctx context.Context, lat, lon float64, days int) (*WeatherResult, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", lat))
	values.Set("longitude", fmt.Sprintf("%.4f", lon))
	values.Set("hourly", hourlyWeatherVars)
	values.Set("daily", "sunrise,sunset")
	values.Set("forecast_days", fmt.Sprintf("%d", days))
	values.Set("wind_speed_unit", "ms")
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "UTC")

	var payload openMeteoForecastPayload
	u := fmt.Sprintf("%s/v1/forecast?%s", p.baseURL, values.Encode())
	if err := p.base.GetJSON(ctx, u, nil, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "primary weather fetch failed", err)
	}
	if len(payload.Hourly.Time) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "primary weather returned empty series", nil)
	}

	samples := make([]types.Sample, 0, len(payload.Hourly.Time))
	for i, unix := range payload.Hourly.Time {
		s := types.Sample{Timestamp: time.Unix(unix, 0).UTC()}
		s.TemperatureC = at(payload.Hourly.Temperature2M, i)
		s.PressureHPa = at(payload.Hourly.PressureMSL, i)
		s.WindSpeedMS = at(payload.Hourly.WindSpeed10M, i)
		s.WindGustMS = at(payload.Hourly.WindGusts10M, i)
		s.WindDirectionDeg = at(payload.Hourly.WindDirection10M, i)
		s.PrecipitationMM = at(payload.Hourly.Precipitation, i)
		s.CloudCoverPct = at(payload.Hourly.CloudCover, i)
		s.VisibilityM = at(payload.Hourly.Visibility, i)
		s.SunshineDurationS = at(payload.Hourly.SunshineDuration, i)
		s.CAPE = at(payload.Hourly.CAPE, i)
		s.LightningPoten = at(payload.Hourly.LightningPoten, i)
		samples = append(samples, s)
	}

	sunDays := make(map[string]SunTimes, len(payload.Daily.Time))
	for i, unix := range payload.Daily.Time {
		if i >= len(payload.Daily.Sunrise) || i >= len(payload.Daily.Sunset) {
			break
		}
		day := time.Unix(unix, 0).UTC()
		sunDays[types.DateKey(day)] = SunTimes{
			Sunrise: time.Unix(payload.Daily.Sunrise[i], 0).UTC(),
			Sunset:  time.Unix(payload.Daily.Sunset[i], 0).UTC(),
		}
	}

	return &WeatherResult{
		Samples: samples,
		SunDays: sunDays,
		Source:  "open-meteo",
	}, nil
}

// at returns the i-th element of a nullable column, or nil when the column
// is shorter than the time axis.
func at(col []*float64, i int) *float64 {
	if i >= len(col) || col[i] == nil {
		return nil
	}
	v := *col[i]
	return &v
}
