// Package config defines the global configuration structure for the fishcast
// service. Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor principles: OS environment wins over a
// local .env file, and any missing required value or invalid format fails
// the process immediately.
package config

import (
	"time"

	"fishcast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"fishcast-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server     ServerConfig
	Database   DatabaseConfig
	Weather    WeatherConfig
	Marine     MarineConfig
	Tide       TideConfig
	Enrichment EnrichmentConfig
	Cache      CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds cache-store connection and pool tuning parameters.
// The URL is optional: when empty the forecast cache runs disabled and the
// service degrades to recomputing every request.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// WeatherConfig holds the primary weather channel settings. This is the one
// channel whose failure is fatal to a forecast request.
type WeatherConfig struct {
	BaseURL      string        `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com" validate:"url"`
	Timeout      time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
	ForecastDays int           `envconfig:"WEATHER_FORECAST_DAYS" default:"7" validate:"min=1,max=14"`
}

// MarineConfig holds the marine enrichment channel settings.
type MarineConfig struct {
	BaseURL string        `envconfig:"MARINE_BASE_URL" default:"https://marine-api.open-meteo.com" validate:"url"`
	Timeout time.Duration `envconfig:"MARINE_TIMEOUT" default:"10s"`
	Days    int           `envconfig:"MARINE_FORECAST_DAYS" default:"7" validate:"min=1,max=14"`
}

// TideConfig holds the authoritative tide channel settings.
type TideConfig struct {
	BaseURL     string        `envconfig:"TIDE_BASE_URL" validate:"required,url"`
	Timeout     time.Duration `envconfig:"TIDE_TIMEOUT" default:"8s"`
	MaxRadiusKm float64       `envconfig:"TIDE_MAX_RADIUS_KM" default:"25"`
	StationCode string        `envconfig:"TIDE_STATION_CODE"`
}

// EnrichmentConfig holds the secondary enrichment channel settings
// (cross-check, water temperature, astronomy, tide fallback). An empty API
// key disables the channel entirely.
type EnrichmentConfig struct {
	BaseURL string        `envconfig:"ENRICHMENT_BASE_URL" validate:"omitempty,url"`
	APIKey  SecretString  `envconfig:"ENRICHMENT_API_KEY"`
	Timeout time.Duration `envconfig:"ENRICHMENT_TIMEOUT" default:"8s"`
}

// CacheConfig holds forecast cache sizing.
type CacheConfig struct {
	DefaultTTL time.Duration `envconfig:"CACHE_DEFAULT_TTL" default:"6h"`
	MaxEntries int64         `envconfig:"CACHE_MAX_ENTRIES" default:"1000" validate:"min=1"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
