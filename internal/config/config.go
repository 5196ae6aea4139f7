// Package config defines the service configuration. Configuration is loaded
// once at process start and is immutable thereafter; code and configuration
// stay strictly separated, and any missing required value or invalid format
// aborts startup immediately.
//
// Values are resolved OS environment first, then a local .env file.
package config

import (
	"time"

	"railwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used for sensitive configuration values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the specific subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"railwatch-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Weather       WeatherConfig
	Operator      OperatorConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds connection and pool tuning parameters for the
// prediction log store.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-northeast-1"`

	// SuspensionAlertQueue receives alert messages when a route transitions
	// into a suspended state.
	SuspensionAlertQueue string `envconfig:"SQS_SUSPENSION_ALERTS" validate:"required,url"`

	// EndpointURL points SDK clients at LocalStack during local development.
	// Empty in real deployments.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// WeatherConfig holds the hourly forecast provider settings.
type WeatherConfig struct {
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com/v1/forecast"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// OperatorConfig holds the operator status feed settings. The feed is
// published per area; BaseURL is the prefix the area name is appended to.
type OperatorConfig struct {
	BaseURL string        `envconfig:"OPERATOR_STATUS_URL" default:"https://www3.jrhokkaido.co.jp/webunkou"`
	Timeout time.Duration `envconfig:"OPERATOR_TIMEOUT" default:"10s"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"RailWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
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
