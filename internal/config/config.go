package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT" validate:"required,numeric"`
	Env             string        `mapstructure:"ENV" validate:"oneof=development production test"`
	LogLevel        string        `mapstructure:"LOG_LEVEL" validate:"oneof=trace debug info warn error fatal panic disabled"`
	OutputFormat    string        `mapstructure:"OUTPUT_FORMAT" validate:"oneof=text json yaml"`
	MaxDocumentSize string        `mapstructure:"MAX_DOCUMENT_SIZE" validate:"required"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"gte=0"`
	Color           bool          `mapstructure:"COLOR"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY" validate:"omitempty,min=32"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
}

// Load reads configuration from the environment and an optional .env file
// in the working directory, applies defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OUTPUT_FORMAT", "text")
	v.SetDefault("MAX_DOCUMENT_SIZE", "5MB")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("COLOR", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("OUTPUT_FORMAT")
	v.BindEnv("MAX_DOCUMENT_SIZE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("COLOR")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// MaxDocumentBytes parses MAX_DOCUMENT_SIZE ("5MB", "512KiB", "1048576").
func (c *Config) MaxDocumentBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.MaxDocumentSize)
	if err != nil {
		return 0, fmt.Errorf("MAX_DOCUMENT_SIZE %q: %w", c.MaxDocumentSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("MAX_DOCUMENT_SIZE must be positive")
	}
	return int64(n), nil
}

var validate = validator.New()

// Validate checks every field against its allowed values and reports the
// first offending environment variable by name.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if _, err := c.MaxDocumentBytes(); err != nil {
		return err
	}
	return nil
}

var envNames = map[string]string{
	"Port":            "PORT",
	"Env":             "ENV",
	"LogLevel":        "LOG_LEVEL",
	"OutputFormat":    "OUTPUT_FORMAT",
	"MaxDocumentSize": "MAX_DOCUMENT_SIZE",
	"RateLimitRPS":    "RATE_LIMIT_RPS",
	"RateLimitBurst":  "RATE_LIMIT_BURST",
	"RequestTimeout":  "REQUEST_TIMEOUT",
	"AuthSigningKey":  "AUTH_SIGNING_KEY",
}

func fieldError(fe validator.FieldError) error {
	name := envNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", name, fe.Param(), fmt.Sprint(fe.Value()))
	case "required":
		return fmt.Errorf("%s is required", name)
	case "numeric":
		return fmt.Errorf("%s must be numeric, got %q", name, fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Errorf("%s must not be negative", name)
	case "min":
		return fmt.Errorf("%s must be at least %s characters", name, fe.Param())
	}
	return fmt.Errorf("%s is invalid (%s)", name, fe.Tag())
}
