package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/dq-cli/internal/rules"
)

// Config holds the full application configuration.
type Config struct {
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Rules     RulesConfig     `yaml:"rules" mapstructure:"rules"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig selects and tunes the geocoding providers.
type GeocodeConfig struct {
	// Provider is one of geoapify, google, cascade or stub.
	Provider          string         `yaml:"provider" mapstructure:"provider"`
	Language          string         `yaml:"language" mapstructure:"language"`
	RequestsPerSecond float64        `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int            `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts     int            `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs    int            `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold  int            `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	Geoapify          ProviderConfig `yaml:"geoapify" mapstructure:"geoapify"`
	Google            ProviderConfig `yaml:"google" mapstructure:"google"`
}

// ProviderConfig holds credentials for one HTTP provider.
type ProviderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RulesConfig holds the validation thresholds. When Region is set the named
// profile from ProfilesPath replaces the inline values.
type RulesConfig struct {
	MinLat                 float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat                 float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLon                 float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon                 float64 `yaml:"max_lon" mapstructure:"max_lon"`
	ConfidenceThreshold    float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	DiscrepancyThresholdKm float64 `yaml:"discrepancy_threshold_km" mapstructure:"discrepancy_threshold_km"`
	Country                string  `yaml:"country" mapstructure:"country"`
	H3Resolution           int     `yaml:"h3_resolution" mapstructure:"h3_resolution"`
	Region                 string  `yaml:"region" mapstructure:"region"`
	ProfilesPath           string  `yaml:"profiles_path" mapstructure:"profiles_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
	Limit       int  `yaml:"limit" mapstructure:"limit"`
	Geocode     bool `yaml:"geocode" mapstructure:"geocode"`
	Reverse     bool `yaml:"reverse" mapstructure:"reverse"`
}

// AnthropicConfig configures the building attribute estimator.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, the config file and the environment.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider variable names.
	_ = v.BindEnv("geocode.geoapify.key", "DQ_GEOCODE_GEOAPIFY_KEY", "GEOAPIFY_API_KEY")
	_ = v.BindEnv("geocode.google.key", "DQ_GEOCODE_GOOGLE_KEY", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("anthropic.key", "DQ_ANTHROPIC_KEY", "ANTHROPIC_API_KEY")

	// Defaults
	v.SetDefault("geocode.provider", "geoapify")
	v.SetDefault("geocode.language", "de")
	v.SetDefault("geocode.requests_per_second", 1.0)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.retry_attempts", 3)
	v.SetDefault("geocode.retry_backoff_ms", 500)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.geoapify.key", "")
	v.SetDefault("geocode.geoapify.base_url", "https://api.geoapify.com/v1/geocode")
	v.SetDefault("geocode.google.key", "")
	v.SetDefault("geocode.google.base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("rules.min_lat", rules.DefaultMinLat)
	v.SetDefault("rules.max_lat", rules.DefaultMaxLat)
	v.SetDefault("rules.min_lon", rules.DefaultMinLon)
	v.SetDefault("rules.max_lon", rules.DefaultMaxLon)
	v.SetDefault("rules.confidence_threshold", rules.DefaultConfidenceThreshold)
	v.SetDefault("rules.discrepancy_threshold_km", rules.DefaultDiscrepancyThresholdKm)
	v.SetDefault("rules.country", rules.DefaultCountry)
	v.SetDefault("rules.h3_resolution", rules.DefaultH3Resolution)
	v.SetDefault("rules.region", "")
	v.SetDefault("rules.profiles_path", "regions.yaml")
	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.limit", 0)
	v.SetDefault("batch.geocode", true)
	v.SetDefault("batch.reverse", true)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 300)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dq.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "validate":
		errs = append(errs, c.validateRules()...)
		errs = append(errs, c.validateBatch()...)
		errs = append(errs, c.validateGeocode()...)
	case "audit", "runs":
	case "building":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Anthropic.MaxTokens <= 0 {
			errs = append(errs, "anthropic.max_tokens must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateRules()...)
		errs = append(errs, c.validateBatch()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateRules() []string {
	var errs []string
	if c.Rules.Region == "" {
		if err := c.Rules.Inline().Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if c.Rules.H3Resolution < 0 || c.Rules.H3Resolution > 15 {
		errs = append(errs, "rules.h3_resolution must be between 0 and 15")
	}
	return errs
}

func (c *Config) validateBatch() []string {
	var errs []string
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, "batch.concurrency must be between 1 and 64")
	}
	if c.Batch.Limit < 0 {
		errs = append(errs, "batch.limit must be >= 0")
	}
	return errs
}

func (c *Config) validateGeocode() []string {
	if !c.Batch.Geocode && !c.Batch.Reverse {
		return nil
	}
	switch c.Geocode.Provider {
	case "stub":
		return nil
	case "geoapify":
		if c.Geocode.Geoapify.Key == "" {
			return []string{"geocode.geoapify.key is required"}
		}
	case "google":
		if c.Geocode.Google.Key == "" {
			return []string{"geocode.google.key is required"}
		}
	case "cascade":
		if c.Geocode.Geoapify.Key == "" && c.Geocode.Google.Key == "" {
			return []string{"geocode.cascade needs geoapify.key or google.key"}
		}
	default:
		return []string{"geocode.provider must be geoapify, google, cascade or stub"}
	}
	return nil
}

// Inline returns the rules described directly in the config.
func (r RulesConfig) Inline() rules.Rules {
	return rules.Rules{
		Box: rules.BoundingBox{
			MinLat: r.MinLat,
			MaxLat: r.MaxLat,
			MinLon: r.MinLon,
			MaxLon: r.MaxLon,
		},
		ConfidenceThreshold:    r.ConfidenceThreshold,
		DiscrepancyThresholdKm: r.DiscrepancyThresholdKm,
		Country:                r.Country,
	}
}

// Resolve returns the effective rules: the named region profile when Region
// is set, otherwise the inline values.
func (r RulesConfig) Resolve() (rules.Rules, error) {
	if r.Region == "" {
		out := r.Inline()
		return out, out.Validate()
	}
	profiles, err := rules.LoadProfiles(r.ProfilesPath)
	if err != nil {
		return rules.Rules{}, err
	}
	return profiles.Lookup(r.Region)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
