package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/tle"
)

// Predictor backends.
const (
	BackendFlyover = "flyover"
	BackendTLE     = "tle"
)

// Config holds all application configuration.
type Config struct {
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
}

type UpstreamConfig struct {
	IPURL      string `mapstructure:"ip_url"`
	GeoURL     string `mapstructure:"geo_url"`
	FlyoverURL string `mapstructure:"flyover_url"`
	TLEURL     string `mapstructure:"tle_url"`
}

type HTTPConfig struct {
	Timeout int `mapstructure:"timeout"` // seconds
}

// TimeoutDuration returns the upstream request timeout.
func (h HTTPConfig) TimeoutDuration() time.Duration {
	return time.Duration(h.Timeout) * time.Second
}

type PredictorConfig struct {
	Backend      string  `mapstructure:"backend"`
	MaxPasses    int     `mapstructure:"max_passes"`
	HorizonHours float64 `mapstructure:"horizon_hours"`
	MinElevation float64 `mapstructure:"min_elevation"` // degrees
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	TrustProxy bool   `mapstructure:"trust_proxy"`
}

// Load reads configuration from defaults, an optional YAML file, and
// ISS_SPOTTER_* environment variables, in increasing precedence. An empty
// file searches ./iss-spotter.yaml and ./configs/iss-spotter.yaml and
// tolerates neither existing; a named file must be readable.
func Load(file string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("upstream.ip_url", lookup.DefaultIPURL)
	v.SetDefault("upstream.geo_url", lookup.DefaultGeoURL)
	v.SetDefault("upstream.flyover_url", lookup.DefaultFlyoverURL)
	v.SetDefault("upstream.tle_url", tle.DefaultSourceURL)
	v.SetDefault("http.timeout", 30)
	v.SetDefault("predictor.backend", BackendFlyover)
	v.SetDefault("predictor.max_passes", 5)
	v.SetDefault("predictor.horizon_hours", 48)
	v.SetDefault("predictor.min_elevation", 10)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.trust_proxy", false)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("iss-spotter")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: ISS_SPOTTER_UPSTREAM_GEO_URL → upstream.geo_url
	v.SetEnvPrefix("ISS_SPOTTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Upstream.IPURL == "" {
		errs = append(errs, "upstream.ip_url is required")
	}
	if c.Upstream.GeoURL == "" {
		errs = append(errs, "upstream.geo_url is required")
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must not be negative, got %d", c.HTTP.Timeout))
	}

	switch c.Predictor.Backend {
	case BackendFlyover:
		if c.Upstream.FlyoverURL == "" {
			errs = append(errs, "upstream.flyover_url is required for the flyover backend")
		}
	case BackendTLE:
		if c.Upstream.TLEURL == "" {
			errs = append(errs, "upstream.tle_url is required for the tle backend")
		}
		if c.Predictor.MaxPasses < 1 {
			errs = append(errs, fmt.Sprintf("predictor.max_passes must be positive, got %d", c.Predictor.MaxPasses))
		}
		if c.Predictor.HorizonHours <= 0 {
			errs = append(errs, "predictor.horizon_hours must be positive")
		}
		if c.Predictor.MinElevation < 0 || c.Predictor.MinElevation >= 90 {
			errs = append(errs, fmt.Sprintf("predictor.min_elevation must be in [0, 90), got %g", c.Predictor.MinElevation))
		}
	default:
		errs = append(errs, fmt.Sprintf("predictor.backend must be %q or %q, got %q", BackendFlyover, BackendTLE, c.Predictor.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
