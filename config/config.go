package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App       AppConfig
	Bootstrap BootstrapConfig
	Curve     CurveConfig
	API       APIConfig
	Metrics   MetricsConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
}

// General application configuration
type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string `mapstructure:"log_level"`
}

// BootstrapConfig holds solver and curve construction parameters.
type BootstrapConfig struct {
	// Accuracy is the solver tolerance per node and the convergence loop tolerance.
	Accuracy float64
	// MaxPasses caps the convergence loop.
	MaxPasses int `mapstructure:"max_passes"`
	// MaxAttempts is the number of bracket widenings before the unbracketed fallback.
	MaxAttempts int `mapstructure:"max_attempts"`
	// MaxEvaluations caps objective calls per node solve.
	MaxEvaluations int `mapstructure:"max_evaluations"`
	// MaxRate is the rate cap of the first bracket.
	MaxRate float64 `mapstructure:"max_rate"`
	// MinDiscountFactor is the floor of the fallback search on discount factors.
	MinDiscountFactor float64 `mapstructure:"min_discount_factor"`
}

// CurveConfig holds defaults for curves that leave a field unset in the snapshot.
type CurveConfig struct {
	Traits        string
	Interpolation string
	DayCounter    string `mapstructure:"day_counter"`
	Extrapolation bool
}

// Configuration for the HTTP API
type APIConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Configuration for metrics
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// Configuration for the curve archive. An empty path disables it.
type StoreConfig struct {
	Path string
}

// Configuration for scheduled rebuilds
type SchedulerConfig struct {
	Cron        string
	Snapshot    string
	Concurrency int
}

// Addr returns host:port of the API server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Loads the configuration from a file and environment variables. An empty
// path searches ./config for config.yaml; a missing file falls back to defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CURVEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the bootstrapper cannot run with.
func (c *Config) Validate() error {
	b := c.Bootstrap
	switch {
	case !(b.Accuracy > 0):
		return fmt.Errorf("config.Validate: bootstrap.accuracy must be positive, got %g", b.Accuracy)
	case b.MaxPasses < 1:
		return fmt.Errorf("config.Validate: bootstrap.max_passes must be at least 1, got %d", b.MaxPasses)
	case b.MaxAttempts < 1:
		return fmt.Errorf("config.Validate: bootstrap.max_attempts must be at least 1, got %d", b.MaxAttempts)
	case b.MaxEvaluations < 1:
		return fmt.Errorf("config.Validate: bootstrap.max_evaluations must be at least 1, got %d", b.MaxEvaluations)
	case !(b.MaxRate > 0):
		return fmt.Errorf("config.Validate: bootstrap.max_rate must be positive, got %g", b.MaxRate)
	case c.Scheduler.Concurrency < 1:
		return fmt.Errorf("config.Validate: scheduler.concurrency must be at least 1, got %d", c.Scheduler.Concurrency)
	}
	return nil
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults are always decodable
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "curvekit")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Bootstrap defaults
	v.SetDefault("bootstrap.accuracy", 1e-12)
	v.SetDefault("bootstrap.max_passes", 100)
	v.SetDefault("bootstrap.max_attempts", 1)
	v.SetDefault("bootstrap.max_evaluations", 100)
	v.SetDefault("bootstrap.max_rate", 1.0)
	v.SetDefault("bootstrap.min_discount_factor", 1e-9)

	// Curve defaults
	v.SetDefault("curve.traits", "discount")
	v.SetDefault("curve.interpolation", "log-linear")
	v.SetDefault("curve.day_counter", "ACT/365F")
	v.SetDefault("curve.extrapolation", false)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")
	v.SetDefault("api.shutdown_timeout", "15s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	// Store defaults
	v.SetDefault("store.path", "")

	// Scheduler defaults
	v.SetDefault("scheduler.cron", "*/15 * * * *")
	v.SetDefault("scheduler.snapshot", "./config/market.yaml")
	v.SetDefault("scheduler.concurrency", 4)
}

func GetConfigPath() string {
	configPath := os.Getenv("CURVEKIT_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
