// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration for an embedding application
// or for the package's own command-line tools.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Solver  SolverConfig  `koanf:"solver"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Cache   CacheConfig   `koanf:"cache"`
}

// AppConfig holds general application metadata.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
}

// SolverConfig holds solver tunables loaded by Loader and checked by
// Validate. The solver packages do not read it: a field takes effect only
// where a caller passes it to a solver setter, and Alpha,
// GlobalUpdateFrequency and MaxIterations have no such setter.
type SolverConfig struct {
	// Alpha is a cost-scaling factor between successive epsilon
	// refinements. Must be > 1. mincostflow.Solver divides epsilon by its
	// own fixed factor.
	Alpha float64 `koanf:"alpha"`

	// PriceScalingEnabled is a default for mincostflow's SetPriceScaling,
	// which multiplies arc costs by num_nodes+1 before cost scaling.
	PriceScalingEnabled bool `koanf:"price_scaling_enabled"`

	// FeasibilityCheckEnabled is a default for mincostflow's
	// SetCheckFeasibility, which runs a max-flow feasibility probe before
	// the cost-scaling phase.
	FeasibilityCheckEnabled bool `koanf:"feasibility_check_enabled"`

	// GlobalUpdateFrequency is a global-update cadence expressed as a
	// divisor of node count. Must be positive. The solvers use their own
	// fixed cadence.
	GlobalUpdateFrequency int `koanf:"global_update_frequency"`

	// MaxIterations is an iteration bound, zero meaning unbounded. No
	// solver in this module has an iteration limit.
	MaxIterations int `koanf:"max_iterations"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int  `koanf:"max_size"` // MB
	MaxBackups int  `koanf:"max_backups"`
	MaxAge     int  `koanf:"max_age"` // days
	Compress   bool `koanf:"compress"`
}

// MetricsConfig configures Prometheus metric registration. The package
// never starts its own HTTP server; it only registers collectors against
// a caller-supplied registry.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures OpenTelemetry span emission.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig configures the optional solve-result cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // in-memory driver only
}

// Address returns the host:port address of the cache backend.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Solver.Alpha <= 1 {
		errs = append(errs, fmt.Sprintf("solver.alpha must be > 1, got %v", c.Solver.Alpha))
	}

	if c.Solver.GlobalUpdateFrequency <= 0 {
		errs = append(errs, fmt.Sprintf("solver.global_update_frequency must be positive, got %d", c.Solver.GlobalUpdateFrequency))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Cache.Enabled {
		validDrivers := map[string]bool{"redis": true, "memory": true}
		if !validDrivers[c.Cache.Driver] {
			errs = append(errs, fmt.Sprintf("cache.driver must be one of: redis, memory, got %s", c.Cache.Driver))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app environment is a development one.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app environment is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
