// Package config loads service configuration from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"loadgen/internal/load"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Ceilings every load request is clamped against
	MaxCPUThreads int
	MaxMemoryMB   int
	MaxDuration   time.Duration

	// HTTP server port
	HTTPPort int

	LogLevel string

	// OTLP gRPC collector address; empty disables tracing
	OTELEndpoint string

	// Job creation rate limit (requests/second); 0 disables it
	RateLimit      float64
	RateLimitBurst int

	// Number of finalized jobs kept for GET /load/history; 0 disables it
	HistorySize int

	ShutdownTimeout time.Duration
}

// Limits returns the load ceilings with their floors applied.
func (c *Config) Limits() load.Limits {
	return load.Limits{
		MaxThreads:  c.MaxCPUThreads,
		MaxMemoryMB: c.MaxMemoryMB,
		MaxDuration: c.MaxDuration,
	}.Normalize()
}

// Load reads configuration from the file at path (or ./loadgen.yaml when path is empty
// and the file exists), then from environment variables, which take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("max_cpu_threads", runtime.NumCPU())
	v.SetDefault("max_mem_mb", load.DefaultMaxMemoryMB)
	v.SetDefault("max_duration_sec", int(load.DefaultMaxDuration/time.Second))
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("history_size", 100)
	v.SetDefault("shutdown_timeout", "10s")

	// Keys map to upper-case env vars, e.g. max_mem_mb -> MAX_MEM_MB
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("loadgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var (
		cfg Config
		err error
	)

	if cfg.MaxCPUThreads, err = intValue(v, "max_cpu_threads"); err != nil {
		return nil, err
	}
	if cfg.MaxMemoryMB, err = intValue(v, "max_mem_mb"); err != nil {
		return nil, err
	}
	durationSec, err := intValue(v, "max_duration_sec")
	if err != nil {
		return nil, err
	}
	cfg.MaxDuration = time.Duration(durationSec) * time.Second

	if cfg.HTTPPort, err = intValue(v, "port"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = cast.ToFloat64E(v.Get("rate_limit")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT: %w", err)
	}
	if cfg.RateLimitBurst, err = intValue(v, "rate_limit_burst"); err != nil {
		return nil, err
	}
	if cfg.HistorySize, err = intValue(v, "history_size"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = cast.ToDurationE(v.Get("shutdown_timeout")); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.LogLevel = v.GetString("log_level")
	cfg.OTELEndpoint = v.GetString("otel_exporter_otlp_endpoint")

	// Floors are applied silently, like request clamping
	limits := cfg.Limits()
	cfg.MaxCPUThreads = limits.MaxThreads
	cfg.MaxMemoryMB = limits.MaxMemoryMB
	cfg.MaxDuration = limits.MaxDuration

	if cfg.RateLimit < 0 {
		cfg.RateLimit = 0
	}
	if cfg.RateLimitBurst < 1 {
		cfg.RateLimitBurst = 1
	}

	return &cfg, nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return n, nil
}
