package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognised by ApplyEnvironmentOverrides.
const (
	EnvWidth      = "ORBITWAR_WIDTH"
	EnvHeight     = "ORBITWAR_HEIGHT"
	EnvBoundary   = "ORBITWAR_BOUNDARY"
	EnvTickBudget = "ORBITWAR_TICK_BUDGET"
	EnvPlanets    = "ORBITWAR_PLANETS"
	EnvSpinners   = "ORBITWAR_SPINNERS"
	EnvAsteroids  = "ORBITWAR_ASTEROIDS"
	EnvRewards    = "ORBITWAR_REWARDS"
	EnvLogLevel   = "ORBITWAR_LOG_LEVEL"
	EnvLogFormat  = "ORBITWAR_LOG_FORMAT"
)

// ApplyEnvironmentOverrides overlays ORBITWAR_* environment variables onto
// cfg and validates the result.
func ApplyEnvironmentOverrides(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	cfg.World.Width = getEnvAsFloatOrDefault(EnvWidth, cfg.World.Width)
	cfg.World.Height = getEnvAsFloatOrDefault(EnvHeight, cfg.World.Height)
	if mode := getEnvOrDefault(EnvBoundary, ""); mode != "" {
		cfg.World.Boundary = BoundaryMode(strings.ToLower(mode))
	}
	cfg.Timing.TickBudget.Duration = getEnvAsDurationOrDefault(EnvTickBudget, cfg.Timing.TickBudget.Duration)
	cfg.Setup.Planets = getEnvAsIntOrDefault(EnvPlanets, cfg.Setup.Planets)
	cfg.Setup.Spinners = getEnvAsIntOrDefault(EnvSpinners, cfg.Setup.Spinners)
	cfg.Setup.Asteroids = getEnvAsIntOrDefault(EnvAsteroids, cfg.Setup.Asteroids)
	cfg.Setup.Rewards = getEnvAsIntOrDefault(EnvRewards, cfg.Setup.Rewards)
	cfg.Logging.Level = getEnvOrDefault(EnvLogLevel, cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault(EnvLogFormat, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
