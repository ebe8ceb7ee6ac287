//
//
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load merges LoadBaseline() + optional YAML file + PILOT_* env overrides, then validates.
// An empty path falls back to PILOT_CONFIG; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := LoadBaseline()

	explicit := path != ""
	if !explicit {
		path = GetEnvVar("PILOT_CONFIG", "pilot.yaml")
		explicit = os.Getenv("PILOT_CONFIG") != ""
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg. Keys absent from the file keep their current value.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies PILOT_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	cfg.Vehicle.Addr = GetEnvVar("PILOT_VEHICLE_ADDR", cfg.Vehicle.Addr)
	cfg.Vehicle.LocalAddr = GetEnvVar("PILOT_LOCAL_ADDR", cfg.Vehicle.LocalAddr)
	cfg.Vehicle.SettleMs = durationMs("PILOT_SETTLE_TIME", cfg.Vehicle.SettleMs)

	cfg.Movement.DistanceCm = GetEnvInt("PILOT_MOVE_DISTANCE_CM", cfg.Movement.DistanceCm)
	cfg.Movement.RepeatIntervalMs = durationMs("PILOT_REPEAT_INTERVAL", cfg.Movement.RepeatIntervalMs)

	cfg.Telemetry.PollIntervalMs = durationMs("PILOT_POLL_INTERVAL", cfg.Telemetry.PollIntervalMs)
	cfg.Telemetry.QueryWaitMs = durationMs("PILOT_QUERY_WAIT", cfg.Telemetry.QueryWaitMs)

	cfg.Session.LogDir = GetEnvVar("PILOT_LOG_DIR", cfg.Session.LogDir)
	cfg.Session.LogPrefix = GetEnvVar("PILOT_LOG_PREFIX", cfg.Session.LogPrefix)

	cfg.API.Addr = GetEnvVar("PILOT_API_ADDR", cfg.API.Addr)
	if val := os.Getenv("PILOT_API_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.API.Enabled = enabled
		}
	}
	if secret := os.Getenv("PILOT_AUTH_SECRET"); secret != "" {
		cfg.API.Auth.Algorithm = "HS256"
		cfg.API.Auth.SecretKey = secret
	}

	cfg.Logging.File = GetEnvVar("PILOT_LOG_FILE", cfg.Logging.File)

	cfg.Frontend.Kind = GetEnvVar("PILOT_FRONTEND", cfg.Frontend.Kind)
	cfg.Frontend.HoldReleaseMs = durationMs("PILOT_HOLD_RELEASE", cfg.Frontend.HoldReleaseMs)
	cfg.Frontend.GamepadDevice = GetEnvVar("PILOT_GAMEPAD_DEVICE", cfg.Frontend.GamepadDevice)
}

// durationMs reads a Go duration string ("150ms") and returns whole milliseconds.
func durationMs(key string, current int) int {
	d := GetEnvDuration(key, time.Duration(current)*time.Millisecond)
	return int(d / time.Millisecond)
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration returns the value of an environment variable as a duration with a default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an int with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
