//
//
package config

import (
	"time"
)

// Config is the complete pilot configuration.
type Config struct {
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	Movement  MovementConfig  `yaml:"movement"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Session   SessionConfig   `yaml:"session"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Frontend  FrontendConfig  `yaml:"frontend"`
}

// VehicleConfig holds the UDP link settings for the Tello text SDK.
type VehicleConfig struct {
	Addr             string `yaml:"addr"`
	LocalAddr        string `yaml:"localAddr"`
	HandshakeCommand string `yaml:"handshakeCommand"`
	SettleMs         int    `yaml:"settleMs"`
	QueueSize        int    `yaml:"queueSize"`
}

// MovementConfig holds repeater and step distance settings.
type MovementConfig struct {
	DistanceCm       int `yaml:"distanceCm"`
	RepeatIntervalMs int `yaml:"repeatIntervalMs"`
}

// TelemetryConfig holds polling and event stream settings.
type TelemetryConfig struct {
	PollIntervalMs      int `yaml:"pollIntervalMs"`
	QueryWaitMs         int `yaml:"queryWaitMs"`
	EventBufferSize     int `yaml:"eventBufferSize"`
	HeartbeatIntervalMs int `yaml:"heartbeatIntervalMs"`
}

// SessionConfig holds shutdown and session log settings.
type SessionConfig struct {
	LogDir            string `yaml:"logDir"`
	LogPrefix         string `yaml:"logPrefix"`
	LandWaitMs        int    `yaml:"landWaitMs"`
	ShutdownTimeoutMs int    `yaml:"shutdownTimeoutMs"`
}

// APIConfig holds the HTTP intent front-end settings.
type APIConfig struct {
	Enabled        bool       `yaml:"enabled"`
	Addr           string     `yaml:"addr"`
	ReadTimeoutMs  int        `yaml:"readTimeoutMs"`
	WriteTimeoutMs int        `yaml:"writeTimeoutMs"`
	IdleTimeoutMs  int        `yaml:"idleTimeoutMs"`
	Auth           AuthConfig `yaml:"auth"`
}

// AuthConfig selects bearer token verification. An empty Algorithm disables auth.
type AuthConfig struct {
	Algorithm     string `yaml:"algorithm"`
	SecretKey     string `yaml:"secretKey"`
	PublicKeyFile string `yaml:"publicKeyFile"`
}

// LoggingConfig holds process log and audit log rotation settings.
type LoggingConfig struct {
	File       string `yaml:"file"`
	AuditDir   string `yaml:"auditDir"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// SimulatorConfig holds settings for the in-process and standalone Tello simulator.
type SimulatorConfig struct {
	ListenAddr   string  `yaml:"listenAddr"`
	LatencyMs    int     `yaml:"latencyMs"`
	DropRate     float64 `yaml:"dropRate"`
	BatteryStart int     `yaml:"batteryStart"`
}

// FrontendConfig holds operator input settings.
type FrontendConfig struct {
	Kind          string `yaml:"kind"`
	HoldReleaseMs int    `yaml:"holdReleaseMs"`
	GamepadDevice string `yaml:"gamepadDevice"`
	GrabDevice    bool   `yaml:"grabDevice"`
}

// LoadBaseline returns the default configuration for a stock Tello on its own Wi-Fi.
func LoadBaseline() *Config {
	return &Config{
		Vehicle: VehicleConfig{
			Addr:             "192.168.10.1:8889",
			LocalAddr:        ":8889",
			HandshakeCommand: "command",
			SettleMs:         2000,
			QueueSize:        64,
		},
		Movement: MovementConfig{
			DistanceCm:       20,
			RepeatIntervalMs: 150,
		},
		Telemetry: TelemetryConfig{
			PollIntervalMs:      2000,
			QueryWaitMs:         500,
			EventBufferSize:     50,
			HeartbeatIntervalMs: 15000,
		},
		Session: SessionConfig{
			LogDir:            "log",
			LogPrefix:         "pilot_control",
			LandWaitMs:        500,
			ShutdownTimeoutMs: 5000,
		},
		API: APIConfig{
			Enabled:        false,
			Addr:           ":8000",
			ReadTimeoutMs:  30000,
			WriteTimeoutMs: 0, // SSE streams stay open
			IdleTimeoutMs:  120000,
		},
		Logging: LoggingConfig{
			File:       "log/pilot.log",
			AuditDir:   "log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Simulator: SimulatorConfig{
			ListenAddr:   "127.0.0.1:8889",
			LatencyMs:    20,
			DropRate:     0,
			BatteryStart: 87,
		},
		Frontend: FrontendConfig{
			Kind:          "tui",
			HoldReleaseMs: 250,
			GrabDevice:    true,
		},
	}
}

// SettleTime returns the post-handshake settle time.
func (c VehicleConfig) SettleTime() time.Duration {
	return time.Duration(c.SettleMs) * time.Millisecond
}

// RepeatInterval returns the hold repeater period.
func (c MovementConfig) RepeatInterval() time.Duration {
	return time.Duration(c.RepeatIntervalMs) * time.Millisecond
}

// PollInterval returns the telemetry cycle period.
func (c TelemetryConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// QueryWait returns the per-query response window.
func (c TelemetryConfig) QueryWait() time.Duration {
	return time.Duration(c.QueryWaitMs) * time.Millisecond
}

// HeartbeatInterval returns the SSE heartbeat period.
func (c TelemetryConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// LandWait returns how long shutdown waits for the land acknowledgment before flushing.
func (c SessionConfig) LandWait() time.Duration {
	return time.Duration(c.LandWaitMs) * time.Millisecond
}

// ShutdownTimeout bounds the whole shutdown protocol.
func (c SessionConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMs) * time.Millisecond
}

// Latency returns the simulated reply delay.
func (c SimulatorConfig) Latency() time.Duration {
	return time.Duration(c.LatencyMs) * time.Millisecond
}

// HoldRelease returns how long a held key may go without a repeat before the hold ends.
func (c FrontendConfig) HoldRelease() time.Duration {
	return time.Duration(c.HoldReleaseMs) * time.Millisecond
}
