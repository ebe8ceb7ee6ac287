//
//
package config

import (
	"fmt"
	"net"
	"slices"
)

// Tello SDK accepts move distances in this range.
const (
	MinDistanceCm = 20
	MaxDistanceCm = 500
)

// Validate enforces bounds on every section.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateVehicle(cfg.Vehicle); err != nil {
		return fmt.Errorf("vehicle validation failed: %w", err)
	}

	if err := validateMovement(cfg.Movement); err != nil {
		return fmt.Errorf("movement validation failed: %w", err)
	}

	if err := validateTelemetry(cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry validation failed: %w", err)
	}

	if err := validateSession(cfg.Session); err != nil {
		return fmt.Errorf("session validation failed: %w", err)
	}

	if err := validateAPI(cfg.API); err != nil {
		return fmt.Errorf("api validation failed: %w", err)
	}

	if err := validateFrontend(cfg.Frontend); err != nil {
		return fmt.Errorf("frontend validation failed: %w", err)
	}

	return nil
}

func validateVehicle(c VehicleConfig) error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid vehicle address %q: %w", c.Addr, err)
	}
	if _, _, err := net.SplitHostPort(c.LocalAddr); err != nil {
		return fmt.Errorf("invalid local address %q: %w", c.LocalAddr, err)
	}
	if c.HandshakeCommand == "" {
		return fmt.Errorf("handshake command must not be empty")
	}
	if c.SettleMs < 0 {
		return fmt.Errorf("settle time must be non-negative, got %dms", c.SettleMs)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

func validateMovement(c MovementConfig) error {
	if c.DistanceCm < MinDistanceCm || c.DistanceCm > MaxDistanceCm {
		return fmt.Errorf("distance %dcm is outside range [%d, %d]", c.DistanceCm, MinDistanceCm, MaxDistanceCm)
	}
	if c.RepeatIntervalMs <= 0 {
		return fmt.Errorf("repeat interval must be positive, got %dms", c.RepeatIntervalMs)
	}
	return nil
}

func validateTelemetry(c TelemetryConfig) error {
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("poll interval must be positive, got %dms", c.PollIntervalMs)
	}
	if c.QueryWaitMs <= 0 {
		return fmt.Errorf("query wait must be positive, got %dms", c.QueryWaitMs)
	}
	// three sequential queries must fit inside one cycle
	if 3*c.QueryWaitMs > c.PollIntervalMs {
		return fmt.Errorf("poll interval %dms is shorter than three query windows of %dms", c.PollIntervalMs, c.QueryWaitMs)
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", c.EventBufferSize)
	}
	if c.HeartbeatIntervalMs <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %dms", c.HeartbeatIntervalMs)
	}
	return nil
}

func validateSession(c SessionConfig) error {
	if c.LogDir == "" {
		return fmt.Errorf("log directory must not be empty")
	}
	if c.LogPrefix == "" {
		return fmt.Errorf("log prefix must not be empty")
	}
	if c.LandWaitMs < 0 {
		return fmt.Errorf("land wait must be non-negative, got %dms", c.LandWaitMs)
	}
	if c.ShutdownTimeoutMs <= c.LandWaitMs {
		return fmt.Errorf("shutdown timeout %dms must exceed land wait %dms", c.ShutdownTimeoutMs, c.LandWaitMs)
	}
	return nil
}

func validateAPI(c APIConfig) error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid api address %q: %w", c.Addr, err)
	}
	switch c.Auth.Algorithm {
	case "":
	case "HS256":
		if c.Auth.SecretKey == "" {
			return fmt.Errorf("HS256 requires secret key")
		}
	case "RS256":
		if c.Auth.PublicKeyFile == "" {
			return fmt.Errorf("RS256 requires public key file")
		}
	default:
		return fmt.Errorf("unsupported algorithm: %s", c.Auth.Algorithm)
	}
	return nil
}

// FrontendKinds lists the accepted frontend.kind values.
var FrontendKinds = []string{"tui", "gamepad", "http", "none"}

func validateFrontend(c FrontendConfig) error {
	if !slices.Contains(FrontendKinds, c.Kind) {
		return fmt.Errorf("unknown frontend %q, want one of %v", c.Kind, FrontendKinds)
	}
	if c.HoldReleaseMs <= 0 {
		return fmt.Errorf("hold release must be positive, got %dms", c.HoldReleaseMs)
	}
	return nil
}
