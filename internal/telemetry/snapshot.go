//
//
package telemetry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

// Snapshot is the latest known vehicle state. A nil field has never been read.
type Snapshot struct {
	BatteryPercent *int              `json:"batteryPercent"`
	SpeedCmPerSec  *float64          `json:"speedCmPerSec"`
	AltitudeCm     *int              `json:"altitudeCm"`
	SampledAt      time.Time         `json:"sampledAt"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// String renders the snapshot as a single status line.
func (s Snapshot) String() string {
	battery, speed, altitude := "--", "--", "--"
	if s.BatteryPercent != nil {
		battery = fmt.Sprintf("%d%%", *s.BatteryPercent)
	}
	if s.SpeedCmPerSec != nil {
		speed = fmt.Sprintf("%.1f cm/s", *s.SpeedCmPerSec)
	}
	if s.AltitudeCm != nil {
		altitude = fmt.Sprintf("%d cm", *s.AltitudeCm)
	}
	return fmt.Sprintf("Battery: %s | Speed: %s | Altitude: %s", battery, speed, altitude)
}

// ParseBattery parses a "battery?" reply as a 0-100 percentage.
func ParseBattery(reply string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "battery?", err)
	}
	if v < 0 || v > 100 {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "battery?", fmt.Errorf("battery %d outside 0-100", v))
	}
	return v, nil
}

// ParseSpeed parses a "speed?" reply in cm/s.
func ParseSpeed(reply string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "speed?", err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "speed?", fmt.Errorf("non-finite speed %q", strings.TrimSpace(reply)))
	}
	if v < 0 {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "speed?", fmt.Errorf("negative speed %v", v))
	}
	return v, nil
}

// ParseHeight parses a "height?" reply into centimetres. Firmware 2.0 answers
// in decimetres ("10dm"); older builds send a bare number of centimetres.
func ParseHeight(reply string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(reply))
	scale := 1
	switch {
	case strings.HasSuffix(s, "dm"):
		s, scale = strings.TrimSuffix(s, "dm"), 10
	case strings.HasSuffix(s, "cm"):
		s = strings.TrimSuffix(s, "cm")
	}

	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, adapter.Wrap(adapter.ErrParseFailure, "height?", err)
	}
	return v * scale, nil
}
