package gamepad

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
)

// DevicesFile lists every input device the kernel knows about.
const DevicesFile = "/proc/bus/input/devices"

// nameMatches are the device name substrings accepted as a gamepad.
var nameMatches = []string{"Steam", "Gamepad", "Deck"}

// Device is one entry of the input devices list.
type Device struct {
	Name string
	Path string
}

// Discover returns the first gamepad-like device listed in devicesFile.
// It returns adapter.ErrDeviceNotFound when none matches.
func Discover(devicesFile string) (Device, error) {
	f, err := os.Open(devicesFile)
	if err != nil {
		return Device{}, fmt.Errorf("%w: failed to read %s: %v", adapter.ErrDeviceNotFound, devicesFile, err)
	}
	defer func() { _ = f.Close() }()

	devices, err := parseDevices(f)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %v", adapter.ErrDeviceNotFound, err)
	}
	for _, d := range devices {
		for _, m := range nameMatches {
			if strings.Contains(d.Name, m) {
				log.Printf("Gamepad: using input device %s (%s)", d.Name, d.Path)
				return d, nil
			}
		}
	}
	return Device{}, fmt.Errorf("%w: no input device named like %v", adapter.ErrDeviceNotFound, nameMatches)
}

// parseDevices reads the blank-line separated blocks of the devices
// file. Blocks without an eventN handler are skipped.
func parseDevices(r io.Reader) ([]Device, error) {
	var (
		devices []Device
		cur     Device
	)
	flush := func() {
		if cur.Name != "" && cur.Path != "" {
			devices = append(devices, cur)
		}
		cur = Device{}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, h := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				if strings.HasPrefix(h, "event") {
					cur.Path = filepath.Join("/dev/input", h)
				}
			}
		}
	}
	flush()
	return devices, scanner.Err()
}
