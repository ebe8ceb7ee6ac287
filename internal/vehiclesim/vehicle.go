package vehiclesim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Tello SDK limits the simulator enforces.
const (
	minMoveCm   = 20
	maxMoveCm   = 500
	minSpeed    = 10
	maxSpeed    = 100
	takeoffCm   = 80
	maxHeightCm = 3000
)

// Vehicle is the thread-safe simulated drone state.
type Vehicle struct {
	mu          sync.RWMutex
	commandMode bool
	flying      bool
	battery     int
	heightCm    int
	speed       float64
	strict      bool

	commandQueue chan command
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// State is a point-in-time copy of the vehicle.
type State struct {
	CommandMode bool    `json:"commandMode"`
	Flying      bool    `json:"flying"`
	Battery     int     `json:"battery"`
	HeightCm    int     `json:"heightCm"`
	Speed       float64 `json:"speed"`
}

type command struct {
	text     string
	response chan string
}

// NewVehicle creates a grounded vehicle and starts its command worker.
// In strict mode control commands need the "command" handshake first and
// movement is refused while grounded, as on real firmware.
func NewVehicle(batteryStart int, strict bool) *Vehicle {
	v := &Vehicle{
		battery:      batteryStart,
		speed:        10.0,
		strict:       strict,
		commandQueue: make(chan command, 100),
		stopChan:     make(chan struct{}),
	}

	v.wg.Add(1)
	go v.commandWorker()

	return v
}

// Execute runs one SDK command in FIFO order and returns the reply text.
func (v *Vehicle) Execute(ctx context.Context, text string) (string, error) {
	cmd := command{text: strings.TrimSpace(text), response: make(chan string, 1)}

	select {
	case v.commandQueue <- cmd:
	case <-v.stopChan:
		return "", fmt.Errorf("vehicle stopped")
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case reply := <-cmd.response:
		return reply, nil
	case <-v.stopChan:
		return "", fmt.Errorf("vehicle stopped")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Snapshot returns the current state.
func (v *Vehicle) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return State{
		CommandMode: v.commandMode,
		Flying:      v.flying,
		Battery:     v.battery,
		HeightCm:    v.heightCm,
		Speed:       v.speed,
	}
}

// Stop terminates the command worker.
func (v *Vehicle) Stop() {
	v.stopOnce.Do(func() { close(v.stopChan) })
	v.wg.Wait()
}

func (v *Vehicle) commandWorker() {
	defer v.wg.Done()

	for {
		select {
		case cmd := <-v.commandQueue:
			cmd.response <- v.process(cmd.text)
		case <-v.stopChan:
			return
		}
	}
}

func (v *Vehicle) process(text string) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "error"
	}
	verb := fields[0]

	if verb == "command" {
		v.commandMode = true
		return "ok"
	}

	if strings.HasSuffix(verb, "?") {
		return v.query(verb)
	}

	if v.strict && !v.commandMode {
		return "error"
	}

	switch verb {
	case "takeoff":
		if v.battery < 10 {
			return "error No battery"
		}
		v.flying = true
		v.heightCm = takeoffCm
		v.battery--
		return "ok"
	case "land":
		v.flying = false
		v.heightCm = 0
		return "ok"
	case "emergency":
		v.flying = false
		v.heightCm = 0
		return "ok"
	case "up", "down", "left", "right", "forward", "back":
		return v.move(verb, fields)
	case "speed":
		if len(fields) != 2 {
			return "error"
		}
		s, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || s < minSpeed || s > maxSpeed {
			return "out of range"
		}
		v.speed = s
		return "ok"
	default:
		return "unknown command: " + text
	}
}

func (v *Vehicle) move(verb string, fields []string) string {
	if len(fields) != 2 {
		return "error"
	}
	cm, err := strconv.Atoi(fields[1])
	if err != nil || cm < minMoveCm || cm > maxMoveCm {
		return "out of range"
	}
	if !v.flying {
		if v.strict {
			return "error Not flying"
		}
		return "ok"
	}

	switch verb {
	case "up":
		v.heightCm = min(v.heightCm+cm, maxHeightCm)
	case "down":
		v.heightCm = max(v.heightCm-cm, 0)
	}
	return "ok"
}

func (v *Vehicle) query(verb string) string {
	switch verb {
	case "battery?":
		return strconv.Itoa(v.battery)
	case "speed?":
		return strconv.FormatFloat(v.speed, 'f', 1, 64)
	case "height?":
		return fmt.Sprintf("%ddm", v.heightCm/10)
	default:
		return "unknown command: " + verb
	}
}
