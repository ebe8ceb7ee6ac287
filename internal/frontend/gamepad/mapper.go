package gamepad

import (
	"context"
	"log"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// Trackpad axis readings inside [deadLow, deadHigh] count as centred.
const (
	deadLow  = 120
	deadHigh = 136
)

// axisDirections maps a trackpad axis to its low and high directions.
var axisDirections = map[uint16][2]movement.Direction{
	absRX: {movement.Left, movement.Right},
	absRY: {movement.Up, movement.Down},
}

// Mapper turns gamepad events into session intents.
//
// D-pad up takes off (once per session), down lands, left is emergency
// and right quits. Each right trackpad axis holds the direction of the
// side it is pushed to and releases when it returns to centre.
type Mapper struct {
	ctx         context.Context
	intents     session.Intents
	takeoffSent bool
	axisHold    map[uint16]movement.Direction
}

// NewMapper creates a mapper driving intents.
func NewMapper(ctx context.Context, intents session.Intents) *Mapper {
	return &Mapper{
		ctx:      ctx,
		intents:  intents,
		axisHold: make(map[uint16]movement.Direction),
	}
}

// Handle applies one event. It reports true once the operator asked to quit.
func (m *Mapper) Handle(e Event) bool {
	if e.Type != evAbs {
		return false
	}

	switch e.Code {
	case absHat0Y:
		switch e.Value {
		case -1:
			if !m.takeoffSent {
				m.takeoffSent = true
				m.action(session.Takeoff)
			}
		case 1:
			m.action(session.Land)
		}
	case absHat0X:
		switch e.Value {
		case -1:
			m.action(session.Emergency)
		case 1:
			m.ReleaseAll()
			m.intents.OnQuit(m.ctx)
			return true
		}
	case absRX, absRY:
		m.axis(e.Code, e.Value)
	}
	return false
}

func (m *Mapper) action(a session.Action) {
	if err := m.intents.OnDiscreteAction(m.ctx, a); err != nil {
		log.Printf("Gamepad: %s: %v", a, err)
	}
}

func (m *Mapper) axis(code uint16, value int32) {
	dirs := axisDirections[code]
	want, pushed := movement.Direction(0), false
	switch {
	case value < deadLow:
		want, pushed = dirs[0], true
	case value > deadHigh:
		want, pushed = dirs[1], true
	}

	held, holding := m.axisHold[code]
	if holding && (!pushed || held != want) {
		delete(m.axisHold, code)
		if err := m.intents.OnHoldEnd(m.ctx, held); err != nil {
			log.Printf("Gamepad: hold %s end: %v", held, err)
		}
	}
	if pushed && (!holding || held != want) {
		m.axisHold[code] = want
		if err := m.intents.OnHoldStart(m.ctx, want); err != nil {
			log.Printf("Gamepad: hold %s start: %v", want, err)
		}
	}
}

// ReleaseAll ends every trackpad hold.
func (m *Mapper) ReleaseAll() {
	for code, d := range m.axisHold {
		delete(m.axisHold, code)
		if err := m.intents.OnHoldEnd(m.ctx, d); err != nil {
			log.Printf("Gamepad: hold %s end: %v", d, err)
		}
	}
}
