package movement

import (
	"fmt"
	"strings"
)

// Direction is one of the six movement axes the vehicle accepts.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
	Forward
	Back

	numDirections
)

var directionNames = [numDirections]string{
	Up:      "up",
	Down:    "down",
	Left:    "left",
	Right:   "right",
	Forward: "forward",
	Back:    "back",
}

// String returns the SDK verb for the direction.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Valid reports whether d is one of the six known directions.
func (d Direction) Valid() bool {
	return d >= Up && d < numDirections
}

// ParseDirection maps an SDK verb to a Direction.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range directionNames {
		if name == s {
			return Direction(d), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// Directions returns all directions in declaration order.
func Directions() []Direction {
	out := make([]Direction, numDirections)
	for i := range out {
		out[i] = Direction(i)
	}
	return out
}

// Command renders the SDK text for a move of distanceCm.
func (d Direction) Command(distanceCm int) string {
	return fmt.Sprintf("%s %d", d, distanceCm)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return []byte(d.String()), nil
}
