package session

import (
	"fmt"
	"strings"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
)

// State is the session lifecycle stage.
type State int

const (
	Initializing State = iota
	Ready
	Flying
	Grounded
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Ready:
		return "Ready"
	case Flying:
		return "Flying"
	case Grounded:
		return "Grounded"
	case ShuttingDown:
		return "ShuttingDown"
	case Terminated:
		return "Terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ActionKind is a discrete operator action.
type ActionKind int

const (
	ActionTakeoff ActionKind = iota + 1
	ActionLand
	ActionEmergency
	ActionMoveOnce
)

var actionNames = map[ActionKind]string{
	ActionTakeoff:   "takeoff",
	ActionLand:      "land",
	ActionEmergency: "emergency",
	ActionMoveOnce:  "move",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action is a one-shot intent. Direction is only read for ActionMoveOnce.
type Action struct {
	Kind      ActionKind
	Direction movement.Direction
}

// Convenience values for the fixed actions.
var (
	Takeoff   = Action{Kind: ActionTakeoff}
	Land      = Action{Kind: ActionLand}
	Emergency = Action{Kind: ActionEmergency}
)

// MoveOnce returns the single-step move action for d.
func MoveOnce(d movement.Direction) Action {
	return Action{Kind: ActionMoveOnce, Direction: d}
}

func (a Action) String() string {
	if a.Kind == ActionMoveOnce {
		return fmt.Sprintf("move %s", a.Direction)
	}
	return a.Kind.String()
}

// ParseAction maps "takeoff", "land" or "emergency" to its Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "takeoff":
		return Takeoff, nil
	case "land":
		return Land, nil
	case "emergency":
		return Emergency, nil
	}
	return Action{}, fmt.Errorf("unknown action %q", s)
}
