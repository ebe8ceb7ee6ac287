package frontend

import (
	"strings"

	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// Kind says what a key press asks the session to do.
type Kind int

const (
	KindNone Kind = iota
	KindAction
	KindHold
	KindQuit
)

// Intent is the session request bound to a key.
type Intent struct {
	Kind      Kind
	Action    session.Action
	Direction movement.Direction
}

// Keys use the names terminal key decoders report ("enter", "up", " ").
var keymap = map[string]Intent{
	"t":      {Kind: KindAction, Action: session.Takeoff},
	"enter":  {Kind: KindAction, Action: session.Takeoff},
	"l":      {Kind: KindAction, Action: session.Land},
	"delete": {Kind: KindAction, Action: session.Land},
	"e":      {Kind: KindAction, Action: session.Emergency},
	" ":      {Kind: KindAction, Action: session.Emergency},
	"space":  {Kind: KindAction, Action: session.Emergency},

	"up":    {Kind: KindHold, Direction: movement.Up},
	"down":  {Kind: KindHold, Direction: movement.Down},
	"left":  {Kind: KindHold, Direction: movement.Left},
	"right": {Kind: KindHold, Direction: movement.Right},
	"a":     {Kind: KindHold, Direction: movement.Left},
	"d":     {Kind: KindHold, Direction: movement.Right},
	"w":     {Kind: KindHold, Direction: movement.Forward},
	"s":     {Kind: KindHold, Direction: movement.Back},

	"q":      {Kind: KindQuit},
	"esc":    {Kind: KindQuit},
	"ctrl+c": {Kind: KindQuit},
}

// Lookup returns the intent bound to key. Letters match in either case.
func Lookup(key string) (Intent, bool) {
	if len(key) == 1 {
		key = strings.ToLower(key)
	}
	in, ok := keymap[key]
	return in, ok
}

// Help is the one-line key legend shown by the key front-ends.
const Help = "t/enter takeoff  l/del land  e/space emergency  arrows,w/a/s/d move  q/esc quit"
