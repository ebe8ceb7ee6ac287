// Package frontend holds the input plumbing shared by the operator
// front-ends: the key map and the hold detector that turns terminal key
// auto-repeat into continuous hold start and end intents.
//
// The front-ends themselves live in the tui and gamepad subpackages. Each
// one only translates raw input into session.Intents calls.
package frontend
