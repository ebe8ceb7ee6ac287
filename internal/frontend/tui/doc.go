// Package tui is the terminal console front-end. It shows the session
// state, active holds and the telemetry line, and maps keys to session
// intents through the shared key map.
package tui
