// Package audit persists what happened during a flight session.
//
// FileSink writes the command log as a plain-text file when the session
// shuts down. Logger appends operator intents (takeoff, holds, quit) to a
// size-rotated JSON-lines file with the acting user and outcome code.
package audit
