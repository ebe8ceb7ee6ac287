// Package adapter defines the Transport port to the vehicle and the error kinds
// shared across the pilot.
//
// A Transport only moves text. Commands go out through SendRaw without waiting;
// replies come back on Responses already attributed to a command text, so the
// command channel can match them to its log.
package adapter
