// Package command implements the command channel to the vehicle.
//
// Every command is appended to an ordered log before it is written, and a
// single writer goroutine transmits in log order. Replies are matched back to
// the most recent unresolved entry with the same command text. Send never
// waits for the vehicle; QueryAndWait adds a bounded wait for read queries.
package command
