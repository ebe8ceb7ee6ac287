// Package telemetry polls vehicle state and streams session events.
//
// The Poller queries battery, speed and height every cycle and keeps the
// last good value of any field whose query fails. The Hub fans out telemetry,
// command and session events to SSE clients and replays buffered events on
// reconnect using Last-Event-ID.
package telemetry
