// Package session ties the command channel, movement manager and telemetry
// poller into one flight session.
//
// A Controller handshakes with the vehicle, exposes the intent API used by
// front-ends (discrete actions, holds, quit) and runs the shutdown sequence:
// stop telemetry, stop holds, land, flush the command log, close the channel.
// The land attempt always precedes the flush so a log write failure cannot
// prevent it.
package session
