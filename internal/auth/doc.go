// Package auth verifies bearer tokens for the HTTP intent API.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public key)
// and carry "sub", "roles" and "scopes" claims:
//   - observer: read and telemetry scopes (status, command log, event stream)
//   - pilot: observer scopes plus control (takeoff, land, holds, quit)
package auth
