// Package api exposes the session intent API over HTTP.
//
// Endpoints live under /api/v1 and answer with a JSON envelope
// {result, data | code+message, correlationId}:
//
//	GET    /health                       liveness, no auth
//	GET    /status                       session state, holds, telemetry
//	GET    /log                          command log (?since=N, ?format=text)
//	GET    /telemetry                    latest snapshot
//	GET    /telemetry/stream             SSE stream (?types=..., Last-Event-ID)
//	POST   /actions/{takeoff|land|emergency}
//	POST   /move/{direction}             single step
//	PUT    /holds/{direction}            start continuous hold
//	DELETE /holds/{direction}            end continuous hold
//	POST   /quit                         begin shutdown (202)
package api
