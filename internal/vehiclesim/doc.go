// Package vehiclesim simulates a Tello drone speaking the text SDK over UDP.
//
// Commands are processed one at a time by a worker goroutine, so replies
// leave in the order commands arrived. Latency and reply loss are adjustable
// at runtime to exercise timeout handling in the pilot.
package vehiclesim
