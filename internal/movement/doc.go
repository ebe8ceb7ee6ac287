// Package movement turns held directions into repeated move commands.
//
// Each of the six directions has its own slot with its own lock. Holding a
// direction starts one repeater goroutine that sends a fixed-distance move,
// sleeps one interval, and repeats until the hold is released. Opposite
// directions are not cancelled against each other.
package movement
