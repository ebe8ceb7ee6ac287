// Package gamepad is the evdev gamepad front-end for handheld consoles
// such as the Steam Deck. It finds the device through the kernel input
// device list, reads raw input_event records and maps the D-pad and the
// right trackpad to session intents.
package gamepad
