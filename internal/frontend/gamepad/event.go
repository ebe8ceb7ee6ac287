package gamepad

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Linux input event constants from include/uapi/linux/input-event-codes.h.
const (
	evAbs = 0x03

	absRX    = 0x03
	absRY    = 0x04
	absHat0X = 0x10
	absHat0Y = 0x11
)

// eventSize is sizeof(struct input_event) on 64-bit Linux: a 16 byte
// timeval followed by type (u16), code (u16) and value (s32).
const eventSize = 24

// Event is one decoded evdev input_event.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvent decodes one little-endian input_event record.
func decodeEvent(b []byte) (Event, error) {
	if len(b) < eventSize {
		return Event{}, fmt.Errorf("short input event: %d bytes", len(b))
	}
	sec := int64(binary.LittleEndian.Uint64(b[0:8]))
	usec := int64(binary.LittleEndian.Uint64(b[8:16]))
	return Event{
		Time:  time.Unix(sec, usec*int64(time.Microsecond)),
		Type:  binary.LittleEndian.Uint16(b[16:18]),
		Code:  binary.LittleEndian.Uint16(b[18:20]),
		Value: int32(binary.LittleEndian.Uint32(b[20:24])),
	}, nil
}

// encodeEvent is the inverse of decodeEvent.
func encodeEvent(e Event) []byte {
	b := make([]byte, eventSize)
	binary.LittleEndian.PutUint64(b[0:8], uint64(e.Time.Unix()))
	binary.LittleEndian.PutUint64(b[8:16], uint64(e.Time.Nanosecond()/int(time.Microsecond)))
	binary.LittleEndian.PutUint16(b[16:18], e.Type)
	binary.LittleEndian.PutUint16(b[18:20], e.Code)
	binary.LittleEndian.PutUint32(b[20:24], uint32(e.Value))
	return b
}
