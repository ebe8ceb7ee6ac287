package gamepad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sys/unix"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// eviocgrab is EVIOCGRAB, _IOW('E', 0x90, int).
const eviocgrab = 0x40044590

// Run reads device events and drives intents until the operator quits,
// the session terminates or ctx ends. With grab set the device is taken
// exclusively so the desktop does not also act on the input.
func Run(ctx context.Context, device Device, grab bool, intents session.Intents) error {
	f, err := os.Open(device.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", adapter.ErrDeviceNotFound, device.Path, err)
	}
	defer func() { _ = f.Close() }()

	if grab {
		fd := int(f.Fd())
		if err := unix.IoctlSetInt(fd, eviocgrab, 1); err != nil {
			log.Printf("Gamepad: exclusive grab of %s failed: %v", device.Path, err)
		} else {
			defer func() { _ = unix.IoctlSetInt(fd, eviocgrab, 0) }()
		}
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
		case <-intents.Done():
		case <-finished:
			return
		}
		_ = f.Close()
	}()

	mapper := NewMapper(audit.WithSource(ctx, "gamepad"), intents)
	defer mapper.ReleaseAll()

	err = readEvents(f, mapper)
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// readEvents decodes input_event records from r until the mapper
// reports quit or r ends.
func readEvents(r io.Reader, m *Mapper) error {
	buf := make([]byte, eventSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("failed to read input event: %w", err)
		}
		e, err := decodeEvent(buf)
		if err != nil {
			return err
		}
		if m.Handle(e) {
			return nil
		}
	}
}
