//go:build linux

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"

	"github.com/sweeney/lidgate/internal/logic"
)

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
	iocRead      = 2
)

// evioCGSW is EVIOCGSW(len): read the switch state bitmap.
func evioCGSW(size int) uintptr {
	return uintptr(uint32(iocRead)<<iocDirShift | uint32('E')<<iocTypeShift | uint32(0x1b)<<iocNRShift | uint32(size)<<iocSizeShift)
}

// EvdevSwitch reads SW_LID from an evdev node into a buffered Switch.
type EvdevSwitch struct {
	*Switch
	dev    *evdev.InputDevice
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenEvdevSwitch opens an evdev node such as /dev/input/event0 and returns
// the switch together with its current lid state.
func OpenEvdevSwitch(id logic.SwitchID, path string, logger *slog.Logger) (*EvdevSwitch, logic.State, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}

	initial, err := readLidState(dev.File)
	if err != nil {
		dev.File.Close()
		return nil, "", fmt.Errorf("read lid state %s: %w", path, err)
	}

	logger.Info("evdev switch opened", "switch", id, "path", path, "name", dev.Name, "state", initial)
	return &EvdevSwitch{Switch: NewSwitch(id), dev: dev, logger: logger}, initial, nil
}

func readLidState(f *os.File) (logic.State, error) {
	// SW_MAX is 0x10, so the bitmap fits in a few bytes.
	var bits [8]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), evioCGSW(len(bits)), uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return "", errno
	}
	return stateFromValue(int(bits[evdev.SW_LID/8] >> (evdev.SW_LID % 8) & 1)), nil
}

// Run reads events until ctx is cancelled or the device fails. Lid reports
// are buffered for the next Poll; everything else is ignored.
func (s *EvdevSwitch) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		events, err := s.dev.Read()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read %s: %w", s.dev.Fn, err)
		}
		for _, ev := range events {
			if ev.Type != evdev.EV_SW || ev.Code != evdev.SW_LID {
				continue
			}
			t := time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*1000)
			state := stateFromValue(int(ev.Value))
			s.logger.Debug("lid report", "switch", s.id, "state", state)
			s.Toggle(state, t)
		}
	}
}

// Close releases the device. Calls after the first return its result.
func (s *EvdevSwitch) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.dev.File.Close()
	})
	return s.closeErr
}
