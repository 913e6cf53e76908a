package device

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
)

// inhibitedAttr is the sysfs attribute that stops the kernel delivering
// events for an input device (Linux 5.11+).
const inhibitedAttr = "inhibited"

// Inhibitor gates a kernel input device through its sysfs "inhibited"
// attribute, e.g. /sys/class/input/input5. Events from the device reach
// userspace through the kernel, so Poll never returns any.
type Inhibitor struct {
	id     logic.DeviceID
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	enabled bool
}

// NewInhibitor creates an Inhibitor for the input device at sysfsDir.
// It assumes the device starts uninhibited; the dispatcher sets the real
// state on attach.
func NewInhibitor(id logic.DeviceID, sysfsDir string, logger *slog.Logger) *Inhibitor {
	return &Inhibitor{
		id:      id,
		path:    filepath.Join(sysfsDir, inhibitedAttr),
		logger:  logger,
		enabled: true,
	}
}

// ID returns the device id.
func (i *Inhibitor) ID() logic.DeviceID {
	return i.id
}

// SetEnabled writes the inhibited attribute. The state only changes when
// the write lands; a failed write is returned and the device keeps
// delivering input.
func (i *Inhibitor) SetEnabled(enabled bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	val := "1"
	if enabled {
		val = "0"
	}
	if err := os.WriteFile(i.path, []byte(val), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", i.path, err)
	}
	i.enabled = enabled
	i.logger.Debug("inhibited written", "device", i.id, "value", val)
	return nil
}

// Enabled reports the last state successfully written.
func (i *Inhibitor) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// Poll returns nothing; the kernel delivers this device's events.
func (i *Inhibitor) Poll(time.Time) []logic.Event {
	return nil
}
