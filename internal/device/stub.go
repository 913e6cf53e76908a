//go:build !linux

package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
)

var errUnsupported = errors.New("device: not supported on this platform (requires Linux)")

// GPIOOptions configures a GPIO-backed lid switch.
type GPIOOptions struct {
	Chip      string
	Line      int
	ActiveLow bool
	Debounce  time.Duration
}

// GPIOSwitch is not available on non-Linux platforms.
type GPIOSwitch struct {
	*Switch
}

// OpenGPIOSwitch returns an error on non-Linux platforms.
func OpenGPIOSwitch(logic.SwitchID, GPIOOptions, *slog.Logger) (*GPIOSwitch, logic.State, error) {
	return nil, "", errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (s *GPIOSwitch) Close() error {
	return nil
}

// EvdevSwitch is not available on non-Linux platforms.
type EvdevSwitch struct {
	*Switch
}

// OpenEvdevSwitch returns an error on non-Linux platforms.
func OpenEvdevSwitch(logic.SwitchID, string, *slog.Logger) (*EvdevSwitch, logic.State, error) {
	return nil, "", errUnsupported
}

// Run is not implemented on non-Linux platforms.
func (s *EvdevSwitch) Run(context.Context) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (s *EvdevSwitch) Close() error {
	return nil
}
