package logic

import "errors"

// Configuration errors. They mean the switch/device wiring is wrong and are
// returned to the caller immediately; nothing here is retryable.
var (
	ErrUnknownSwitch = errors.New("unknown switch")
	ErrUnknownDevice = errors.New("unknown device")
	ErrSwitchExists  = errors.New("switch already attached")
	ErrDeviceExists  = errors.New("device already attached")
	ErrInvalidState  = errors.New("invalid switch state")
)

// ErrGateCommand means a device failed to apply an enable or disable
// command, so its real state no longer matches the gate. It is fatal.
var ErrGateCommand = errors.New("gate command not applied")

// IsConfigError reports whether err is one of the wiring errors above.
// Uses errors.Is to handle wrapped errors.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrUnknownSwitch) ||
		errors.Is(err, ErrUnknownDevice) ||
		errors.Is(err, ErrSwitchExists) ||
		errors.Is(err, ErrDeviceExists) ||
		errors.Is(err, ErrInvalidState)
}
