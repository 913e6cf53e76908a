// Package logic contains the switch-gated input suppression core.
// This package has NO external dependencies (no evdev, GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// State represents the logical state of a switch.
type State string

const (
	// StateOn means the switch is active (lid closed).
	StateOn State = "ON"
	// StateOff means the switch is inactive (lid open).
	StateOff State = "OFF"
)

// Valid reports whether s is ON or OFF.
func (s State) Valid() bool {
	return s == StateOn || s == StateOff
}

// SwitchID names a switch instance, e.g. "lid".
type SwitchID string

// DeviceID names a gated input device, e.g. "touchpad".
type DeviceID string

// SwitchState tracks one switch. LastEmitted only changes when a committed
// SwitchEvent is produced; Current follows every raw report.
type SwitchState struct {
	Current     State
	LastEmitted State
}

// SwitchEvent is a committed switch transition.
type SwitchEvent struct {
	Switch SwitchID
	State  State
	Time   time.Time
}

// EventCounts tracks committed switch events since attach.
type EventCounts struct {
	On  int
	Off int
}

// RawTransition is a single raw report from a switch source.
type RawTransition struct {
	State State
	Time  time.Time
}

// Kind distinguishes the variants carried by Event.
type Kind int

const (
	// KindSwitchToggle carries a *SwitchEvent.
	KindSwitchToggle Kind = iota + 1
	// KindPointerMotion carries a *MotionEvent.
	KindPointerMotion
	// KindPointerAxis carries an *AxisEvent.
	KindPointerAxis
)

func (k Kind) String() string {
	switch k {
	case KindSwitchToggle:
		return "SWITCH_TOGGLE"
	case KindPointerMotion:
		return "POINTER_MOTION"
	case KindPointerAxis:
		return "POINTER_AXIS"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MotionEvent is relative pointer motion.
type MotionEvent struct {
	Dx float64
	Dy float64
}

// Axis identifies a scroll axis.
type Axis string

const (
	AxisVertical   Axis = "VERTICAL"
	AxisHorizontal Axis = "HORIZONTAL"
)

// AxisSource identifies what produced a scroll event.
type AxisSource string

const (
	AxisSourceFinger AxisSource = "FINGER"
)

// AxisEvent is a scroll step on one axis.
type AxisEvent struct {
	Axis   Axis
	Source AxisSource
	Value  float64
}

// Event is the queued, tagged event delivered to consumers.
// Exactly one of Switch, Motion or Axis is set, matching Kind.
//
// Time is the hardware timestamp of the input. Seq is the commit sequence
// assigned by the dispatcher and the only delivery ordering key.
type Event struct {
	Kind   Kind
	Time   time.Time
	Seq    int64
	Device DeviceID // originating device; empty for switch events

	Switch *SwitchEvent
	Motion *MotionEvent
	Axis   *AxisEvent
}

// NewSwitchToggle wraps a committed switch event.
func NewSwitchToggle(ev SwitchEvent) Event {
	return Event{Kind: KindSwitchToggle, Time: ev.Time, Switch: &ev}
}

// NewMotion builds a pointer motion event generated by dev at t.
func NewMotion(dev DeviceID, t time.Time, dx, dy float64) Event {
	return Event{Kind: KindPointerMotion, Time: t, Device: dev, Motion: &MotionEvent{Dx: dx, Dy: dy}}
}

// NewAxis builds a finger scroll event generated by dev at t.
func NewAxis(dev DeviceID, t time.Time, axis Axis, value float64) Event {
	return Event{
		Kind:   KindPointerAxis,
		Time:   t,
		Device: dev,
		Axis:   &AxisEvent{Axis: axis, Source: AxisSourceFinger, Value: value},
	}
}

// Bindings maps each switch to the devices it gates.
type Bindings map[SwitchID][]DeviceID

// SwitchSource is a raw switch feed. Poll returns transitions buffered since
// the previous call, oldest first, and must not block.
type SwitchSource interface {
	ID() SwitchID
	Poll() []RawTransition
}

// Device is a gated input device held by reference.
//
// SetEnabled returns an error if the device did not apply the command.
// Poll generates events for buffered raw input stamped strictly before
// limit, or for everything buffered when limit is zero. A device must not
// return events while disabled. Poll must not block.
type Device interface {
	ID() DeviceID
	SetEnabled(enabled bool) error
	Enabled() bool
	Poll(limit time.Time) []Event
}
