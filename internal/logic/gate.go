package logic

import (
	"errors"
	"fmt"
	"sort"
)

// GateState is the per-device gate state.
type GateState string

const (
	GateEnabled  GateState = "ENABLED"
	GateDisabled GateState = "DISABLED"
)

// Decision reports the devices whose gate flipped as a result of one switch
// event. Devices already in the requested state are not listed.
type Decision struct {
	Switch   SwitchID
	State    State
	Enabled  []DeviceID
	Disabled []DeviceID
}

// Changed reports whether any device flipped.
func (d Decision) Changed() bool {
	return len(d.Enabled) > 0 || len(d.Disabled) > 0
}

// Gate maps committed switch events to enable/disable commands on bound
// devices. A device is ENABLED iff none of the switches bound to it is ON.
//
// The gate never synthesizes events: a gesture in progress when a device is
// disabled is abandoned by the device, not terminated.
// Not safe for concurrent use; the Dispatcher serialises access.
type Gate struct {
	bindings Bindings
	bySwitch map[DeviceID][]SwitchID
	devices  map[DeviceID]*gatedDevice
}

type gatedDevice struct {
	dev        Device
	suppressed map[SwitchID]struct{}
}

func (g *gatedDevice) state() GateState {
	if len(g.suppressed) == 0 {
		return GateEnabled
	}
	return GateDisabled
}

// NewGate creates a gate for the given bindings. The bindings are copied.
func NewGate(bindings Bindings) *Gate {
	g := &Gate{
		bindings: make(Bindings, len(bindings)),
		bySwitch: make(map[DeviceID][]SwitchID),
		devices:  make(map[DeviceID]*gatedDevice),
	}
	for sw, devs := range bindings {
		seen := make(map[DeviceID]bool, len(devs))
		for _, id := range devs {
			if seen[id] {
				continue
			}
			seen[id] = true
			g.bindings[sw] = append(g.bindings[sw], id)
			g.bySwitch[id] = append(g.bySwitch[id], sw)
		}
	}
	for id := range g.bySwitch {
		sws := g.bySwitch[id]
		sort.Slice(sws, func(i, j int) bool { return sws[i] < sws[j] })
	}
	return g
}

// SwitchesFor returns the switches bound to a device, sorted.
func (g *Gate) SwitchesFor(id DeviceID) []SwitchID {
	return append([]SwitchID(nil), g.bySwitch[id]...)
}

// Attach starts gating dev. suppressedBy lists the bound switches that are
// currently ON; the device is disabled before Attach returns if any are.
// A device that rejects its initial command is not attached.
func (g *Gate) Attach(dev Device, suppressedBy []SwitchID) error {
	id := dev.ID()
	if _, ok := g.devices[id]; ok {
		return fmt.Errorf("attach device %q: %w", id, ErrDeviceExists)
	}
	entry := &gatedDevice{dev: dev, suppressed: make(map[SwitchID]struct{})}
	for _, sw := range suppressedBy {
		entry.suppressed[sw] = struct{}{}
	}
	if err := command(dev, entry.state() == GateEnabled); err != nil {
		return fmt.Errorf("attach %w", err)
	}
	g.devices[id] = entry
	return nil
}

// Detach stops gating a device. The device is left in whatever state it is in.
func (g *Gate) Detach(id DeviceID) error {
	if _, ok := g.devices[id]; !ok {
		return fmt.Errorf("detach device %q: %w", id, ErrUnknownDevice)
	}
	delete(g.devices, id)
	return nil
}

// Device returns an attached device.
func (g *Gate) Device(id DeviceID) (Device, error) {
	entry, ok := g.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %q: %w", id, ErrUnknownDevice)
	}
	return entry.dev, nil
}

// StateOf returns the gate state of an attached device.
func (g *Gate) StateOf(id DeviceID) (GateState, error) {
	entry, ok := g.devices[id]
	if !ok {
		return "", fmt.Errorf("device %q: %w", id, ErrUnknownDevice)
	}
	return entry.state(), nil
}

// Enabled reports whether an attached device is currently allowed to emit.
func (g *Gate) Enabled(id DeviceID) (bool, error) {
	st, err := g.StateOf(id)
	if err != nil {
		return false, err
	}
	return st == GateEnabled, nil
}

// OnSwitchEvent applies a committed switch event: ON disables and OFF enables
// every attached device bound to the switch. Commands are issued before
// OnSwitchEvent returns.
//
// The gate state follows the switch even when a device rejects its command;
// the rejection comes back as an ErrGateCommand error and every other bound
// device is still commanded.
func (g *Gate) OnSwitchEvent(ev SwitchEvent) (Decision, error) {
	d := Decision{Switch: ev.Switch, State: ev.State}
	var errs []error
	for _, id := range g.bindings[ev.Switch] {
		entry, ok := g.devices[id]
		if !ok {
			continue
		}
		before := entry.state()
		if ev.State == StateOn {
			entry.suppressed[ev.Switch] = struct{}{}
		} else {
			delete(entry.suppressed, ev.Switch)
		}
		if err := g.apply(entry, before, &d); err != nil {
			errs = append(errs, err)
		}
	}
	return d, errors.Join(errs...)
}

// Release drops all suppression held by a switch, as if it had reported OFF.
// Used when the switch itself goes away.
func (g *Gate) Release(sw SwitchID) (Decision, error) {
	d := Decision{Switch: sw, State: StateOff}
	var errs []error
	for _, id := range g.bindings[sw] {
		entry, ok := g.devices[id]
		if !ok {
			continue
		}
		before := entry.state()
		delete(entry.suppressed, sw)
		if err := g.apply(entry, before, &d); err != nil {
			errs = append(errs, err)
		}
	}
	return d, errors.Join(errs...)
}

func (g *Gate) apply(entry *gatedDevice, before GateState, d *Decision) error {
	after := entry.state()
	if after == before {
		return nil
	}
	id := entry.dev.ID()
	if after == GateEnabled {
		d.Enabled = append(d.Enabled, id)
	} else {
		d.Disabled = append(d.Disabled, id)
	}
	return command(entry.dev, after == GateEnabled)
}

// command sends one enable/disable command and checks the device took it.
func command(dev Device, enabled bool) error {
	if err := dev.SetEnabled(enabled); err != nil {
		return fmt.Errorf("device %q enabled=%t: %w: %w", dev.ID(), enabled, ErrGateCommand, err)
	}
	if dev.Enabled() != enabled {
		return fmt.Errorf("device %q enabled=%t: %w: device reports enabled=%t", dev.ID(), enabled, ErrGateCommand, !enabled)
	}
	return nil
}

// IDs returns the attached devices in sorted order.
func (g *Gate) IDs() []DeviceID {
	ids := make([]DeviceID, 0, len(g.devices))
	for id := range g.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
