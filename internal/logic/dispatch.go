package logic

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Dispatcher runs the switch-gated pipeline: switch sources feed the
// SwitchTracker, committed transitions drive the Gate, and every generated
// event lands in the Queue in generation order.
//
// Thread-safety model:
//   - Dispatch, attach and detach hold one lock for the whole operation, so
//     commit sequences, gate flips and queue inserts are published together.
//   - GetEvent, PopAll and Drain may be called from any goroutine.
type Dispatcher struct {
	mu       sync.Mutex
	switches *SwitchTracker
	gate     *Gate
	queue    *Queue
	clock    *Clock
	logger   *slog.Logger
	sources  map[SwitchID]SwitchSource
	dropped  int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithClock sets the commit sequence clock.
func WithClock(c *Clock) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// NewDispatcher creates a dispatcher with the given switch-to-device bindings.
func NewDispatcher(bindings Bindings, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		switches: NewSwitchTracker(),
		gate:     NewGate(bindings),
		queue:    NewQueue(),
		clock:    NewClock(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sources:  make(map[SwitchID]SwitchSource),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AttachSwitch registers a switch source and its state at attach time.
// If the switch is already ON, bound devices are disabled immediately but no
// toggle event is queued. A device rejecting that command fails the attach
// with ErrGateCommand; the switch stays attached.
func (d *Dispatcher) AttachSwitch(src SwitchSource, initial State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := src.ID()
	if err := d.switches.Attach(id, initial); err != nil {
		return err
	}
	d.sources[id] = src
	d.logger.Info("switch attached", "switch", id, "state", initial)

	if initial == StateOn {
		dec, err := d.gate.OnSwitchEvent(SwitchEvent{Switch: id, State: StateOn})
		d.logDecision(dec)
		if err != nil {
			return fmt.Errorf("attach switch %q: %w", id, err)
		}
	}
	return nil
}

// DetachSwitch removes a switch. Devices it was suppressing are re-enabled
// unless another switch still holds them, and its undelivered toggles are
// discarded.
func (d *Dispatcher) DetachSwitch(id SwitchID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.switches.Detach(id); err != nil {
		return err
	}
	delete(d.sources, id)
	dec, err := d.gate.Release(id)
	d.logDecision(dec)
	n := d.queue.Discard(func(e Event) bool {
		return e.Kind == KindSwitchToggle && e.Switch.Switch == id
	})
	d.logger.Info("switch detached", "switch", id, "discarded", n)
	if err != nil {
		return fmt.Errorf("detach switch %q: %w", id, err)
	}
	return nil
}

// AttachDevice starts gating a device. It starts DISABLED if any switch bound
// to it is currently ON.
func (d *Dispatcher) AttachDevice(dev Device) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := dev.ID()
	var suppressedBy []SwitchID
	for _, sw := range d.gate.SwitchesFor(id) {
		st, err := d.switches.State(sw)
		if err != nil {
			// Bound switch not attached yet; it cannot be ON.
			continue
		}
		if st.LastEmitted == StateOn {
			suppressedBy = append(suppressedBy, sw)
		}
	}
	if err := d.gate.Attach(dev, suppressedBy); err != nil {
		return err
	}
	d.logger.Info("device attached", "device", id, "enabled", len(suppressedBy) == 0)
	return nil
}

// DetachDevice removes a device and, in the same critical section, discards
// its undelivered events.
func (d *Dispatcher) DetachDevice(id DeviceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.gate.Detach(id); err != nil {
		return err
	}
	n := d.queue.Discard(func(e Event) bool { return e.Device == id })
	d.logger.Info("device detached", "device", id, "discarded", n)
	return nil
}

type pendingTransition struct {
	sw  SwitchID
	raw RawTransition
}

// Dispatch runs one cycle. Switch sources are polled first; then, for each
// raw transition in timestamp order, devices are polled for input stamped
// before the transition, the transition is observed and its gate decision is
// applied, and its toggle is queued. Finally devices are polled for the rest
// of their buffered input.
//
// Returns a configuration error if a source reports for an unknown switch or
// an invalid state, and an ErrGateCommand error if a bound device did not
// apply its gate command. The toggle that caused the failure is still queued.
func (d *Dispatcher) Dispatch() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var pending []pendingTransition
	for _, id := range d.switches.IDs() {
		for _, raw := range d.sources[id].Poll() {
			pending = append(pending, pendingTransition{sw: id, raw: raw})
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].raw.Time.Before(pending[j].raw.Time)
	})

	for _, p := range pending {
		d.pollDevices(p.raw.Time)

		ev, ok, err := d.switches.Observe(p.sw, p.raw.State, p.raw.Time)
		if err != nil {
			return fmt.Errorf("switch %q: %w", p.sw, err)
		}
		if !ok {
			d.logger.Debug("duplicate switch state ignored", "switch", p.sw, "state", p.raw.State)
			continue
		}

		decision, err := d.gate.OnSwitchEvent(ev)
		d.push(NewSwitchToggle(ev))
		d.logger.Info("switch toggled", "switch", ev.Switch, "state", ev.State)
		d.logDecision(decision)
		if err != nil {
			d.logger.Error("gate command failed", "switch", ev.Switch, "state", ev.State, "err", err)
			return fmt.Errorf("switch %q %s: %w", ev.Switch, ev.State, err)
		}
	}

	d.pollDevices(time.Time{})
	return nil
}

// pollDevices commits every enabled device's events up to limit, merged
// across devices by hardware time so commit order is generation order.
func (d *Dispatcher) pollDevices(limit time.Time) {
	var batch []Event
	for _, id := range d.gate.IDs() {
		dev, _ := d.gate.Device(id)
		events := dev.Poll(limit)
		if len(events) == 0 {
			continue
		}
		if enabled, _ := d.gate.Enabled(id); !enabled {
			d.dropped += len(events)
			d.logger.Warn("events from disabled device dropped", "device", id, "count", len(events))
			continue
		}
		for _, e := range events {
			e.Device = id
			batch = append(batch, e)
		}
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Time.Before(batch[j].Time)
	})
	for _, e := range batch {
		d.push(e)
	}
}

func (d *Dispatcher) push(e Event) {
	e.Seq = d.clock.Next()
	d.queue.Push(e)
}

func (d *Dispatcher) logDecision(dec Decision) {
	for _, id := range dec.Disabled {
		d.logger.Info("device disabled", "device", id, "switch", dec.Switch)
	}
	for _, id := range dec.Enabled {
		d.logger.Info("device enabled", "device", id, "switch", dec.Switch)
	}
}

// GetEvent pulls the next event in generation order.
func (d *Dispatcher) GetEvent() (Event, bool) {
	return d.queue.Pop()
}

// PopAll pulls every pending event in generation order.
func (d *Dispatcher) PopAll() []Event {
	return d.queue.PopAll()
}

// Drain discards every pending event.
func (d *Dispatcher) Drain() int {
	return d.queue.Drain()
}

// Pending returns the number of undelivered events.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// SwitchStatus describes one attached switch.
type SwitchStatus struct {
	ID     SwitchID
	State  SwitchState
	Counts EventCounts
}

// DeviceStatus describes one gated device.
type DeviceStatus struct {
	ID       DeviceID
	State    GateState
	Switches []SwitchID
}

// Snapshot is a point-in-time view of the pipeline.
type Snapshot struct {
	Switches []SwitchStatus
	Devices  []DeviceStatus
	Pending  int
	Dropped  int
}

// Snapshot returns the current switch and device states.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{Pending: d.queue.Len(), Dropped: d.dropped}
	for _, id := range d.switches.IDs() {
		st, _ := d.switches.State(id)
		counts, _ := d.switches.Counts(id)
		snap.Switches = append(snap.Switches, SwitchStatus{ID: id, State: st, Counts: counts})
	}
	for _, id := range d.gate.IDs() {
		st, _ := d.gate.StateOf(id)
		snap.Devices = append(snap.Devices, DeviceStatus{ID: id, State: st, Switches: d.gate.SwitchesFor(id)})
	}
	return snap
}

// SwitchState returns the state of one switch.
func (d *Dispatcher) SwitchState(id SwitchID) (SwitchState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.switches.State(id)
}

// DeviceState returns the gate state of one device.
func (d *Dispatcher) DeviceState(id DeviceID) (GateState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gate.StateOf(id)
}
