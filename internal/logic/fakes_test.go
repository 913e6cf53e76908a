package logic

import (
	"sync"
	"time"
)

// fakeSwitch is a scripted switch source.
type fakeSwitch struct {
	id      SwitchID
	pending []RawTransition
}

func newFakeSwitch(id SwitchID) *fakeSwitch {
	return &fakeSwitch{id: id}
}

func (s *fakeSwitch) ID() SwitchID { return s.id }

func (s *fakeSwitch) emit(state State, t time.Time) {
	s.pending = append(s.pending, RawTransition{State: state, Time: t})
}

func (s *fakeSwitch) Poll() []RawTransition {
	out := s.pending
	s.pending = nil
	return out
}

// fakeDevice generates one motion event per scripted input time. Input is
// discarded while disabled.
type fakeDevice struct {
	devID DeviceID

	mu       sync.Mutex
	enabled  bool
	inputs   []time.Time
	commands []bool

	// leak makes Poll ignore the enabled flag, to exercise the dispatcher's guard.
	leak bool
	// fail is returned from SetEnabled without applying the command.
	fail error
	// stuck makes SetEnabled report success without applying the command.
	stuck bool
}

func newFakeDevice(id DeviceID) *fakeDevice {
	return &fakeDevice{devID: id, enabled: true}
}

func (d *fakeDevice) ID() DeviceID { return d.devID }

func (d *fakeDevice) SetEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, enabled)
	if d.fail != nil {
		return d.fail
	}
	if !d.stuck {
		d.enabled = enabled
	}
	return nil
}

func (d *fakeDevice) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *fakeDevice) input(t time.Time) {
	d.mu.Lock()
	d.inputs = append(d.inputs, t)
	d.mu.Unlock()
}

func (d *fakeDevice) Poll(limit time.Time) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.inputs)
	if !limit.IsZero() {
		n = 0
		for n < len(d.inputs) && d.inputs[n].Before(limit) {
			n++
		}
	}
	due := d.inputs[:n]
	d.inputs = append([]time.Time(nil), d.inputs[n:]...)
	if !d.enabled && !d.leak {
		return nil
	}
	events := make([]Event, 0, len(due))
	for _, t := range due {
		events = append(events, NewMotion(d.devID, t, 1, 0))
	}
	return events
}
