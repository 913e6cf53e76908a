// Package device provides the collaborators the gate pipeline polls: switch
// sources and gated input devices. Real implementations read evdev or GPIO
// and write sysfs; the in-memory ones allow testing without hardware.
package device

import (
	"sync"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
)

// Switch is a buffered switch source. Reports are queued by Toggle and
// handed to the dispatcher by Poll.
type Switch struct {
	id logic.SwitchID

	mu      sync.Mutex
	pending []logic.RawTransition
}

// NewSwitch creates an empty switch source.
func NewSwitch(id logic.SwitchID) *Switch {
	return &Switch{id: id}
}

// ID returns the switch id.
func (s *Switch) ID() logic.SwitchID {
	return s.id
}

// Toggle buffers a raw report. Repeated states are buffered too; dedupe is
// the tracker's job.
func (s *Switch) Toggle(state logic.State, t time.Time) {
	s.mu.Lock()
	s.pending = append(s.pending, logic.RawTransition{State: state, Time: t})
	s.mu.Unlock()
}

// Poll returns and clears the buffered reports.
func (s *Switch) Poll() []logic.RawTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// stateFromValue maps a kernel switch value to a logical state.
func stateFromValue(v int) logic.State {
	if v != 0 {
		return logic.StateOn
	}
	return logic.StateOff
}
