package logic

import (
	"fmt"
	"sort"
	"time"
)

// SwitchTracker deduplicates raw switch reports into committed events.
// Not safe for concurrent use; the Dispatcher serialises access.
type SwitchTracker struct {
	switches map[SwitchID]*switchEntry
}

type switchEntry struct {
	state  SwitchState
	counts EventCounts
}

// NewSwitchTracker creates an empty tracker.
func NewSwitchTracker() *SwitchTracker {
	return &SwitchTracker{switches: make(map[SwitchID]*switchEntry)}
}

// Attach registers a switch with its state at attach time. No event is
// produced for the initial state.
func (t *SwitchTracker) Attach(id SwitchID, initial State) error {
	if !initial.Valid() {
		return fmt.Errorf("attach switch %q: %w: %q", id, ErrInvalidState, initial)
	}
	if _, ok := t.switches[id]; ok {
		return fmt.Errorf("attach switch %q: %w", id, ErrSwitchExists)
	}
	t.switches[id] = &switchEntry{state: SwitchState{Current: initial, LastEmitted: initial}}
	return nil
}

// Detach forgets a switch.
func (t *SwitchTracker) Detach(id SwitchID) error {
	if _, ok := t.switches[id]; !ok {
		return fmt.Errorf("detach switch %q: %w", id, ErrUnknownSwitch)
	}
	delete(t.switches, id)
	return nil
}

// Observe feeds one raw report. It returns ok=true with a SwitchEvent only if
// raw differs from the last emitted state; repeats are no-ops. The event keeps
// the raw timestamp for downstream ordering.
func (t *SwitchTracker) Observe(id SwitchID, raw State, ts time.Time) (SwitchEvent, bool, error) {
	entry, ok := t.switches[id]
	if !ok {
		return SwitchEvent{}, false, fmt.Errorf("observe switch %q: %w", id, ErrUnknownSwitch)
	}
	if !raw.Valid() {
		return SwitchEvent{}, false, fmt.Errorf("observe switch %q: %w: %q", id, ErrInvalidState, raw)
	}

	entry.state.Current = raw
	if raw == entry.state.LastEmitted {
		return SwitchEvent{}, false, nil
	}

	entry.state.LastEmitted = raw
	if raw == StateOn {
		entry.counts.On++
	} else {
		entry.counts.Off++
	}
	return SwitchEvent{Switch: id, State: raw, Time: ts}, true, nil
}

// State returns the current state of a switch.
func (t *SwitchTracker) State(id SwitchID) (SwitchState, error) {
	entry, ok := t.switches[id]
	if !ok {
		return SwitchState{}, fmt.Errorf("switch %q: %w", id, ErrUnknownSwitch)
	}
	return entry.state, nil
}

// Counts returns the committed event counts for a switch.
func (t *SwitchTracker) Counts(id SwitchID) (EventCounts, error) {
	entry, ok := t.switches[id]
	if !ok {
		return EventCounts{}, fmt.Errorf("switch %q: %w", id, ErrUnknownSwitch)
	}
	return entry.counts, nil
}

// IDs returns the attached switches in sorted order.
func (t *SwitchTracker) IDs() []SwitchID {
	ids := make([]SwitchID, 0, len(t.switches))
	for id := range t.switches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
