package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweeney/lidgate/internal/logic"
)

// FormatTrace renders a result as stable text, one delivered event per line.
// Offsets are relative to Epoch. A dispatch that delivered nothing is shown
// as "[n] -".
func FormatTrace(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Name)

	byDispatch := r.ByDispatch()
	for n := 1; n <= r.Dispatches; n++ {
		events := byDispatch[n]
		if len(events) == 0 {
			fmt.Fprintf(&b, "[%d] -\n", n)
			continue
		}
		for _, ev := range events {
			fmt.Fprintf(&b, "[%d] +%s %s\n", n, ev.Time.Sub(Epoch), describe(ev))
		}
	}

	for _, sw := range r.Final.Switches {
		fmt.Fprintf(&b, "final switch %s %s on=%d off=%d\n", sw.ID, sw.State.LastEmitted, sw.Counts.On, sw.Counts.Off)
	}
	for _, dev := range r.Final.Devices {
		fmt.Fprintf(&b, "final device %s %s\n", dev.ID, dev.State)
	}
	return b.String()
}

func describe(ev logic.Event) string {
	switch ev.Kind {
	case logic.KindSwitchToggle:
		return fmt.Sprintf("%s %s %s", ev.Kind, ev.Switch.Switch, ev.Switch.State)
	case logic.KindPointerMotion:
		return fmt.Sprintf("%s %s dx=%.2f dy=%.2f", ev.Kind, ev.Device, ev.Motion.Dx, ev.Motion.Dy)
	case logic.KindPointerAxis:
		return fmt.Sprintf("%s %s %s %s value=%.2f", ev.Kind, ev.Device, ev.Axis.Axis, ev.Axis.Source, ev.Axis.Value)
	}
	return ev.Kind.String()
}

// TraceEvent is the JSON form of one delivered event.
type TraceEvent struct {
	Dispatch int      `json:"dispatch"`
	Offset   string   `json:"offset"`
	Kind     string   `json:"kind"`
	Seq      int64    `json:"seq"`
	Switch   string   `json:"switch,omitempty"`
	State    string   `json:"state,omitempty"`
	Device   string   `json:"device,omitempty"`
	Dx       *float64 `json:"dx,omitempty"`
	Dy       *float64 `json:"dy,omitempty"`
	Axis     string   `json:"axis,omitempty"`
	Value    *float64 `json:"value,omitempty"`
}

// TraceJSON renders a result as indented JSON.
func TraceJSON(r *Result) ([]byte, error) {
	out := struct {
		Scenario string       `json:"scenario"`
		Events   []TraceEvent `json:"events"`
		Drained  int          `json:"drained"`
	}{Scenario: r.Name, Events: []TraceEvent{}, Drained: r.Drained}

	for _, e := range r.Trace {
		ev := e.Event
		elapsed := ev.Time.Sub(Epoch)
		te := TraceEvent{
			Dispatch: e.Dispatch,
			Offset:   elapsed.String(),
			Kind:     ev.Kind.String(),
			Seq:      ev.Seq,
			Device:   string(ev.Device),
		}
		switch ev.Kind {
		case logic.KindSwitchToggle:
			te.Switch = string(ev.Switch.Switch)
			te.State = string(ev.Switch.State)
		case logic.KindPointerMotion:
			te.Dx, te.Dy = &ev.Motion.Dx, &ev.Motion.Dy
		case logic.KindPointerAxis:
			te.Axis = string(ev.Axis.Axis)
			te.Value = &ev.Axis.Value
		}
		out.Events = append(out.Events, te)
	}
	return json.MarshalIndent(out, "", "  ")
}
