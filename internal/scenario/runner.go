package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/lidgate/internal/device"
	"github.com/sweeney/lidgate/internal/logic"
)

// Epoch is the virtual time of the first input.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Tick is how far the virtual clock advances after each input.
const Tick = time.Millisecond

// Entry is one delivered event, labelled with the dispatch step that
// produced it.
type Entry struct {
	Dispatch int
	Event    logic.Event
}

// Result is the outcome of a run.
type Result struct {
	Name       string
	Dispatches int
	Trace      []Entry
	Drained    int
	Final      logic.Snapshot
}

// Runner executes scenarios.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{logger: logger}
}

type run struct {
	s         *Scenario
	d         *logic.Dispatcher
	switches  map[string]*device.Switch
	touchpads map[string]*device.Touchpad
	finger    map[string][2]float64
	now       time.Time
	res       *Result
}

// Run executes s against a fresh dispatcher.
func (r *Runner) Run(s *Scenario) (*Result, error) {
	bindings := make(logic.Bindings, len(s.Bindings))
	for sw, devs := range s.Bindings {
		for _, dev := range devs {
			bindings[logic.SwitchID(sw)] = append(bindings[logic.SwitchID(sw)], logic.DeviceID(dev))
		}
	}

	st := &run{
		s:         s,
		d:         logic.NewDispatcher(bindings, logic.WithLogger(r.logger.With("scenario", s.Name))),
		switches:  make(map[string]*device.Switch),
		touchpads: make(map[string]*device.Touchpad),
		finger:    make(map[string][2]float64),
		now:       Epoch,
		res:       &Result{Name: s.Name},
	}

	for _, spec := range s.Switches {
		sw := device.NewSwitch(logic.SwitchID(spec.ID))
		initial := logic.StateOff
		if spec.Initial != "" {
			initial = logic.State(spec.Initial)
		}
		if err := st.d.AttachSwitch(sw, initial); err != nil {
			return nil, fmt.Errorf("attach switch %s: %w", spec.ID, err)
		}
		st.switches[spec.ID] = sw
	}
	for _, spec := range s.Touchpads {
		tp := device.NewTouchpad(logic.DeviceID(spec.ID), device.TouchpadOptions{EdgeScroll: spec.EdgeScroll})
		if err := st.d.AttachDevice(tp); err != nil {
			return nil, fmt.Errorf("attach touchpad %s: %w", spec.ID, err)
		}
		st.touchpads[spec.ID] = tp
	}

	for i, step := range s.Steps {
		if err := st.step(step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}

	st.res.Final = st.d.Snapshot()
	return st.res, nil
}

func (st *run) stamp() time.Time {
	t := st.now
	st.now = st.now.Add(Tick)
	return t
}

func (st *run) step(step Step) error {
	switch step.Action {
	case ActionSwitch:
		sw, ok := st.switches[step.Target]
		if !ok {
			return fmt.Errorf("%w: %s", logic.ErrUnknownSwitch, step.Target)
		}
		sw.Toggle(logic.State(step.State), st.stamp())

	case ActionDown:
		tp, err := st.touchpad(step.Target)
		if err != nil {
			return err
		}
		tp.TouchDown(step.X, step.Y, st.stamp())
		st.finger[step.Target] = [2]float64{step.X, step.Y}

	case ActionMove:
		tp, err := st.touchpad(step.Target)
		if err != nil {
			return err
		}
		from := st.finger[step.Target]
		n := step.Steps
		if n == 0 {
			n = 1
		}
		for i := 1; i <= n; i++ {
			x := from[0] + (step.X-from[0])*float64(i)/float64(n)
			y := from[1] + (step.Y-from[1])*float64(i)/float64(n)
			tp.TouchMove(x, y, st.stamp())
		}
		st.finger[step.Target] = [2]float64{step.X, step.Y}

	case ActionUp:
		tp, err := st.touchpad(step.Target)
		if err != nil {
			return err
		}
		tp.TouchUp(st.stamp())

	case ActionWait:
		st.now = st.now.Add(step.Wait)

	case ActionDispatch:
		if err := st.d.Dispatch(); err != nil {
			return err
		}
		st.res.Dispatches++
		for _, ev := range st.d.PopAll() {
			st.res.Trace = append(st.res.Trace, Entry{Dispatch: st.res.Dispatches, Event: ev})
		}

	case ActionDrain:
		if err := st.d.Dispatch(); err != nil {
			return err
		}
		st.res.Drained += st.d.Drain()

	case ActionDetach:
		if _, ok := st.switches[step.Target]; ok {
			delete(st.switches, step.Target)
			return st.d.DetachSwitch(logic.SwitchID(step.Target))
		}
		if _, ok := st.touchpads[step.Target]; ok {
			delete(st.touchpads, step.Target)
			return st.d.DetachDevice(logic.DeviceID(step.Target))
		}
		return fmt.Errorf("%w: %s", logic.ErrUnknownDevice, step.Target)

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func (st *run) touchpad(id string) (*device.Touchpad, error) {
	tp, ok := st.touchpads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", logic.ErrUnknownDevice, id)
	}
	return tp, nil
}

// Kinds returns the kinds of the traced events in delivery order.
func (r *Result) Kinds() []logic.Kind {
	out := make([]logic.Kind, 0, len(r.Trace))
	for _, e := range r.Trace {
		out = append(out, e.Event.Kind)
	}
	return out
}

// ByDispatch groups the trace by dispatch step, 1-based.
func (r *Result) ByDispatch() map[int][]logic.Event {
	out := make(map[int][]logic.Event)
	for _, e := range r.Trace {
		out[e.Dispatch] = append(out[e.Dispatch], e.Event)
	}
	return out
}
