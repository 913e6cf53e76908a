package device

import (
	"sync"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
)

// DefaultEdgeSize is the width of the scroll edges in percent of the
// touchpad size.
const DefaultEdgeSize = 7.0

// TouchpadOptions configures a Touchpad.
type TouchpadOptions struct {
	// EdgeScroll turns touches that start in the right or bottom edge into
	// vertical or horizontal finger scrolling.
	EdgeScroll bool
	// EdgeSize is the edge width in percent. Zero means DefaultEdgeSize.
	EdgeSize float64
}

type frameKind int

const (
	frameDown frameKind = iota + 1
	frameMove
	frameUp
)

type frame struct {
	kind frameKind
	x, y float64
	t    time.Time
}

type touch struct {
	active    bool
	x, y      float64
	edge      logic.Axis // empty for pointer motion
	scrolling bool
}

// Touchpad is a single-finger touchpad. Coordinates are in percent of the
// touchpad size. Frames are buffered until the dispatcher polls.
//
// While disabled the touchpad discards input. Disabling abandons any touch
// in progress without emitting anything; after re-enable, frames belonging
// to that touch are ignored until the next touch down.
type Touchpad struct {
	id   logic.DeviceID
	opts TouchpadOptions

	mu      sync.Mutex
	enabled bool
	frames  []frame
	touch   touch
}

// NewTouchpad creates an enabled touchpad.
func NewTouchpad(id logic.DeviceID, opts TouchpadOptions) *Touchpad {
	if opts.EdgeSize <= 0 {
		opts.EdgeSize = DefaultEdgeSize
	}
	return &Touchpad{id: id, opts: opts, enabled: true}
}

// ID returns the device id.
func (p *Touchpad) ID() logic.DeviceID {
	return p.id
}

// SetEnabled enables or disables event generation. It never fails.
// Disabling drops any active touch, so a scroll in progress gets no zero
// step when the finger later lifts.
func (p *Touchpad) SetEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled == enabled {
		return nil
	}
	p.enabled = enabled
	p.touch = touch{}
	return nil
}

// Enabled reports whether the touchpad generates events.
func (p *Touchpad) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEdgeScroll toggles edge scrolling for subsequent touches.
func (p *Touchpad) SetEdgeScroll(on bool) {
	p.mu.Lock()
	p.opts.EdgeScroll = on
	p.mu.Unlock()
}

// TouchDown buffers a finger landing at (x, y).
func (p *Touchpad) TouchDown(x, y float64, t time.Time) {
	p.buffer(frame{kind: frameDown, x: x, y: y, t: t})
}

// TouchMove buffers the finger moving to (x, y).
func (p *Touchpad) TouchMove(x, y float64, t time.Time) {
	p.buffer(frame{kind: frameMove, x: x, y: y, t: t})
}

// TouchUp buffers the finger lifting.
func (p *Touchpad) TouchUp(t time.Time) {
	p.buffer(frame{kind: frameUp, t: t})
}

func (p *Touchpad) buffer(f frame) {
	p.mu.Lock()
	p.frames = append(p.frames, f)
	p.mu.Unlock()
}

// Poll processes frames stamped strictly before limit, or all frames when
// limit is zero.
func (p *Touchpad) Poll(limit time.Time) []logic.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.frames)
	if !limit.IsZero() {
		n = 0
		for n < len(p.frames) && p.frames[n].t.Before(limit) {
			n++
		}
	}
	due := p.frames[:n]
	p.frames = append([]frame(nil), p.frames[n:]...)

	if !p.enabled {
		return nil
	}

	var events []logic.Event
	for _, f := range due {
		if ev, ok := p.process(f); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (p *Touchpad) process(f frame) (logic.Event, bool) {
	switch f.kind {
	case frameDown:
		p.touch = touch{active: true, x: f.x, y: f.y, edge: p.edgeAt(f.x, f.y)}
		return logic.Event{}, false

	case frameMove:
		if !p.touch.active {
			return logic.Event{}, false
		}
		dx, dy := f.x-p.touch.x, f.y-p.touch.y
		p.touch.x, p.touch.y = f.x, f.y
		switch p.touch.edge {
		case logic.AxisVertical:
			if dy == 0 {
				return logic.Event{}, false
			}
			p.touch.scrolling = true
			return logic.NewAxis(p.id, f.t, logic.AxisVertical, dy), true
		case logic.AxisHorizontal:
			if dx == 0 {
				return logic.Event{}, false
			}
			p.touch.scrolling = true
			return logic.NewAxis(p.id, f.t, logic.AxisHorizontal, dx), true
		}
		if dx == 0 && dy == 0 {
			return logic.Event{}, false
		}
		return logic.NewMotion(p.id, f.t, dx, dy), true

	case frameUp:
		ended := p.touch
		p.touch = touch{}
		if ended.active && ended.scrolling {
			// A finger lifting off a scroll edge ends the scroll with a zero step.
			return logic.NewAxis(p.id, f.t, ended.edge, 0), true
		}
		return logic.Event{}, false
	}
	return logic.Event{}, false
}

func (p *Touchpad) edgeAt(x, y float64) logic.Axis {
	if !p.opts.EdgeScroll {
		return ""
	}
	if x >= 100-p.opts.EdgeSize {
		return logic.AxisVertical
	}
	if y >= 100-p.opts.EdgeSize {
		return logic.AxisHorizontal
	}
	return ""
}
