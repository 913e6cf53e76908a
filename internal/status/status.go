// Package status provides a thread-safe status tracker for the lidgate daemon.
// It is read by the HTTP handlers and by the heartbeat publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/lidgate/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPPort    string
	Sources     []string // human-readable switch sources, e.g. "lid=/dev/input/event0"
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Session       string
	Pipeline      logic.Snapshot
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Outbox        Outbox
	Config        Config
}

// Outbox summarises MQTT messages queued while the broker is unreachable.
type Outbox struct {
	Buffered   int
	Dropped    int
	Superseded int
	DroppedBy  map[string]int // per switch id or system event
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Closed reports whether any tracked switch is ON.
func (s Snapshot) Closed() bool {
	for _, sw := range s.Pipeline.Switches {
		if sw.State.LastEmitted == logic.StateOn {
			return true
		}
	}
	return false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(session string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Session:   session,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp snapshots.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Update records the latest pipeline snapshot.
// Called from the run loop after every dispatch.
func (t *Tracker) Update(p logic.Snapshot) {
	t.mu.Lock()
	t.snap.Pipeline = p
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetOutbox records the MQTT outbox counters.
func (t *Tracker) SetOutbox(o Outbox) {
	t.mu.Lock()
	t.snap.Outbox = o
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}

// Heartbeat decides when a periodic status event is due.
// Not safe for concurrent use; the run loop owns it.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat creates a heartbeat timer starting at start.
// An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether the interval has elapsed since the last heartbeat (or
// start) and, if so, restarts the interval at now.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 {
		return false
	}
	if now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
