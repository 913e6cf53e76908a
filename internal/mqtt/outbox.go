package mqtt

import "log/slog"

// outboxMsg is a serialized message held while the broker is unreachable.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool

	// source is the switch id or system event name, used for drop counts.
	source string
	// key, if set, marks the message as superseding any queued message
	// with the same key: a newer heartbeat or retained status makes the
	// older one worthless.
	key string
}

// BufferStats describes the disconnected-publish outbox.
type BufferStats struct {
	Buffered   int            // messages waiting for a connection
	Dropped    int            // messages evicted because the outbox was full
	Superseded int            // messages replaced by a newer one with the same key
	DroppedBy  map[string]int // evictions per switch id or system event
}

// outbox queues messages in publish order while disconnected. Switch toggles
// are kept in order and never coalesced; keyed system messages replace their
// queued predecessor. When full the oldest message is evicted.
// Not safe for concurrent use; RealPublisher holds its mutex around it.
type outbox struct {
	msgs       []outboxMsg
	capacity   int
	dropped    map[string]int
	superseded int
	warned     bool
	logger     *slog.Logger
}

func newOutbox(capacity int, logger *slog.Logger) *outbox {
	return &outbox{
		msgs:     make([]outboxMsg, 0, capacity),
		capacity: capacity,
		dropped:  make(map[string]int),
		logger:   logger,
	}
}

func (o *outbox) push(m outboxMsg) {
	if m.key != "" {
		for i, old := range o.msgs {
			if old.key == m.key {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				o.superseded++
				break
			}
		}
	}
	if len(o.msgs) == o.capacity {
		evicted := o.msgs[0]
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
		o.dropped[evicted.source]++
		if !o.warned {
			o.logger.Warn("outbox full, dropping oldest", "capacity", o.capacity, "source", evicted.source)
			o.warned = true
		}
	}
	o.msgs = append(o.msgs, m)
}

// drain returns the queued messages oldest first and empties the outbox.
// Drop counters are cumulative and survive a drain.
func (o *outbox) drain() []outboxMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]outboxMsg, 0, o.capacity)
	o.warned = false
	return out
}

func (o *outbox) stats() BufferStats {
	s := BufferStats{
		Buffered:   len(o.msgs),
		Superseded: o.superseded,
	}
	if len(o.dropped) > 0 {
		s.DroppedBy = make(map[string]int, len(o.dropped))
		for src, n := range o.dropped {
			s.DroppedBy[src] = n
			s.Dropped += n
		}
	}
	return s
}
