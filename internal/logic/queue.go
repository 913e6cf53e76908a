package logic

import "sync"

// Queue holds undelivered events in commit order.
//
// Events are delivered by their commit Seq, never by hardware Time: an
// event committed in an earlier dispatch cycle stays ahead of a toggle found
// in a later one even if the toggle carries an earlier timestamp. Within a
// cycle the Dispatcher commits in generation order, so Seq order is
// generation order.
//
// Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{events: make([]Event, 0, 32)}
}

// Push inserts an event at its commit position. Events without a Seq go to
// the back.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Seqs are handed out in push order; search from the back.
	i := len(q.events)
	for i > 0 && e.Seq != 0 && e.Seq < q.events[i-1].Seq {
		i--
	}
	q.events = append(q.events, Event{})
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = e
}

// Pop removes and returns the oldest event.
// Returns (Event{}, false) if the queue is empty.
func (q *Queue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	// Clear the slot so the payload pointers can be collected.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// PopAll removes and returns every queued event in delivery order.
func (q *Queue) PopAll() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := make([]Event, len(q.events))
	copy(out, q.events)
	q.events = make([]Event, 0, cap(q.events))
	return out
}

// Drain discards all queued events and returns how many were dropped.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.events)
	q.events = make([]Event, 0, cap(q.events))
	return n
}

// Discard removes every event matching drop and returns how many went.
func (q *Queue) Discard(drop func(Event) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.events[:0]
	n := 0
	for _, e := range q.events {
		if drop(e) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.events); i++ {
		q.events[i] = Event{}
	}
	q.events = kept
	return n
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

