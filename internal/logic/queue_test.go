package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestQueueEmpty(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	assert.False(t, ok)
	assert.Nil(t, q.PopAll())
	assert.Equal(t, 0, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestQueueCommitOrderIgnoresTime(t *testing.T) {
	q := NewQueue()

	// Motion committed in one cycle, then a toggle committed in the next
	// whose hardware time is earlier. The motion stays ahead.
	motion := NewMotion("touchpad", at(20), 1, 0)
	motion.Seq = 1
	toggle := NewSwitchToggle(SwitchEvent{Switch: "lid", State: StateOn, Time: at(15)})
	toggle.Seq = 2
	q.Push(motion)
	q.Push(toggle)

	got := q.PopAll()
	assert.Equal(t, []Kind{KindPointerMotion, KindSwitchToggle}, kinds(got))
	assert.Equal(t, 0, q.Len())
}

func TestQueueEqualTimesKeepCommitOrder(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 3; i++ {
		e := NewMotion("touchpad", at(5), float64(i), 0)
		e.Seq = int64(i)
		q.Push(e)
	}
	// Unsequenced events with equal times keep insertion order too.
	q.Push(NewMotion("mouse", at(5), 4, 0))

	var dx []float64
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		dx = append(dx, e.Motion.Dx)
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, dx)
}

func TestQueueOutOfOrderSeqInserts(t *testing.T) {
	q := NewQueue()
	for _, seq := range []int64{3, 1, 4, 2, 5} {
		e := NewMotion("touchpad", at(int(10-seq)), 0, 0)
		e.Seq = seq
		q.Push(e)
	}

	got := q.PopAll()
	require.Len(t, got, 5)
	for i := range got {
		assert.Equal(t, int64(i+1), got[i].Seq)
	}
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue()
	q.Push(NewMotion("touchpad", at(1), 1, 0))
	q.Push(NewMotion("touchpad", at(2), 1, 0))

	assert.Equal(t, 2, q.Drain())
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(NewMotion("touchpad", at(3), 1, 0))
	assert.Equal(t, 1, q.Len(), "queue is usable after drain")
}

func TestQueueDiscard(t *testing.T) {
	q := NewQueue()
	q.Push(NewMotion("touchpad", at(1), 1, 0))
	q.Push(NewMotion("mouse", at(2), 1, 0))
	q.Push(NewMotion("touchpad", at(3), 1, 0))
	q.Push(NewSwitchToggle(SwitchEvent{Switch: "lid", State: StateOn, Time: at(4)}))

	n := q.Discard(func(e Event) bool { return e.Device == "touchpad" })
	assert.Equal(t, 2, n)

	got := q.PopAll()
	require.Len(t, got, 2)
	assert.Equal(t, DeviceID("mouse"), got[0].Device)
	assert.Equal(t, KindSwitchToggle, got[1].Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SWITCH_TOGGLE", KindSwitchToggle.String())
	assert.Equal(t, "POINTER_MOTION", KindPointerMotion.String())
	assert.Equal(t, "POINTER_AXIS", KindPointerAxis.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
