package timekeeper

import (
	"cmp"
	"container/heap"
	"slices"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
)

// heldMessage is a timestamp-order message waiting for its recipient's grant.
type heldMessage struct {
	time  logicaltime.Time
	seq   uint64 // arrival order, breaks timestamp ties
	n     notify.Notification
	index int
}

// heldQueue orders held messages by timestamp, then by arrival.
type heldQueue []*heldMessage

func (q heldQueue) Len() int { return len(q) }

func (q heldQueue) Less(i, j int) bool {
	if c := q[i].time.Compare(q[j].time); c != 0 {
		return c < 0
	}
	return q[i].seq < q[j].seq
}

func (q heldQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *heldQueue) Push(x any) {
	m := x.(*heldMessage)
	m.index = len(*q)
	*q = append(*q, m)
}

func (q *heldQueue) Pop() any {
	old := *q
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	m.index = -1
	*q = old[:n-1]
	return m
}

func (q *heldQueue) push(m *heldMessage) { heap.Push(q, m) }

// earliest returns the smallest held timestamp, or nil when empty.
func (q heldQueue) earliest() logicaltime.Time {
	if len(q) == 0 {
		return nil
	}
	return q[0].time
}

// popWhile removes and returns, in timestamp order, every message for which
// keep returns true.
func (q *heldQueue) popWhile(keep func(logicaltime.Time) bool) []*heldMessage {
	var out []*heldMessage
	for q.Len() > 0 && keep((*q)[0].time) {
		out = append(out, heap.Pop(q).(*heldMessage))
	}
	return out
}

// drainByArrival empties the queue and returns its messages in arrival order.
func (q *heldQueue) drainByArrival() []*heldMessage {
	out := make([]*heldMessage, len(*q))
	copy(out, *q)
	*q = nil
	slices.SortFunc(out, func(a, b *heldMessage) int { return cmp.Compare(a.seq, b.seq) })
	return out
}
