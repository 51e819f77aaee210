package notify

import (
	"sync"

	"github.com/jathurchan/rtiexec/types"
)

// Sink delivers notifications to federates.
//
// Send is fire-and-forget and must preserve order per destination. It must
// not block on network I/O; session implementations enqueue and return.
type Sink interface {
	Send(to types.FederateHandle, n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(to types.FederateHandle, n Notification)

// Send calls f(to, n).
func (f SinkFunc) Send(to types.FederateHandle, n Notification) { f(to, n) }

// Envelope is a notification together with its destination and the position
// at which the coordinator decided it.
type Envelope struct {
	Seq          uint64
	To           types.FederateHandle
	Notification Notification
}

// Outbox decouples deciding a notification from delivering it.
//
// Coordinators Post while holding their own locks and Flush after releasing
// them. Flushes are serialized and drain in Post order, so every destination
// observes notifications in the order they were decided even when several
// goroutines flush concurrently.
type Outbox struct {
	mu      sync.Mutex
	pending []Envelope
	seq     uint64

	flushMu sync.Mutex
	sink    Sink
}

// NewOutbox returns an Outbox delivering to sink. A nil sink discards everything.
func NewOutbox(sink Sink) *Outbox {
	if sink == nil {
		sink = SinkFunc(func(types.FederateHandle, Notification) {})
	}
	return &Outbox{sink: sink}
}

// Post queues n for delivery to federate to. It never blocks on delivery.
func (o *Outbox) Post(to types.FederateHandle, n Notification) {
	o.mu.Lock()
	o.seq++
	o.pending = append(o.pending, Envelope{Seq: o.seq, To: to, Notification: n})
	o.mu.Unlock()
}

// PostAll queues the same notification for each federate in order.
func (o *Outbox) PostAll(to []types.FederateHandle, n Notification) {
	for _, h := range to {
		o.Post(h, n)
	}
}

// Flush delivers everything posted so far.
func (o *Outbox) Flush() {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	for {
		o.mu.Lock()
		batch := o.pending
		o.pending = nil
		o.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, env := range batch {
			o.sink.Send(env.To, env.Notification)
		}
	}
}

// Pending returns the number of notifications posted but not yet flushed.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Tee fans every notification out to each sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(to types.FederateHandle, n Notification) {
		for _, s := range sinks {
			if s != nil {
				s.Send(to, n)
			}
		}
	})
}
