package timekeeper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

type delivery struct {
	to types.FederateHandle
	n  notify.Notification
}

type recorder struct {
	mu  sync.Mutex
	got []delivery
}

func (r *recorder) Send(to types.FederateHandle, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery{to, n})
}

// to returns what federate h received, in order.
func (r *recorder) to(h types.FederateHandle) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, d := range r.got {
		if d.to == h {
			out = append(out, d.n)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.got = nil
	r.mu.Unlock()
}

func it(v int64) logicaltime.Time     { return logicaltime.Integer64Time(v) }
func iv(v int64) logicaltime.Interval { return logicaltime.Integer64Interval(v) }

func grantAt(v int64) notify.Notification { return notify.TimeAdvanceGrant{Time: it(v)} }

// msg is a test message carrying its timestamp and order.
type msg struct {
	Label string
	Order types.OrderType
}

func (msg) Kind() string { return "TestMessage" }

func builder(label string) MessageBuilder {
	return func(order types.OrderType) notify.Notification { return msg{Label: label, Order: order} }
}

func newTestCoordinator(t *testing.T, federates int, opts ...Option) (*Coordinator, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := NewCoordinator(logicaltime.Integer64Factory{}, notify.NewOutbox(rec), opts...)
	for h := 1; h <= federates; h++ {
		c.AddFederate(types.FederateHandle(h))
	}
	return c, rec
}

// checkInvariants recomputes GALT and every LITS from scratch and compares
// them with the coordinator's incremental state.
func checkInvariants(t *testing.T, c *Coordinator) {
	t.Helper()
	c.mu.RLock()
	defer c.mu.RUnlock()

	want := c.factory.Final()
	for h, r := range c.regulating {
		lits := logicaltime.AddOrFinal(r.clock.base(), r.lookahead, c.factory.Final())
		require.Zero(t, lits.Compare(r.lits), "LITS of %v is %v, expected %v", h, r.lits, lits)
		want = logicaltime.Min(want, lits)
	}
	require.Zero(t, want.Compare(c.galt), "GALT is %v, expected %v", c.galt, want)

	for h, k := range c.constrained {
		require.True(t, logicaltime.AtOrBefore(k.clock.time, c.galt),
			"constrained %v at %v is beyond GALT %v", h, k.clock.time, c.galt)
	}
	for h, f := range c.federates {
		if f.pending != nil {
			require.True(t, logicaltime.AtOrBefore(f.time, f.pending.target), "%v target behind its time", h)
		}
		_, constrained := c.constrained[h]
		if !constrained {
			require.Zero(t, f.held.Len(), "unconstrained %v holds messages", h)
		}
	}
}
