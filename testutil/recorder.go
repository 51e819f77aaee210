// Package testutil holds test doubles shared by the executor's packages.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Delivery is one notification received by a Recorder.
type Delivery struct {
	To           types.FederateHandle
	Notification notify.Notification
}

// Recorder is a notify.Sink that keeps every delivery in order.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Send(to types.FederateHandle, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{To: to, Notification: n})
}

// All returns every delivery so far.
func (r *Recorder) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// To returns the notifications delivered to h.
func (r *Recorder) To(h types.FederateHandle) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, d := range r.deliveries {
		if d.To == h {
			out = append(out, d.Notification)
		}
	}
	return out
}

// Kinds returns the kinds of the notifications delivered to h.
func (r *Recorder) Kinds(h types.FederateHandle) []string {
	var out []string
	for _, n := range r.To(h) {
		out = append(out, n.Kind())
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}

// Transcript renders every delivery as one line:
//
//	federate-2 <- TimeAdvanceGrant {"time":"10"}
func (r *Recorder) Transcript() []byte {
	var buf bytes.Buffer
	for _, d := range r.All() {
		body, err := json.Marshal(d.Notification)
		if err != nil {
			body = []byte(fmt.Sprintf("<%v>", err))
		}
		fmt.Fprintf(&buf, "%v <- %s %s\n", d.To, d.Notification.Kind(), body)
	}
	return buf.Bytes()
}
