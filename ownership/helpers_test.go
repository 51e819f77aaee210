package ownership

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

const (
	classVehicle types.ObjectClassHandle = 10

	attrX types.AttributeHandle = 2
	attrY types.AttributeHandle = 3
	attrZ types.AttributeHandle = 4

	fedA types.FederateHandle = 1
	fedB types.FederateHandle = 2
	fedC types.FederateHandle = 3
)

// fakeCatalog defines one class with attributes 1 (privilege to delete) to 4.
type fakeCatalog struct{}

func (fakeCatalog) IsValidObjectClass(c types.ObjectClassHandle) bool { return c == classVehicle }

func (fakeCatalog) IsValidAttribute(c types.ObjectClassHandle, a types.AttributeHandle) bool {
	return c == classVehicle && a >= types.PrivilegeToDeleteAttribute && a <= attrZ
}

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

func attrs(a ...types.AttributeHandle) []types.AttributeHandle { return a }

// newTestObject registers an object of classVehicle owned by registrant with
// the given published attributes.
func newTestObject(t *testing.T, registrant types.FederateHandle, published ...types.AttributeHandle) (*Manager, *ObjectInstance, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(fakeCatalog{}, notify.NewOutbox(rec))
	info, err := m.Register(registrant, classVehicle, published, "")
	require.NoError(t, err)
	o, err := m.Object(info.Handle)
	require.NoError(t, err)
	return m, o, rec
}

// unowned registers an object and drops ownership of the given attributes.
func unowned(t *testing.T, a ...types.AttributeHandle) (*Manager, *ObjectInstance, *recorder) {
	t.Helper()
	m, o, rec := newTestObject(t, fedC, a...)
	require.NoError(t, o.UnconditionalDivest(fedC, a))
	rec.reset()
	return m, o, rec
}

// checkSingleOwnership verifies that no owner waits in its own line and that
// unowned attributes have nobody waiting.
func checkSingleOwnership(t *testing.T, o *ObjectInstance) {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for a, r := range o.attributes {
		if r.owned() {
			require.False(t, r.line.Contains(r.owner), "owner of %d waits for it", a)
		} else {
			require.Zero(t, r.line.Len(), "unowned attribute %d has a line", a)
		}
		require.Len(t, r.line.members, len(r.line.queue), "line index out of sync for %d", a)
	}
}
