package ownership

import (
	"slices"

	"github.com/jathurchan/rtiexec/types"
)

// ownershipLine is the FIFO of federates waiting to acquire one attribute.
// Membership checks are O(1); a federate appears at most once.
type ownershipLine struct {
	queue   []types.FederateHandle
	members map[types.FederateHandle]struct{}
}

func (l *ownershipLine) Len() int { return len(l.queue) }

func (l *ownershipLine) Contains(h types.FederateHandle) bool {
	_, ok := l.members[h]
	return ok
}

// Push appends h unless it is already waiting. It reports whether h was added.
func (l *ownershipLine) Push(h types.FederateHandle) bool {
	if l.Contains(h) {
		return false
	}
	if l.members == nil {
		l.members = make(map[types.FederateHandle]struct{})
	}
	l.members[h] = struct{}{}
	l.queue = append(l.queue, h)
	return true
}

// PopFront removes and returns the longest-waiting federate.
func (l *ownershipLine) PopFront() (types.FederateHandle, bool) {
	if len(l.queue) == 0 {
		return types.NoFederate, false
	}
	h := l.queue[0]
	l.queue = l.queue[1:]
	if len(l.queue) == 0 {
		l.queue = nil
	}
	delete(l.members, h)
	return h, true
}

// Remove takes h out of the line wherever it stands.
func (l *ownershipLine) Remove(h types.FederateHandle) bool {
	if !l.Contains(h) {
		return false
	}
	delete(l.members, h)
	if i := slices.Index(l.queue, h); i >= 0 {
		l.queue = slices.Delete(l.queue, i, i+1)
	}
	return true
}

// Members returns the waiting federates, longest-waiting first.
func (l *ownershipLine) Members() []types.FederateHandle {
	return slices.Clone(l.queue)
}
