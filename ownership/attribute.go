package ownership

import (
	"fmt"

	"github.com/jathurchan/rtiexec/types"
)

// attributeInstance is the ownership record of one attribute of one object.
// It is only touched under its object's lock.
type attributeInstance struct {
	handle types.AttributeHandle
	owner  types.FederateHandle

	// wantsToDivest is set while the owner offers the attribute through a
	// negotiated divestiture; divestTag is the tag it offered it with.
	wantsToDivest bool
	divestTag     []byte

	line ownershipLine
}

func (a *attributeInstance) owned() bool { return a.owner != types.NoFederate }

func (a *attributeInstance) ownedBy(h types.FederateHandle) bool {
	return h != types.NoFederate && a.owner == h
}

// divest hands the attribute to the head of the line, or leaves it unowned.
// It returns the new owner and the divesting tag.
func (a *attributeInstance) divest() (types.FederateHandle, []byte) {
	tag := a.divestTag
	a.wantsToDivest = false
	a.divestTag = nil

	next, ok := a.line.PopFront()
	if !ok {
		a.owner = types.NoFederate
		return types.NoFederate, nil
	}
	a.owner = next
	a.check()
	return next, tag
}

// negotiate marks the attribute as offered and reports whether anyone waits for it.
func (a *attributeInstance) negotiate(tag []byte) bool {
	a.wantsToDivest = true
	a.divestTag = tag
	return a.line.Len() > 0
}

// take makes h the owner of an unowned attribute. h leaves the line if it was in it.
func (a *attributeInstance) take(h types.FederateHandle) {
	a.line.Remove(h)
	a.owner = h
	a.wantsToDivest = false
	a.divestTag = nil
	a.check()
}

func (a *attributeInstance) cancelNegotiated(h types.FederateHandle) {
	if a.ownedBy(h) {
		a.wantsToDivest = false
		a.divestTag = nil
	}
}

// check panics when the owner is also waiting for its own attribute.
func (a *attributeInstance) check() {
	if a.owned() && a.line.Contains(a.owner) {
		panic(fmt.Sprintf("ownership: invariant violated: owner %v of attribute %d is in its acquisition line",
			a.owner, a.handle))
	}
}
