package ownership

import (
	"fmt"
	"slices"

	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Catalog answers the object-model questions ownership needs.
type Catalog interface {
	IsValidObjectClass(class types.ObjectClassHandle) bool
	IsValidAttribute(class types.ObjectClassHandle, attr types.AttributeHandle) bool
}

// ObjectInfo describes a registered object instance.
type ObjectInfo struct {
	Handle     types.ObjectInstanceHandle
	Class      types.ObjectClassHandle
	Name       string
	Registrant types.FederateHandle
}

// ObjectInstance holds the ownership records of one registered object.
//
// Every operation runs under the object's FIFO-fair lock and evaluates its
// whole attribute batch as one step: the batch is validated first, then
// applied, and the resulting callbacks are grouped per federate.
type ObjectInstance struct {
	info    ObjectInfo
	catalog Catalog
	outbox  *notify.Outbox
	logger  logger.Logger
	metrics Metrics

	mu         *fairMutex
	deleted    bool
	attributes map[types.AttributeHandle]*attributeInstance
}

// Info returns the object's identity.
func (o *ObjectInstance) Info() ObjectInfo { return o.info }

func (o *ObjectInstance) Handle() types.ObjectInstanceHandle { return o.info.Handle }

// batch collects attributes per federate in request order.
type batch struct {
	attrs map[types.FederateHandle][]types.AttributeHandle
	tags  map[types.FederateHandle][]byte
}

func (b *batch) add(h types.FederateHandle, a types.AttributeHandle, tag []byte) {
	if b.attrs == nil {
		b.attrs = make(map[types.FederateHandle][]types.AttributeHandle)
		b.tags = make(map[types.FederateHandle][]byte)
	}
	b.attrs[h] = append(b.attrs[h], a)
	if b.tags[h] == nil && tag != nil {
		b.tags[h] = tag
	}
}

func (b *batch) each(fn func(h types.FederateHandle, attrs []types.AttributeHandle, tag []byte)) {
	for _, h := range types.SortedFederates(b.attrs) {
		fn(h, b.attrs[h], b.tags[h])
	}
}

func (b *batch) size() int {
	n := 0
	for _, attrs := range b.attrs {
		n += len(attrs)
	}
	return n
}

// resolve validates attrs against the object model and returns their records
// in request order without duplicates. Records are created only once the
// whole batch is known to be valid.
func (o *ObjectInstance) resolve(attrs []types.AttributeHandle) ([]*attributeInstance, error) {
	if o.deleted {
		return nil, fmt.Errorf("%w: %d", ErrObjectInstanceNotKnown, o.info.Handle)
	}
	attrs = types.UniqueAttributes(attrs)
	for _, a := range attrs {
		if !o.catalog.IsValidAttribute(o.info.Class, a) {
			return nil, fmt.Errorf("%w: attribute %d of class %d", ErrAttributeNotDefined, a, o.info.Class)
		}
	}
	recs := make([]*attributeInstance, len(attrs))
	for i, a := range attrs {
		recs[i] = o.record(a)
	}
	return recs, nil
}

func (o *ObjectInstance) record(a types.AttributeHandle) *attributeInstance {
	r, ok := o.attributes[a]
	if !ok {
		r = &attributeInstance{handle: a}
		o.attributes[a] = r
	}
	return r
}

func (o *ObjectInstance) requireOwned(owner types.FederateHandle, recs []*attributeInstance) error {
	for _, r := range recs {
		if !r.ownedBy(owner) {
			return fmt.Errorf("%w: attribute %d of object %d by %v", ErrAttributeNotOwned, r.handle, o.info.Handle, owner)
		}
	}
	return nil
}

func (o *ObjectInstance) postAcquired(newOwners *batch) {
	newOwners.each(func(h types.FederateHandle, attrs []types.AttributeHandle, tag []byte) {
		o.outbox.Post(h, notify.AttributeOwnershipAcquisitionNotification{Object: o.info.Handle, Attributes: attrs, Tag: tag})
	})
	if n := newOwners.size(); n > 0 {
		o.metrics.IncrTransfers(n)
	}
}

// divestAll hands each record to the head of its line and notifies the new owners.
func (o *ObjectInstance) divestAll(recs []*attributeInstance) {
	var newOwners batch
	for _, r := range recs {
		if next, tag := r.divest(); next != types.NoFederate {
			newOwners.add(next, r.handle, tag)
		}
	}
	o.postAcquired(&newOwners)
}

// UnconditionalDivest releases owned attributes at once. Each one passes to the
// longest-waiting acquirer, or becomes unowned when nobody waits.
func (o *ObjectInstance) UnconditionalDivest(owner types.FederateHandle, attrs []types.AttributeHandle) error {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return err
	}
	if err := o.requireOwned(owner, recs); err != nil {
		return err
	}
	o.divestAll(recs)
	o.logger.Debugw("unconditional divestiture", "object", o.info.Handle, "federate", owner, "attributes", len(recs))
	return nil
}

// NegotiatedDivest offers owned attributes to acquirers. It returns the
// attributes somebody is already waiting for; the owner is asked to confirm
// those, the others wait for an acquirer.
func (o *ObjectInstance) NegotiatedDivest(owner types.FederateHandle, attrs []types.AttributeHandle, tag []byte) ([]types.AttributeHandle, error) {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return nil, err
	}
	if err := o.requireOwned(owner, recs); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.wantsToDivest {
			return nil, fmt.Errorf("%w: attribute %d of object %d", ErrAttributeAlreadyBeingDivested, r.handle, o.info.Handle)
		}
	}

	var candidates []types.AttributeHandle
	for _, r := range recs {
		if r.negotiate(tag) {
			candidates = append(candidates, r.handle)
		}
	}
	if len(candidates) > 0 {
		o.outbox.Post(owner, notify.RequestDivestitureConfirmation{Object: o.info.Handle, Attributes: candidates})
	}
	return candidates, nil
}

// ConfirmDivest completes a negotiated divestiture with the same effect as
// UnconditionalDivest.
func (o *ObjectInstance) ConfirmDivest(owner types.FederateHandle, attrs []types.AttributeHandle) error {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return err
	}
	if err := o.requireOwned(owner, recs); err != nil {
		return err
	}
	for _, r := range recs {
		if !r.wantsToDivest {
			return fmt.Errorf("%w: attribute %d of object %d", ErrAttributeDivestitureWasNotRequested, r.handle, o.info.Handle)
		}
	}
	o.divestAll(recs)
	return nil
}

func (o *ObjectInstance) requireNotOwned(requester types.FederateHandle, recs []*attributeInstance) error {
	for _, r := range recs {
		if r.ownedBy(requester) {
			return fmt.Errorf("%w: attribute %d of object %d", ErrFederateOwnsAttributes, r.handle, o.info.Handle)
		}
	}
	return nil
}

// AcquireIfAvailable takes the unowned attributes and reports the rest as
// unavailable, both to the caller and through AttributeOwnershipUnavailable.
func (o *ObjectInstance) AcquireIfAvailable(requester types.FederateHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return nil, err
	}
	if err := o.requireNotOwned(requester, recs); err != nil {
		return nil, err
	}

	var acquired, unavailable []types.AttributeHandle
	for _, r := range recs {
		if r.owned() {
			unavailable = append(unavailable, r.handle)
			continue
		}
		r.take(requester)
		acquired = append(acquired, r.handle)
	}

	if len(acquired) > 0 {
		o.outbox.Post(requester, notify.AttributeOwnershipAcquisitionNotification{Object: o.info.Handle, Attributes: acquired})
		o.metrics.IncrTransfers(len(acquired))
	}
	if len(unavailable) > 0 {
		o.outbox.Post(requester, notify.AttributeOwnershipUnavailable{Object: o.info.Handle, Attributes: unavailable})
	}
	return unavailable, nil
}

// Acquire takes the unowned attributes and joins the acquisition line of the
// owned ones. Owners offering an attribute are asked to confirm its
// divestiture; the others are asked to release it.
func (o *ObjectInstance) Acquire(requester types.FederateHandle, attrs []types.AttributeHandle, tag []byte) error {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return err
	}
	if err := o.requireNotOwned(requester, recs); err != nil {
		return err
	}

	var (
		acquired []types.AttributeHandle
		confirm  batch
		release  batch
	)
	for _, r := range recs {
		if !r.owned() {
			r.take(requester)
			acquired = append(acquired, r.handle)
			continue
		}
		if !r.line.Push(requester) {
			// Already waiting: the owner was asked when it joined the line.
			continue
		}
		o.metrics.IncrQueued()
		if r.wantsToDivest {
			confirm.add(r.owner, r.handle, nil)
		} else {
			release.add(r.owner, r.handle, nil)
		}
	}

	if len(acquired) > 0 {
		o.outbox.Post(requester, notify.AttributeOwnershipAcquisitionNotification{Object: o.info.Handle, Attributes: acquired, Tag: tag})
		o.metrics.IncrTransfers(len(acquired))
	}
	confirm.each(func(h types.FederateHandle, attrs []types.AttributeHandle, _ []byte) {
		o.outbox.Post(h, notify.RequestDivestitureConfirmation{Object: o.info.Handle, Attributes: attrs})
	})
	release.each(func(h types.FederateHandle, attrs []types.AttributeHandle, _ []byte) {
		o.outbox.Post(h, notify.RequestAttributeOwnershipRelease{Object: o.info.Handle, Attributes: attrs, Tag: tag})
	})
	return nil
}

// CancelAcquire leaves the acquisition lines of attrs. It returns the
// attributes the requester was actually waiting for; a cancel that lost a
// race with a grant simply finds nothing.
func (o *ObjectInstance) CancelAcquire(requester types.FederateHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return nil, err
	}
	var cancelled []types.AttributeHandle
	for _, r := range recs {
		if r.line.Remove(requester) {
			cancelled = append(cancelled, r.handle)
		}
	}
	if len(cancelled) > 0 {
		o.outbox.Post(requester, notify.ConfirmAttributeOwnershipAcquisitionCancellation{Object: o.info.Handle, Attributes: cancelled})
	}
	return cancelled, nil
}

// CancelNegotiatedDivest withdraws an offer. Attributes that changed hands in
// the meantime are left alone.
func (o *ObjectInstance) CancelNegotiatedDivest(owner types.FederateHandle, attrs []types.AttributeHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return err
	}
	for _, r := range recs {
		r.cancelNegotiated(owner)
	}
	return nil
}

// DivestIfWanted transfers the offered attributes that have a waiting acquirer
// and leaves the rest owned and offered. It returns the new owner per
// transferred attribute.
func (o *ObjectInstance) DivestIfWanted(owner types.FederateHandle, attrs []types.AttributeHandle) (map[types.AttributeHandle]types.FederateHandle, error) {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()

	recs, err := o.resolve(attrs)
	if err != nil {
		return nil, err
	}
	if err := o.requireOwned(owner, recs); err != nil {
		return nil, err
	}

	divested := make(map[types.AttributeHandle]types.FederateHandle)
	var newOwners batch
	for _, r := range recs {
		if !r.wantsToDivest || r.line.Len() == 0 {
			continue
		}
		next, tag := r.divest()
		divested[r.handle] = next
		newOwners.add(next, r.handle, tag)
	}
	o.postAcquired(&newOwners)
	return divested, nil
}

// QueryOwnership returns the attribute's owner, if any.
func (o *ObjectInstance) QueryOwnership(attr types.AttributeHandle) (types.FederateHandle, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleted {
		return types.NoFederate, false, fmt.Errorf("%w: %d", ErrObjectInstanceNotKnown, o.info.Handle)
	}
	if !o.catalog.IsValidAttribute(o.info.Class, attr) {
		return types.NoFederate, false, fmt.Errorf("%w: attribute %d of class %d", ErrAttributeNotDefined, attr, o.info.Class)
	}
	r, ok := o.attributes[attr]
	if !ok || !r.owned() {
		return types.NoFederate, false, nil
	}
	return r.owner, true, nil
}

func (o *ObjectInstance) IsOwnedBy(attr types.AttributeHandle, h types.FederateHandle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.attributes[attr]
	return ok && !o.deleted && r.ownedBy(h)
}

// RequireOwnership fails unless h owns every attribute in attrs. Updates are
// gated on it.
func (o *ObjectInstance) RequireOwnership(h types.FederateHandle, attrs []types.AttributeHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.deleted {
		return fmt.Errorf("%w: %d", ErrObjectInstanceNotKnown, o.info.Handle)
	}
	attrs = types.UniqueAttributes(attrs)
	for _, a := range attrs {
		if !o.catalog.IsValidAttribute(o.info.Class, a) {
			return fmt.Errorf("%w: attribute %d of class %d", ErrAttributeNotDefined, a, o.info.Class)
		}
		if r, ok := o.attributes[a]; !ok || !r.ownedBy(h) {
			return fmt.Errorf("%w: attribute %d of object %d by %v", ErrAttributeNotOwned, a, o.info.Handle, h)
		}
	}
	return nil
}

// OwnedBy returns the attributes h owns, in handle order.
func (o *ObjectInstance) OwnedBy(h types.FederateHandle) []types.AttributeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ownedByLocked(h)
}

func (o *ObjectInstance) ownedByLocked(h types.FederateHandle) []types.AttributeHandle {
	var out []types.AttributeHandle
	for a, r := range o.attributes {
		if r.ownedBy(h) {
			out = append(out, a)
		}
	}
	slices.Sort(out)
	return out
}

// Waiting returns the acquisition line of attr, longest-waiting first.
func (o *ObjectInstance) Waiting(attr types.AttributeHandle) []types.FederateHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.attributes[attr]; ok {
		return r.line.Members()
	}
	return nil
}

// status summarizes h's involvement with the object for resignation checks.
func (o *ObjectInstance) status(h types.FederateHandle) (owns, waiting, mayDelete bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deleted {
		return false, false, false
	}
	for _, r := range o.attributes {
		if r.ownedBy(h) {
			owns = true
		}
		if r.line.Contains(h) {
			waiting = true
		}
	}
	r, ok := o.attributes[types.PrivilegeToDeleteAttribute]
	mayDelete = ok && r.ownedBy(h)
	return owns, waiting, mayDelete
}

// leaveLines removes h from every acquisition line without notifying it.
func (o *ObjectInstance) leaveLines(h types.FederateHandle) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, r := range o.attributes {
		if r.line.Remove(h) {
			n++
		}
	}
	return n
}

// divestOwned unconditionally divests everything h owns.
func (o *ObjectInstance) divestOwned(h types.FederateHandle) int {
	defer o.outbox.Flush()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deleted {
		return 0
	}
	owned := o.ownedByLocked(h)
	recs := make([]*attributeInstance, len(owned))
	for i, a := range owned {
		recs[i] = o.attributes[a]
	}
	o.divestAll(recs)
	return len(recs)
}

// markDeleted deletes the object if h holds its delete privilege.
func (o *ObjectInstance) markDeleted(h types.FederateHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.deleted {
		return fmt.Errorf("%w: %d", ErrObjectInstanceNotKnown, o.info.Handle)
	}
	r, ok := o.attributes[types.PrivilegeToDeleteAttribute]
	if !ok || !r.ownedBy(h) {
		return fmt.Errorf("%w: object %d by %v", ErrDeletePrivilegeNotHeld, o.info.Handle, h)
	}
	o.deleted = true
	return nil
}
