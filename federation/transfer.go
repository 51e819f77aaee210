package federation

import (
	"fmt"

	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

func (e *Execution) UnconditionalDivest(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	return e.do("UnconditionalDivest", h, func() error {
		return e.objects.UnconditionalDivest(h, object, attrs)
	})
}

// NegotiatedDivest returns the attributes acquirers already wait for.
func (e *Execution) NegotiatedDivest(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle, tag []byte) ([]types.AttributeHandle, error) {
	var waiting []types.AttributeHandle
	err := e.do("NegotiatedDivest", h, func() error {
		var err error
		waiting, err = e.objects.NegotiatedDivest(h, object, attrs, tag)
		return err
	})
	return waiting, err
}

func (e *Execution) ConfirmDivest(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	return e.do("ConfirmDivest", h, func() error {
		return e.objects.ConfirmDivest(h, object, attrs)
	})
}

// Acquire asks for attrs h publishes. Unowned ones are granted at once; h
// waits in line for the others.
func (e *Execution) Acquire(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle, tag []byte) error {
	return e.do("Acquire", h, func() error {
		if err := e.requirePublished(h, object, attrs); err != nil {
			return err
		}
		return e.objects.Acquire(h, object, attrs, tag)
	})
}

// AcquireIfAvailable grants the unowned attributes of attrs and returns the rest.
func (e *Execution) AcquireIfAvailable(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	var unavailable []types.AttributeHandle
	err := e.do("AcquireIfAvailable", h, func() error {
		if err := e.requirePublished(h, object, attrs); err != nil {
			return err
		}
		var err error
		unavailable, err = e.objects.AcquireIfAvailable(h, object, attrs)
		return err
	})
	return unavailable, err
}

// CancelAcquire leaves the acquisition lines of attrs and returns those h was waiting in.
func (e *Execution) CancelAcquire(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) ([]types.AttributeHandle, error) {
	var cancelled []types.AttributeHandle
	err := e.do("CancelAcquire", h, func() error {
		var err error
		cancelled, err = e.objects.CancelAcquire(h, object, attrs)
		return err
	})
	return cancelled, err
}

func (e *Execution) CancelNegotiatedDivest(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	return e.do("CancelNegotiatedDivest", h, func() error {
		return e.objects.CancelNegotiatedDivest(h, object, attrs)
	})
}

// DivestIfWanted hands over the attributes somebody waits for and returns
// their new owners.
func (e *Execution) DivestIfWanted(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) (map[types.AttributeHandle]types.FederateHandle, error) {
	var divested map[types.AttributeHandle]types.FederateHandle
	err := e.do("DivestIfWanted", h, func() error {
		var err error
		divested, err = e.objects.DivestIfWanted(h, object, attrs)
		return err
	})
	return divested, err
}

// QueryOwnership answers h with InformAttributeOwnership or AttributeIsNotOwned.
func (e *Execution) QueryOwnership(h types.FederateHandle, object types.ObjectInstanceHandle, attr types.AttributeHandle) error {
	return e.do("QueryOwnership", h, func() error {
		owner, owned, err := e.objects.QueryOwnership(object, attr)
		if err != nil {
			return err
		}
		if owned {
			e.outbox.Post(h, notify.InformAttributeOwnership{Object: object, Attribute: attr, Owner: owner})
		} else {
			e.outbox.Post(h, notify.AttributeIsNotOwned{Object: object, Attribute: attr})
		}
		e.outbox.Flush()
		return nil
	})
}

func (e *Execution) IsOwnedBy(h types.FederateHandle, object types.ObjectInstanceHandle, attr types.AttributeHandle) (bool, error) {
	if err := e.requireMember(h); err != nil {
		return false, requestError("IsOwnedBy", h, err)
	}
	return e.objects.IsOwnedBy(object, attr, h), nil
}

func (e *Execution) requirePublished(h types.FederateHandle, object types.ObjectInstanceHandle, attrs []types.AttributeHandle) error {
	o, err := e.objects.Object(object)
	if err != nil {
		return err
	}
	class := o.Info().Class

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, a := range attrs {
		if !e.catalog.IsValidAttribute(class, a) {
			continue // reported by the ownership layer
		}
		if !e.decl.isPublished(h, class, a) {
			return fmt.Errorf("%w: attribute %d of class %d", ErrAttributeNotPublished, a, class)
		}
	}
	return nil
}
