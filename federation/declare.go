package federation

import (
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// PublishObjectClass adds attrs to the attributes of class that h publishes.
func (e *Execution) PublishObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	return e.do("PublishObjectClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.publishObjectClass(h, class, types.UniqueAttributes(attrs))
	})
}

// UnpublishObjectClass stops publishing attrs of class, or the whole class
// when attrs is empty. Attributes of class instances that h owns and no longer
// publishes are divested unconditionally.
func (e *Execution) UnpublishObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	return e.do("UnpublishObjectClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.decl.unpublishObjectClass(h, class, types.UniqueAttributes(attrs)); err != nil {
			return err
		}
		for _, info := range e.objects.Objects() {
			if info.Class != class {
				continue
			}
			o, err := e.objects.Object(info.Handle)
			if err != nil {
				continue
			}
			var drop []types.AttributeHandle
			for _, a := range o.OwnedBy(h) {
				if a != types.PrivilegeToDeleteAttribute && !e.decl.isPublished(h, class, a) {
					drop = append(drop, a)
				}
			}
			if len(drop) > 0 {
				if err := o.UnconditionalDivest(h, drop); err != nil {
					e.logger.Warnw("divest on unpublish failed", "object", info.Handle, "federate", h, "error", err)
				}
			}
		}
		return nil
	})
}

// SubscribeObjectClass adds attrs to the attributes of class that h
// subscribes to. h discovers every existing instance it now knows.
func (e *Execution) SubscribeObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	return e.do("SubscribeObjectClass", h, func() error {
		defer e.outbox.Flush()
		e.mu.Lock()
		defer e.mu.Unlock()
		if err := e.decl.subscribeObjectClass(h, class, types.UniqueAttributes(attrs)); err != nil {
			return err
		}
		discovered := 0
		for _, info := range e.objects.Objects() {
			if _, knows := e.known[info.Handle][h]; knows {
				continue
			}
			known, ok := e.decl.knownClass(h, info.Class)
			if !ok {
				continue
			}
			e.discover(h, info.Handle, known, info.Name)
			discovered++
		}
		e.metrics.IncrDiscoveries(discovered)
		return nil
	})
}

// UnsubscribeObjectClass removes attrs, or the whole class when attrs is empty.
// Already discovered instances stay known.
func (e *Execution) UnsubscribeObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	return e.do("UnsubscribeObjectClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.unsubscribeObjectClass(h, class, types.UniqueAttributes(attrs))
	})
}

func (e *Execution) PublishInteractionClass(h types.FederateHandle, class types.InteractionClassHandle) error {
	return e.do("PublishInteractionClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.publishInteraction(h, class)
	})
}

func (e *Execution) UnpublishInteractionClass(h types.FederateHandle, class types.InteractionClassHandle) error {
	return e.do("UnpublishInteractionClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.unpublishInteraction(h, class)
	})
}

func (e *Execution) SubscribeInteractionClass(h types.FederateHandle, class types.InteractionClassHandle) error {
	return e.do("SubscribeInteractionClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.subscribeInteraction(h, class)
	})
}

func (e *Execution) UnsubscribeInteractionClass(h types.FederateHandle, class types.InteractionClassHandle) error {
	return e.do("UnsubscribeInteractionClass", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.decl.unsubscribeInteraction(h, class)
	})
}

// discover records that h knows object as class and posts the callback.
// The caller holds the execution lock.
func (e *Execution) discover(h types.FederateHandle, object types.ObjectInstanceHandle, class types.ObjectClassHandle, name string) {
	feds, ok := e.known[object]
	if !ok {
		feds = make(map[types.FederateHandle]types.ObjectClassHandle)
		e.known[object] = feds
	}
	feds[h] = class
	e.outbox.Post(h, notify.DiscoverObjectInstance{Object: object, Class: class, Name: name})
}
