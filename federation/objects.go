package federation

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

// RegisterObjectInstance creates an instance of class owned by h. h must
// publish class; it owns the attributes it publishes and the privilege to
// delete. Subscribers of class or an ancestor discover the new instance.
func (e *Execution) RegisterObjectInstance(h types.FederateHandle, class types.ObjectClassHandle, name string) (ownership.ObjectInfo, error) {
	var info ownership.ObjectInfo
	err := e.do("RegisterObjectInstance", h, func() error {
		defer e.outbox.Flush()
		e.mu.Lock()
		defer e.mu.Unlock()

		published := e.decl.publishedAttributes(h, class)
		if len(published) == 0 {
			return fmt.Errorf("%w: %d", ErrObjectClassNotPublished, class)
		}
		var err error
		info, err = e.objects.Register(h, class, published, name)
		if err != nil {
			return err
		}
		e.known[info.Handle] = map[types.FederateHandle]types.ObjectClassHandle{h: class}

		discovered := 0
		for _, f := range e.decl.federates() {
			if f == h {
				continue
			}
			if known, ok := e.decl.knownClass(f, class); ok {
				e.discover(f, info.Handle, known, info.Name)
				discovered++
			}
		}
		e.metrics.IncrDiscoveries(discovered)
		return nil
	})
	return info, err
}

// DeleteObjectInstance deletes an object h holds the privilege to delete.
// Every other federate that knew it receives RemoveObjectInstance, held in
// timestamp order for constrained federates when ts is set.
func (e *Execution) DeleteObjectInstance(h types.FederateHandle, object types.ObjectInstanceHandle, tag []byte, ts logicaltime.Time) error {
	return e.do("DeleteObjectInstance", h, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()

		if err := e.checkTimestamp(h, ts); err != nil {
			return err
		}
		if _, err := e.objects.Delete(h, object); err != nil {
			return err
		}
		recipients := e.forget(object, h)
		return e.time.Dispatch(h, recipients, ts, func(types.OrderType) notify.Notification {
			return notify.RemoveObjectInstance{Object: object, Tag: tag}
		})
	})
}

// UpdateAttributeValues sends new values of attributes h owns. Each federate
// that knows the object reflects the attributes it subscribes to. Attributes
// whose declared order is timestamp travel in timestamp order when ts is set;
// the others are receive order.
func (e *Execution) UpdateAttributeValues(h types.FederateHandle, object types.ObjectInstanceHandle, values []types.AttributeValue, tag []byte, ts logicaltime.Time) error {
	return e.do("UpdateAttributeValues", h, func() error {
		o, err := e.objects.Object(object)
		if err != nil {
			return err
		}
		attrs := make([]types.AttributeHandle, len(values))
		for i, v := range values {
			attrs[i] = v.Attribute
		}
		if err := o.RequireOwnership(h, attrs); err != nil {
			return err
		}
		if err := e.checkTimestamp(h, ts); err != nil {
			return err
		}

		e.mu.RLock()
		defer e.mu.RUnlock()

		class := o.Info().Class
		tso, ro := make(routes), make(routes)
		for _, f := range slices.Sorted(maps.Keys(e.known[object])) {
			if f == h {
				continue
			}
			for _, v := range e.decl.reflected(f, class, values) {
				attr, _ := e.catalog.Attribute(class, v.Attribute)
				if ts != nil && attr.Order == types.OrderTimestamp {
					tso[f] = append(tso[f], v)
				} else {
					ro[f] = append(ro[f], v)
				}
			}
		}

		for _, r := range tso.groups() {
			if err := e.time.Dispatch(h, r.recipients, ts, reflectBuilder(object, r.values, tag, ts, h)); err != nil {
				return err
			}
		}
		for _, r := range ro.groups() {
			if err := e.time.Dispatch(h, r.recipients, nil, reflectBuilder(object, r.values, tag, nil, h)); err != nil {
				return err
			}
		}
		return nil
	})
}

func reflectBuilder(object types.ObjectInstanceHandle, values []types.AttributeValue, tag []byte, ts logicaltime.Time, sender types.FederateHandle) timekeeper.MessageBuilder {
	return func(order types.OrderType) notify.Notification {
		n := notify.ReflectAttributeValues{Object: object, Values: values, Tag: tag, Order: order, Sender: sender}
		if order == types.OrderTimestamp {
			n.Time = ts
		}
		return n
	}
}

// SendInteraction sends an interaction of a class h publishes to every
// subscriber of the class or one of its ancestors. Subscribers receive it as
// the class they subscribe to, with that class's parameters only.
func (e *Execution) SendInteraction(h types.FederateHandle, class types.InteractionClassHandle, params []types.ParameterValue, tag []byte, ts logicaltime.Time) error {
	return e.do("SendInteraction", h, func() error {
		ic, ok := e.catalog.InteractionClass(class)
		if !ok {
			return fmt.Errorf("%w: %d", ErrInteractionClassNotDefined, class)
		}
		for _, p := range params {
			if !e.catalog.IsValidParameter(class, p.Parameter) {
				return fmt.Errorf("%w: parameter %d of class %d", ErrInteractionParameterNotDefined, p.Parameter, class)
			}
		}
		if ic.Order != types.OrderTimestamp {
			ts = nil
		}
		if err := e.checkTimestamp(h, ts); err != nil {
			return err
		}

		e.mu.RLock()
		defer e.mu.RUnlock()

		if !e.decl.isInteractionPublished(h, class) {
			return fmt.Errorf("%w: %d", ErrInteractionClassNotPublished, class)
		}
		byClass := make(map[types.InteractionClassHandle][]types.FederateHandle)
		for _, f := range e.decl.federates() {
			if f == h {
				continue
			}
			if known, ok := e.decl.knownInteraction(f, class); ok {
				byClass[known] = append(byClass[known], f)
			}
		}

		for _, known := range slices.Sorted(maps.Keys(byClass)) {
			var values []types.ParameterValue
			for _, p := range params {
				if e.catalog.IsValidParameter(known, p.Parameter) {
					values = append(values, p)
				}
			}
			build := func(order types.OrderType) notify.Notification {
				n := notify.ReceiveInteraction{Class: known, Values: values, Tag: tag, Order: order, Sender: h}
				if order == types.OrderTimestamp {
					n.Time = ts
				}
				return n
			}
			if err := e.time.Dispatch(h, byClass[known], ts, build); err != nil {
				return err
			}
		}
		return nil
	})
}

// ObjectInfo returns a registered object instance.
func (e *Execution) ObjectInfo(object types.ObjectInstanceHandle) (ownership.ObjectInfo, error) {
	o, err := e.objects.Object(object)
	if err != nil {
		return ownership.ObjectInfo{}, err
	}
	return o.Info(), nil
}

// Objects returns every registered object instance in handle order.
func (e *Execution) Objects() []ownership.ObjectInfo { return e.objects.Objects() }

// KnownBy returns the federates that know object, in handle order.
func (e *Execution) KnownBy(object types.ObjectInstanceHandle) []types.FederateHandle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Sorted(maps.Keys(e.known[object]))
}

// routes collects the values each recipient reflects.
type routes map[types.FederateHandle][]types.AttributeValue

type route struct {
	recipients []types.FederateHandle
	values     []types.AttributeValue
}

// groups merges recipients reflecting the same attributes into one route.
// Routes are ordered by their lowest recipient.
func (r routes) groups() []*route {
	var out []*route
	byKey := make(map[string]*route)
	for _, f := range slices.Sorted(maps.Keys(r)) {
		k := valuesKey(r[f])
		g, ok := byKey[k]
		if !ok {
			g = &route{values: r[f]}
			byKey[k] = g
			out = append(out, g)
		}
		g.recipients = append(g.recipients, f)
	}
	return out
}

func valuesKey(vals []types.AttributeValue) string {
	var b strings.Builder
	for _, v := range vals {
		fmt.Fprintf(&b, "%d,", v.Attribute)
	}
	return b.String()
}
