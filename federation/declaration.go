package federation

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/types"
)

type attributeSet map[types.AttributeHandle]struct{}

func (s attributeSet) sorted() []types.AttributeHandle {
	return slices.Sorted(maps.Keys(s))
}

// interest is one federate's publications or subscriptions.
type interest struct {
	objects      map[types.ObjectClassHandle]attributeSet
	interactions map[types.InteractionClassHandle]struct{}
}

func newInterest() *interest {
	return &interest{
		objects:      make(map[types.ObjectClassHandle]attributeSet),
		interactions: make(map[types.InteractionClassHandle]struct{}),
	}
}

func (i *interest) addAttributes(class types.ObjectClassHandle, attrs []types.AttributeHandle) {
	set, ok := i.objects[class]
	if !ok {
		set = make(attributeSet, len(attrs))
		i.objects[class] = set
	}
	for _, a := range attrs {
		set[a] = struct{}{}
	}
}

// removeAttributes drops attrs from class, or the whole class when attrs is empty.
func (i *interest) removeAttributes(class types.ObjectClassHandle, attrs []types.AttributeHandle) {
	set, ok := i.objects[class]
	if !ok {
		return
	}
	if len(attrs) == 0 {
		delete(i.objects, class)
		return
	}
	for _, a := range attrs {
		delete(set, a)
	}
	if len(set) == 0 {
		delete(i.objects, class)
	}
}

// declarations is the publish/subscribe registry of an execution. It is not
// synchronized; the Execution lock guards it.
type declarations struct {
	catalog    *fom.Catalog
	published  map[types.FederateHandle]*interest
	subscribed map[types.FederateHandle]*interest
}

func newDeclarations(catalog *fom.Catalog) *declarations {
	return &declarations{
		catalog:    catalog,
		published:  make(map[types.FederateHandle]*interest),
		subscribed: make(map[types.FederateHandle]*interest),
	}
}

func (d *declarations) add(h types.FederateHandle) {
	d.published[h] = newInterest()
	d.subscribed[h] = newInterest()
}

func (d *declarations) remove(h types.FederateHandle) {
	delete(d.published, h)
	delete(d.subscribed, h)
}

func (d *declarations) validateAttributes(class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	if !d.catalog.IsValidObjectClass(class) {
		return fmt.Errorf("%w: %d", ownership.ErrObjectClassNotDefined, class)
	}
	for _, a := range attrs {
		if !d.catalog.IsValidAttribute(class, a) {
			return fmt.Errorf("%w: attribute %d of class %d", ownership.ErrAttributeNotDefined, a, class)
		}
	}
	return nil
}

func (d *declarations) validateInteraction(class types.InteractionClassHandle) error {
	if !d.catalog.IsValidInteractionClass(class) {
		return fmt.Errorf("%w: %d", ErrInteractionClassNotDefined, class)
	}
	return nil
}

func (d *declarations) publishObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	if err := d.validateAttributes(class, attrs); err != nil {
		return err
	}
	d.published[h].addAttributes(class, attrs)
	return nil
}

func (d *declarations) unpublishObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	if err := d.validateAttributes(class, attrs); err != nil {
		return err
	}
	d.published[h].removeAttributes(class, attrs)
	return nil
}

func (d *declarations) subscribeObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	if err := d.validateAttributes(class, attrs); err != nil {
		return err
	}
	d.subscribed[h].addAttributes(class, attrs)
	return nil
}

func (d *declarations) unsubscribeObjectClass(h types.FederateHandle, class types.ObjectClassHandle, attrs []types.AttributeHandle) error {
	if err := d.validateAttributes(class, attrs); err != nil {
		return err
	}
	d.subscribed[h].removeAttributes(class, attrs)
	return nil
}

func (d *declarations) publishInteraction(h types.FederateHandle, class types.InteractionClassHandle) error {
	if err := d.validateInteraction(class); err != nil {
		return err
	}
	d.published[h].interactions[class] = struct{}{}
	return nil
}

func (d *declarations) unpublishInteraction(h types.FederateHandle, class types.InteractionClassHandle) error {
	if err := d.validateInteraction(class); err != nil {
		return err
	}
	delete(d.published[h].interactions, class)
	return nil
}

func (d *declarations) subscribeInteraction(h types.FederateHandle, class types.InteractionClassHandle) error {
	if err := d.validateInteraction(class); err != nil {
		return err
	}
	d.subscribed[h].interactions[class] = struct{}{}
	return nil
}

func (d *declarations) unsubscribeInteraction(h types.FederateHandle, class types.InteractionClassHandle) error {
	if err := d.validateInteraction(class); err != nil {
		return err
	}
	delete(d.subscribed[h].interactions, class)
	return nil
}

// publishedAttributes returns the attributes of class h publishes, in handle order.
func (d *declarations) publishedAttributes(h types.FederateHandle, class types.ObjectClassHandle) []types.AttributeHandle {
	return d.published[h].objects[class].sorted()
}

func (d *declarations) isPublished(h types.FederateHandle, class types.ObjectClassHandle, attr types.AttributeHandle) bool {
	_, ok := d.published[h].objects[class][attr]
	return ok
}

func (d *declarations) isInteractionPublished(h types.FederateHandle, class types.InteractionClassHandle) bool {
	_, ok := d.published[h].interactions[class]
	return ok
}

// knownClass returns the most specific class h subscribes to among class and
// its ancestors: the class through which h knows instances of class.
func (d *declarations) knownClass(h types.FederateHandle, class types.ObjectClassHandle) (types.ObjectClassHandle, bool) {
	sub := d.subscribed[h]
	if sub == nil {
		return 0, false
	}
	for c := class; c != 0; {
		if _, ok := sub.objects[c]; ok {
			return c, true
		}
		oc, _ := d.catalog.ObjectClass(c)
		c = oc.Parent
	}
	return 0, false
}

// reflected returns the attributes of an update h receives through its known class.
func (d *declarations) reflected(h types.FederateHandle, class types.ObjectClassHandle, values []types.AttributeValue) []types.AttributeValue {
	known, ok := d.knownClass(h, class)
	if !ok {
		return nil
	}
	set := d.subscribed[h].objects[known]
	var out []types.AttributeValue
	for _, v := range values {
		if _, ok := set[v.Attribute]; ok {
			out = append(out, v)
		}
	}
	return out
}

// knownInteraction returns the most specific interaction class h subscribes
// to among class and its ancestors.
func (d *declarations) knownInteraction(h types.FederateHandle, class types.InteractionClassHandle) (types.InteractionClassHandle, bool) {
	sub := d.subscribed[h]
	if sub == nil {
		return 0, false
	}
	for c := class; c != 0; {
		if _, ok := sub.interactions[c]; ok {
			return c, true
		}
		ic, _ := d.catalog.InteractionClass(c)
		c = ic.Parent
	}
	return 0, false
}

func (d *declarations) federates() []types.FederateHandle {
	return slices.Sorted(maps.Keys(d.subscribed))
}
