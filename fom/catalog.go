package fom

import (
	"cmp"
	"slices"

	"github.com/jathurchan/rtiexec/types"
)

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) IsValidObjectClass(class types.ObjectClassHandle) bool {
	_, ok := c.objectClasses[class]
	return ok
}

// IsValidAttribute reports whether attr belongs to class, inherited attributes included.
func (c *Catalog) IsValidAttribute(class types.ObjectClassHandle, attr types.AttributeHandle) bool {
	oc, ok := c.objectClasses[class]
	if !ok {
		return false
	}
	_, ok = oc.attributes[attr]
	return ok
}

func (c *Catalog) Attribute(class types.ObjectClassHandle, attr types.AttributeHandle) (Attribute, bool) {
	oc, ok := c.objectClasses[class]
	if !ok {
		return Attribute{}, false
	}
	a, ok := oc.attributes[attr]
	return a, ok
}

func (c *Catalog) ObjectClass(class types.ObjectClassHandle) (ObjectClass, bool) {
	oc, ok := c.objectClasses[class]
	return oc, ok
}

func (c *Catalog) ObjectClassByName(name string) (ObjectClass, bool) {
	h, ok := c.objectNames[name]
	if !ok {
		return ObjectClass{}, false
	}
	return c.objectClasses[h], true
}

// ObjectClasses returns every object class in handle order.
func (c *Catalog) ObjectClasses() []ObjectClass {
	out := make([]ObjectClass, 0, len(c.objectClasses))
	for _, oc := range c.objectClasses {
		out = append(out, oc)
	}
	slices.SortFunc(out, func(a, b ObjectClass) int { return cmp.Compare(a.Handle, b.Handle) })
	return out
}

// IsObjectSubclassOf reports whether class is ancestor or one of its descendants.
func (c *Catalog) IsObjectSubclassOf(class, ancestor types.ObjectClassHandle) bool {
	for class != 0 {
		if class == ancestor {
			return true
		}
		class = c.objectClasses[class].Parent
	}
	return false
}

func (c *Catalog) IsValidInteractionClass(class types.InteractionClassHandle) bool {
	_, ok := c.interactionClasses[class]
	return ok
}

func (c *Catalog) InteractionClass(class types.InteractionClassHandle) (InteractionClass, bool) {
	ic, ok := c.interactionClasses[class]
	return ic, ok
}

func (c *Catalog) InteractionClassByName(name string) (InteractionClass, bool) {
	h, ok := c.interactionNames[name]
	if !ok {
		return InteractionClass{}, false
	}
	return c.interactionClasses[h], true
}

// InteractionClasses returns every interaction class in handle order.
func (c *Catalog) InteractionClasses() []InteractionClass {
	out := make([]InteractionClass, 0, len(c.interactionClasses))
	for _, ic := range c.interactionClasses {
		out = append(out, ic)
	}
	slices.SortFunc(out, func(a, b InteractionClass) int { return cmp.Compare(a.Handle, b.Handle) })
	return out
}

func (c *Catalog) IsValidParameter(class types.InteractionClassHandle, p types.ParameterHandle) bool {
	ic, ok := c.interactionClasses[class]
	if !ok {
		return false
	}
	_, ok = ic.Parameters[p]
	return ok
}

// IsInteractionSubclassOf reports whether class is ancestor or one of its descendants.
func (c *Catalog) IsInteractionSubclassOf(class, ancestor types.InteractionClassHandle) bool {
	for class != 0 {
		if class == ancestor {
			return true
		}
		class = c.interactionClasses[class].Parent
	}
	return false
}
