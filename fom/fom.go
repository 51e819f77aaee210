// Package fom loads the federation object model: the object classes with
// their attributes and the interaction classes with their parameters that a
// federation execution exchanges.
//
// Catalogs are written in YAML:
//
//	name: traffic
//	object_classes:
//	  - handle: 10
//	    name: Vehicle
//	    attributes:
//	      - {handle: 2, name: Position, order: timestamp}
//	  - handle: 11
//	    name: Truck
//	    parent: Vehicle
//	    attributes:
//	      - {handle: 5, name: Load}
//	interaction_classes:
//	  - handle: 20
//	    name: Collision
//	    order: timestamp
//	    parameters:
//	      - {handle: 1, name: Severity}
//
// Every object class implicitly carries the privilege-to-delete attribute
// (handle 1), which cannot be declared.
package fom

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jathurchan/rtiexec/types"
)

// ErrInvalidCatalog wraps every validation failure.
var ErrInvalidCatalog = errors.New("fom: invalid catalog")

// PrivilegeToDeleteName is the name of the implicit delete privilege attribute.
const PrivilegeToDeleteName = "HLAprivilegeToDeleteObject"

type document struct {
	Name               string           `yaml:"name"`
	ObjectClasses      []objectClassDoc `yaml:"object_classes"`
	InteractionClasses []interactionDoc `yaml:"interaction_classes"`
}

type objectClassDoc struct {
	Handle     uint64         `yaml:"handle"`
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent,omitempty"`
	Attributes []attributeDoc `yaml:"attributes"`
}

type attributeDoc struct {
	Handle    uint64 `yaml:"handle"`
	Name      string `yaml:"name"`
	Order     string `yaml:"order,omitempty"`
	Transport string `yaml:"transport,omitempty"`
}

type interactionDoc struct {
	Handle     uint64         `yaml:"handle"`
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent,omitempty"`
	Order      string         `yaml:"order,omitempty"`
	Transport  string         `yaml:"transport,omitempty"`
	Parameters []parameterDoc `yaml:"parameters"`
}

type parameterDoc struct {
	Handle uint64 `yaml:"handle"`
	Name   string `yaml:"name"`
}

// Attribute is an attribute of an object class with its default delivery.
type Attribute struct {
	Handle    types.AttributeHandle
	Name      string
	Order     types.OrderType
	Transport types.TransportationType
}

// ObjectClass is an object class with its own and inherited attributes.
type ObjectClass struct {
	Handle types.ObjectClassHandle
	Name   string
	Parent types.ObjectClassHandle // 0 for root classes

	attributes map[types.AttributeHandle]Attribute
}

// Attributes returns the class's attributes, inherited ones included, in handle order.
func (c ObjectClass) Attributes() []Attribute {
	out := make([]Attribute, 0, len(c.attributes))
	for _, a := range c.attributes {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Attribute) int { return cmp.Compare(a.Handle, b.Handle) })
	return out
}

// InteractionClass is an interaction class with its default delivery.
type InteractionClass struct {
	Handle     types.InteractionClassHandle
	Name       string
	Parent     types.InteractionClassHandle
	Order      types.OrderType
	Transport  types.TransportationType
	Parameters map[types.ParameterHandle]string
}

// Catalog is an immutable, validated object model.
type Catalog struct {
	name               string
	objectClasses      map[types.ObjectClassHandle]ObjectClass
	objectNames        map[string]types.ObjectClassHandle
	interactionClasses map[types.InteractionClassHandle]InteractionClass
	interactionNames   map[string]types.InteractionClassHandle
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse validates a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidCatalog, err)
	}
	c, err := build(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return c, nil
}

func build(doc *document) (*Catalog, error) {
	if doc.Name == "" {
		return nil, errors.New("name is required")
	}
	c := &Catalog{
		name:               doc.Name,
		objectClasses:      make(map[types.ObjectClassHandle]ObjectClass),
		objectNames:        make(map[string]types.ObjectClassHandle),
		interactionClasses: make(map[types.InteractionClassHandle]InteractionClass),
		interactionNames:   make(map[string]types.InteractionClassHandle),
	}

	// Parents must be declared before their children.
	for i, oc := range doc.ObjectClasses {
		if err := c.addObjectClass(oc); err != nil {
			return nil, fmt.Errorf("object_classes[%d]: %w", i, err)
		}
	}
	for i, ic := range doc.InteractionClasses {
		if err := c.addInteractionClass(ic); err != nil {
			return nil, fmt.Errorf("interaction_classes[%d]: %w", i, err)
		}
	}
	return c, nil
}

func (c *Catalog) addObjectClass(doc objectClassDoc) error {
	if doc.Handle == 0 || doc.Name == "" {
		return errors.New("handle and name are required")
	}
	h := types.ObjectClassHandle(doc.Handle)
	if _, dup := c.objectClasses[h]; dup {
		return fmt.Errorf("duplicate handle %d", h)
	}
	if _, dup := c.objectNames[doc.Name]; dup {
		return fmt.Errorf("duplicate name %q", doc.Name)
	}

	oc := ObjectClass{Handle: h, Name: doc.Name, attributes: make(map[types.AttributeHandle]Attribute)}
	if doc.Parent != "" {
		ph, ok := c.objectNames[doc.Parent]
		if !ok {
			return fmt.Errorf("unknown parent %q", doc.Parent)
		}
		oc.Parent = ph
		for ah, a := range c.objectClasses[ph].attributes {
			oc.attributes[ah] = a
		}
	} else {
		oc.attributes[types.PrivilegeToDeleteAttribute] = Attribute{
			Handle: types.PrivilegeToDeleteAttribute,
			Name:   PrivilegeToDeleteName,
			Order:  types.OrderReceive,
		}
	}

	names := make(map[string]bool, len(oc.attributes))
	for _, a := range oc.attributes {
		names[a.Name] = true
	}
	for j, ad := range doc.Attributes {
		a, err := parseAttribute(ad)
		if err != nil {
			return fmt.Errorf("attributes[%d]: %w", j, err)
		}
		if _, dup := oc.attributes[a.Handle]; dup {
			return fmt.Errorf("attributes[%d]: duplicate handle %d", j, a.Handle)
		}
		if names[a.Name] {
			return fmt.Errorf("attributes[%d]: duplicate name %q", j, a.Name)
		}
		names[a.Name] = true
		oc.attributes[a.Handle] = a
	}

	c.objectClasses[h] = oc
	c.objectNames[oc.Name] = h
	return nil
}

func parseAttribute(doc attributeDoc) (Attribute, error) {
	if doc.Handle == 0 || doc.Name == "" {
		return Attribute{}, errors.New("handle and name are required")
	}
	if types.AttributeHandle(doc.Handle) == types.PrivilegeToDeleteAttribute {
		return Attribute{}, fmt.Errorf("handle %d is reserved for %s", doc.Handle, PrivilegeToDeleteName)
	}
	order, err := ParseOrder(doc.Order)
	if err != nil {
		return Attribute{}, err
	}
	transport, err := ParseTransport(doc.Transport)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{
		Handle:    types.AttributeHandle(doc.Handle),
		Name:      doc.Name,
		Order:     order,
		Transport: transport,
	}, nil
}

func (c *Catalog) addInteractionClass(doc interactionDoc) error {
	if doc.Handle == 0 || doc.Name == "" {
		return errors.New("handle and name are required")
	}
	h := types.InteractionClassHandle(doc.Handle)
	if _, dup := c.interactionClasses[h]; dup {
		return fmt.Errorf("duplicate handle %d", h)
	}
	if _, dup := c.interactionNames[doc.Name]; dup {
		return fmt.Errorf("duplicate name %q", doc.Name)
	}
	order, err := ParseOrder(doc.Order)
	if err != nil {
		return err
	}
	transport, err := ParseTransport(doc.Transport)
	if err != nil {
		return err
	}

	ic := InteractionClass{
		Handle:     h,
		Name:       doc.Name,
		Order:      order,
		Transport:  transport,
		Parameters: make(map[types.ParameterHandle]string),
	}
	if doc.Parent != "" {
		ph, ok := c.interactionNames[doc.Parent]
		if !ok {
			return fmt.Errorf("unknown parent %q", doc.Parent)
		}
		ic.Parent = ph
		for p, name := range c.interactionClasses[ph].Parameters {
			ic.Parameters[p] = name
		}
	}
	for j, pd := range doc.Parameters {
		if pd.Handle == 0 || pd.Name == "" {
			return fmt.Errorf("parameters[%d]: handle and name are required", j)
		}
		p := types.ParameterHandle(pd.Handle)
		if _, dup := ic.Parameters[p]; dup {
			return fmt.Errorf("parameters[%d]: duplicate handle %d", j, p)
		}
		ic.Parameters[p] = pd.Name
	}

	c.interactionClasses[h] = ic
	c.interactionNames[ic.Name] = h
	return nil
}

// ParseOrder maps "receive" (the default) and "timestamp" to an OrderType.
func ParseOrder(s string) (types.OrderType, error) {
	switch strings.ToLower(s) {
	case "", "receive":
		return types.OrderReceive, nil
	case "timestamp":
		return types.OrderTimestamp, nil
	}
	return types.OrderReceive, fmt.Errorf("unknown order type %q", s)
}

// ParseTransport maps "reliable" (the default) and "best_effort" to a TransportationType.
func ParseTransport(s string) (types.TransportationType, error) {
	switch strings.ToLower(s) {
	case "", "reliable":
		return types.TransportReliable, nil
	case "best_effort", "besteffort":
		return types.TransportBestEffort, nil
	}
	return types.TransportReliable, fmt.Errorf("unknown transportation type %q", s)
}
