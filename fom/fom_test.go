package fom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/types"
)

func loadTraffic(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadFile("testdata/traffic.yaml")
	require.NoError(t, err)
	return c
}

func TestLoadFile(t *testing.T) {
	c := loadTraffic(t)

	assert.Equal(t, "traffic", c.Name())
	assert.True(t, c.IsValidObjectClass(10))
	assert.False(t, c.IsValidObjectClass(99))

	classes := c.ObjectClasses()
	require.Len(t, classes, 3)
	assert.Equal(t, "Vehicle", classes[0].Name)
	assert.Equal(t, "Signal", classes[2].Name)
}

func TestCatalog_Attributes(t *testing.T) {
	c := loadTraffic(t)

	t.Run("privilege to delete is implicit", func(t *testing.T) {
		a, ok := c.Attribute(12, types.PrivilegeToDeleteAttribute)
		require.True(t, ok)
		assert.Equal(t, PrivilegeToDeleteName, a.Name)
	})

	t.Run("defaults", func(t *testing.T) {
		a, ok := c.Attribute(10, 4)
		require.True(t, ok)
		assert.Equal(t, types.OrderReceive, a.Order)
		assert.Equal(t, types.TransportReliable, a.Transport)

		a, _ = c.Attribute(10, 3)
		assert.Equal(t, types.OrderTimestamp, a.Order)
		assert.Equal(t, types.TransportBestEffort, a.Transport)
	})

	t.Run("inherited", func(t *testing.T) {
		assert.True(t, c.IsValidAttribute(11, 2))
		assert.True(t, c.IsValidAttribute(11, 5))
		assert.True(t, c.IsValidAttribute(11, types.PrivilegeToDeleteAttribute))
		assert.False(t, c.IsValidAttribute(10, 5), "parents do not see child attributes")
	})

	t.Run("unknown class", func(t *testing.T) {
		assert.False(t, c.IsValidAttribute(99, 2))
		_, ok := c.Attribute(99, 2)
		assert.False(t, ok)
	})

	truck, ok := c.ObjectClassByName("Truck")
	require.True(t, ok)
	var handles []types.AttributeHandle
	for _, a := range truck.Attributes() {
		handles = append(handles, a.Handle)
	}
	assert.Equal(t, []types.AttributeHandle{1, 2, 3, 4, 5}, handles)
}

func TestCatalog_Subclasses(t *testing.T) {
	c := loadTraffic(t)

	assert.True(t, c.IsObjectSubclassOf(11, 10))
	assert.True(t, c.IsObjectSubclassOf(10, 10))
	assert.False(t, c.IsObjectSubclassOf(10, 11))
	assert.False(t, c.IsObjectSubclassOf(12, 10))

	assert.True(t, c.IsInteractionSubclassOf(21, 20))
	assert.False(t, c.IsInteractionSubclassOf(20, 21))
}

func TestCatalog_Interactions(t *testing.T) {
	c := loadTraffic(t)

	ic, ok := c.InteractionClass(20)
	require.True(t, ok)
	assert.Equal(t, types.OrderTimestamp, ic.Order)
	assert.Len(t, ic.Parameters, 2)

	honk, ok := c.InteractionClassByName("Honk")
	require.True(t, ok)
	assert.Equal(t, types.OrderReceive, honk.Order)
	assert.Equal(t, types.TransportBestEffort, honk.Transport)
	assert.True(t, c.IsValidParameter(21, 1), "parameters are inherited")
	assert.True(t, c.IsValidParameter(21, 3))
	assert.False(t, c.IsValidParameter(20, 3))
	assert.False(t, c.IsValidParameter(99, 1))

	assert.True(t, c.IsValidInteractionClass(21))
	assert.Len(t, c.InteractionClasses(), 2)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "object_classes: []", "name is required"},
		{"unknown field", "name: x\ncolour: red", "field colour not found"},
		{"duplicate class handle", `
name: x
object_classes:
  - {handle: 10, name: A}
  - {handle: 10, name: B}`, "duplicate handle 10"},
		{"duplicate class name", `
name: x
object_classes:
  - {handle: 10, name: A}
  - {handle: 11, name: A}`, `duplicate name "A"`},
		{"parent after child", `
name: x
object_classes:
  - {handle: 11, name: B, parent: A}
  - {handle: 10, name: A}`, `unknown parent "A"`},
		{"reserved attribute", `
name: x
object_classes:
  - handle: 10
    name: A
    attributes: [{handle: 1, name: Mine}]`, "reserved"},
		{"redeclared inherited attribute", `
name: x
object_classes:
  - handle: 10
    name: A
    attributes: [{handle: 2, name: P}]
  - handle: 11
    name: B
    parent: A
    attributes: [{handle: 2, name: Q}]`, "duplicate handle 2"},
		{"bad order", `
name: x
object_classes:
  - handle: 10
    name: A
    attributes: [{handle: 2, name: P, order: sorted}]`, `unknown order type "sorted"`},
		{"bad transport", `
name: x
interaction_classes:
  - {handle: 20, name: I, transport: pigeon}`, `unknown transportation type "pigeon"`},
		{"parameter without handle", `
name: x
interaction_classes:
  - handle: 20
    name: I
    parameters: [{name: P}]`, "parameters[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/nope.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseOrderAndTransport(t *testing.T) {
	o, err := ParseOrder("TimeStamp")
	require.NoError(t, err)
	assert.Equal(t, types.OrderTimestamp, o)

	tr, err := ParseTransport("BestEffort")
	require.NoError(t, err)
	assert.Equal(t, types.TransportBestEffort, tr)
}
