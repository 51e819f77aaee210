package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/types"
)

// Handles of the traffic object model.
const (
	Vehicle types.ObjectClassHandle = 10
	Truck   types.ObjectClassHandle = 11
	Signal  types.ObjectClassHandle = 12

	Position types.AttributeHandle = 2 // timestamp order
	Velocity types.AttributeHandle = 3 // timestamp order
	Plate    types.AttributeHandle = 4 // receive order
	Load     types.AttributeHandle = 5 // timestamp order, Truck only
	Phase    types.AttributeHandle = 2 // Signal

	Collision types.InteractionClassHandle = 20 // timestamp order
	Honk      types.InteractionClassHandle = 21 // receive order, child of Collision

	Severity types.ParameterHandle = 1
	Location types.ParameterHandle = 2
	Volume   types.ParameterHandle = 3
)

// TrafficFOM is a small object model used across tests.
const TrafficFOM = `
name: traffic
object_classes:
  - handle: 10
    name: Vehicle
    attributes:
      - {handle: 2, name: Position, order: timestamp}
      - {handle: 3, name: Velocity, order: timestamp, transport: best_effort}
      - {handle: 4, name: Plate}
  - handle: 11
    name: Truck
    parent: Vehicle
    attributes:
      - {handle: 5, name: Load, order: timestamp}
  - handle: 12
    name: Signal
    attributes:
      - {handle: 2, name: Phase}
interaction_classes:
  - handle: 20
    name: Collision
    order: timestamp
    parameters:
      - {handle: 1, name: Severity}
      - {handle: 2, name: Location}
  - handle: 21
    name: Honk
    parent: Collision
    order: receive
    parameters:
      - {handle: 3, name: Volume}
`

// TrafficCatalog parses TrafficFOM.
func TrafficCatalog(t testing.TB) *fom.Catalog {
	t.Helper()
	c, err := fom.Parse([]byte(TrafficFOM))
	require.NoError(t, err)
	return c
}
