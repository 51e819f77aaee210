package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jathurchan/rtiexec/types"
)

func TestOwnershipLine(t *testing.T) {
	var l ownershipLine

	_, ok := l.PopFront()
	assert.False(t, ok)

	assert.True(t, l.Push(3))
	assert.True(t, l.Push(1))
	assert.False(t, l.Push(3), "a federate waits once")
	assert.True(t, l.Push(2))
	assert.Equal(t, []types.FederateHandle{3, 1, 2}, l.Members())

	assert.True(t, l.Remove(1))
	assert.False(t, l.Remove(1))
	assert.False(t, l.Contains(1))

	h, ok := l.PopFront()
	assert.True(t, ok)
	assert.Equal(t, types.FederateHandle(3), h)
	assert.Equal(t, 1, l.Len())

	assert.True(t, l.Push(3), "a served federate may queue again")
	assert.Equal(t, []types.FederateHandle{2, 3}, l.Members())
}
