package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/testutil"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(WithGALTBroadcast(true))
	catalog := testutil.TrafficCatalog(t)

	e, err := r.Create("traffic", catalog, logicaltime.Float64Factory{}, nil)
	require.NoError(t, err)
	_, err = r.Create("traffic", catalog, logicaltime.Float64Factory{}, nil)
	assert.ErrorIs(t, err, ErrFederationExecutionAlreadyExists)

	got, err := r.Lookup("traffic")
	require.NoError(t, err)
	assert.Same(t, e, got)
	_, err = r.Lookup("rail")
	assert.ErrorIs(t, err, ErrFederationExecutionDoesNotExist)

	_, err = r.Create("rail", catalog, logicaltime.Integer64Factory{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rail", "traffic"}, r.Names())

	m, err := e.Join("", "")
	require.NoError(t, err)
	assert.ErrorIs(t, r.Destroy("traffic"), ErrFederatesCurrentlyJoined)

	require.NoError(t, e.Resign(m.Handle, 0))
	require.NoError(t, r.Destroy("traffic"))
	assert.ErrorIs(t, r.Destroy("traffic"), ErrFederationExecutionDoesNotExist)
	assert.Equal(t, []string{"rail"}, r.Names())
}

func TestRegistry_ExecutionsAreIndependent(t *testing.T) {
	r := NewRegistry()
	catalog := testutil.TrafficCatalog(t)
	recA, recB := testutil.NewRecorder(), testutil.NewRecorder()

	a, err := r.Create("a", catalog, logicaltime.Integer64Factory{}, recA)
	require.NoError(t, err)
	b, err := r.Create("b", catalog, logicaltime.Integer64Factory{}, recB)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	ha := joinAll(t, a, "x")[0]
	hb := joinAll(t, b, "x")[0]
	assert.Equal(t, ha, hb, "handles are per execution")

	require.NoError(t, a.EnableTimeRegulation(ha, iv(1)))
	assert.Len(t, recA.All(), 1)
	assert.Empty(t, recB.All())
	assert.True(t, b.QueryGALT().IsFinal())
}
