package federation

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/testutil"
	"github.com/jathurchan/rtiexec/types"
)

func it(v int64) logicaltime.Time     { return logicaltime.Integer64Time(v) }
func iv(v int64) logicaltime.Interval { return logicaltime.Integer64Interval(v) }

func attrs(a ...types.AttributeHandle) []types.AttributeHandle { return a }

func newTestExecution(t *testing.T, opts ...Option) (*Execution, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder()
	e := NewExecution("test", testutil.TrafficCatalog(t), logicaltime.Integer64Factory{}, rec, opts...)
	return e, rec
}

// joinAll joins one federate per name and returns their handles.
func joinAll(t *testing.T, e *Execution, names ...string) []types.FederateHandle {
	t.Helper()
	out := make([]types.FederateHandle, len(names))
	for i, name := range names {
		m, err := e.Join(name, "test")
		require.NoError(t, err)
		out[i] = m.Handle
	}
	return out
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
