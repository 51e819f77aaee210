package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/logger"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

type activeConnectionsMetrics struct {
	NoOpServerMetrics
	active int
}

func (m *activeConnectionsMetrics) SetActiveConnections(n int) { m.active = n }

func TestConnectionManager_Lifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	metrics := &activeConnectionsMetrics{}
	cm := NewConnectionManager(metrics, logger.NewNoOpLogger(), clock.now)

	cm.OnConnect("s1", "10.0.0.1:5000")
	cm.OnConnect("s2", "10.0.0.2:5000")
	cm.OnConnect("s1", "10.0.0.1:5000")
	assert.Equal(t, 2, cm.GetActiveConnections())
	assert.Equal(t, 2, metrics.active)

	clock.t = clock.t.Add(time.Second)
	cm.OnRequest("s1")
	cm.OnRequest("s1")
	cm.OnJoin("s1", "traffic", 4)
	cm.OnRequest("missing")
	cm.OnJoin("missing", "traffic", 5)

	infos := cm.GetAllConnectionInfo()
	require.Contains(t, infos, "s1")
	s1 := infos["s1"]
	assert.Equal(t, int64(2), s1.RequestCount)
	assert.Equal(t, time.Unix(1000, 0), s1.ConnectedAt)
	assert.Equal(t, time.Unix(1001, 0), s1.LastActive)
	assert.Equal(t, "traffic", s1.Federation)
	assert.EqualValues(t, 4, s1.Federate)
	assert.Empty(t, infos["s2"].Federation)

	cm.OnDisconnect("s1")
	cm.OnDisconnect("s1")
	assert.Equal(t, 1, cm.GetActiveConnections())
	assert.Equal(t, 1, metrics.active)
}

func TestConnectionManager_SnapshotIsCopy(t *testing.T) {
	cm := NewConnectionManager(nil, logger.NewNoOpLogger(), nil)
	cm.OnConnect("s1", "addr")

	infos := cm.GetAllConnectionInfo()
	info := infos["s1"]
	info.RequestCount = 99
	infos["s1"] = info

	assert.Zero(t, cm.GetAllConnectionInfo()["s1"].RequestCount)
}
