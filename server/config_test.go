package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/testutil"
)

func validConfig(t *testing.T) ExecutorServerConfig {
	cfg := DefaultExecutorServerConfig()
	cfg.Federations = []FederationConfig{{
		Name:        "traffic",
		Catalog:     testutil.TrafficCatalog(t),
		TimeFactory: logicaltime.Integer64Factory{},
	}}
	return cfg
}

func TestExecutorServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExecutorServerConfig)
		wantErr string
	}{
		{"valid", func(*ExecutorServerConfig) {}, ""},
		{"empty address", func(c *ExecutorServerConfig) { c.ListenAddress = "" }, "ListenAddress"},
		{"no federations", func(c *ExecutorServerConfig) { c.Federations = nil }, "at least one federation"},
		{"unnamed federation", func(c *ExecutorServerConfig) { c.Federations[0].Name = "" }, "must have a name"},
		{"duplicate federation", func(c *ExecutorServerConfig) {
			c.Federations = append(c.Federations, c.Federations[0])
		}, "configured twice"},
		{"no catalog", func(c *ExecutorServerConfig) { c.Federations[0].Catalog = nil }, "no FOM catalog"},
		{"no factory", func(c *ExecutorServerConfig) { c.Federations[0].TimeFactory = nil }, "no time factory"},
		{"zero shutdown timeout", func(c *ExecutorServerConfig) { c.ShutdownTimeout = 0 }, "ShutdownTimeout"},
		{"zero recv size", func(c *ExecutorServerConfig) { c.MaxRecvMsgSize = 0 }, "MaxRecvMsgSize"},
		{"zero keepalive", func(c *ExecutorServerConfig) { c.KeepaliveTime = 0 }, "KeepaliveTime"},
		{"rate limit disabled ignores values", func(c *ExecutorServerConfig) { c.RateLimit = 0 }, ""},
		{"rate limit enabled checks values", func(c *ExecutorServerConfig) {
			c.EnableRateLimit = true
			c.RateLimitWindow = 0
		}, "RateLimitWindow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ExecutorServerConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.Message, tt.wantErr)
		})
	}
}

func TestExecutorServerBuilder(t *testing.T) {
	t.Run("requires a federation", func(t *testing.T) {
		_, err := NewExecutorServerBuilder().Build()
		assert.Error(t, err)
	})

	t.Run("non-positive values keep defaults", func(t *testing.T) {
		b := NewExecutorServerBuilder().
			WithTimeouts(0, -time.Second).
			WithKeepalive(0, 0).
			WithMessageSizes(0, 0).
			WithRateLimit(true, 0, 0, 0)
		assert.Equal(t, DefaultShutdownTimeout, b.config.ShutdownTimeout)
		assert.Equal(t, DefaultServerStartTimeout, b.config.ServerStartTimeout)
		assert.Equal(t, DefaultGRPCKeepaliveTime, b.config.KeepaliveTime)
		assert.Equal(t, DefaultGRPCMaxRecvMsgSize, b.config.MaxRecvMsgSize)
		assert.True(t, b.config.EnableRateLimit)
		assert.Equal(t, DefaultRateLimit, b.config.RateLimit)
	})

	t.Run("builds a stopped-but-ready server", func(t *testing.T) {
		srv, err := NewExecutorServerBuilder().
			WithListenAddress("127.0.0.1:0").
			WithFederation("traffic", testutil.TrafficCatalog(t), logicaltime.Integer64Factory{}).
			WithGALTBroadcast(true).
			WithLogger(nil).
			WithMetrics(nil).
			WithFederationMetrics(nil).
			Build()
		require.NoError(t, err)
		assert.Equal(t, ServerStateStarting, srv.State())
		assert.Equal(t, []string{"traffic"}, srv.Registry().Names())
		assert.Equal(t, 0, srv.Connections().GetActiveConnections())
	})
}
