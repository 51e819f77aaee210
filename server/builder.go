package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/logicaltime"
)

// ExecutorServerBuilder helps construct an ExecutorServer with validated
// configuration and sane defaults.
type ExecutorServerBuilder struct {
	config ExecutorServerConfig
}

// NewExecutorServerBuilder returns a builder preloaded with default configuration values.
func NewExecutorServerBuilder() *ExecutorServerBuilder {
	return &ExecutorServerBuilder{
		config: DefaultExecutorServerConfig(),
	}
}

// WithListenAddress sets the gRPC server's listening address.
func (b *ExecutorServerBuilder) WithListenAddress(address string) *ExecutorServerBuilder {
	b.config.ListenAddress = address
	return b
}

// WithFederation hosts a federation execution. At least one is required.
func (b *ExecutorServerBuilder) WithFederation(name string, catalog *fom.Catalog, factory logicaltime.Factory) *ExecutorServerBuilder {
	b.config.Federations = append(b.config.Federations, FederationConfig{
		Name:        name,
		Catalog:     catalog,
		TimeFactory: factory,
	})
	return b
}

// WithJournal records every callback to j.
func (b *ExecutorServerBuilder) WithJournal(j JournalSink) *ExecutorServerBuilder {
	b.config.Journal = j
	return b
}

// WithGALTBroadcast enables GALTAdvanced callbacks.
func (b *ExecutorServerBuilder) WithGALTBroadcast(enabled bool) *ExecutorServerBuilder {
	b.config.BroadcastGALT = enabled
	return b
}

// WithTimeouts sets the shutdown and start timeouts. Values <= 0 leave the defaults unchanged.
func (b *ExecutorServerBuilder) WithTimeouts(shutdownTimeout, startTimeout time.Duration) *ExecutorServerBuilder {
	if shutdownTimeout > 0 {
		b.config.ShutdownTimeout = shutdownTimeout
	}
	if startTimeout > 0 {
		b.config.ServerStartTimeout = startTimeout
	}
	return b
}

// WithKeepalive sets how idle sessions are pinged. Values <= 0 leave the defaults unchanged.
func (b *ExecutorServerBuilder) WithKeepalive(interval, timeout time.Duration) *ExecutorServerBuilder {
	if interval > 0 {
		b.config.KeepaliveTime = interval
	}
	if timeout > 0 {
		b.config.KeepaliveTimeout = timeout
	}
	return b
}

// WithMessageSizes sets frame size limits. Values <= 0 leave the defaults unchanged.
func (b *ExecutorServerBuilder) WithMessageSizes(maxRecv, maxSend int) *ExecutorServerBuilder {
	if maxRecv > 0 {
		b.config.MaxRecvMsgSize = maxRecv
	}
	if maxSend > 0 {
		b.config.MaxSendMsgSize = maxSend
	}
	return b
}

// WithRateLimit configures per-session rate limiting.
// Values <= 0 use the default if rate limiting is enabled.
func (b *ExecutorServerBuilder) WithRateLimit(enabled bool, rateLimit, burst int, window time.Duration) *ExecutorServerBuilder {
	b.config.EnableRateLimit = enabled
	if enabled {
		if rateLimit > 0 {
			b.config.RateLimit = rateLimit
		}
		if burst > 0 {
			b.config.RateLimitBurst = burst
		}
		if window > 0 {
			b.config.RateLimitWindow = window
		}
	}
	return b
}

// WithLogger sets the server logger. If nil, a no-op logger is used.
func (b *ExecutorServerBuilder) WithLogger(logger logger.Logger) *ExecutorServerBuilder {
	b.config.Logger = logger
	return b
}

// WithMetrics sets the metrics collector. If nil, a no-op implementation is used.
func (b *ExecutorServerBuilder) WithMetrics(metrics ServerMetrics) *ExecutorServerBuilder {
	b.config.Metrics = metrics
	return b
}

// WithFederationMetrics sets the metrics collector shared by hosted federations.
func (b *ExecutorServerBuilder) WithFederationMetrics(metrics federation.Metrics) *ExecutorServerBuilder {
	b.config.FederationMetrics = metrics
	return b
}

func (b *ExecutorServerBuilder) prepareConfig() {
	if b.config.Logger == nil {
		b.config.Logger = logger.NewNoOpLogger()
	}
	if b.config.Metrics == nil {
		b.config.Metrics = NewNoOpServerMetrics()
	}
	if b.config.FederationMetrics == nil {
		b.config.FederationMetrics = federation.NoOpMetrics{}
	}
}

// Build constructs an ExecutorServer using the current builder state.
func (b *ExecutorServerBuilder) Build() (*ExecutorServer, error) {
	if len(b.config.Federations) == 0 {
		return nil, errors.New("server builder: at least one federation must be added using WithFederation")
	}

	b.prepareConfig()

	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("server builder: configuration validation failed: %w", err)
	}
	return NewExecutorServer(b.config)
}
