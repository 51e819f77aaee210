package federation

import (
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/ownership"
	"github.com/jathurchan/rtiexec/timekeeper"
)

// Option configures an Execution.
type Option func(*Config)

// Config holds the tunables of an Execution and of the coordinators it owns.
type Config struct {
	Logger           logger.Logger
	Metrics          Metrics
	TimeMetrics      timekeeper.Metrics
	OwnershipMetrics ownership.Metrics

	// BroadcastGALT enables GALTAdvanced callbacks.
	BroadcastGALT bool
}

// DefaultConfig returns a Config with a no-op logger and metrics.
func DefaultConfig() Config {
	return Config{
		Logger:           logger.NewNoOpLogger(),
		Metrics:          NoOpMetrics{},
		TimeMetrics:      timekeeper.NoOpMetrics{},
		OwnershipMetrics: ownership.NoOpMetrics{},
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithMetrics sets the federation metrics. A nil value is ignored.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithTimeMetrics sets the metrics of the execution's time coordinator.
func WithTimeMetrics(m timekeeper.Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.TimeMetrics = m
		}
	}
}

// WithOwnershipMetrics sets the metrics of the execution's object registry.
func WithOwnershipMetrics(m ownership.Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.OwnershipMetrics = m
		}
	}
}

// WithGALTBroadcast toggles GALTAdvanced callbacks.
func WithGALTBroadcast(enabled bool) Option {
	return func(c *Config) {
		c.BroadcastGALT = enabled
	}
}
