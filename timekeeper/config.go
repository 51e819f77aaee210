package timekeeper

import "github.com/jathurchan/rtiexec/logger"

// Option configures a Coordinator.
type Option func(*Config)

// Config holds the tunables of a Coordinator.
type Config struct {
	Logger  logger.Logger
	Metrics Metrics

	// BroadcastGALT sends GALTAdvanced to every joined federate each time
	// GALT moves forward.
	BroadcastGALT bool
}

// DefaultConfig returns a Config with a no-op logger and metrics.
func DefaultConfig() Config {
	return Config{
		Logger:  logger.NewNoOpLogger(),
		Metrics: NoOpMetrics{},
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

// WithMetrics sets the metrics sink. A nil sink is ignored.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithGALTBroadcast toggles GALTAdvanced notifications.
func WithGALTBroadcast(enabled bool) Option {
	return func(c *Config) {
		c.BroadcastGALT = enabled
	}
}
