package ownership

import "github.com/jathurchan/rtiexec/logger"

// Option configures a Manager.
type Option func(*Config)

type Config struct {
	Logger  logger.Logger
	Metrics Metrics
}

func DefaultConfig() Config {
	return Config{
		Logger:  logger.NewNoOpLogger(),
		Metrics: NoOpMetrics{},
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}
