package server

import (
	"fmt"
	"time"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/fom"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
)

// FederationConfig describes a federation execution the server hosts from startup.
type FederationConfig struct {
	Name        string
	Catalog     *fom.Catalog
	TimeFactory logicaltime.Factory
}

// JournalSink records callbacks per federation. *journal.Journal implements it.
type JournalSink interface {
	Sink(federation string) notify.Sink
}

// ExecutorServerConfig holds the configuration settings for an executor server.
type ExecutorServerConfig struct {
	// ListenAddress is the gRPC server's bind address (e.g., "0.0.0.0:8680").
	ListenAddress string

	// Federations are created when the server is built.
	Federations []FederationConfig

	// Journal, when set, receives a copy of every callback.
	Journal JournalSink

	// BroadcastGALT enables GALTAdvanced callbacks in every hosted federation.
	BroadcastGALT bool

	ShutdownTimeout    time.Duration // Max time allowed for graceful shutdown
	ServerStartTimeout time.Duration // Max time Start waits for the listener

	MaxRecvMsgSize   int
	MaxSendMsgSize   int
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration

	EnableRateLimit bool          // Whether rate limiting is enforced
	RateLimit       int           // Requests per window allowed per session
	RateLimitBurst  int           // Burst capacity per session
	RateLimitWindow time.Duration // Time window used for rate calculation

	Logger            logger.Logger
	Metrics           ServerMetrics
	FederationMetrics federation.Metrics
}

// DefaultExecutorServerConfig returns a config pre-populated with defaults.
// Callers must add at least one federation.
func DefaultExecutorServerConfig() ExecutorServerConfig {
	return ExecutorServerConfig{
		ListenAddress:      DefaultListenAddress,
		ShutdownTimeout:    DefaultShutdownTimeout,
		ServerStartTimeout: DefaultServerStartTimeout,
		MaxRecvMsgSize:     DefaultGRPCMaxRecvMsgSize,
		MaxSendMsgSize:     DefaultGRPCMaxSendMsgSize,
		KeepaliveTime:      DefaultGRPCKeepaliveTime,
		KeepaliveTimeout:   DefaultGRPCKeepaliveTimeout,
		EnableRateLimit:    false,
		RateLimit:          DefaultRateLimit,
		RateLimitBurst:     DefaultRateLimitBurst,
		RateLimitWindow:    DefaultRateLimitWindow,
		Logger:             logger.NewNoOpLogger(),
		Metrics:            NewNoOpServerMetrics(),
		FederationMetrics:  federation.NoOpMetrics{},
	}
}

// Validate checks if the server configuration is valid.
func (c *ExecutorServerConfig) Validate() error {
	if c.ListenAddress == "" {
		return NewExecutorServerConfigError("ListenAddress cannot be empty")
	}
	if len(c.Federations) == 0 {
		return NewExecutorServerConfigError("at least one federation must be configured")
	}

	seen := make(map[string]bool, len(c.Federations))
	for i, f := range c.Federations {
		if f.Name == "" {
			return NewExecutorServerConfigError(fmt.Sprintf("Federations[%d] must have a name", i))
		}
		if seen[f.Name] {
			return NewExecutorServerConfigError(fmt.Sprintf("federation %q configured twice", f.Name))
		}
		seen[f.Name] = true
		if f.Catalog == nil {
			return NewExecutorServerConfigError(fmt.Sprintf("federation %q has no FOM catalog", f.Name))
		}
		if f.TimeFactory == nil {
			return NewExecutorServerConfigError(fmt.Sprintf("federation %q has no time factory", f.Name))
		}
	}

	checkPositiveDuration := func(val time.Duration, name string) error {
		if val <= 0 {
			return NewExecutorServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}
	checkPositiveInt := func(val int, name string) error {
		if val <= 0 {
			return NewExecutorServerConfigError(fmt.Sprintf("%s must be positive", name))
		}
		return nil
	}

	if err := checkPositiveDuration(c.ShutdownTimeout, "ShutdownTimeout"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.ServerStartTimeout, "ServerStartTimeout"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxRecvMsgSize, "MaxRecvMsgSize"); err != nil {
		return err
	}
	if err := checkPositiveInt(c.MaxSendMsgSize, "MaxSendMsgSize"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.KeepaliveTime, "KeepaliveTime"); err != nil {
		return err
	}
	if err := checkPositiveDuration(c.KeepaliveTimeout, "KeepaliveTimeout"); err != nil {
		return err
	}

	if c.EnableRateLimit {
		if err := checkPositiveInt(c.RateLimit, "RateLimit"); err != nil {
			return err
		}
		if err := checkPositiveInt(c.RateLimitBurst, "RateLimitBurst"); err != nil {
			return err
		}
		if err := checkPositiveDuration(c.RateLimitWindow, "RateLimitWindow"); err != nil {
			return err
		}
	}
	return nil
}

// ExecutorServerConfigError represents a validation error in ExecutorServerConfig.
type ExecutorServerConfigError struct {
	Message string
}

func NewExecutorServerConfigError(msg string) *ExecutorServerConfigError {
	return &ExecutorServerConfigError{Message: msg}
}

func (e *ExecutorServerConfigError) Error() string {
	return "server config error: " + e.Message
}
