package client

import (
	"time"

	"google.golang.org/grpc"
)

const (
	// Default gRPC dial timeout.
	defaultDialTimeout = 5 * time.Second

	// Default timeout for a request whose context has no deadline.
	defaultRequestTimeout = 30 * time.Second

	// Default interval for sending keepalive pings.
	defaultKeepAliveTime = 30 * time.Second

	// Default timeout for waiting on keepalive ack.
	defaultKeepAliveTimeout = 5 * time.Second

	// Whether to allow keepalives when no streams are active.
	defaultPermitWithoutStream = true

	// Default maximum gRPC message size (16MB).
	defaultMaxMessageSize = 16 * 1024 * 1024
)

// Config holds configuration options for a federate connection.
type Config struct {
	// Target is the executor address, in any form grpc.NewClient accepts.
	Target string

	// DialTimeout bounds opening the session stream.
	DialTimeout time.Duration

	// RequestTimeout applies to requests whose context has no deadline.
	RequestTimeout time.Duration

	KeepAlive KeepAliveConfig

	// MaxMessageSize bounds frames in both directions.
	MaxMessageSize int

	// DialOptions are appended to the defaults, e.g. a bufconn dialer in tests.
	DialOptions []grpc.DialOption

	Metrics Metrics
}

// KeepAliveConfig defines gRPC keepalive settings for the client.
type KeepAliveConfig struct {
	Time                time.Duration
	Timeout             time.Duration
	PermitWithoutStream bool
}

// DefaultClientConfig returns a Config with sensible default values.
func DefaultClientConfig() Config {
	return Config{
		DialTimeout:    defaultDialTimeout,
		RequestTimeout: defaultRequestTimeout,
		KeepAlive: KeepAliveConfig{
			Time:                defaultKeepAliveTime,
			Timeout:             defaultKeepAliveTimeout,
			PermitWithoutStream: defaultPermitWithoutStream,
		},
		MaxMessageSize: defaultMaxMessageSize,
		Metrics:        NoOpMetrics{},
	}
}
