// Package server exposes hosted federation executions to federates over
// gRPC. Each federate holds one bidirectional Connect stream carrying
// structpb request, reply and callback frames (see wire.go).
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
)

// ExecutorServer hosts federation executions and serves federate sessions.
type ExecutorServer struct {
	config  ExecutorServerConfig
	logger  logger.Logger
	metrics ServerMetrics

	registry    *federation.Registry
	routers     map[string]*router
	connections ConnectionManager
	validator   RequestValidator

	grpcServer *grpc.Server
	listener   net.Listener

	state    atomic.Value // ServerOperationalState
	stopOnce sync.Once
	served   chan struct{}

	// quit is closed by Stop; sessions tracks session readers still running.
	quit     chan struct{}
	sessions sync.WaitGroup
}

// NewExecutorServer creates the configured federations and the gRPC server.
// It does not listen until Start or Serve is called.
func NewExecutorServer(cfg ExecutorServerConfig) (*ExecutorServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.WithComponent("server")

	s := &ExecutorServer{
		config:      cfg,
		logger:      log,
		metrics:     cfg.Metrics,
		routers:     make(map[string]*router, len(cfg.Federations)),
		connections: NewConnectionManager(cfg.Metrics, log, nil),
		validator:   NewRequestValidator(log),
		served:      make(chan struct{}),
		quit:        make(chan struct{}),
	}
	s.state.Store(ServerStateStarting)

	s.registry = federation.NewRegistry(
		federation.WithLogger(cfg.Logger),
		federation.WithMetrics(cfg.FederationMetrics),
		federation.WithGALTBroadcast(cfg.BroadcastGALT),
	)
	for _, fc := range cfg.Federations {
		rt := newRouter(log.With("federation", fc.Name))
		var sink notify.Sink = rt
		if cfg.Journal != nil {
			sink = notify.Tee(rt, cfg.Journal.Sink(fc.Name))
		}
		if _, err := s.registry.Create(fc.Name, fc.Catalog, fc.TimeFactory, sink); err != nil {
			return nil, fmt.Errorf("server: create federation %q: %w", fc.Name, err)
		}
		s.routers[fc.Name] = rt
	}

	s.grpcServer = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             max(cfg.KeepaliveTime/2, time.Second),
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
	)
	RegisterExecutorService(s.grpcServer, s)
	return s, nil
}

// Start listens on the configured address and serves in the background.
func (s *ExecutorServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves sessions on lis in the background. Tests pass a bufconn listener.
func (s *ExecutorServer) Serve(ctx context.Context, lis net.Listener) error {
	if !s.state.CompareAndSwap(ServerStateStarting, ServerStateRunning) {
		_ = lis.Close()
		if s.State() == ServerStateRunning {
			return ErrServerAlreadyStarted
		}
		return ErrServerStopped
	}
	s.listener = lis
	addr := lis.Addr().String()

	started := make(chan struct{})
	go func() {
		defer close(s.served)
		close(started)
		s.logger.Infow("Executor serving", "address", addr, "federations", s.registry.Names())
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, net.ErrClosed) {
			s.logger.Errorw("gRPC server encountered an error", "address", addr, "error", err)
		}
	}()

	select {
	case <-started:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.config.ServerStartTimeout):
		return fmt.Errorf("server: timeout waiting for gRPC server to start after %v", s.config.ServerStartTimeout)
	}
}

// Stop ends every session and waits up to ShutdownTimeout, or ctx, for them
// to finish. Federates of ended sessions are removed from their federations.
func (s *ExecutorServer) Stop(ctx context.Context) error {
	err := ErrServerStopped
	s.stopOnce.Do(func() {
		err = s.stop(ctx)
	})
	return err
}

func (s *ExecutorServer) stop(ctx context.Context) error {
	wasRunning := s.State() == ServerStateRunning
	s.state.Store(ServerStateStopping)
	s.logger.Infow("Stopping executor", "active_sessions", s.connections.GetActiveConnections())

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	close(s.quit)
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		s.sessions.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
		err = ErrShutdownTimeout
	}
	if wasRunning {
		<-s.served
	}
	s.state.Store(ServerStateStopped)
	s.logger.Infow("Executor stopped")
	return err
}

// Connect implements ExecutorService.
func (s *ExecutorServer) Connect(stream grpc.ServerStream) error {
	if s.State() != ServerStateRunning {
		return status.Error(codes.Unavailable, ErrServerStopped.Error())
	}
	return newSession(s, stream).run()
}

// State returns the server's operational state.
func (s *ExecutorServer) State() ServerOperationalState {
	return s.state.Load().(ServerOperationalState)
}

// Addr returns the address being served, or "" before Serve.
func (s *ExecutorServer) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Registry returns the hosted federations.
func (s *ExecutorServer) Registry() *federation.Registry { return s.registry }

// Connections returns the session tracker.
func (s *ExecutorServer) Connections() ConnectionManager { return s.connections }

// Metrics returns the server's metrics collector.
func (s *ExecutorServer) Metrics() ServerMetrics { return s.metrics }

// federation resolves a join target. An empty name selects the only hosted
// federation.
func (s *ExecutorServer) federation(name string) (*federation.Execution, *router, error) {
	if name == "" {
		names := s.registry.Names()
		if len(names) != 1 {
			return nil, nil, NewValidationError("federation", name, "is required when more than one federation is hosted")
		}
		name = names[0]
	}
	exec, err := s.registry.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	return exec, s.routers[name], nil
}
