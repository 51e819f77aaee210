package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/logger"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Session serves one federate over one Connect stream.
//
// A reader goroutine decodes and executes requests in arrival order. A writer
// goroutine drains an unbounded FIFO of replies and callbacks, so deciding a
// callback never waits on the network. A reply is queued after every callback
// its request decided.
type Session struct {
	id     string
	stream grpc.ServerStream
	srv    *ExecutorServer
	logger logger.Logger

	limiter   RateLimiter
	validator RequestValidator

	mu     sync.Mutex
	queue  []*structpb.Struct
	wake   chan struct{}
	closed bool

	// Set by join, cleared by resign. Only the reader goroutine writes them.
	exec     *federation.Execution
	router   *router
	federate types.FederateHandle
}

func newSession(srv *ExecutorServer, stream grpc.ServerStream) *Session {
	id := uuid.NewString()
	log := srv.logger.With("session_id", id).WithComponent("session")
	return &Session{
		id:        id,
		stream:    stream,
		srv:       srv,
		logger:    log,
		limiter:   newSessionLimiter(&srv.config, log),
		validator: srv.validator,
		wake:      make(chan struct{}, 1),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

func remoteAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "unknown"
}

// run serves the stream until the federate closes it, the transport fails, a
// fatal request error ends the session or the server stops. A joined federate
// that has not resigned is removed as a lost session.
func (s *Session) run() error {
	ctx := s.stream.Context()
	s.srv.connections.OnConnect(s.id, remoteAddr(ctx))
	defer s.srv.connections.OnDisconnect(s.id)

	writerDone := make(chan error, 1)
	go func() { writerDone <- s.writeLoop(ctx) }()

	// The reader owns the membership fields, so it also removes the federate.
	readerDone := make(chan error, 1)
	s.srv.sessions.Add(1)
	go func() {
		defer s.srv.sessions.Done()
		err := s.readLoop(ctx)
		s.leave()
		readerDone <- err
	}()

	var err error
	select {
	case err = <-readerDone:
	case <-s.srv.quit:
		err = status.Error(codes.Unavailable, ErrServerStopped.Error())
	}
	s.close()
	if writeErr := <-writerDone; err == nil {
		err = writeErr
	}

	code := status.Code(err)
	s.srv.metrics.IncrSessionEnd(code)
	if err != nil {
		s.logger.Infow("Session ended", "code", code, "error", err)
		return err
	}
	s.logger.Debugw("Session ended")
	return nil
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		frame := &structpb.Struct{}
		if err := s.stream.RecvMsg(frame); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return status.Error(codes.Canceled, "session canceled")
			}
			return err
		}
		s.srv.connections.OnRequest(s.id)

		req, err := DecodeRequest(frame)
		if err != nil {
			s.srv.metrics.IncrValidationError(req.Op, ErrorTypeInvalidFormat)
			s.enqueue(EncodeErrorReply(req.ID, err))
			continue
		}
		if !s.limiter.Allow() {
			s.srv.metrics.IncrValidationError(req.Op, ErrorTypeRateLimit)
			s.enqueue(EncodeErrorReply(req.ID, ErrRateLimited))
			continue
		}

		if fatal := s.serve(req); fatal != nil {
			return ErrorToStatus(fatal).Err()
		}
	}
}

// serve executes one request and queues its reply. It returns a non-nil
// error only when the session must end.
func (s *Session) serve(req Request) error {
	start := time.Now()
	h, ok := handlers[req.Op]
	if !ok {
		s.srv.metrics.IncrRequest(req.Op, false)
		s.enqueue(EncodeErrorReply(req.ID, ErrUnknownOperation))
		return nil
	}

	result, err := h(s, req.Args)
	s.srv.metrics.ObserveRequestLatency(req.Op, time.Since(start))
	s.srv.metrics.IncrRequest(req.Op, err == nil)

	if err != nil {
		s.recordError(req.Op, err)
		s.enqueue(EncodeErrorReply(req.ID, err))

		var reqErr *federation.RequestError
		if errors.As(err, &reqErr) && reqErr.Fatal() {
			s.logger.Warnw("Ending session on protocol error", "op", req.Op, "error", err)
			return err
		}
		return nil
	}

	frame, err := EncodeReply(req.ID, result)
	if err != nil {
		serr := NewServerError(req.Op, err, "failed to encode reply")
		s.recordError(req.Op, serr)
		s.enqueue(EncodeErrorReply(req.ID, serr))
		return nil
	}
	s.enqueue(frame)
	return nil
}

func (s *Session) recordError(op string, err error) {
	var validationErr *ValidationError
	switch code := StatusCode(err); {
	case errors.As(err, &validationErr):
		s.srv.metrics.IncrValidationError(op, ErrorTypeInvalidFormat)
	case code == codes.Internal:
		s.srv.metrics.IncrServerError(op, ErrorTypeInternalError)
		s.logger.Errorw("Request failed", "op", op, "error", err)
	default:
		s.srv.metrics.IncrClientError(op, code)
		s.logger.Debugw("Request refused", "op", op, "code", code, "error", err)
	}
}

// deliver queues a callback. Called by the federation's router.
func (s *Session) deliver(n notify.Notification) {
	frame, err := EncodeCallback(n)
	if err != nil {
		s.logger.Errorw("Dropping callback that cannot be encoded", "kind", n.Kind(), "error", err)
		return
	}
	s.srv.metrics.IncrCallback(n.Kind())
	s.enqueue(frame)
}

func (s *Session) enqueue(frame *structpb.Struct) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, frame)
	n := len(s.queue)
	s.mu.Unlock()

	s.srv.metrics.ObserveQueueLength(QueueTypeOutbound, n)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// close stops accepting frames. The writer sends what is queued and exits.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, frame := range batch {
			if err := s.stream.SendMsg(frame); err != nil {
				s.logger.Warnw("Failed to send frame", "error", err)
				return err
			}
		}
		if closed && len(batch) == 0 {
			return nil
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return nil
		}
	}
}

// joined returns the session's execution and federate, or ErrNotJoined.
func (s *Session) joined() (*federation.Execution, types.FederateHandle, error) {
	if s.exec == nil {
		return nil, 0, ErrNotJoined
	}
	return s.exec, s.federate, nil
}

// leave removes a federate whose session ended without resigning.
func (s *Session) leave() {
	if s.exec == nil {
		return
	}
	s.logger.WithFederation(s.exec.ID()).WithFederate(s.federate).Infow("Removing federate of lost session",
		"federation_name", s.exec.Name())
	s.exec.RemoveFederate(s.federate)
	s.router.detach(s.federate)
	s.exec, s.router, s.federate = nil, nil, 0
}
