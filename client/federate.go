// Package client connects a federate to an executor over its Connect stream.
//
// A Federate multiplexes requests over the stream, matching replies by id,
// and queues callbacks for NextCallback without bound, so a slow consumer
// never stalls replies.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/server"
)

// Callback is a callback frame from the executor.
type Callback struct {
	Kind string
	Body *structpb.Struct
}

// Decode unmarshals the callback body into v through its JSON form.
func (c Callback) Decode(v any) error {
	raw, err := protojson.Marshal(c.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Federate is one session with an executor.
type Federate struct {
	cfg     Config
	conn    *grpc.ClientConn
	stream  grpc.ClientStream
	cancel  context.CancelFunc
	metrics Metrics

	sendMu sync.Mutex
	nextID atomic.Uint64

	mu        sync.Mutex
	pending   map[uint64]chan server.Frame
	callbacks []Callback
	cbWake    chan struct{}
	err       error

	done   chan struct{}
	closed atomic.Bool
}

// Connect opens a session with the executor at cfg.Target.
func Connect(ctx context.Context, cfg Config) (*Federate, error) {
	if cfg.Target == "" {
		return nil, errors.New("client: target is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoOpMetrics{}
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepAlive.Time,
			Timeout:             cfg.KeepAlive.Timeout,
			PermitWithoutStream: cfg.KeepAlive.PermitWithoutStream,
		}),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("client: failed to dial %s: %w", cfg.Target, err)
	}

	// The stream outlives ctx; only the dial is bounded by it.
	streamCtx, cancel := context.WithCancel(context.Background())
	opened := make(chan struct{})
	var stream grpc.ClientStream
	go func() {
		defer close(opened)
		stream, err = conn.NewStream(streamCtx, server.ConnectStreamDesc, server.ConnectMethod, grpc.WaitForReady(true))
	}()

	timer := time.NewTimer(cfg.DialTimeout)
	defer timer.Stop()
	select {
	case <-opened:
	case <-ctx.Done():
		cancel()
		<-opened
		conn.Close()
		return nil, ctx.Err()
	case <-timer.C:
		cancel()
		<-opened
		conn.Close()
		return nil, fmt.Errorf("client: timed out opening session with %s", cfg.Target)
	}
	if err != nil {
		cancel()
		conn.Close()
		return nil, fmt.Errorf("client: open session with %s: %w", cfg.Target, err)
	}

	f := &Federate{
		cfg:     cfg,
		conn:    conn,
		stream:  stream,
		cancel:  cancel,
		metrics: cfg.Metrics,
		pending: make(map[uint64]chan server.Frame),
		cbWake:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go f.readLoop()
	return f, nil
}

func (f *Federate) readLoop() {
	var final error
	for {
		msg := &structpb.Struct{}
		if err := f.stream.RecvMsg(msg); err != nil {
			if !errors.Is(err, io.EOF) {
				final = err
			}
			break
		}
		frame, err := server.DecodeFrame(msg)
		if err != nil {
			final = fmt.Errorf("client: bad frame from executor: %w", err)
			break
		}
		switch frame.Type {
		case server.FrameReply:
			f.mu.Lock()
			ch, ok := f.pending[frame.ID]
			delete(f.pending, frame.ID)
			f.mu.Unlock()
			if ok {
				ch <- frame
			}
		case server.FrameCallback:
			f.metrics.IncrCallback(frame.Kind)
			f.mu.Lock()
			f.callbacks = append(f.callbacks, Callback{Kind: frame.Kind, Body: frame.Body})
			f.mu.Unlock()
			select {
			case f.cbWake <- struct{}{}:
			default:
			}
		}
	}

	f.mu.Lock()
	f.err = final
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
	close(f.done)
}

// call sends a request and waits for its reply.
func (f *Federate) call(ctx context.Context, op string, args map[string]any) (*structpb.Struct, error) {
	if f.closed.Load() {
		return nil, ErrClientClosed
	}
	start := time.Now()
	result, err := f.roundTrip(ctx, op, args)
	f.metrics.ObserveLatency(op, time.Since(start))
	if err != nil {
		f.metrics.IncrFailure(op)
		return nil, err
	}
	f.metrics.IncrSuccess(op)
	return result, nil
}

func (f *Federate) roundTrip(ctx context.Context, op string, args map[string]any) (*structpb.Struct, error) {
	if _, ok := ctx.Deadline(); !ok && f.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.RequestTimeout)
		defer cancel()
	}

	id := f.nextID.Add(1)
	frame, err := server.EncodeRequest(id, op, args)
	if err != nil {
		return nil, fmt.Errorf("client: encode %s: %w", op, err)
	}

	ch := make(chan server.Frame, 1)
	f.mu.Lock()
	if f.pending == nil {
		f.mu.Unlock()
		return nil, f.endedErr()
	}
	f.pending[id] = ch
	f.mu.Unlock()

	f.sendMu.Lock()
	err = f.stream.SendMsg(frame)
	f.sendMu.Unlock()
	if err != nil {
		f.forget(id)
		if errors.Is(err, io.EOF) {
			return nil, f.endedErr()
		}
		return nil, fmt.Errorf("client: send %s: %w", op, err)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, f.endedErr()
		}
		if reply.Err != nil {
			return nil, reply.Err
		}
		return reply.Result, nil
	case <-ctx.Done():
		f.forget(id)
		return nil, ctx.Err()
	}
}

func (f *Federate) forget(id uint64) {
	f.mu.Lock()
	if f.pending != nil {
		delete(f.pending, id)
	}
	f.mu.Unlock()
}

func (f *Federate) endedErr() error {
	<-f.done
	if err := f.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionEnded, err)
	}
	return ErrSessionEnded
}

// NextCallback returns the oldest undelivered callback, waiting for one if
// needed. After the session ends, queued callbacks are still returned before
// ErrSessionEnded.
func (f *Federate) NextCallback(ctx context.Context) (Callback, error) {
	for {
		f.mu.Lock()
		if len(f.callbacks) > 0 {
			cb := f.callbacks[0]
			f.callbacks = f.callbacks[1:]
			f.mu.Unlock()
			return cb, nil
		}
		f.mu.Unlock()

		select {
		case <-f.cbWake:
		case <-f.done:
			f.mu.Lock()
			empty := len(f.callbacks) == 0
			f.mu.Unlock()
			if empty {
				return Callback{}, f.endedErr()
			}
		case <-ctx.Done():
			return Callback{}, ctx.Err()
		}
	}
}

// PendingCallbacks returns how many callbacks are queued.
func (f *Federate) PendingCallbacks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.callbacks)
}

// Done is closed when the session has ended.
func (f *Federate) Done() <-chan struct{} { return f.done }

// Err returns the status the session ended with, nil for a clean end or
// while it is still open.
func (f *Federate) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close ends the session. An executor treats a federate that closes without
// resigning as lost and removes it.
func (f *Federate) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	f.sendMu.Lock()
	_ = f.stream.CloseSend()
	f.sendMu.Unlock()

	timer := time.NewTimer(f.cfg.DialTimeout)
	defer timer.Stop()
	select {
	case <-f.done:
	case <-timer.C:
	}
	f.cancel()
	return f.conn.Close()
}
