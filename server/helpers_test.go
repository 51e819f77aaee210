package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/testutil"
)

const testTimeout = 5 * time.Second

// startTestServer serves a "traffic" federation over an in-memory listener.
func startTestServer(t *testing.T, configure func(*ExecutorServerBuilder)) (*ExecutorServer, *grpc.ClientConn) {
	t.Helper()

	b := NewExecutorServerBuilder().
		WithFederation("traffic", testutil.TrafficCatalog(t), logicaltime.Integer64Factory{}).
		WithTimeouts(2*time.Second, 0)
	if configure != nil {
		configure(b)
	}
	srv, err := b.Build()
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	require.NoError(t, srv.Serve(context.Background(), lis))

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		_ = srv.Stop(context.Background())
	})
	return srv, conn
}

// rawFederate drives one Connect stream frame by frame.
type rawFederate struct {
	t      *testing.T
	stream grpc.ClientStream
	cancel context.CancelFunc
	frames chan Frame
	ended  chan error
	nextID uint64
}

func openRaw(t *testing.T, conn *grpc.ClientConn) *rawFederate {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(ctx, ConnectStreamDesc, ConnectMethod)
	require.NoError(t, err)

	f := &rawFederate{
		t:      t,
		stream: stream,
		cancel: cancel,
		frames: make(chan Frame, 256),
		ended:  make(chan error, 1),
	}
	go func() {
		for {
			msg := &structpb.Struct{}
			if err := stream.RecvMsg(msg); err != nil {
				f.ended <- err
				close(f.frames)
				return
			}
			frame, err := DecodeFrame(msg)
			if err != nil {
				f.ended <- err
				close(f.frames)
				return
			}
			f.frames <- frame
		}
	}()
	t.Cleanup(cancel)
	return f
}

func (f *rawFederate) send(op string, args map[string]any) uint64 {
	f.t.Helper()
	f.nextID++
	frame, err := EncodeRequest(f.nextID, op, args)
	require.NoError(f.t, err)
	require.NoError(f.t, f.stream.SendMsg(frame))
	return f.nextID
}

// call sends a request and returns its reply together with the callbacks
// that arrived before it.
func (f *rawFederate) call(op string, args map[string]any) (Frame, []Frame) {
	f.t.Helper()
	id := f.send(op, args)
	var callbacks []Frame
	timeout := time.After(testTimeout)
	for {
		select {
		case frame, ok := <-f.frames:
			require.True(f.t, ok, "stream ended waiting for reply to %s", op)
			if frame.Type == FrameCallback {
				callbacks = append(callbacks, frame)
				continue
			}
			require.Equal(f.t, id, frame.ID)
			return frame, callbacks
		case <-timeout:
			f.t.Fatalf("no reply to %s", op)
		}
	}
}

// ok calls op and requires success.
func (f *rawFederate) ok(op string, args map[string]any) (map[string]any, []Frame) {
	f.t.Helper()
	reply, callbacks := f.call(op, args)
	require.Nil(f.t, reply.Err, "%s failed", op)
	return reply.Result.AsMap(), callbacks
}

// next waits for one callback.
func (f *rawFederate) next() Frame {
	f.t.Helper()
	select {
	case frame, ok := <-f.frames:
		require.True(f.t, ok, "stream ended waiting for callback")
		require.Equal(f.t, FrameCallback, frame.Type)
		return frame
	case <-time.After(testTimeout):
		f.t.Fatal("no callback")
	}
	return Frame{}
}

func (f *rawFederate) waitEnded() error {
	f.t.Helper()
	for {
		select {
		case _, ok := <-f.frames:
			if !ok {
				return <-f.ended
			}
		case <-time.After(testTimeout):
			f.t.Fatal("stream did not end")
		}
	}
}

func (f *rawFederate) join(name string) float64 {
	f.t.Helper()
	res, _ := f.ok(OpJoin, map[string]any{"federation": "traffic", "name": name, "type": "test"})
	return res["federate"].(float64)
}

func kinds(frames []Frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Kind
	}
	return out
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, testTimeout, 5*time.Millisecond)
}
