package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/federation"
	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/timekeeper"
	"github.com/jathurchan/rtiexec/types"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRequest_RoundTrip(t *testing.T) {
	frame, err := EncodeRequest(7, OpUpdateAttributeValues, map[string]any{
		"object": float64(3),
		"values": []any{
			map[string]any{"attribute": float64(2), "value": "cA=="},
		},
		"tag":  "dGFn",
		"time": "10",
	})
	require.NoError(t, err)

	req, err := DecodeRequest(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), req.ID)
	assert.Equal(t, OpUpdateAttributeValues, req.Op)

	obj, err := req.Args.Handle("object")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), obj)

	values, err := req.Args.AttributeValues("values")
	require.NoError(t, err)
	assert.Equal(t, []types.AttributeValue{{Attribute: 2, Value: []byte("p")}}, values)

	tag, err := req.Args.Bytes("tag")
	require.NoError(t, err)
	assert.Equal(t, []byte("tag"), tag)

	ts, err := req.Args.Time("time", logicaltime.Integer64Factory{})
	require.NoError(t, err)
	assert.Equal(t, logicaltime.Integer64Time(10), ts)
}

func TestDecodeRequest_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		frame map[string]any
	}{
		{"missing op", map[string]any{"id": float64(1)}},
		{"missing id", map[string]any{"op": "join"}},
		{"fractional id", map[string]any{"id": 1.5, "op": "join"}},
		{"negative id", map[string]any{"id": float64(-1), "op": "join"}},
		{"args not object", map[string]any{"id": float64(1), "op": "join", "args": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(mustStruct(t, tt.frame))
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	_, err := DecodeRequest(nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestArgs_Validation(t *testing.T) {
	args := Args{s: mustStruct(t, map[string]any{
		"zero":      float64(0),
		"str":       "x",
		"list":      []any{float64(1), "two"},
		"notlist":   float64(1),
		"badbase64": "!!",
		"flag":      true,
		"nullv":     nil,
		"pairs":     []any{map[string]any{"attribute": float64(0), "value": ""}},
	})}

	_, err := args.Handle("zero")
	assert.Error(t, err)
	_, err = args.Handle("absent")
	assert.Error(t, err)
	_, err = args.Handle("str")
	assert.Error(t, err)

	_, err = args.Handles("list")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "list[1]", vErr.Field)
	_, err = args.Handles("notlist")
	assert.Error(t, err)

	_, err = args.Bytes("badbase64")
	assert.Error(t, err)

	b, err := args.Bool("flag")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = args.Bool("str")
	assert.Error(t, err)

	assert.False(t, args.Has("nullv"))
	ts, err := args.Time("nullv", logicaltime.Integer64Factory{})
	require.NoError(t, err)
	assert.Nil(t, ts)

	_, err = args.Time("str", logicaltime.Integer64Factory{})
	assert.ErrorIs(t, err, logicaltime.ErrInvalidTime)

	_, err = args.Interval("absent", logicaltime.Integer64Factory{})
	assert.Error(t, err)

	_, err = args.AttributeValues("pairs")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "pairs[0].attribute", vErr.Field)

	values, err := args.AttributeValues("absent")
	require.NoError(t, err)
	assert.Nil(t, values)
}

func TestEncodeCallback(t *testing.T) {
	frame, err := EncodeCallback(notify.ReflectAttributeValues{
		Object: 1,
		Values: []types.AttributeValue{{Attribute: 2, Value: []byte("p")}},
		Time:   logicaltime.Integer64Time(5),
		Order:  types.OrderTimestamp,
		Sender: 3,
	})
	require.NoError(t, err)

	f, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, FrameCallback, f.Type)
	assert.Equal(t, "ReflectAttributeValues", f.Kind)

	body := f.Body.AsMap()
	assert.Equal(t, float64(1), body["object"])
	assert.Equal(t, "5", body["time"])
	assert.Equal(t, float64(3), body["sender"])
	assert.Equal(t, []any{map[string]any{"attribute": float64(2), "value": "cA=="}}, body["values"])
}

func TestEncodeReply(t *testing.T) {
	frame, err := EncodeReply(4, map[string]any{"object": float64(9)})
	require.NoError(t, err)
	f, err := DecodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, FrameReply, f.Type)
	assert.Equal(t, uint64(4), f.ID)
	assert.Nil(t, f.Err)
	assert.Equal(t, float64(9), f.Result.AsMap()["object"])
}

func TestEncodeErrorReply(t *testing.T) {
	reqErr := &federation.RequestError{
		Op:       "EnableTimeRegulation",
		Federate: 2,
		Err:      timekeeper.ErrTimeRegulationAlreadyEnabled,
	}
	f, err := DecodeFrame(EncodeErrorReply(5, reqErr))
	require.NoError(t, err)
	require.NotNil(t, f.Err)
	assert.Equal(t, uint64(5), f.ID)
	assert.Equal(t, codes.FailedPrecondition, f.Err.Code)
	assert.Equal(t, codes.FailedPrecondition, status.Code(f.Err))
	assert.Contains(t, f.Err.Message, "time regulation already enabled")
	assert.Equal(t, "EnableTimeRegulation", f.Err.Details["operation"])
	assert.Equal(t, float64(2), f.Err.Details["federate"])

	f, err = DecodeFrame(EncodeErrorReply(6, NewValidationError("name", "x", "too long")))
	require.NoError(t, err)
	assert.Equal(t, codes.InvalidArgument, f.Err.Code)
	assert.Equal(t, "name", f.Err.Details["field"])

	f, err = DecodeFrame(EncodeErrorReply(7, NewServerError("join", assert.AnError, "boom")))
	require.NoError(t, err)
	assert.Equal(t, codes.Internal, f.Err.Code)
	assert.Equal(t, "boom", f.Err.Message)
}

func TestDecodeFrame_Invalid(t *testing.T) {
	_, err := DecodeFrame(mustStruct(t, map[string]any{"type": "nope"}))
	assert.Error(t, err)
	_, err = DecodeFrame(mustStruct(t, map[string]any{"type": FrameCallback}))
	assert.Error(t, err)
	_, err = DecodeFrame(mustStruct(t, map[string]any{"type": FrameReply}))
	assert.Error(t, err)
}
