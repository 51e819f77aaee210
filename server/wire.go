package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jathurchan/rtiexec/logicaltime"
	"github.com/jathurchan/rtiexec/notify"
	"github.com/jathurchan/rtiexec/types"
)

// Every frame on a session stream is a google.protobuf.Struct.
//
// Requests (federate to executor):
//
//	{"id": 7, "op": "request_advance", "args": {"time": "10", "mode": "NextMessage"}}
//
// Replies answer one request by id and carry either "result" or "error":
//
//	{"type": "reply", "id": 7, "result": {}}
//	{"type": "reply", "id": 7, "error": {"code": 9, "status": "FailedPrecondition", "message": "..."}}
//
// Callbacks are the notify catalog, body in its JSON form:
//
//	{"type": "callback", "kind": "TimeAdvanceGrant", "body": {"time": "10"}}
//
// Logical times and intervals travel as strings in the federation's time
// domain. Tags and values travel as base64 strings.

const (
	FrameReply    = "reply"
	FrameCallback = "callback"

	// maxExactHandle is the largest handle a JSON number carries exactly.
	maxExactHandle = 1 << 53
)

// Request is a decoded request frame.
type Request struct {
	ID   uint64
	Op   string
	Args Args
}

// EncodeRequest builds a request frame. args must be convertible by structpb.NewStruct.
func EncodeRequest(id uint64, op string, args map[string]any) (*structpb.Struct, error) {
	if args == nil {
		args = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"id":   float64(id),
		"op":   op,
		"args": args,
	})
}

// DecodeRequest parses a request frame.
func DecodeRequest(frame *structpb.Struct) (Request, error) {
	if frame == nil {
		return Request{}, fmt.Errorf("%w: empty frame", ErrInvalidRequest)
	}
	fields := frame.GetFields()

	id, err := numberField(fields["id"])
	if err != nil {
		return Request{}, fmt.Errorf("%w: id: %v", ErrInvalidRequest, err)
	}
	op := fields["op"].GetStringValue()
	if op == "" {
		return Request{ID: id}, fmt.Errorf("%w: op is required", ErrInvalidRequest)
	}

	req := Request{ID: id, Op: op}
	if v, ok := fields["args"]; ok {
		s := v.GetStructValue()
		if s == nil {
			return req, fmt.Errorf("%w: args must be an object", ErrInvalidRequest)
		}
		req.Args = Args{s: s}
	}
	return req, nil
}

// EncodeReply builds a successful reply frame.
func EncodeReply(id uint64, result map[string]any) (*structpb.Struct, error) {
	if result == nil {
		result = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"type":   FrameReply,
		"id":     float64(id),
		"result": result,
	})
}

// EncodeErrorReply builds a failed reply frame for err.
func EncodeErrorReply(id uint64, err error) *structpb.Struct {
	code := StatusCode(err)
	msg := err.Error()
	var serverErr *ServerError
	if code == codes.Internal && errors.As(err, &serverErr) {
		msg = serverErr.Message
	}

	frame, encErr := structpb.NewStruct(map[string]any{
		"type": FrameReply,
		"id":   float64(id),
		"error": map[string]any{
			"code":    float64(code),
			"status":  code.String(),
			"message": msg,
			"details": errorDetails(err),
		},
	})
	if encErr != nil {
		// Details are built from strings and numbers only.
		panic(fmt.Sprintf("server: encode error reply: %v", encErr))
	}
	return frame
}

// EncodeCallback builds a callback frame from a notification's JSON form.
func EncodeCallback(n notify.Notification) (*structpb.Struct, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.Kind(), err)
	}
	body := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, body); err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.Kind(), err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"type": structpb.NewStringValue(FrameCallback),
		"kind": structpb.NewStringValue(n.Kind()),
		"body": structpb.NewStructValue(body),
	}}, nil
}

// Frame is a decoded executor-to-federate frame.
type Frame struct {
	Type string

	// Reply fields
	ID     uint64
	Result *structpb.Struct
	Err    *ReplyError

	// Callback fields
	Kind string
	Body *structpb.Struct
}

// DecodeFrame parses an executor-to-federate frame.
func DecodeFrame(frame *structpb.Struct) (Frame, error) {
	fields := frame.GetFields()
	f := Frame{Type: fields["type"].GetStringValue()}
	switch f.Type {
	case FrameReply:
		id, err := numberField(fields["id"])
		if err != nil {
			return f, fmt.Errorf("reply id: %w", err)
		}
		f.ID = id
		if e := fields["error"].GetStructValue(); e != nil {
			ef := e.GetFields()
			f.Err = &ReplyError{
				Code:    codes.Code(ef["code"].GetNumberValue()),
				Message: ef["message"].GetStringValue(),
				Details: ef["details"].GetStructValue().AsMap(),
			}
			return f, nil
		}
		f.Result = fields["result"].GetStructValue()
		if f.Result == nil {
			f.Result = &structpb.Struct{}
		}
	case FrameCallback:
		f.Kind = fields["kind"].GetStringValue()
		f.Body = fields["body"].GetStructValue()
		if f.Kind == "" || f.Body == nil {
			return f, errors.New("callback frame without kind or body")
		}
	default:
		return f, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}

// ReplyError is a failed request as seen by the federate.
type ReplyError struct {
	Code    codes.Code
	Message string
	Details map[string]any
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// GRPCStatus lets status.FromError and status.Code read the reply's code.
func (e *ReplyError) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// Args reads typed arguments from a request's "args" object.
type Args struct {
	s *structpb.Struct
}

func (a Args) value(key string) (*structpb.Value, bool) {
	if a.s == nil {
		return nil, false
	}
	v, ok := a.s.GetFields()[key]
	if ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
			return nil, false
		}
	}
	return v, ok
}

// Has reports whether key is present and not null.
func (a Args) Has(key string) bool {
	_, ok := a.value(key)
	return ok
}

// String returns an optional string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a.value(key)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", NewValidationError(key, v.AsInterface(), "must be a string")
	}
	return s.StringValue, nil
}

// Handle returns a required positive integral argument.
func (a Args) Handle(key string) (uint64, error) {
	v, ok := a.value(key)
	if !ok {
		return 0, NewValidationError(key, nil, ErrMsgHandleRequired)
	}
	h, err := numberField(v)
	if err != nil || h == 0 {
		return 0, NewValidationError(key, v.AsInterface(), ErrMsgHandleRequired)
	}
	return h, nil
}

// Handles returns a required list of positive integral arguments.
func (a Args) Handles(key string) ([]uint64, error) {
	v, ok := a.value(key)
	if !ok {
		return nil, NewValidationError(key, nil, "is required")
	}
	list := v.GetListValue()
	if list == nil {
		return nil, NewValidationError(key, v.AsInterface(), "must be a list of handles")
	}
	out := make([]uint64, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		h, err := numberField(item)
		if err != nil || h == 0 {
			return nil, NewValidationError(fmt.Sprintf("%s[%d]", key, i), item.AsInterface(), ErrMsgHandleRequired)
		}
		out = append(out, h)
	}
	return out, nil
}

// Bytes returns an optional base64-encoded argument.
func (a Args) Bytes(key string) ([]byte, error) {
	s, err := a.String(key)
	if err != nil || s == "" {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, NewValidationError(key, s, "must be base64")
	}
	return b, nil
}

// Bool returns an optional boolean argument.
func (a Args) Bool(key string) (bool, error) {
	v, ok := a.value(key)
	if !ok {
		return false, nil
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, NewValidationError(key, v.AsInterface(), "must be a boolean")
	}
	return b.BoolValue, nil
}

// Time returns an optional logical time argument; absent yields nil.
func (a Args) Time(key string, f logicaltime.Factory) (logicaltime.Time, error) {
	s, err := a.String(key)
	if err != nil || !a.Has(key) {
		return nil, err
	}
	t, err := f.ParseTime(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

// Interval returns a required logical time interval argument.
func (a Args) Interval(key string, f logicaltime.Factory) (logicaltime.Interval, error) {
	if !a.Has(key) {
		return nil, NewValidationError(key, nil, "is required")
	}
	s, err := a.String(key)
	if err != nil {
		return nil, err
	}
	d, err := f.ParseInterval(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// AttributeValues reads [{"attribute": h, "value": base64}, ...].
func (a Args) AttributeValues(key string) ([]types.AttributeValue, error) {
	pairs, err := a.pairs(key, "attribute")
	if err != nil {
		return nil, err
	}
	out := make([]types.AttributeValue, len(pairs))
	for i, p := range pairs {
		out[i] = types.AttributeValue{Attribute: types.AttributeHandle(p.handle), Value: p.value}
	}
	return out, nil
}

// ParameterValues reads [{"parameter": h, "value": base64}, ...].
func (a Args) ParameterValues(key string) ([]types.ParameterValue, error) {
	pairs, err := a.pairs(key, "parameter")
	if err != nil {
		return nil, err
	}
	out := make([]types.ParameterValue, len(pairs))
	for i, p := range pairs {
		out[i] = types.ParameterValue{Parameter: types.ParameterHandle(p.handle), Value: p.value}
	}
	return out, nil
}

type handleValue struct {
	handle uint64
	value  []byte
}

func (a Args) pairs(key, handleKey string) ([]handleValue, error) {
	v, ok := a.value(key)
	if !ok {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, NewValidationError(key, v.AsInterface(), "must be a list")
	}
	out := make([]handleValue, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		field := fmt.Sprintf("%s[%d]", key, i)
		s := item.GetStructValue()
		if s == nil {
			return nil, NewValidationError(field, item.AsInterface(), "must be an object")
		}
		entry := Args{s: s}
		h, err := entry.Handle(handleKey)
		if err != nil {
			return nil, NewValidationError(field+"."+handleKey, s.AsMap()[handleKey], ErrMsgHandleRequired)
		}
		val, err := entry.Bytes("value")
		if err != nil {
			return nil, NewValidationError(field+".value", s.AsMap()["value"], "must be base64")
		}
		out = append(out, handleValue{handle: h, value: val})
	}
	return out, nil
}

func numberField(v *structpb.Value) (uint64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, errors.New("must be a number")
	}
	f := n.NumberValue
	if f < 0 || f > maxExactHandle || f != math.Trunc(f) {
		return 0, errors.New("must be a non-negative integer")
	}
	return uint64(f), nil
}

// handleList converts handles to JSON numbers for a reply.
func handleList[H ~uint64](hs []H) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = float64(h)
	}
	return out
}
