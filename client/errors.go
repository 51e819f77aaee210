package client

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jathurchan/rtiexec/server"
)

var (
	// ErrClientClosed is returned when using a closed federate connection.
	ErrClientClosed = errors.New("client: connection is closed")

	// ErrSessionEnded is returned for requests still pending when the executor
	// ends the session. The session's final status is available from Err.
	ErrSessionEnded = errors.New("client: session ended")
)

// Code returns the gRPC code of a request error. Refusals from the executor
// carry the code the federation assigned; transport failures carry their
// own status.
func Code(err error) codes.Code {
	var replyErr *server.ReplyError
	if errors.As(err, &replyErr) {
		return replyErr.Code
	}
	return status.Code(err)
}
