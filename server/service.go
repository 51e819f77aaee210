package server

import (
	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "rtiexec.v1.Executor"

	// ConnectMethod is the full method name of the session stream.
	ConnectMethod = "/" + ServiceName + "/Connect"
)

// ExecutorService is the gRPC surface of the executor: one bidirectional
// stream of structpb frames per federate session.
type ExecutorService interface {
	Connect(stream grpc.ServerStream) error
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ExecutorService).Connect(stream)
}

// ServiceDesc describes ExecutorService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExecutorService)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Connect",
			Handler:       connectHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "rtiexec/v1/executor",
}

// ConnectStreamDesc is the stream descriptor clients pass to grpc.ClientConn.NewStream.
var ConnectStreamDesc = &ServiceDesc.Streams[0]

// RegisterExecutorService registers srv on a gRPC server.
func RegisterExecutorService(s grpc.ServiceRegistrar, srv ExecutorService) {
	s.RegisterService(&ServiceDesc, srv)
}
