// Package stream serves retargeting over gRPC. Clients push landmarker
// payloads and subscribe to per-tick frame reports. Messages are
// google.protobuf.Struct documents carrying the same JSON as the UDP and HTTP
// transports, so the service needs no generated stubs.
package stream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "mocap.v1.Retarget"

const (
	pushMethod      = "/" + ServiceName + "/Push"
	latestMethod    = "/" + ServiceName + "/Latest"
	subscribeMethod = "/" + ServiceName + "/Subscribe"
)

// RetargetServer is the server API of the Retarget service.
type RetargetServer interface {
	// Push dispatches one landmarker payload and returns its event type.
	Push(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Latest returns the most recent frame report.
	Latest(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Subscribe streams every subsequent frame report.
	Subscribe(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the Retarget service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RetargetServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
		{MethodName: "Latest", Handler: latestHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "mocap/v1/retarget.proto",
}

// RegisterRetargetServer registers srv with s.
func RegisterRetargetServer(s grpc.ServiceRegistrar, srv RetargetServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func pushHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetargetServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pushMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetargetServer).Push(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func latestHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RetargetServer).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: latestMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RetargetServer).Latest(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RetargetServer).Subscribe(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
