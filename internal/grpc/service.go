package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "fightpick.v1.PredictionService"

const (
	methodSubmitPrediction = "/" + ServiceName + "/SubmitPrediction"
	methodFetchResults     = "/" + ServiceName + "/FetchResults"
	methodStreamEvents     = "/" + ServiceName + "/StreamEvents"
)

// PredictionServiceServer is the server API for fightpick.v1.PredictionService.
// Messages are protobuf well-known types so no generated code is needed.
type PredictionServiceServer interface {
	SubmitPrediction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchResults(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StreamEvents(*emptypb.Empty, EventStream) error
}

// EventStream is the server side of StreamEvents
type EventStream interface {
	Send(*structpb.Struct) error
	Context() context.Context
}

type eventStream struct {
	grpc.ServerStream
}

func (s *eventStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterPredictionServiceServer registers srv on s
func RegisterPredictionServiceServer(s grpc.ServiceRegistrar, srv PredictionServiceServer) {
	s.RegisterService(&PredictionServiceDesc, srv)
}

func submitPredictionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictionServiceServer).SubmitPrediction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSubmitPrediction}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PredictionServiceServer).SubmitPrediction(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func fetchResultsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PredictionServiceServer).FetchResults(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodFetchResults}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PredictionServiceServer).FetchResults(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func streamEventsHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(PredictionServiceServer).StreamEvents(in, &eventStream{stream})
}

// PredictionServiceDesc describes fightpick.v1.PredictionService
var PredictionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PredictionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitPrediction", Handler: submitPredictionHandler},
		{MethodName: "FetchResults", Handler: fetchResultsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "StreamEvents", Handler: streamEventsHandler, ServerStreams: true},
	},
	Metadata: "fightpick/v1/prediction.proto",
}
