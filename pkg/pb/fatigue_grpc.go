package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	FatigueDetection_DetectFatigue_FullMethodName       = "/fatigue.v1.FatigueDetection/DetectFatigue"
	FatigueDetection_DetectFatigueStream_FullMethodName = "/fatigue.v1.FatigueDetection/DetectFatigueStream"
	FatigueDetection_GetStatistics_FullMethodName       = "/fatigue.v1.FatigueDetection/GetStatistics"
	FatigueDetection_ResetSession_FullMethodName        = "/fatigue.v1.FatigueDetection/ResetSession"
	FatigueDetection_Health_FullMethodName              = "/fatigue.v1.FatigueDetection/Health"
)

type FatigueDetectionClient interface {
	DetectFatigue(ctx context.Context, in *LandmarkFrame, opts ...grpc.CallOption) (*DetectionResult, error)
	DetectFatigueStream(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[LandmarkFrame, DetectionResult], error)
	GetStatistics(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionStatistics, error)
	ResetSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error)
	Health(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HealthStatus, error)
}

type fatigueDetectionClient struct {
	cc grpc.ClientConnInterface
}

func NewFatigueDetectionClient(cc grpc.ClientConnInterface) FatigueDetectionClient {
	return &fatigueDetectionClient{cc}
}

func (c *fatigueDetectionClient) DetectFatigue(ctx context.Context, in *LandmarkFrame, opts ...grpc.CallOption) (*DetectionResult, error) {
	out := new(DetectionResult)
	if err := c.cc.Invoke(ctx, FatigueDetection_DetectFatigue_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fatigueDetectionClient) DetectFatigueStream(ctx context.Context, opts ...grpc.CallOption) (grpc.BidiStreamingClient[LandmarkFrame, DetectionResult], error) {
	stream, err := c.cc.NewStream(ctx, &FatigueDetection_ServiceDesc.Streams[0], FatigueDetection_DetectFatigueStream_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[LandmarkFrame, DetectionResult]{ClientStream: stream}, nil
}

func (c *fatigueDetectionClient) GetStatistics(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*SessionStatistics, error) {
	out := new(SessionStatistics)
	if err := c.cc.Invoke(ctx, FatigueDetection_GetStatistics_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fatigueDetectionClient) ResetSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, FatigueDetection_ResetSession_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fatigueDetectionClient) Health(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*HealthStatus, error) {
	out := new(HealthStatus)
	if err := c.cc.Invoke(ctx, FatigueDetection_Health_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// FatigueDetectionServer must embed UnimplementedFatigueDetectionServer.
type FatigueDetectionServer interface {
	DetectFatigue(context.Context, *LandmarkFrame) (*DetectionResult, error)
	DetectFatigueStream(grpc.BidiStreamingServer[LandmarkFrame, DetectionResult]) error
	GetStatistics(context.Context, *SessionRequest) (*SessionStatistics, error)
	ResetSession(context.Context, *SessionRequest) (*Empty, error)
	Health(context.Context, *Empty) (*HealthStatus, error)
	mustEmbedUnimplementedFatigueDetectionServer()
}

type UnimplementedFatigueDetectionServer struct{}

func (UnimplementedFatigueDetectionServer) DetectFatigue(context.Context, *LandmarkFrame) (*DetectionResult, error) {
	return nil, status.Error(codes.Unimplemented, "method DetectFatigue not implemented")
}
func (UnimplementedFatigueDetectionServer) DetectFatigueStream(grpc.BidiStreamingServer[LandmarkFrame, DetectionResult]) error {
	return status.Error(codes.Unimplemented, "method DetectFatigueStream not implemented")
}
func (UnimplementedFatigueDetectionServer) GetStatistics(context.Context, *SessionRequest) (*SessionStatistics, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatistics not implemented")
}
func (UnimplementedFatigueDetectionServer) ResetSession(context.Context, *SessionRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ResetSession not implemented")
}
func (UnimplementedFatigueDetectionServer) Health(context.Context, *Empty) (*HealthStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}
func (UnimplementedFatigueDetectionServer) mustEmbedUnimplementedFatigueDetectionServer() {}

func RegisterFatigueDetectionServer(s grpc.ServiceRegistrar, srv FatigueDetectionServer) {
	s.RegisterService(&FatigueDetection_ServiceDesc, srv)
}

func unaryHandler[Req, Res any](fullMethod string, call func(FatigueDetectionServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FatigueDetectionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FatigueDetectionServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _FatigueDetection_DetectFatigueStream_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(FatigueDetectionServer).DetectFatigueStream(&grpc.GenericServerStream[LandmarkFrame, DetectionResult]{ServerStream: stream})
}

var FatigueDetection_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "fatigue.v1.FatigueDetection",
	HandlerType: (*FatigueDetectionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "DetectFatigue",
			Handler:    unaryHandler(FatigueDetection_DetectFatigue_FullMethodName, FatigueDetectionServer.DetectFatigue),
		},
		{
			MethodName: "GetStatistics",
			Handler:    unaryHandler(FatigueDetection_GetStatistics_FullMethodName, FatigueDetectionServer.GetStatistics),
		},
		{
			MethodName: "ResetSession",
			Handler:    unaryHandler(FatigueDetection_ResetSession_FullMethodName, FatigueDetectionServer.ResetSession),
		},
		{
			MethodName: "Health",
			Handler:    unaryHandler(FatigueDetection_Health_FullMethodName, FatigueDetectionServer.Health),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "DetectFatigueStream",
			Handler:       _FatigueDetection_DetectFatigueStream_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "fatigue.v1",
}
