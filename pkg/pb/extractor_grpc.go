package pb

import (
	"context"

	"google.golang.org/grpc"
)

const LandmarkExtractor_Extract_FullMethodName = "/landmarks.v1.LandmarkExtractor/Extract"

// LandmarkExtractorClient calls the external face landmark service.
type LandmarkExtractorClient interface {
	Extract(ctx context.Context, in *ImageFrame, opts ...grpc.CallOption) (*LandmarkResponse, error)
}

type landmarkExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewLandmarkExtractorClient(cc grpc.ClientConnInterface) LandmarkExtractorClient {
	return &landmarkExtractorClient{cc}
}

func (c *landmarkExtractorClient) Extract(ctx context.Context, in *ImageFrame, opts ...grpc.CallOption) (*LandmarkResponse, error) {
	out := new(LandmarkResponse)
	if err := c.cc.Invoke(ctx, LandmarkExtractor_Extract_FullMethodName, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// LandmarkExtractorServer is served by extractor implementations and test
// doubles.
type LandmarkExtractorServer interface {
	Extract(context.Context, *ImageFrame) (*LandmarkResponse, error)
}

func RegisterLandmarkExtractorServer(s grpc.ServiceRegistrar, srv LandmarkExtractorServer) {
	s.RegisterService(&LandmarkExtractor_ServiceDesc, srv)
}

func _LandmarkExtractor_Extract_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ImageFrame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LandmarkExtractorServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LandmarkExtractor_Extract_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LandmarkExtractorServer).Extract(ctx, req.(*ImageFrame))
	}
	return interceptor(ctx, in, info, handler)
}

var LandmarkExtractor_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "landmarks.v1.LandmarkExtractor",
	HandlerType: (*LandmarkExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Extract",
			Handler:    _LandmarkExtractor_Extract_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "landmarks.v1",
}
