package services

import (
	"context"
	"net"
	"testing"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/pkg/log"
	"fatigue-detector/pkg/pb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeExtractor struct {
	landmarks classifier.LandmarkSet
}

func (f *fakeExtractor) Extract(_ context.Context, in *pb.ImageFrame) (*pb.LandmarkResponse, error) {
	switch string(in.FrameData) {
	case "broken":
		return nil, status.Error(codes.InvalidArgument, "cannot decode frame")
	case "empty":
		return &pb.LandmarkResponse{FaceDetected: false}, nil
	}
	return &pb.LandmarkResponse{FaceDetected: true, Landmarks: f.landmarks, Width: 640, Height: 480}, nil
}

func startExtractor(t *testing.T, healthStatus healthpb.HealthCheckResponse_ServingStatus) *LandmarkClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterLandmarkExtractorServer(srv, &fakeExtractor{landmarks: openEyes()})
	hs := health.NewServer()
	hs.SetServingStatus("", healthStatus)
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewLandmarkClient("passthrough:///bufnet", 8<<20, log.Discard(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLandmarkClientExtract(t *testing.T) {
	client := startExtractor(t, healthpb.HealthCheckResponse_SERVING)
	ctx := context.Background()

	lm, err := client.Extract(ctx, []byte("jpeg"), 1, 1)
	require.NoError(t, err)
	assert.Len(t, lm, classifier.MediaPipeFaceMesh.PointCount)

	lm, err = client.Extract(ctx, []byte("empty"), 2, 2)
	require.NoError(t, err)
	assert.Empty(t, lm)

	_, err = client.Extract(ctx, []byte("broken"), 3, 3)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestLandmarkClientHealth(t *testing.T) {
	assert.True(t, startExtractor(t, healthpb.HealthCheckResponse_SERVING).HealthCheck(context.Background()))
	assert.False(t, startExtractor(t, healthpb.HealthCheckResponse_NOT_SERVING).HealthCheck(context.Background()))
}

func TestServiceWithLandmarkClient(t *testing.T) {
	client := startExtractor(t, healthpb.HealthCheckResponse_SERVING)
	svc := newService(t, client, &memorySink{})

	resp, err := svc.Detect(context.Background(), &models.LandmarkFrame{SessionID: "cab-9", Frame: encodedFrame()})
	require.NoError(t, err)
	assert.True(t, resp.FaceDetected)
	assert.Equal(t, classifier.EventNormal, resp.EventType)
	assert.True(t, svc.Health(context.Background()).LandmarkSource)
}
