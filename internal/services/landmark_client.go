package services

import (
	"context"
	"fmt"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/pkg/pb"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// LandmarkSource turns an encoded camera frame into face landmarks. An
// empty set means no face was found.
type LandmarkSource interface {
	Extract(ctx context.Context, frame []byte, timestamp int64, seq int32) (classifier.LandmarkSet, error)
}

type LandmarkClient struct {
	conn   *grpc.ClientConn
	client pb.LandmarkExtractorClient
	health healthpb.HealthClient
	url    string
	logger *logrus.Entry

	timeout time.Duration
}

// NewLandmarkClient dials lazily; extra options are appended to the defaults.
func NewLandmarkClient(url string, maxMsgSize int, logger *logrus.Logger, extra ...grpc.DialOption) (*LandmarkClient, error) {
	entry := logger.WithField("component", "landmark_client")
	entry.Infof("Connecting to landmark extractor at %s", url)

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsgSize),
			grpc.MaxCallSendMsgSize(maxMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(opts, extra...)

	conn, err := grpc.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to landmark extractor at %s: %w", url, err)
	}

	return &LandmarkClient{
		conn:    conn,
		client:  pb.NewLandmarkExtractorClient(conn),
		health:  healthpb.NewHealthClient(conn),
		url:     url,
		logger:  entry,
		timeout: 5 * time.Second,
	}, nil
}

func (lc *LandmarkClient) Extract(ctx context.Context, frame []byte, timestamp int64, seq int32) (classifier.LandmarkSet, error) {
	ctx, cancel := context.WithTimeout(ctx, lc.timeout)
	defer cancel()

	resp, err := lc.client.Extract(ctx, &pb.ImageFrame{
		FrameData:      frame,
		Timestamp:      timestamp,
		SequenceNumber: seq,
	})
	if err != nil {
		return nil, fmt.Errorf("could not extract landmarks: %w", err)
	}
	if !resp.FaceDetected {
		return nil, nil
	}
	return resp.Landmarks, nil
}

// HealthCheck asks the extractor's standard health service.
func (lc *LandmarkClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := lc.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		lc.logger.WithError(err).Debug("landmark extractor health check failed")
		return false
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
}

func (lc *LandmarkClient) Close() error {
	if lc.conn != nil {
		return lc.conn.Close()
	}
	return nil
}
