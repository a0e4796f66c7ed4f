package handlers

import (
	"context"
	"errors"
	"io"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/services"
	"fatigue-detector/pkg/pb"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GRPCHandler struct {
	pb.UnimplementedFatigueDetectionServer
	service *services.DetectionService
	logger  *logrus.Entry
}

func NewGRPCHandler(service *services.DetectionService, logger *logrus.Logger) *GRPCHandler {
	return &GRPCHandler{
		service: service,
		logger:  logger.WithField("component", "grpc"),
	}
}

func (h *GRPCHandler) DetectFatigue(ctx context.Context, req *pb.LandmarkFrame) (*pb.DetectionResult, error) {
	result, err := h.service.Detect(ctx, req)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", req.SessionID).Warn("detect failed")
		return nil, grpcError(err)
	}
	return result, nil
}

// DetectFatigueStream classifies frames as they arrive. A frame that fails
// is logged and skipped; transport errors end the stream.
func (h *GRPCHandler) DetectFatigueStream(stream grpc.BidiStreamingServer[pb.LandmarkFrame, pb.DetectionResult]) error {
	ctx := stream.Context()
	h.logger.Debug("stream started")

	results := make(chan *pb.DetectionResult, 16)
	errChan := make(chan error, 2)

	go func() {
		defer close(results)
		for {
			req, err := stream.Recv()
			if err == io.EOF {
				errChan <- nil
				return
			}
			if err != nil {
				errChan <- err
				return
			}

			result, err := h.service.Detect(ctx, req)
			if err != nil {
				h.logger.WithError(err).WithFields(logrus.Fields{
					"session_id": req.SessionID,
					"sequence":   req.SequenceNumber,
				}).Warn("stream frame skipped")
				continue
			}

			select {
			case results <- result:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	for result := range results {
		if err := stream.Send(result); err != nil {
			h.logger.WithError(err).Warn("stream send failed")
			return status.Error(codes.Unavailable, err.Error())
		}
	}

	if err := <-errChan; err != nil {
		if s, ok := status.FromError(err); ok {
			return s.Err()
		}
		return status.FromContextError(err).Err()
	}
	h.logger.Debug("stream completed")
	return nil
}

func (h *GRPCHandler) GetStatistics(_ context.Context, req *pb.SessionRequest) (*pb.SessionStatistics, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	stats, err := h.service.Statistics(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &stats, nil
}

func (h *GRPCHandler) ResetSession(_ context.Context, req *pb.SessionRequest) (*pb.Empty, error) {
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	if err := h.service.Reset(req.SessionID); err != nil {
		return nil, grpcError(err)
	}
	return &pb.Empty{}, nil
}

func (h *GRPCHandler) Health(ctx context.Context, _ *pb.Empty) (*pb.HealthStatus, error) {
	health := h.service.Health(ctx)
	health.ActiveClients = int(h.service.Metrics().GetWebSocketConnections())
	h.logger.WithFields(logrus.Fields{
		"landmark_source": health.LandmarkSource,
		"sessions":        health.ActiveSessions,
	}).Debug("health")
	return &health, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidFrame), errors.Is(err, classifier.ErrIncompleteLandmarks):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, services.ErrNoLandmarkSource):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

var _ pb.FatigueDetectionServer = (*GRPCHandler)(nil)
