package services

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
	"fatigue-detector/internal/sink"
	"fatigue-detector/pkg/log"

	"github.com/stretchr/testify/require"
)

func face(ear, mar, angle float64) classifier.LandmarkSet {
	return classifier.SyntheticFace(classifier.MediaPipeFaceMesh, ear, mar, angle)
}

func openEyes() classifier.LandmarkSet   { return face(0.3, 0.2, 0) }
func closedEyes() classifier.LandmarkSet { return face(0.15, 0.2, 0) }

func newRegistry(t *testing.T) *SessionRegistry {
	t.Helper()
	r, err := NewSessionRegistry(classifier.DefaultConfig())
	require.NoError(t, err)
	return r
}

type memorySink struct {
	mu     sync.Mutex
	events []models.EventRecord
	err    error
}

func (m *memorySink) Send(_ context.Context, e models.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) all() []models.EventRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.EventRecord(nil), m.events...)
}

type stubSource struct {
	landmarks classifier.LandmarkSet
	err       error
	got       []byte
}

func (s *stubSource) Extract(_ context.Context, frame []byte, _ int64, _ int32) (classifier.LandmarkSet, error) {
	s.got = frame
	return s.landmarks, s.err
}

func newService(t *testing.T, source LandmarkSource, out sink.Sink) *DetectionService {
	t.Helper()
	return NewDetectionService(newRegistry(t), source, out, NewMetrics(), log.Discard())
}

func encodedFrame() string {
	return base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
}

var errExtractor = errors.New("extractor unavailable")
