// Package sink delivers classified fatigue events to downstream systems.
package sink

import (
	"context"
	"errors"

	"fatigue-detector/internal/models"
)

var ErrClosed = errors.New("sink closed")

type Sink interface {
	Send(ctx context.Context, event models.EventRecord) error
}

// HealthChecker is implemented by sinks that can report on their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

type Multi []Sink

// Send delivers to every sink, even after a failure.
func (m Multi) Send(ctx context.Context, event models.EventRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HealthCheck reports true when every member that can check is healthy.
func (m Multi) HealthCheck(ctx context.Context) bool {
	for _, s := range m {
		if hc, ok := s.(HealthChecker); ok && !hc.HealthCheck(ctx) {
			return false
		}
	}
	return true
}

type Discard struct{}

func (Discard) Send(context.Context, models.EventRecord) error { return nil }
