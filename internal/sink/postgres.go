package sink

import (
	"context"
	"fmt"

	"fatigue-detector/internal/models"
)

type EventInserter interface {
	Insert(ctx context.Context, event models.Event) (int64, error)
}

type PostgresSink struct {
	repo EventInserter
}

func NewPostgresSink(repo EventInserter) *PostgresSink {
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) Send(ctx context.Context, event models.EventRecord) error {
	if _, err := s.repo.Insert(ctx, event.ToEvent()); err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}
