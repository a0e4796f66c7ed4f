package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"fatigue-detector/internal/models"

	"github.com/sirupsen/logrus"
)

var ErrBufferFull = errors.New("sink buffer full")

// Async hands events to a single background worker. Send never blocks:
// when the buffer is full the event is dropped.
type Async struct {
	next    Sink
	queue   chan models.EventRecord
	timeout time.Duration
	logger  *logrus.Entry

	onDrop func()
	onFail func(error)

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type AsyncOption func(*Async)

// WithDropHook is called for every event rejected by a full buffer.
func WithDropHook(fn func()) AsyncOption {
	return func(a *Async) { a.onDrop = fn }
}

// WithFailHook is called for every event the next sink failed to take.
func WithFailHook(fn func(error)) AsyncOption {
	return func(a *Async) { a.onFail = fn }
}

func NewAsync(next Sink, size int, logger *logrus.Logger, opts ...AsyncOption) *Async {
	if size < 1 {
		size = 1
	}
	a := &Async{
		next:    next,
		queue:   make(chan models.EventRecord, size),
		timeout: 10 * time.Second,
		logger:  logger.WithField("component", "async_sink"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

func (a *Async) Send(_ context.Context, event models.EventRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- event:
		return nil
	default:
		if a.onDrop != nil {
			a.onDrop()
		}
		a.logger.WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"event_type": event.EventType,
		}).Warn("event dropped, buffer full")
		return ErrBufferFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Send(ctx, event)
		cancel()
		if err != nil {
			if a.onFail != nil {
				a.onFail(err)
			}
			a.logger.WithError(err).WithField("session_id", event.SessionID).Error("event delivery failed")
		}
	}
}

// Close stops accepting events and waits until the queue is drained or
// ctx ends.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) HealthCheck(ctx context.Context) bool {
	if hc, ok := a.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return true
}
