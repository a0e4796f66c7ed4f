package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"fatigue-detector/internal/classifier"
	"fatigue-detector/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	errSessionClosed   = errors.New("session closed")
)

// Session owns the classifier of one camera/driver stream. Process calls
// on the same session are serialized; different sessions run in parallel.
type Session struct {
	key string

	mu         sync.Mutex
	classifier *classifier.Classifier
	lastSeen   time.Time
	frames     int64
	closed     bool
}

func (s *Session) Key() string { return s.key }

// Process classifies one frame. It fails with errSessionClosed once the
// registry has dropped the session; callers go through the registry again.
func (s *Session) Process(landmarks classifier.LandmarkSet) (*classifier.DetectionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSessionClosed
	}
	s.lastSeen = time.Now()
	s.frames++
	return s.classifier.ProcessFrame(landmarks)
}

func (s *Session) Statistics() (classifier.Statistics, time.Time, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.Statistics(), s.lastSeen, s.frames
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifier.Reset()
	s.frames = 0
}

// closeIfIdle marks the session closed when it has been idle since cutoff.
// A zero cutoff closes it unconditionally.
func (s *Session) closeIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !cutoff.IsZero() && !s.lastSeen.Before(cutoff) {
		return false
	}
	s.closed = true
	return true
}

type SessionRegistry struct {
	cfg classifier.Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry validates cfg once so Get never fails.
func NewSessionRegistry(cfg classifier.Config) (*SessionRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SessionRegistry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}, nil
}

// Get returns the session for key, creating it on first use.
func (r *SessionRegistry) Get(key string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	c, _ := classifier.New(r.cfg)
	s = &Session{key: key, classifier: c, lastSeen: time.Now()}
	r.sessions[key] = s
	return s
}

// Process classifies landmarks on the session for key. A session evicted
// between lookup and processing is replaced by a fresh one.
func (r *SessionRegistry) Process(key string, landmarks classifier.LandmarkSet) (*classifier.DetectionOutcome, error) {
	for {
		out, err := r.Get(key).Process(landmarks)
		if errors.Is(err, errSessionClosed) {
			continue
		}
		return out, err
	}
}

func (r *SessionRegistry) Lookup(key string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRegistry) Reset(key string) error {
	s, err := r.Lookup(key)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

func (r *SessionRegistry) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return ErrSessionNotFound
	}
	s.closeIfIdle(time.Time{})
	delete(r.sessions, key)
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRegistry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// EvictIdle drops sessions that have not processed a frame for maxIdle.
func (r *SessionRegistry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, s := range r.sessions {
		if s.closeIfIdle(cutoff) {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

func (r *SessionRegistry) Statistics(key string) (models.SessionStatistics, error) {
	s, err := r.Lookup(key)
	if err != nil {
		return models.SessionStatistics{}, err
	}
	stats, lastSeen, frames := s.Statistics()
	return models.SessionStatistics{
		SessionID:  key,
		Statistics: stats,
		LastSeen:   lastSeen,
		Frames:     frames,
	}, nil
}
