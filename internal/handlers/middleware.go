package handlers

import (
	"bufio"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"fatigue-detector/internal/sink"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// APIKeyAuth checks the X-Vision-API-Key header against a bcrypt hash or a
// plain key. With neither configured every request passes.
type APIKeyAuth struct {
	hash   []byte
	plain  []byte
	public map[string]bool
	logger *logrus.Entry

	// keys that already matched the hash, so bcrypt runs once per key
	verified sync.Map
}

func NewAPIKeyAuth(plainKey, keyHash string, publicPaths []string, logger *logrus.Logger) *APIKeyAuth {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}
	a := &APIKeyAuth{public: public, logger: logger.WithField("component", "auth")}
	if keyHash != "" {
		a.hash = []byte(keyHash)
	}
	if plainKey != "" {
		a.plain = []byte(plainKey)
	}
	return a
}

func (a *APIKeyAuth) Enabled() bool {
	return a.hash != nil || a.plain != nil
}

func (a *APIKeyAuth) Check(key string) bool {
	if !a.Enabled() {
		return true
	}
	if a.Known(key) {
		return true
	}
	if key != "" && a.hash != nil && bcrypt.CompareHashAndPassword(a.hash, []byte(key)) == nil {
		a.verified.Store(key, struct{}{})
		return true
	}
	return false
}

// Known reports whether key matches the plain key or already matched the
// hash. It never runs bcrypt.
func (a *APIKeyAuth) Known(key string) bool {
	if key == "" || !a.Enabled() {
		return false
	}
	if a.plain != nil && subtle.ConstantTimeCompare(a.plain, []byte(key)) == 1 {
		return true
	}
	_, ok := a.verified.Load(key)
	return ok
}

func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || a.public[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		key := requestKey(r)
		if !a.Check(key) {
			a.logger.WithField("path", r.URL.Path).Warn("rejected request with invalid API key")
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives each client its own token bucket refilled at perMinute
// tokens per minute. Requests carrying a key auth already accepted are
// bucketed by key, everything else by remote IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	auth  *APIKeyAuth

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter builds a limiter; auth may be nil, in which case every
// client is bucketed by IP.
func NewRateLimiter(perMinute int, auth *APIKeyAuth) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		auth:    auth,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Sweep forgets clients idle for longer than maxIdle.
func (l *RateLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(l.clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded", "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) clientKey(r *http.Request) string {
	if key := requestKey(r); l.auth != nil && l.auth.Known(key) {
		return "key:" + key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func requestKey(r *http.Request) string {
	if key := r.Header.Get(sink.APIKeyHeader); key != "" {
		return key
	}
	return r.URL.Query().Get("apiKey")
}

// RequestLogger logs one line per request.
func RequestLogger(logger *logrus.Logger, next http.Handler) http.Handler {
	entry := logger.WithField("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		entry.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}
