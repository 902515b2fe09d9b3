// Package ratelimit implements a per-client fixed window limiter and the HTTP
// middleware that guards the login endpoint with it.
package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MaxTrackedClients is the map size above which every check also drops
// expired windows.
const MaxTrackedClients = 10000

// LoginLimitMessage is returned to rejected login attempts.
const LoginLimitMessage = "Zu viele Anmeldeversuche. Bitte warten Sie einen Moment."

// Limiter tracks one fixed window per client key.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*window
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	limit           int
	window          time.Duration
	cleanupInterval time.Duration

	allowed  atomic.Int64
	rejected atomic.Int64
}

type window struct {
	count   int
	resetAt time.Time
}

type Config struct {
	// Limit is the number of requests allowed per window.
	Limit           int
	Window          time.Duration
	CleanupInterval time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// LoginConfig allows five attempts per minute.
func LoginConfig() Config {
	return Config{
		Limit:           5,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Decision is the outcome of one check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetSeconds is ResetIn rounded up to whole seconds.
func (d Decision) ResetSeconds() int {
	return int(math.Ceil(d.ResetIn.Seconds()))
}

// NewLimiter creates a limiter and starts its cleanup goroutine. Call Stop to
// end it.
func NewLimiter(config Config) *Limiter {
	def := LoginConfig()
	if config.Limit <= 0 {
		config.Limit = def.Limit
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	rl := &Limiter{
		clients:         make(map[string]*window),
		stopCleanup:     make(chan struct{}),
		now:             config.Now,
		limit:           config.Limit,
		window:          config.Window,
		cleanupInterval: config.CleanupInterval,
	}
	go rl.startCleanup()
	return rl
}

// Check counts a request from key against its window.
func (rl *Limiter) Check(key string) Decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.clients) > MaxTrackedClients {
		rl.removeExpired(now)
	}

	w, exists := rl.clients[key]
	if !exists || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(rl.window)}
		rl.clients[key] = w
		rl.allowed.Add(1)
		return Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit - 1, ResetIn: rl.window}
	}

	resetIn := w.resetAt.Sub(now)
	if w.count >= rl.limit {
		rl.rejected.Add(1)
		return Decision{Allowed: false, Limit: rl.limit, Remaining: 0, ResetIn: resetIn}
	}

	w.count++
	rl.allowed.Add(1)
	return Decision{Allowed: true, Limit: rl.limit, Remaining: rl.limit - w.count, ResetIn: resetIn}
}

// Allow is Check reduced to its verdict.
func (rl *Limiter) Allow(key string) bool {
	return rl.Check(key).Allowed
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			rl.removeExpired(rl.now())
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// removeExpired must be called with mu held.
func (rl *Limiter) removeExpired(now time.Time) int {
	removed := 0
	for key, w := range rl.clients {
		if now.After(w.resetAt) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// ActiveClients returns the number of tracked keys.
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop shuts down the cleanup goroutine.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

type Metrics struct {
	Allowed     int64
	Rejected    int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		Allowed:     rl.allowed.Load(),
		Rejected:    rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// ClientKey identifies the caller: the first X-Forwarded-For entry, then
// X-Real-IP, then the host part of RemoteAddr, else "unknown".
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// Middleware limits requests accepted by match. Matching responses carry the
// X-RateLimit-* headers; rejected ones get a 429 JSON body with message.
func (rl *Limiter) Middleware(match func(*http.Request) bool, extractKey func(*http.Request) string, message string) func(http.Handler) http.Handler {
	if extractKey == nil {
		extractKey = ClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if match != nil && !match(r) {
				next.ServeHTTP(w, r)
				return
			}

			d := rl.Check(extractKey(r))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.Itoa(d.ResetSeconds()))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(d.ResetSeconds()))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoginAttempts matches POST requests to path.
func LoginAttempts(path string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return r.Method == http.MethodPost && r.URL.Path == path
	}
}
