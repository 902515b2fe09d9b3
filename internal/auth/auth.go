// Package auth implements the single shared password gate in front of the
// application. A successful login issues a random session token stored in an
// HttpOnly cookie; sessions live in an in-memory LRU cache and expire with the
// cookie.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/raven-rwho/rem-expenses/internal/cache"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

const (
	CookieName      = "rem_auth"
	SessionLifetime = 7 * 24 * time.Hour
	maxSessions     = 1000
	tokenBytes      = 32
)

var (
	ErrNotConfigured   = errors.New("password not configured")
	ErrInvalidPassword = errors.New("invalid password")
)

type session struct {
	CreatedAt time.Time
}

// Gate checks the shared password and tracks issued sessions.
type Gate struct {
	hash     []byte
	sessions *cache.LRUCache[session]
	lifetime time.Duration
	secure   bool
	now      func() time.Time
	logger   *log.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithSecureCookie marks the session cookie Secure. Use it in production.
func WithSecureCookie(secure bool) Option {
	return func(g *Gate) { g.secure = secure }
}

// WithLifetime overrides the session lifetime.
func WithLifetime(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.lifetime = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// NewGate hashes password once. An empty password yields a gate that rejects
// every login with ErrNotConfigured.
func NewGate(password string, opts ...Option) (*Gate, error) {
	g := &Gate{
		lifetime: SessionLifetime,
		now:      time.Now,
		logger:   log.Default("auth"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.sessions = cache.NewLRUCache[session](maxSessions, g.lifetime).WithClock(func() time.Time { return g.now() })

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		g.hash = hash
	}
	return g, nil
}

// Sessions exposes the session cache so it can be registered for cleanup.
func (g *Gate) Sessions() cache.Cleaner {
	return g.sessions
}

// Configured reports whether a password was set.
func (g *Gate) Configured() bool {
	return len(g.hash) > 0
}

// Login verifies password and returns a new session token.
func (g *Gate) Login(password string) (string, error) {
	if !g.Configured() {
		return "", ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	token, err := newToken()
	if err != nil {
		return "", err
	}
	g.sessions.Set(token, session{CreatedAt: g.now()})
	return token, nil
}

// Valid reports whether token belongs to a live session.
func (g *Gate) Valid(token string) bool {
	if token == "" {
		return false
	}
	_, ok := g.sessions.Get(token)
	return ok
}

// Logout drops a session. Unknown tokens are ignored.
func (g *Gate) Logout(token string) {
	if token != "" {
		g.sessions.Delete(token)
	}
}

// ActiveSessions counts sessions that have not been evicted yet.
func (g *Gate) ActiveSessions() int {
	return g.sessions.Size()
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
