// Package cache holds the in-process caches used for exchange rates and
// login sessions, plus a manager that sweeps expired entries.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/log"
)

// Cache is the lookup surface consumers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans all registered caches.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *log.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default(log.ComponentCache)
	}
	return &Manager{
		caches: make(map[string]Cleaner),
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a named cache. Registering the same name twice replaces it.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// CleanAll sweeps every registered cache once and returns the number of
// removed entries per cache name.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cleaned := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		cleaned[name] = c.CleanExpired()
	}
	return cleaned
}

// StartCleanup runs CleanAll every interval until ctx is done or Stop is called.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go m.cleanup(ctx, interval)
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for name, n := range m.CleanAll() {
				if n > 0 {
					m.logger.Debug("Removed expired cache entries", "cache", name, "count", n)
				}
				total += n
			}
			if total > 0 {
				m.logger.Info("Cache cleanup completed", "removed", total)
			}
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it. It is safe to call more than
// once and before StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
	})
	select {
	case <-m.done:
	case <-time.After(time.Second):
	}
}
