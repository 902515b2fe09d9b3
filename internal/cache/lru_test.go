package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/log"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[float64](4, time.Hour)

	if _, ok := c.Get("CHF:EUR"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("CHF:EUR", 1.05)
	got, ok := c.Get("CHF:EUR")
	if !ok || got != 1.05 {
		t.Fatalf("Get() = %v, %v; want 1.05, true", got, ok)
	}

	c.Set("CHF:EUR", 1.07)
	if got, _ := c.Get("CHF:EUR"); got != 1.07 {
		t.Errorf("overwrite not applied, got %v", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	c.Delete("CHF:EUR")
	if _, ok := c.Get("CHF:EUR"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %q to survive", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Evictions)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)

	c.Set("default", "x")
	c.SetWithTTL("long", "y", time.Hour)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("default"); !ok {
		t.Fatal("entry expired too early")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("default"); ok {
		t.Error("entry should expire exactly at its TTL")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("per-entry TTL not honoured")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int](10, time.Minute).WithClock(clock.Now)
	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)

	clock.Advance(2 * time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Stats(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](50, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 26 {
		t.Errorf("Size() = %d, want <= 26", c.Size())
	}
}

func TestManager_CleanAll(t *testing.T) {
	clock := newClock()
	rates := NewLRUCache[float64](10, time.Minute).WithClock(clock.Now)
	sessions := NewLRUCache[string](10, time.Hour).WithClock(clock.Now)
	rates.Set("USD:EUR", 0.9)
	sessions.Set("token", "ok")

	m := NewManager(log.Discard())
	m.Register("fx", rates)
	m.Register("sessions", sessions)

	clock.Advance(5 * time.Minute)
	got := m.CleanAll()
	if got["fx"] != 1 || got["sessions"] != 0 {
		t.Errorf("CleanAll() = %v", got)
	}
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(log.Discard())
	m.Register("fx", NewLRUCache[int](1, time.Nanosecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartCleanup(ctx, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	m.Stop()
	m.Stop()
}
