package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call so timestamps are strictly ordered.
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func newSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "drafts.db"), log.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.WithClock(newClock().Now)
}

func stores(t *testing.T) map[string]DraftStore {
	return map[string]DraftStore{
		"memory": NewMemoryStore().WithClock(newClock().Now),
		"sqlite": newSQLite(t),
	}
}

func TestDraftStore_CreateGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := core.NewDraft("", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
			d.TravelDetails.EmployeeName = "Erika Mustermann"

			created, err := s.Create(ctx, d)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if created.ID == "" {
				t.Fatal("Create() did not assign an ID")
			}

			got, err := s.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.TravelDetails.EmployeeName != "Erika Mustermann" {
				t.Errorf("EmployeeName = %q", got.TravelDetails.EmployeeName)
			}
			if len(got.Expenses.PublicTransport) != 1 || got.Expenses.PublicTransport[0].CurrencyCode() != "EUR" {
				t.Errorf("default items not persisted: %+v", got.Expenses.PublicTransport)
			}
			if !got.UpdatedAt.Equal(created.UpdatedAt) {
				t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, created.UpdatedAt)
			}

			if _, err := s.Create(ctx, created); !errors.Is(err, ErrDraftExists) {
				t.Errorf("duplicate Create() error = %v, want ErrDraftExists", err)
			}
		})
	}
}

func TestDraftStore_GetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "missing")
			if !errors.Is(err, ErrDraftNotFound) {
				t.Errorf("Get() error = %v, want ErrDraftNotFound", err)
			}
		})
	}
}

func TestDraftStore_Update(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d, err := s.Create(ctx, core.Draft{ID: "d1"})
			if err != nil {
				t.Fatal(err)
			}

			updated, err := s.Update(ctx, "d1", func(d *core.Draft) error {
				d.ID = "hijacked"
				d.TravelDetails.Destination = "Zürich"
				d.Expenses.OtherCosts = []core.LineItem{{ID: "i1", Amount: 12}}
				return nil
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if updated.ID != "d1" {
				t.Errorf("ID changed to %q", updated.ID)
			}
			if !updated.UpdatedAt.After(d.UpdatedAt) {
				t.Errorf("UpdatedAt not advanced: %v <= %v", updated.UpdatedAt, d.UpdatedAt)
			}

			got, _ := s.Get(ctx, "d1")
			if got.TravelDetails.Destination != "Zürich" || len(got.Expenses.OtherCosts) != 1 {
				t.Errorf("update not persisted: %+v", got)
			}

			boom := errors.New("boom")
			_, err = s.Update(ctx, "d1", func(d *core.Draft) error {
				d.TravelDetails.Destination = "Bern"
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("Update() error = %v, want boom", err)
			}
			got, _ = s.Get(ctx, "d1")
			if got.TravelDetails.Destination != "Zürich" {
				t.Error("aborted update was persisted")
			}

			if _, err := s.Update(ctx, "missing", func(*core.Draft) error { return nil }); !errors.Is(err, ErrDraftNotFound) {
				t.Errorf("Update(missing) error = %v", err)
			}
		})
	}
}

func TestDraftStore_ConcurrentUpdates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Create(ctx, core.Draft{ID: "d1"}); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Update(ctx, "d1", func(d *core.Draft) error {
						d.Expenses.OtherCosts = append(d.Expenses.OtherCosts, core.LineItem{Amount: 1})
						return nil
					})
					if err != nil {
						t.Errorf("Update() error = %v", err)
					}
				}()
			}
			wg.Wait()

			got, _ := s.Get(ctx, "d1")
			if len(got.Expenses.OtherCosts) != 20 {
				t.Errorf("lost updates: %d items, want 20", len(got.Expenses.OtherCosts))
			}
		})
	}
}

func TestDraftStore_DeleteAndList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"a", "b", "c"} {
				if _, err := s.Create(ctx, core.Draft{ID: id}); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := s.Update(ctx, "a", func(*core.Draft) error { return nil }); err != nil {
				t.Fatal(err)
			}

			list, err := s.List(ctx, 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].ID != "a" || list[1].ID != "c" {
				t.Errorf("List() order = %v", ids(list))
			}

			if err := s.Delete(ctx, "b"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := s.Delete(ctx, "b"); !errors.Is(err, ErrDraftNotFound) {
				t.Errorf("second Delete() error = %v", err)
			}
			list, _ = s.List(ctx, 0)
			if len(list) != 2 {
				t.Errorf("List() after delete = %v", ids(list))
			}
		})
	}
}

func TestDraftStore_Exports(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Create(ctx, core.Draft{ID: "d1"}); err != nil {
				t.Fatal(err)
			}
			if err := s.RecordExport(ctx, "d1", "pdf", "s3://bucket/reports/x.pdf"); err != nil {
				t.Fatalf("RecordExport() error = %v", err)
			}
			if err := s.RecordExport(ctx, "nope", "csv", "x"); !errors.Is(err, ErrDraftNotFound) {
				t.Errorf("RecordExport(missing) error = %v", err)
			}
			recs, err := s.ListExports(ctx, "d1")
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != 1 || recs[0].Format != "pdf" || recs[0].Reference != "s3://bucket/reports/x.pdf" {
				t.Errorf("ListExports() = %+v", recs)
			}
		})
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	d := core.Draft{ID: "d1", Expenses: core.ExpenseItems{OtherCosts: []core.LineItem{{Amount: 5}}}}
	if _, err := s.Create(ctx, d); err != nil {
		t.Fatal(err)
	}
	d.Expenses.OtherCosts[0].Amount = 99

	got, _ := s.Get(ctx, "d1")
	got.Expenses.OtherCosts[0].Amount = 42

	again, _ := s.Get(ctx, "d1")
	if again.Expenses.OtherCosts[0].Amount != 5 {
		t.Errorf("store shares state with callers: %v", again.Expenses.OtherCosts[0].Amount)
	}
}

func TestSQLiteStore_CorruptPayload(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, payload, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"bad", `{"expenses": "not an object"}`, time.Now(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Get(ctx, "bad")
	if !errors.Is(err, ErrDraftCorrupt) || !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("Get() error = %v, want ErrDraftCorrupt wrapping ErrDraftNotFound", err)
	}

	list, err := s.List(ctx, 10)
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v; want malformed draft skipped", ids(list), err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drafts.db")
	s, err := NewSQLiteStore(path, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(context.Background(), core.Draft{ID: "keep"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path, log.Discard())
	if err != nil {
		t.Fatalf("reopen with applied migrations: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "keep"); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	if v, err := SchemaVersion(DSN(path)); err != nil || v != 0 {
		t.Fatalf("SchemaVersion() before migrating = %d, %v; want 0", v, err)
	}

	s, err := NewSQLiteStore(path, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	v, err := SchemaVersion(DSN(path))
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", v)
	}
}

func ids(ds []core.Draft) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
