package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps drafts as JSON documents in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
	now    Clock
}

// DSN builds the connection string for dbPath. Transactions take the write
// lock up front so concurrent read-modify-write cycles from the server and
// the worker serialize instead of failing with SQLITE_BUSY.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite draft store ready", "db_path", dbPath, "schema_version", version)
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// WithClock replaces the time source used for timestamps.
func (s *SQLiteStore) WithClock(c Clock) *SQLiteStore {
	s.now = c
	return s
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Create(ctx context.Context, d core.Draft) (core.Draft, error) {
	now := s.now().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	payload, err := json.Marshal(d)
	if err != nil {
		return core.Draft{}, fmt.Errorf("encode draft: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, payload, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		d.ID, string(payload), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Draft{}, fmt.Errorf("%w: %s", ErrDraftExists, d.ID)
		}
		return core.Draft{}, fmt.Errorf("insert draft: %w", err)
	}

	s.logger.InfoContext(ctx, "Draft created", log.FieldDraftID, d.ID)
	return d, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(ctx context.Context, q queryer, id string) (core.Draft, error) {
	var payload string
	err := q.QueryRowContext(ctx, `SELECT payload FROM drafts WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Draft{}, fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	if err != nil {
		return core.Draft{}, fmt.Errorf("select draft: %w", err)
	}

	var d core.Draft
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		s.logger.WarnContext(ctx, "Stored draft is malformed",
			log.FieldDraftID, id, log.FieldError, err)
		return core.Draft{}, fmt.Errorf("%w: %s: %v", ErrDraftCorrupt, id, err)
	}
	d.ID = id
	return d, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (core.Draft, error) {
	return s.load(ctx, s.db, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn UpdateFunc) (core.Draft, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Draft{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	d, err := s.load(ctx, tx, id)
	if err != nil {
		return core.Draft{}, err
	}
	if err := applyUpdate(&d, fn, s.now().UTC()); err != nil {
		return core.Draft{}, err
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return core.Draft{}, fmt.Errorf("encode draft: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE drafts SET payload = ?, updated_at = ? WHERE id = ?`,
		string(payload), d.UpdatedAt, id); err != nil {
		return core.Draft{}, fmt.Errorf("update draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Draft{}, fmt.Errorf("commit draft: %w", err)
	}

	s.logger.DebugContext(ctx, "Draft updated", log.FieldDraftID, id)
	return d, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
	}
	s.logger.InfoContext(ctx, "Draft deleted", log.FieldDraftID, id)
	return nil
}

// List skips drafts whose payload cannot be decoded.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]core.Draft, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM drafts ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	drafts := []core.Draft{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		var d core.Draft
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed draft", log.FieldDraftID, id, log.FieldError, err)
			continue
		}
		d.ID = id
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (s *SQLiteStore) RecordExport(ctx context.Context, id, format, reference string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_exports (draft_id, format, reference, created_at) VALUES (?, ?, ?, ?)`,
		id, format, reference, s.now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: %s", ErrDraftNotFound, id)
		}
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListExports(ctx context.Context, id string) ([]ExportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT draft_id, format, reference, created_at FROM draft_exports WHERE draft_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	out := []ExportRecord{}
	for rows.Next() {
		var rec ExportRecord
		if err := rows.Scan(&rec.DraftID, &rec.Format, &rec.Reference, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
