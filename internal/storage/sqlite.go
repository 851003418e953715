package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "requestbot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cursors (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	contact    INTEGER NOT NULL,
	service    INTEGER NOT NULL,
	updated_at TEXT    NOT NULL
);`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+(&url.URL{Path: path}).EscapedPath())
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous = FULL")

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (Cursors, error) {
	var c Cursors
	err := s.db.QueryRowContext(ctx, `SELECT contact, service FROM cursors WHERE id = 1`).Scan(&c.Contact, &c.Service)
	if errors.Is(err, sql.ErrNoRows) {
		return Cursors{}, ErrNoState
	}
	if err != nil {
		return Cursors{}, err
	}
	return c, nil
}

func (s *sqliteStore) Save(ctx context.Context, c Cursors) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cursors(id, contact, service, updated_at) VALUES(1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET contact=excluded.contact, service=excluded.service, updated_at=excluded.updated_at`,
		c.Contact, c.Service, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
