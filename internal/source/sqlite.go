package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"requestbot/internal/event"
	logx "requestbot/pkg/logx"
)

type sqliteReader struct {
	db  *sql.DB
	log logx.Logger
	q   queries
}

// sqliteDSN opens the site database read-only so the bot can never write to it.
func sqliteDSN(path string, busy time.Duration) string {
	if busy <= 0 {
		busy = 5 * time.Second
	}
	v := url.Values{}
	v.Set("mode", "ro")
	v.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + v.Encode()
}

func openSQLite(cfg Config, log logx.Logger) (Reader, error) {
	path := strings.TrimSpace(cfg.DSN)
	if path == "" {
		return nil, errors.New("source.dsn is required for sqlite driver")
	}
	db, err := sql.Open("sqlite", sqliteDSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &sqliteReader{db: db, log: log, q: queries{cfg: cfg, ph: qmark}}, nil
}

func (r *sqliteReader) FetchSince(ctx context.Context, stream event.Stream, afterID int64) ([]event.Event, error) {
	query, err := r.q.fetchSince(stream)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, afterID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", stream, err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		ev, ok, err := scanEvent(rows, stream, r.q.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", stream, err)
		}
		if !ok {
			r.log.Warn("created_at unreadable; using current time",
				logx.String("stream", string(stream)), logx.Int64("id", ev.Base().ID))
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", stream, err)
	}
	return out, nil
}

func (r *sqliteReader) scalar(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *sqliteReader) MaxID(ctx context.Context, stream event.Stream) (int64, error) {
	query, err := r.q.maxID(stream)
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query)
}

func (r *sqliteReader) Count(ctx context.Context, stream event.Stream) (int64, error) {
	query, err := r.q.count(stream)
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query)
}

func (r *sqliteReader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
