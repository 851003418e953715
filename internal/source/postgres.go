package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"requestbot/internal/event"
	logx "requestbot/pkg/logx"
)

type postgresReader struct {
	pool *pgxpool.Pool
	log  logx.Logger
	q    queries
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Reader, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("source.dsn is required for postgres driver")
	}
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// One poller, one connection.
	pcfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &postgresReader{pool: pool, log: log, q: queries{cfg: cfg, ph: dollar}}, nil
}

func (r *postgresReader) FetchSince(ctx context.Context, stream event.Stream, afterID int64) ([]event.Event, error) {
	query, err := r.q.fetchSince(stream)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, afterID)
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

func (r *postgresReader) scalar(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresReader) MaxID(ctx context.Context, stream event.Stream) (int64, error) {
	query, err := r.q.maxID(stream)
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query)
}

func (r *postgresReader) Count(ctx context.Context, stream event.Stream) (int64, error) {
	query, err := r.q.count(stream)
	if err != nil {
		return 0, err
	}
	return r.scalar(ctx, query)
}

func (r *postgresReader) Close() error {
	if r != nil && r.pool != nil {
		r.pool.Close()
	}
	return nil
}
