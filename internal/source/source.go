// Package source reads new rows from the site's request tables.
//
// Readers are read-only and return fully materialized slices ordered by id.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"requestbot/internal/event"
	logx "requestbot/pkg/logx"
)

var ErrUnknownStream = errors.New("unknown stream")

// Reader is the read-only query contract over both streams.
type Reader interface {
	// FetchSince returns events with id > afterID in ascending id order.
	FetchSince(ctx context.Context, stream event.Stream, afterID int64) ([]event.Event, error)
	// MaxID returns the largest id in the stream (0 when empty).
	MaxID(ctx context.Context, stream event.Stream) (int64, error)
	// Count returns the number of rows in the stream.
	Count(ctx context.Context, stream event.Stream) (int64, error)
	Close() error
}

// Config configures the event source.
//
// Driver values:
//   - "sqlite": the site's SQLite database file (opened read-only)
//   - "postgres": a PostgreSQL DSN
type Config struct {
	Driver       string
	DSN          string
	ContactTable string
	ServiceTable string
	BusyTimeout  time.Duration // sqlite only
	// Location is used for timestamps stored without a zone.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ContactTable) == "" {
		c.ContactTable = "main_callrequest"
	}
	if strings.TrimSpace(c.ServiceTable) == "" {
		c.ServiceTable = "main_printorder"
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Open initializes the configured reader.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Reader, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	if err := validateIdent(cfg.ContactTable); err != nil {
		return nil, fmt.Errorf("contact_table: %w", err)
	}
	if err := validateIdent(cfg.ServiceTable); err != nil {
		return nil, fmt.Errorf("service_table: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "postgres", "postgresql", "pgx":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, errors.New("unknown source driver: " + cfg.Driver)
	}
}

// validateIdent guards table names that are interpolated into SQL.
func validateIdent(s string) error {
	if s == "" {
		return errors.New("empty identifier")
	}
	for _, r := range s {
		ok := r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid identifier %q", s)
		}
	}
	return nil
}
