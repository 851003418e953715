package source

import (
	"database/sql"
	"fmt"
	"time"

	"requestbot/internal/event"
)

// placeholder renders the n-th bind parameter for a dialect.
type placeholder func(n int) string

func qmark(int) string    { return "?" }
func dollar(n int) string { return fmt.Sprintf("$%d", n) }

type queries struct {
	cfg Config
	ph  placeholder
}

func (q queries) table(stream event.Stream) (string, error) {
	switch stream {
	case event.StreamContact:
		return q.cfg.ContactTable, nil
	case event.StreamService:
		return q.cfg.ServiceTable, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
}

func (q queries) fetchSince(stream event.Stream) (string, error) {
	table, err := q.table(stream)
	if err != nil {
		return "", err
	}
	cols := "id, name, phone, created_at, is_processed"
	if stream == event.StreamService {
		cols = "id, name, phone, email, service_type, message, file, created_at, is_processed"
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE id > %s ORDER BY id ASC", cols, table, q.ph(1)), nil
}

func (q queries) maxID(stream event.Stream) (string, error) {
	table, err := q.table(stream)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COALESCE(MAX(id), 0) FROM %s", table), nil
}

func (q queries) count(stream event.Stream) (string, error) {
	table, err := q.table(stream)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", table), nil
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(rs rowScanner, stream event.Stream, loc *time.Location) (event.Event, bool, error) {
	var (
		meta      event.Meta
		name      sql.NullString
		phone     sql.NullString
		created   any
		processed sql.NullBool
	)
	switch stream {
	case event.StreamContact:
		if err := rs.Scan(&meta.ID, &name, &phone, &created, &processed); err != nil {
			return nil, false, err
		}
		ts, ok := event.ParseTimestamp(created, loc)
		meta.Name, meta.Phone, meta.CreatedAt, meta.Processed = name.String, phone.String, ts, processed.Bool
		return event.ContactRequest{Meta: meta}, ok, nil
	case event.StreamService:
		var email, category, message, file sql.NullString
		if err := rs.Scan(&meta.ID, &name, &phone, &email, &category, &message, &file, &created, &processed); err != nil {
			return nil, false, err
		}
		ts, ok := event.ParseTimestamp(created, loc)
		meta.Name, meta.Phone, meta.CreatedAt, meta.Processed = name.String, phone.String, ts, processed.Bool
		return event.ServiceRequest{
			Meta:       meta,
			Email:      email.String,
			Category:   category.String,
			Message:    message.String,
			Attachment: file.String,
		}, ok, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
}
