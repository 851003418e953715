package storage

import (
	"context"
	"errors"
	"strings"

	logx "requestbot/pkg/logx"
)

// Store is the durable cursor API used by the poller.
type Store interface {
	// Load returns ErrNoState when no cursors were saved before.
	Load(ctx context.Context) (Cursors, error)
	Save(ctx context.Context, c Cursors) error
	Close() error
}

// Open initializes the configured store. An empty driver selects "file".
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file", "json":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "redis":
		return openRedis(ctx, cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
