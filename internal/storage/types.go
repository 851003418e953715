package storage

import (
	"errors"
	"time"
)

// ErrNoState is returned by Load when nothing was persisted yet (first run).
var ErrNoState = errors.New("no persisted state")

// ErrCorruptState is wrapped by Load when persisted state exists but cannot
// be decoded.
var ErrCorruptState = errors.New("corrupt persisted state")

// Cursors holds the last processed id per stream.
type Cursors struct {
	Contact int64 `json:"last_call_request_id"`
	Service int64 `json:"last_print_order_id"`
}

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}
