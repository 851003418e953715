package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func unmarshal(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}

// await runs a Bot API call and returns when it finishes or ctx ends,
// whichever comes first. telebot calls take no context; an abandoned call
// keeps running until the HTTP client timeout.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	if ctx == nil {
		return call()
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
