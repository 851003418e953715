// Package delivery sends rendered notifications to the channel.
//
// Policy: attachments go out as one photo or one album with the message as
// caption. If that fails, the same message is sent once more as plain text.
// Nothing is retried beyond that single fallback.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"requestbot/internal/render"
	kit "requestbot/internal/transport"
	logx "requestbot/pkg/logx"
)

var ErrNoSender = errors.New("delivery: no sender configured")

const maxAlbum = 10

// Mode is how a notification was (or was attempted to be) delivered.
type Mode string

const (
	ModeText  Mode = "text"
	ModePhoto Mode = "photo"
	ModeAlbum Mode = "album"
)

// Error reports a notification that could not be delivered.
type Error struct {
	Mode Mode
	// Fallback is true when the text-only fallback was attempted and failed too.
	Fallback bool
	Err      error
}

func (e *Error) Error() string {
	if e.Fallback {
		return fmt.Sprintf("deliver %s (text fallback failed): %v", e.Mode, e.Err)
	}
	return fmt.Sprintf("deliver %s: %v", e.Mode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result describes a completed delivery.
type Result struct {
	Mode Mode
	// FellBack is true when the attachment send failed and text was sent instead.
	FellBack    bool
	Attachments int
}

type Config struct {
	Target      kit.ChatTarget
	SendTimeout time.Duration
	// RatePerSec paces outgoing calls; 0 disables pacing.
	RatePerSec float64
	Burst      int
}

type Client struct {
	cfg     Config
	sender  kit.Sender
	limiter *rate.Limiter
	log     logx.Logger

	readFile func(string) ([]byte, error)
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{cfg: cfg, sender: sender, log: log, readFile: os.ReadFile}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c
}

var htmlOpts = &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}

// call runs one channel request under the pacing limiter and send timeout.
func (c *Client) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if c.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.SendTimeout)
		defer cancel()
	}
	return fn(ctx)
}

func (c *Client) sendText(ctx context.Context, text string) error {
	return c.call(ctx, func(ctx context.Context) error {
		_, err := c.sender.SendText(ctx, c.cfg.Target, text, htmlOpts)
		return err
	})
}

// Notice sends a plain lifecycle message (startup/shutdown).
func (c *Client) Notice(ctx context.Context, text string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	return c.sendText(ctx, text)
}

// load reads attachment files fully into memory, skipping unreadable ones.
func (c *Client) load(paths []string) []kit.Attachment {
	out := make([]kit.Attachment, 0, len(paths))
	for _, p := range paths {
		if len(out) == maxAlbum {
			c.log.Warn("too many attachments; extra files dropped", logx.Int("limit", maxAlbum), logx.Int("given", len(paths)))
			break
		}
		b, err := c.readFile(p)
		if err != nil {
			c.log.Warn("attachment unreadable; skipping", logx.String("path", p), logx.Err(err))
			continue
		}
		out = append(out, kit.Attachment{Name: filepath.Base(p), Data: b})
	}
	return out
}

// Deliver sends n and applies the fallback policy.
func (c *Client) Deliver(ctx context.Context, n render.Notification) (Result, error) {
	if c.sender == nil {
		return Result{}, ErrNoSender
	}
	atts := c.load(n.Attachments)

	var (
		mode Mode
		err  error
	)
	switch len(atts) {
	case 0:
		if err := c.sendText(ctx, n.Text); err != nil {
			return Result{Mode: ModeText}, &Error{Mode: ModeText, Err: err}
		}
		return Result{Mode: ModeText}, nil
	case 1:
		mode = ModePhoto
		err = c.call(ctx, func(ctx context.Context) error {
			_, err := c.sender.SendPhoto(ctx, c.cfg.Target, atts[0], n.Text, htmlOpts)
			return err
		})
	default:
		mode = ModeAlbum
		err = c.call(ctx, func(ctx context.Context) error {
			_, err := c.sender.SendAlbum(ctx, c.cfg.Target, atts, n.Text, htmlOpts)
			return err
		})
	}
	if err == nil {
		return Result{Mode: mode, Attachments: len(atts)}, nil
	}

	c.log.Warn("attachment send failed; falling back to text",
		logx.String("mode", string(mode)), logx.Int("attachments", len(atts)), logx.Int64s("ids", n.IDs), logx.Err(err))
	if ferr := c.sendText(ctx, n.Text); ferr != nil {
		return Result{Mode: mode}, &Error{Mode: mode, Fallback: true, Err: errors.Join(err, ferr)}
	}
	return Result{Mode: mode, FellBack: true}, nil
}
