package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Resolved holds the parsed, defaulted values derived from Config.
type Resolved struct {
	RequestTimeout time.Duration

	SourceBusyTimeout time.Duration
	StateBusyTimeout  time.Duration

	Interval       time.Duration
	GroupWindow    time.Duration
	SuppressWindow time.Duration
	SendTimeout    time.Duration
	StartupNotice  bool
	ShutdownNotice bool

	Location *time.Location
}

const (
	DefaultInterval       = 30 * time.Second
	DefaultGroupWindow    = 5 * time.Minute
	DefaultSuppressWindow = 2 * time.Minute
	DefaultSendTimeout    = 20 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Resolve parses every duration and the timezone, applying defaults.
// All problems are reported together.
func (c *Config) Resolve() (Resolved, error) {
	var (
		r    Resolved
		errs []error
	)
	dur := func(dst *time.Duration, path, raw string, def time.Duration) {
		d, err := ParseDurationOrDefault(path, raw, def)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = d
	}
	dur(&r.RequestTimeout, "telegram.request_timeout", c.Telegram.RequestTimeout, DefaultRequestTimeout)
	dur(&r.SourceBusyTimeout, "source.busy_timeout", c.Source.BusyTimeout, 0)
	dur(&r.StateBusyTimeout, "state.busy_timeout", c.State.BusyTimeout, 0)
	dur(&r.Interval, "poller.interval", c.Poller.Interval, DefaultInterval)
	dur(&r.GroupWindow, "poller.group_window", c.Poller.GroupWindow, DefaultGroupWindow)
	dur(&r.SuppressWindow, "poller.suppress_window", c.Poller.SuppressWindow, DefaultSuppressWindow)
	dur(&r.SendTimeout, "poller.send_timeout", c.Poller.SendTimeout, DefaultSendTimeout)

	// A single send never outlives one poll interval, and no Bot API call
	// outlives a send.
	if r.Interval > 0 && r.SendTimeout > r.Interval {
		r.SendTimeout = r.Interval
	}
	if r.SendTimeout > 0 && r.RequestTimeout > r.SendTimeout {
		r.RequestTimeout = r.SendTimeout
	}
	r.StartupNotice = boolOr(c.Poller.StartupNotice, true)
	r.ShutdownNotice = boolOr(c.Poller.ShutdownNotice, true)

	r.Location = time.Local
	if tz := strings.TrimSpace(c.Render.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = append(errs, fmt.Errorf("render.timezone: %w", err))
		} else {
			r.Location = loc
		}
	}
	return r, errors.Join(errs...)
}

// Validate checks required fields and everything Resolve parses.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required (or TELEGRAM_BOT_TOKEN)"))
	}
	if strings.TrimSpace(c.Telegram.ChannelID) == "" {
		errs = append(errs, errors.New("telegram.channel_id is required (or TELEGRAM_CHANNEL_ID)"))
	}
	if strings.TrimSpace(c.Source.DSN) == "" {
		errs = append(errs, errors.New("source.dsn is required"))
	}
	if c.Render.TextLimit < 0 {
		errs = append(errs, errors.New("render.text_limit must be >= 0"))
	}
	if c.Render.MaxAttachments < 0 || c.Render.MaxAttachments > 10 {
		errs = append(errs, errors.New("render.max_attachments must be within [0,10]"))
	}
	if c.Delivery.RatePerSec < 0 {
		errs = append(errs, errors.New("delivery.rate_per_sec must be >= 0"))
	}
	if _, err := c.Resolve(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
