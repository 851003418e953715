package config

// Config is the on-disk configuration. Durations are Go duration strings
// (e.g. "500ms", "30s", "5m") and are parsed by Resolve.
//
// Secrets (telegram.token, source.dsn) may come from the environment instead;
// see applyEnv.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Source   SourceConfig   `json:"source"`
	State    StateConfig    `json:"state"`
	Poller   PollerConfig   `json:"poller"`
	Render   RenderConfig   `json:"render"`
	Delivery DeliveryConfig `json:"delivery"`
	Metrics  MetricsConfig  `json:"metrics,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// ChannelID is a numeric chat id ("-100...") or "@channel".
	ChannelID string `json:"channel_id"`
	ThreadID  int    `json:"thread_id,omitempty"`
	// RequestTimeout bounds one Bot API HTTP call. Default "15s", capped at
	// poller.send_timeout.
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards warnings and errors to a chat. Chat defaults to
// telegram.channel_id.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	Chat       string `json:"chat,omitempty"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SourceConfig points at the site's database.
//
// Example:
//
//	"source": { "driver": "sqlite", "dsn": "/srv/site/db.sqlite3" }
type SourceConfig struct {
	Driver       string `json:"driver"`
	DSN          string `json:"dsn"`
	ContactTable string `json:"contact_table,omitempty"` // default main_callrequest
	ServiceTable string `json:"service_table,omitempty"` // default main_printorder
	BusyTimeout  string `json:"busy_timeout,omitempty"`  // sqlite
}

// StateConfig selects where cursors are persisted.
//
// Example:
//
//	"state": { "driver": "file", "path": "./bot_state.json" }
type StateConfig struct {
	Driver        string `json:"driver"`
	Path          string `json:"path"`
	BusyTimeout   string `json:"busy_timeout,omitempty"` // sqlite
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisKey      string `json:"redis_key,omitempty"`
}

// PollerConfig controls the poll loop.
//
// Defaults (when fields are omitted/zero):
//   - interval: 30s
//   - group_window: 5m
//   - suppress_window: 2m
//   - send_timeout: 20s, capped at interval
//   - startup_notice / shutdown_notice: true
type PollerConfig struct {
	Interval       string `json:"interval"`
	GroupWindow    string `json:"group_window,omitempty"`
	SuppressWindow string `json:"suppress_window,omitempty"`
	SendTimeout    string `json:"send_timeout,omitempty"`

	// Pointers distinguish "omitted" (default on) from an explicit false.
	StartupNotice  *bool `json:"startup_notice,omitempty"`
	ShutdownNotice *bool `json:"shutdown_notice,omitempty"`
}

type RenderConfig struct {
	// MediaRoot is the site's base directory; attachment references are
	// looked up under <media_root>/media, then <media_root>, then as given.
	MediaRoot        string `json:"media_root"`
	AdminURL         string `json:"admin_url,omitempty"`
	ContactAdminPath string `json:"contact_admin_path,omitempty"`
	ServiceAdminPath string `json:"service_admin_path,omitempty"`
	// Timezone is an IANA name used for display and for naive timestamps.
	Timezone       string            `json:"timezone,omitempty"`
	TextLimit      int               `json:"text_limit,omitempty"`
	MaxAttachments int               `json:"max_attachments,omitempty"`
	Placeholder    string            `json:"placeholder,omitempty"`
	ServiceLabels  map[string]string `json:"service_labels,omitempty"`
}

type DeliveryConfig struct {
	// RatePerSec paces Bot API calls; 0 disables pacing.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`
}

// MetricsConfig controls the optional Prometheus/pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (default "127.0.0.1:9464").
//   - A non-loopback address needs a token or allow_insecure.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`
	Token         string `json:"token,omitempty"` // do not log
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}
