package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalJSON = `{
  "telegram": {"token": "123:abc", "channel_id": "-100500"},
  "logging": {"level": "info", "console": true},
  "source": {"driver": "sqlite", "dsn": "/srv/site/db.sqlite3"},
  "state": {"driver": "file", "path": "./bot_state.json"},
  "poller": {"interval": "30s"},
  "render": {"media_root": "/srv/site", "timezone": "UTC"},
  "delivery": {}
}`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func newManager(path string, env map[string]string) *ConfigManager {
	m := NewConfigManager(path)
	m.getenv = func(k string) string { return env[k] }
	return m
}

func TestLoadJSON(t *testing.T) {
	m := newManager(writeConfig(t, "config.json", minimalJSON), nil)
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "-100500", cfg.Telegram.ChannelID)
	assert.Same(t, cfg, m.Get())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := newManager(writeConfig(t, "config.json", `{"telegram": {"token": "x", "owner_user_ids": [1]}}`), nil)
	_, err := m.Parse()
	assert.ErrorContains(t, err, "unknown field")
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := newManager(writeConfig(t, "config.json", `{} {}`), nil)
	_, err := m.Parse()
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	body := `
telegram:
  token: "123:abc"
  channel_id: "@requests"
source:
  driver: postgres
  dsn: postgres://bot@localhost/site
poller:
  interval: 10s
  startup_notice: false
render:
  service_labels:
    laser: Laser cutting
`
	m := newManager(writeConfig(t, "config.yaml", body), nil)
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Source.Driver)
	assert.Equal(t, "Laser cutting", cfg.Render.ServiceLabels["laser"])

	r, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, r.Interval)
	assert.Equal(t, 10*time.Second, r.SendTimeout, "send timeout is capped at the interval")
	assert.False(t, r.StartupNotice)
	assert.True(t, r.ShutdownNotice)
}

func TestEnvOverridesSecrets(t *testing.T) {
	body := `{"telegram": {"token": "", "channel_id": ""}, "source": {"dsn": "x"}}`
	m := newManager(writeConfig(t, "config.json", body), map[string]string{
		EnvToken:     "999:env",
		EnvChannelID: "-1001",
		EnvSourceDSN: " /data/db.sqlite3 ",
	})
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "999:env", cfg.Telegram.Token)
	assert.Equal(t, "-1001", cfg.Telegram.ChannelID)
	assert.Equal(t, "/data/db.sqlite3", cfg.Source.DSN)
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	r, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, r.Interval)
	assert.Equal(t, DefaultGroupWindow, r.GroupWindow)
	assert.Equal(t, DefaultSuppressWindow, r.SuppressWindow)
	assert.Equal(t, DefaultSendTimeout, r.SendTimeout)
	assert.Equal(t, DefaultRequestTimeout, r.RequestTimeout)
	assert.True(t, r.StartupNotice)
	assert.Equal(t, time.Local, r.Location)
}

func TestResolveBoundsTimeoutsByInterval(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{RequestTimeout: "1m"},
		Poller:   PollerConfig{Interval: "10s", SendTimeout: "30s"},
	}
	r, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, r.SendTimeout)
	assert.Equal(t, 10*time.Second, r.RequestTimeout)

	cfg.Telegram.RequestTimeout = "3s"
	r, err = cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.RequestTimeout)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{
		Poller: PollerConfig{Interval: "soon", GroupWindow: "-1s"},
		Render: RenderConfig{Timezone: "Mars/Olympus", MaxAttachments: 11},
	}
	err := Validate(cfg)
	require.Error(t, err)
	for _, want := range []string{"telegram.token", "telegram.channel_id", "source.dsn", "poller.interval", "poller.group_window", "render.timezone", "render.max_attachments"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := &Config{Logging: LoggingConfig{Level: "info"}, Poller: PollerConfig{Interval: "30s"}}
	b := &Config{Logging: LoggingConfig{Level: "debug"}, Poller: PollerConfig{Interval: "10s"}}

	ch := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"logging", "poller"}, ch.Sections)
	assert.Equal(t, []string{"poller"}, ch.RestartRequired)
	assert.True(t, SummarizeConfigChange(a, a).Empty())
}

func TestDurationHelpers(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	_, err = ParseDurationField("poller.interval", "-5s")
	assert.ErrorContains(t, err, "poller.interval")
}

func TestWatchPublishesValidChanges(t *testing.T) {
	path := writeConfig(t, "config.json", minimalJSON)
	m := newManager(path, nil)
	_, err := m.Load()
	require.NoError(t, err)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(200 * time.Millisecond)
	updated := `{"telegram": {"token": "123:abc", "channel_id": "-100500"}, "logging": {"level": "debug"}, "source": {"dsn": "x"}}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case cfg := <-ch:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config update not published")
	}
	cancel()
	<-done
}
