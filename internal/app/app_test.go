package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requestbot/internal/config"
	"requestbot/internal/event"
	"requestbot/internal/storage"
	kit "requestbot/internal/transport"
)

type fakeBot struct{ err error }

func (b fakeBot) Me(context.Context) (kit.Identity, error) {
	return kit.Identity{ID: 1, Username: "requests_bot", FirstName: "Requests"}, b.err
}

type fakeCounts map[event.Stream]int64

func (f fakeCounts) Count(_ context.Context, s event.Stream) (int64, error) {
	n, ok := f[s]
	if !ok {
		return 0, errors.New("no such table")
	}
	return n, nil
}

type fakeStore struct {
	c   storage.Cursors
	err error
}

func (s fakeStore) Load(context.Context) (storage.Cursors, error) { return s.c, s.err }
func (fakeStore) Save(context.Context, storage.Cursors) error     { return nil }
func (fakeStore) Close() error                                    { return nil }

func TestCheckReportsCountsAndState(t *testing.T) {
	var out bytes.Buffer
	var sent []string
	err := Check(context.Background(), &out, CheckDeps{
		Bot:    fakeBot{},
		Source: fakeCounts{event.StreamContact: 4},
		Store:  fakeStore{c: storage.Cursors{Contact: 4, Service: 9}},
		Notice: func(_ context.Context, text string) error {
			sent = append(sent, text)
			return nil
		},
		SendTest: true,
		Now:      func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	s := out.String()
	assert.Contains(t, s, "@requests_bot")
	assert.Contains(t, s, "OK contact requests: 4")
	assert.Contains(t, s, "WARNING service table unreadable")
	assert.Contains(t, s, "contact=4 service=9")
	assert.Contains(t, s, "SUCCESS")
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "2024-03-05 10:00:00")
}

func TestCheckFailsOnBadToken(t *testing.T) {
	var out bytes.Buffer
	err := Check(context.Background(), &out, CheckDeps{
		Bot:    fakeBot{err: errors.New("Unauthorized")},
		Source: fakeCounts{},
		Store:  fakeStore{err: storage.ErrNoState},
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "SKIP test message")
	assert.Contains(t, out.String(), "first run")
	assert.Contains(t, out.String(), "FAILED")
}

func TestCheckFailsOnUnreadableState(t *testing.T) {
	var out bytes.Buffer
	err := Check(context.Background(), &out, CheckDeps{
		Bot:    fakeBot{},
		Source: fakeCounts{},
		Store:  fakeStore{err: errors.New("permission denied")},
	})
	require.Error(t, err)
	assert.Contains(t, out.String(), "ERROR state unreadable")

	out.Reset()
	err = Check(context.Background(), &out, CheckDeps{
		Bot:    fakeBot{},
		Source: fakeCounts{},
		Store:  fakeStore{err: storage.ErrCorruptState},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "will be reseeded")
}

func TestMapPollerConfigNotices(t *testing.T) {
	off := false
	cfg := &config.Config{Poller: config.PollerConfig{ShutdownNotice: &off, Interval: "5s"}}
	r, err := cfg.Resolve()
	require.NoError(t, err)

	pc := mapPollerConfig(r)
	assert.Equal(t, 5*time.Second, pc.Interval)
	assert.Equal(t, 5*time.Second, pc.NoticeTimeout)
	assert.NotEmpty(t, pc.StartupNotice)
	assert.Empty(t, pc.ShutdownNotice)
}

func TestMapLoggingDefaultsChatToChannel(t *testing.T) {
	cfg := &config.Config{Telegram: config.TelegramConfig{ChannelID: " -100 "}}
	cfg.Logging.Telegram.Enabled = true
	assert.Equal(t, "-100", mapLoggingConfig(cfg).Telegram.Chat)

	cfg.Logging.Telegram.Chat = "@ops"
	assert.Equal(t, "@ops", mapLoggingConfig(cfg).Telegram.Chat)
}

func TestMapDeliveryTarget(t *testing.T) {
	cfg := &config.Config{Telegram: config.TelegramConfig{ChannelID: "@requests", ThreadID: 7}, Delivery: config.DeliveryConfig{RatePerSec: 1}}
	r, err := cfg.Resolve()
	require.NoError(t, err)
	dc := mapDeliveryConfig(cfg, r)
	assert.Equal(t, kit.ChatTarget{Chat: "@requests", ThreadID: 7}, dc.Target)
	assert.Equal(t, config.DefaultSendTimeout, dc.SendTimeout)
}
