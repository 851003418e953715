package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "requestbot/internal/transport"
	logx "requestbot/pkg/logx"
)

func TestSplitTelegramTextShortMessage(t *testing.T) {
	out := splitTelegramText("hello", 10, "HTML")
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0])
}

func TestSplitTelegramTextPrefersNewlines(t *testing.T) {
	line := strings.Repeat("a", 30)
	text := line + "\n" + line + "\n" + line
	out := splitTelegramText(text, 70, "")
	require.Len(t, out, 2)
	assert.Equal(t, line+"\n"+line, out[0])
	assert.Equal(t, line, out[1])
}

func TestSplitTelegramTextKeepsTagsWhole(t *testing.T) {
	text := strings.Repeat("x", 18) + "<b>bold</b>"
	out := splitTelegramText(text, 20, "HTML")
	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, strings.Repeat("x", 18), out[0])
	assert.True(t, strings.HasPrefix(out[1], "<b>"))
}

func TestFitsCaption(t *testing.T) {
	assert.True(t, fitsCaption(strings.Repeat("я", telegramCaptionLimit)))
	assert.False(t, fitsCaption(strings.Repeat("я", telegramCaptionLimit+1)))
}

func TestNewRejectsEmptyToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, logx.Nop())
	require.Error(t, err)
}

func TestSendTextReturnsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":-100}}}`))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	a, err := New(Config{Token: "1:test", APIURL: srv.URL, RequestTimeout: 5 * time.Second}, logx.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = a.SendText(ctx, kit.ChatTarget{Chat: "-100"}, "hello", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAwaitReturnsResult(t *testing.T) {
	v, err := await(context.Background(), func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err = await(ctx, func() (int, error) { called = true; return 0, nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
