package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"requestbot/internal/event"
	"requestbot/internal/storage"
	kit "requestbot/internal/transport"
)

const testMessage = "<b>🧪 Test message</b>\n\nIf you can read this, the notifications bot is configured correctly. ✅\n\n<i>Sent at %s</i>"

// Counter reports the number of rows in a stream's table.
type Counter interface {
	Count(ctx context.Context, s event.Stream) (int64, error)
}

// CheckDeps are the collaborators the self-test touches.
type CheckDeps struct {
	Bot      kit.Prober
	Source   Counter
	Store    storage.Store
	Notice   func(ctx context.Context, text string) error
	SendTest bool
	Now      func() time.Time
}

// Check verifies the bot token, optionally sends a test message, and reports
// row counts and saved cursors. Missing tables are warnings; a bad token or a
// failed test message fails the check.
func Check(ctx context.Context, w io.Writer, d CheckDeps) error {
	if d.Now == nil {
		d.Now = time.Now
	}
	var failed []error
	step := func(n int, title string) { fmt.Fprintf(w, "\n%d. %s...\n", n, title) }

	step(1, "Checking bot token")
	me, err := d.Bot.Me(ctx)
	if err != nil {
		fmt.Fprintf(w, "ERROR getMe failed: %v\n", err)
		failed = append(failed, err)
	} else {
		fmt.Fprintf(w, "OK bot connected: @%s (%s)\n", me.Username, me.FirstName)
	}

	step(2, "Checking channel access")
	if !d.SendTest {
		fmt.Fprintln(w, "SKIP test message not requested (--send-test)")
	} else if err := d.Notice(ctx, fmt.Sprintf(testMessage, d.Now().Format("2006-01-02 15:04:05"))); err != nil {
		fmt.Fprintf(w, "ERROR test message not delivered: %v\n", err)
		failed = append(failed, err)
	} else {
		fmt.Fprintln(w, "OK test message sent")
	}

	step(3, "Checking database access")
	for _, s := range []event.Stream{event.StreamContact, event.StreamService} {
		n, err := d.Source.Count(ctx, s)
		if err != nil {
			fmt.Fprintf(w, "WARNING %s table unreadable: %v\n", s, err)
			continue
		}
		fmt.Fprintf(w, "OK %s requests: %d\n", s, n)
	}

	step(4, "Checking saved state")
	c, err := d.Store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoState):
		fmt.Fprintln(w, "OK no state yet; first run will start from the newest rows")
	case errors.Is(err, storage.ErrCorruptState):
		fmt.Fprintf(w, "WARNING state corrupt (will be reseeded): %v\n", err)
	case err != nil:
		fmt.Fprintf(w, "ERROR state unreadable: %v\n", err)
		failed = append(failed, err)
	default:
		fmt.Fprintf(w, "OK cursors: contact=%d service=%d\n", c.Contact, c.Service)
	}

	fmt.Fprintln(w)
	if len(failed) > 0 {
		fmt.Fprintln(w, "FAILED")
		return errors.Join(failed...)
	}
	fmt.Fprintln(w, "SUCCESS all checks passed")
	return nil
}

// Check runs the self-test against the app's configured collaborators.
func (a *App) Check(ctx context.Context, w io.Writer, sendTest bool) error {
	defer a.closeResources()
	return Check(ctx, w, CheckDeps{
		Bot:      a.adapter,
		Source:   a.src,
		Store:    a.store,
		Notice:   a.deliver.Notice,
		SendTest: sendTest,
	})
}
