// Package poller runs the read, correlate, render, deliver and advance cycle.
//
// The loop is single-threaded: one cycle runs to completion before the next
// starts, and the cursors, groups and suppression cache are private to it.
// Cursors advance after each unit (one contact request or one service group)
// whether or not delivery succeeded.
package poller

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"requestbot/internal/correlate"
	"requestbot/internal/delivery"
	"requestbot/internal/event"
	"requestbot/internal/observability/metrics"
	"requestbot/internal/render"
	"requestbot/internal/storage"
	logx "requestbot/pkg/logx"
)

const DefaultInterval = 30 * time.Second

// Source is the read side the loop needs from source.Reader.
type Source interface {
	FetchSince(ctx context.Context, stream event.Stream, afterID int64) ([]event.Event, error)
	MaxID(ctx context.Context, stream event.Stream) (int64, error)
}

// Deliverer is satisfied by *delivery.Client.
type Deliverer interface {
	Deliver(ctx context.Context, n render.Notification) (delivery.Result, error)
	Notice(ctx context.Context, text string) error
}

type Config struct {
	Interval       time.Duration
	GroupWindow    time.Duration
	SuppressWindow time.Duration
	// NoticeTimeout bounds the startup and shutdown notices.
	NoticeTimeout time.Duration
	// Empty notices are not sent.
	StartupNotice  string
	ShutdownNotice string
}

type Deps struct {
	Source   Source
	Store    storage.Store
	Delivery Deliverer
	Renderer *render.Renderer
	Metrics  *metrics.Metrics
	Log      logx.Logger

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) bool
	// Heartbeat runs after every cycle (systemd watchdog).
	Heartbeat func()
}

type Loop struct {
	cfg  Config
	deps Deps
	log  logx.Logger

	state   atomic.Int32
	cursors storage.Cursors
	cache   *correlate.SuppressionCache
}

func New(cfg Config, d Deps) (*Loop, error) {
	switch {
	case d.Source == nil:
		return nil, errors.New("poller: source is required")
	case d.Store == nil:
		return nil, errors.New("poller: store is required")
	case d.Delivery == nil:
		return nil, errors.New("poller: delivery is required")
	case d.Renderer == nil:
		return nil, errors.New("poller: renderer is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.GroupWindow <= 0 {
		cfg.GroupWindow = correlate.DefaultGroupWindow
	}
	if cfg.NoticeTimeout <= 0 {
		cfg.NoticeTimeout = 10 * time.Second
	}
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = sleep
	}
	return &Loop{
		cfg:   cfg,
		deps:  d,
		log:   d.Log.With(logx.String("comp", "poller")),
		cache: correlate.NewSuppressionCache(cfg.SuppressWindow),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (l *Loop) State() State { return State(l.state.Load()) }

func (l *Loop) setState(s State) { l.state.Store(int32(s)) }

// Cursors returns the in-memory cursors, which are authoritative even when
// the last save failed.
func (l *Loop) Cursors() storage.Cursors { return l.cursors }

// Initialize loads the cursors, seeding them from the current max ids on the
// first run or when the saved state is corrupt, and sends the startup notice.
// A failed bootstrap is returned: starting from zero would replay the whole
// history. Any other load error is returned too, so an unreachable store
// never overwrites good cursors.
func (l *Loop) Initialize(ctx context.Context) error {
	l.setState(Initializing)

	c, err := l.deps.Store.Load(ctx)
	switch {
	case err == nil:
		l.cursors = c
		l.log.Info("cursors loaded", logx.Int64("contact", c.Contact), logx.Int64("service", c.Service))
	case errors.Is(err, storage.ErrNoState), errors.Is(err, storage.ErrCorruptState):
		if !errors.Is(err, storage.ErrNoState) {
			l.log.Warn("state corrupt; treating as first run", logx.Err(err))
		}
		if err := l.bootstrap(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("load cursors: %w", err)
	}
	l.deps.Metrics.Cursor(string(event.StreamContact), l.cursors.Contact)
	l.deps.Metrics.Cursor(string(event.StreamService), l.cursors.Service)

	l.notice(ctx, l.cfg.StartupNotice)
	return nil
}

func (l *Loop) bootstrap(ctx context.Context) error {
	contact, err := l.deps.Source.MaxID(ctx, event.StreamContact)
	if err != nil {
		return fmt.Errorf("bootstrap contact cursor: %w", err)
	}
	service, err := l.deps.Source.MaxID(ctx, event.StreamService)
	if err != nil {
		return fmt.Errorf("bootstrap service cursor: %w", err)
	}
	l.cursors = storage.Cursors{Contact: contact, Service: service}
	l.log.Info("first run; cursors seeded from existing rows", logx.Int64("contact", contact), logx.Int64("service", service))
	l.save(ctx)
	return nil
}

func (l *Loop) notice(ctx context.Context, text string) {
	if text == "" {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.NoticeTimeout)
	defer cancel()
	if err := l.deps.Delivery.Notice(nctx, text); err != nil {
		l.log.Warn("notice not delivered", logx.Err(err))
	}
}

// Run initializes, then cycles until ctx is canceled. A stop is observed
// between cycles only; the shutdown notice is attempted on the way out.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Initialize(ctx); err != nil {
		l.setState(Stopped)
		return err
	}
	work := context.WithoutCancel(ctx)
	for ctx.Err() == nil {
		if err := l.Cycle(work); err != nil {
			l.log.Warn("cycle finished with errors", logx.Err(err))
		}
		l.setState(Sleeping)
		if l.deps.Heartbeat != nil {
			l.deps.Heartbeat()
		}
		if !l.deps.Sleep(ctx, l.cfg.Interval) {
			break
		}
	}
	l.notice(ctx, l.cfg.ShutdownNotice)
	l.setState(Stopped)
	l.log.Info("poller stopped", logx.Int64("contact", l.cursors.Contact), logx.Int64("service", l.cursors.Service))
	return nil
}

// Cycle runs one pass over both streams, service requests first. Read
// errors skip only the affected stream; a panic aborts the rest of the
// cycle. Both are returned after logging.
func (l *Loop) Cycle(ctx context.Context) (err error) {
	l.setState(Polling)
	start := l.deps.Now()
	log := l.log.With(logx.String("cycle", uuid.NewString()))

	defer func() {
		if r := recover(); r != nil {
			l.deps.Metrics.CyclePanic()
			log.Error("cycle panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = errors.Join(err, fmt.Errorf("cycle panic: %v", r))
		}
		end := l.deps.Now()
		l.deps.Metrics.CycleDone(end.Sub(start), end)
	}()

	var errs []error
	if err := l.pollService(ctx, log); err != nil {
		log.Warn("service stream skipped", logx.Err(err))
		errs = append(errs, err)
	}
	if err := l.pollContact(ctx, log); err != nil {
		log.Warn("contact stream skipped", logx.Err(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (l *Loop) fetch(ctx context.Context, stream event.Stream, after int64) ([]event.Event, error) {
	evs, err := l.deps.Source.FetchSince(ctx, stream, after)
	if err != nil {
		l.deps.Metrics.ReadError(string(stream))
		return nil, fmt.Errorf("read %s: %w", stream, err)
	}
	l.deps.Metrics.Fetched(string(stream), len(evs))
	return evs, nil
}

func (l *Loop) pollService(ctx context.Context, log logx.Logger) error {
	evs, err := l.fetch(ctx, event.StreamService, l.cursors.Service)
	if err != nil || len(evs) == 0 {
		return err
	}
	reqs := make([]event.ServiceRequest, 0, len(evs))
	for _, ev := range evs {
		if r, ok := ev.(event.ServiceRequest); ok {
			reqs = append(reqs, r)
		}
	}

	now := l.deps.Now()
	groups := correlate.GroupServiceRequests(reqs, l.cfg.GroupWindow, now)
	log.Debug("service requests grouped", logx.Int("events", len(reqs)), logx.Int("groups", len(groups)))

	for _, g := range groups {
		for _, m := range g.Members {
			l.cache.Add(m.Contact(), now)
		}
		l.deps.Metrics.Group(len(g.Members))
		l.deliver(ctx, log, l.deps.Renderer.RenderGroup(g))
		l.advance(ctx, event.StreamService, g.MaxID())
	}
	return nil
}

func (l *Loop) pollContact(ctx context.Context, log logx.Logger) error {
	evs, err := l.fetch(ctx, event.StreamContact, l.cursors.Contact)
	if err != nil {
		return err
	}
	for _, ev := range evs {
		id := ev.Base().ID
		c, ok := ev.(event.ContactRequest)
		if !ok {
			l.advance(ctx, event.StreamContact, id)
			continue
		}
		now := l.deps.Now()
		contact := c.Contact()
		if l.cache.Contains(contact, now) {
			l.deps.Metrics.Suppressed()
			log.Info("contact request suppressed; matches a recent service request", logx.Int64("id", id))
		} else {
			l.deliver(ctx, log, l.deps.Renderer.RenderContact(c))
			l.cache.Add(contact, now)
		}
		l.advance(ctx, event.StreamContact, id)
	}
	return nil
}

// deliver never fails the cycle; an undeliverable notification is logged
// and the cursor still advances past it.
func (l *Loop) deliver(ctx context.Context, log logx.Logger, n render.Notification) {
	stream := string(n.Stream)
	res, err := l.deps.Delivery.Deliver(ctx, n)
	if err != nil {
		l.deps.Metrics.Failed(stream)
		log.Error("notification dropped", logx.String("stream", stream), logx.Int64s("ids", n.IDs), logx.Err(err))
		return
	}
	if res.FellBack {
		l.deps.Metrics.Fallback(string(res.Mode))
		l.deps.Metrics.Sent(stream, string(delivery.ModeText))
	} else {
		l.deps.Metrics.Sent(stream, string(res.Mode))
	}
	log.Info("notification sent", logx.String("stream", stream), logx.Int64s("ids", n.IDs),
		logx.String("mode", string(res.Mode)), logx.Bool("fallback", res.FellBack), logx.Int("attachments", res.Attachments))
}

// advance moves a cursor forward (never back) and persists both cursors.
func (l *Loop) advance(ctx context.Context, stream event.Stream, id int64) {
	switch stream {
	case event.StreamContact:
		l.cursors.Contact = max(l.cursors.Contact, id)
		l.deps.Metrics.Cursor(string(stream), l.cursors.Contact)
	case event.StreamService:
		l.cursors.Service = max(l.cursors.Service, id)
		l.deps.Metrics.Cursor(string(stream), l.cursors.Service)
	}
	l.save(ctx)
}

func (l *Loop) save(ctx context.Context) {
	if err := l.deps.Store.Save(ctx, l.cursors); err != nil {
		l.deps.Metrics.SaveError()
		l.log.Error("cursor save failed; continuing with in-memory cursors", logx.Err(err),
			logx.Int64("contact", l.cursors.Contact), logx.Int64("service", l.cursors.Service))
	}
}
