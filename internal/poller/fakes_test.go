package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"requestbot/internal/delivery"
	"requestbot/internal/event"
	"requestbot/internal/render"
	"requestbot/internal/storage"
)

type memSource struct {
	rows    map[event.Stream][]event.Event
	readErr map[event.Stream]error
	maxErr  error
}

func newMemSource() *memSource {
	return &memSource{rows: map[event.Stream][]event.Event{}, readErr: map[event.Stream]error{}}
}

func (s *memSource) add(evs ...event.Event) {
	for _, ev := range evs {
		s.rows[ev.Stream()] = append(s.rows[ev.Stream()], ev)
	}
}

func (s *memSource) FetchSince(_ context.Context, stream event.Stream, after int64) ([]event.Event, error) {
	if err := s.readErr[stream]; err != nil {
		return nil, err
	}
	var out []event.Event
	for _, ev := range s.rows[stream] {
		if ev.Base().ID > after {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memSource) MaxID(_ context.Context, stream event.Stream) (int64, error) {
	if s.maxErr != nil {
		return 0, s.maxErr
	}
	var m int64
	for _, ev := range s.rows[stream] {
		m = max(m, ev.Base().ID)
	}
	return m, nil
}

type memStore struct {
	cur     *storage.Cursors
	loadErr error
	saveErr error
	saves   []storage.Cursors
}

func (s *memStore) Load(context.Context) (storage.Cursors, error) {
	if s.loadErr != nil {
		return storage.Cursors{}, s.loadErr
	}
	if s.cur == nil {
		return storage.Cursors{}, storage.ErrNoState
	}
	return *s.cur, nil
}

func (s *memStore) Save(_ context.Context, c storage.Cursors) error {
	s.saves = append(s.saves, c)
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cur = &c
	return nil
}

func (s *memStore) Close() error { return nil }

type recorder struct {
	mu      sync.Mutex
	sent    []render.Notification
	notices []string
	fail    bool
	panic   bool
}

func (r *recorder) Deliver(_ context.Context, n render.Notification) (delivery.Result, error) {
	if r.panic {
		panic("sender exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	if r.fail {
		return delivery.Result{}, &delivery.Error{Mode: delivery.ModeText, Err: errors.New("channel down")}
	}
	return delivery.Result{Mode: delivery.ModeText}, nil
}

func (r *recorder) Notice(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
	return nil
}

func (r *recorder) ids() [][]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]int64, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.IDs)
	}
	return out
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var t0 = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func contact(id int64, name, phone string) event.ContactRequest {
	return event.ContactRequest{Meta: event.Meta{ID: id, Name: name, Phone: phone, CreatedAt: t0}}
}

func service(id int64, name, phone string, at time.Duration) event.ServiceRequest {
	return event.ServiceRequest{
		Meta:     event.Meta{ID: id, Name: name, Phone: phone, CreatedAt: t0.Add(at)},
		Email:    "ann@example.com",
		Category: "3d_printing",
		Message:  "hello",
	}
}
