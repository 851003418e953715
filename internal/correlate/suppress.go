package correlate

import (
	"time"

	"requestbot/internal/event"
)

const DefaultSuppressWindow = 2 * time.Minute

type seenEntry struct {
	contact event.Contact
	at      time.Time
}

// SuppressionCache remembers recently notified (name, phone) pairs.
//
// Entries older than the window are inert. Add and Contains purge first, so
// the cache holds at most one window of entries.
type SuppressionCache struct {
	window  time.Duration
	entries []seenEntry
}

func NewSuppressionCache(window time.Duration) *SuppressionCache {
	if window <= 0 {
		window = DefaultSuppressWindow
	}
	return &SuppressionCache{window: window}
}

func (c *SuppressionCache) Window() time.Duration { return c.window }

// Add purges expired entries, then records contact as seen at now. Blank
// contacts are never recorded.
func (c *SuppressionCache) Add(contact event.Contact, now time.Time) {
	c.Purge(now)
	if contact.IsZero() {
		return
	}
	c.entries = append(c.entries, seenEntry{contact: contact, at: now})
}

// Purge removes entries older than the window relative to now.
func (c *SuppressionCache) Purge(now time.Time) int {
	kept := c.entries[:0]
	for _, e := range c.entries {
		if now.Sub(e.at) <= c.window {
			kept = append(kept, e)
		}
	}
	removed := len(c.entries) - len(kept)
	clear(c.entries[len(kept):])
	c.entries = kept
	return removed
}

// Contains purges expired entries, then reports whether contact is present.
func (c *SuppressionCache) Contains(contact event.Contact, now time.Time) bool {
	c.Purge(now)
	if contact.IsZero() {
		return false
	}
	for _, e := range c.entries {
		if e.contact == contact {
			return true
		}
	}
	return false
}

func (c *SuppressionCache) Len() int { return len(c.entries) }
