package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requestbot/internal/event"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func svc(id int64, name string, at time.Duration, attachment string) event.ServiceRequest {
	return event.ServiceRequest{
		Meta:       event.Meta{ID: id, Name: name, Phone: "+1", CreatedAt: t0.Add(at)},
		Email:      name + "@example.com",
		Attachment: attachment,
	}
}

func TestGroupingWindow(t *testing.T) {
	reqs := []event.ServiceRequest{
		svc(1, "X", 0, "a.png"),
		svc(2, "X", 120*time.Second, "b.png"),
		svc(3, "X", 400*time.Second, ""),
	}
	groups := GroupServiceRequests(reqs, 300*time.Second, t0)
	require.Len(t, groups, 2)
	assert.Equal(t, []int64{1, 2}, groups[0].IDs())
	assert.Equal(t, []int64{3}, groups[1].IDs())
	assert.Equal(t, int64(2), groups[0].MaxID())
	assert.Equal(t, int64(3), groups[1].MaxID())
	assert.Equal(t, int64(1), groups[0].Lead().ID)
	assert.Equal(t, []string{"a.png", "b.png"}, groups[0].AttachmentRefs())
}

func TestGroupingSeparatesIdentities(t *testing.T) {
	a := svc(1, "Ann", 0, "")
	b := svc(2, "Bob", 10*time.Second, "")
	c := svc(3, "Ann", 20*time.Second, "")
	c.Email = "other@example.com"

	groups := GroupServiceRequests([]event.ServiceRequest{a, b, c}, time.Minute, t0)
	require.Len(t, groups, 3)
}

func TestGroupingTrimsIdentity(t *testing.T) {
	a := svc(1, "Ann", 0, "")
	b := svc(2, "Ann", 5*time.Second, "")
	b.Name = "  Ann "
	b.Email = " Ann@example.com "
	groups := GroupServiceRequests([]event.ServiceRequest{a, b}, time.Minute, t0)
	require.Len(t, groups, 1)
}

func TestGroupingKeepsEmailCase(t *testing.T) {
	a := svc(1, "Ann", 0, "")
	b := svc(2, "Ann", 5*time.Second, "")
	b.Email = "ann@example.com"
	groups := GroupServiceRequests([]event.ServiceRequest{a, b}, time.Minute, t0)
	require.Len(t, groups, 2)
}

func TestGroupingPrefersClosestStart(t *testing.T) {
	// Two groups for X exist (starts at 0s and 500s) once event 3 arrives at
	// 290s, which is inside both windows; it must join the closer one.
	reqs := []event.ServiceRequest{
		svc(1, "X", 0, ""),
		svc(2, "X", 500*time.Second, ""),
		svc(3, "X", 290*time.Second, ""),
	}
	groups := GroupServiceRequests(reqs, 300*time.Second, t0)
	require.Len(t, groups, 2)
	assert.Equal(t, []int64{1}, groups[0].IDs())
	assert.Equal(t, []int64{2, 3}, groups[1].IDs())
}

func TestGroupingUnknownTimestampUsesNow(t *testing.T) {
	a := svc(1, "X", 0, "")
	b := svc(2, "X", 0, "")
	b.CreatedAt = time.Time{}
	groups := GroupServiceRequests([]event.ServiceRequest{a, b}, time.Minute, t0.Add(30*time.Second))
	require.Len(t, groups, 1)

	groups = GroupServiceRequests([]event.ServiceRequest{a, b}, time.Minute, t0.Add(time.Hour))
	require.Len(t, groups, 2)
}

func TestGroupingSortsByID(t *testing.T) {
	groups := GroupServiceRequests([]event.ServiceRequest{svc(5, "X", 0, ""), svc(4, "X", 0, "")}, time.Minute, t0)
	require.Len(t, groups, 1)
	assert.Equal(t, []int64{4, 5}, groups[0].IDs())
}

func TestAttachmentRefsDeduplicates(t *testing.T) {
	g := Group{Members: []event.ServiceRequest{svc(1, "X", 0, "a"), svc(2, "X", 0, "a"), svc(3, "X", 0, "")}}
	assert.Equal(t, []string{"a"}, g.AttachmentRefs())
}

func TestSuppressionWithinWindow(t *testing.T) {
	c := NewSuppressionCache(120 * time.Second)
	ann := event.Contact{Name: "Ann", Phone: "+1"}
	c.Add(ann, t0)

	assert.True(t, c.Contains(ann, t0.Add(120*time.Second)))
	assert.False(t, c.Contains(event.Contact{Name: "Ann", Phone: "+2"}, t0.Add(time.Second)))
}

func TestSuppressionExpires(t *testing.T) {
	c := NewSuppressionCache(120 * time.Second)
	ann := event.Contact{Name: "Ann", Phone: "+1"}
	c.Add(ann, t0)

	assert.False(t, c.Contains(ann, t0.Add(121*time.Second)))
	assert.Equal(t, 0, c.Len(), "expired entries must be purged")
}

func TestPurgeKeepsFreshEntries(t *testing.T) {
	c := NewSuppressionCache(time.Minute)
	c.Add(event.Contact{Name: "old"}, t0)
	c.Add(event.Contact{Name: "new"}, t0.Add(50*time.Second))

	assert.Equal(t, 1, c.Purge(t0.Add(90*time.Second)))
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains(event.Contact{Name: "new"}, t0.Add(90*time.Second)))
}

func TestSuppressionIgnoresBlankContacts(t *testing.T) {
	c := NewSuppressionCache(time.Minute)
	c.Add(event.Contact{}, t0)
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains(event.Contact{}, t0))
}
