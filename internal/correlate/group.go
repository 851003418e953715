package correlate

import (
	"time"

	"requestbot/internal/event"
)

const DefaultGroupWindow = 5 * time.Minute

// Group is a non-empty run of service requests judged to be one submission.
// Members are kept in ascending id order.
type Group struct {
	Identity event.Identity
	// Start is the timestamp of the first member.
	Start   time.Time
	Members []event.ServiceRequest
}

// Lead is the member used for the rendered content (lowest id).
func (g Group) Lead() event.ServiceRequest { return g.Members[0] }

// MaxID is the cursor position after the group is handled.
func (g Group) MaxID() int64 {
	var id int64
	for _, m := range g.Members {
		if m.ID > id {
			id = m.ID
		}
	}
	return id
}

// IDs lists member ids in order.
func (g Group) IDs() []int64 {
	out := make([]int64, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.ID
	}
	return out
}

// AttachmentRefs returns the distinct non-empty attachment references of all
// members in member order.
func (g Group) AttachmentRefs() []string {
	var out []string
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		if m.Attachment == "" {
			continue
		}
		if _, ok := seen[m.Attachment]; ok {
			continue
		}
		seen[m.Attachment] = struct{}{}
		out = append(out, m.Attachment)
	}
	return out
}

// GroupServiceRequests partitions one cycle's service requests into groups.
//
// Events are walked in ascending id order. An event joins the existing group
// with the same identity whose start is within window of the event's
// timestamp; when several qualify, the one with the closest start wins.
// Otherwise it opens a new group. Unknown timestamps count as now.
// The result is ordered by each group's first member.
func GroupServiceRequests(reqs []event.ServiceRequest, window time.Duration, now time.Time) []Group {
	if window <= 0 {
		window = DefaultGroupWindow
	}
	sorted := sortByID(reqs)

	var groups []Group
	for _, r := range sorted {
		id := r.Identity()
		ts := r.Timestamp(now)

		best := -1
		var bestDist time.Duration
		for i := range groups {
			if groups[i].Identity != id {
				continue
			}
			d := absDuration(ts.Sub(groups[i].Start))
			if d > window {
				continue
			}
			if best == -1 || d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			groups[best].Members = append(groups[best].Members, r)
			continue
		}
		groups = append(groups, Group{Identity: id, Start: ts, Members: []event.ServiceRequest{r}})
	}
	return groups
}

func sortByID(reqs []event.ServiceRequest) []event.ServiceRequest {
	out := append([]event.ServiceRequest(nil), reqs...)
	// Readers already return ascending ids; insertion sort keeps this cheap.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
