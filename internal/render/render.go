// Package render turns requests into Telegram HTML notifications.
package render

import (
	"fmt"
	"strings"
	"time"

	"requestbot/internal/correlate"
	"requestbot/internal/event"
	logx "requestbot/pkg/logx"
)

const (
	DefaultTextLimit      = 200
	DefaultMaxAttachments = 10
	DefaultPlaceholder    = "Not specified"
	DefaultEllipsis       = "..."
	dateLayout            = "02.01.2006 15:04"
)

type Config struct {
	// AdminURL is the admin site root, e.g. "https://example.com/admin".
	// Links are omitted when empty.
	AdminURL         string
	ContactAdminPath string
	ServiceAdminPath string

	Location       *time.Location
	TextLimit      int
	MaxAttachments int
	Placeholder    string
	// Labels override or extend DefaultServiceLabels.
	Labels map[string]string

	MediaRoot string
}

// Notification is one rendered message plus the files to attach.
type Notification struct {
	Stream      event.Stream
	IDs         []int64
	Text        string
	Attachments []string
}

type Renderer struct {
	cfg      Config
	labels   map[string]string
	resolver Resolver
	log      logx.Logger
	now      func() time.Time
}

func New(cfg Config, log logx.Logger) *Renderer {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = DefaultTextLimit
	}
	if cfg.MaxAttachments <= 0 {
		cfg.MaxAttachments = DefaultMaxAttachments
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	if cfg.ContactAdminPath == "" {
		cfg.ContactAdminPath = "callrequest"
	}
	if cfg.ServiceAdminPath == "" {
		cfg.ServiceAdminPath = "printorder"
	}
	labels := make(map[string]string, len(DefaultServiceLabels)+len(cfg.Labels))
	for k, v := range DefaultServiceLabels {
		labels[k] = v
	}
	for k, v := range cfg.Labels {
		labels[k] = v
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Renderer{
		cfg:      cfg,
		labels:   labels,
		resolver: Resolver{BasePath: cfg.MediaRoot},
		log:      log,
		now:      time.Now,
	}
}

// field escapes user text, substituting the placeholder for blank values.
func (r *Renderer) field(s string) string {
	return Esc(OrPlaceholder(strings.TrimSpace(s), r.cfg.Placeholder))
}

func (r *Renderer) date(m event.Meta) string {
	return m.Timestamp(r.now()).In(r.cfg.Location).Format(dateLayout)
}

func status(m event.Meta) string {
	if m.Processed {
		return "✅ Processed"
	}
	return "🔔 New request"
}

func (r *Renderer) adminLink(segment string, id int64) string {
	base := strings.TrimRight(strings.TrimSpace(r.cfg.AdminURL), "/")
	if base == "" {
		return ""
	}
	url := fmt.Sprintf("%s/main/%s/%d/change/", base, segment, id)
	return fmt.Sprintf(`<a href="%s">Open in admin</a>`, Esc(url))
}

// RenderContact renders a standalone contact request.
func (r *Renderer) RenderContact(c event.ContactRequest) Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s - CALLBACK</b>\n\n", status(c.Meta))
	fmt.Fprintf(&b, "📞 <b>Callback request #%d</b>\n\n", c.ID)
	fmt.Fprintf(&b, "👤 <b>Name:</b> %s\n", r.field(c.Name))
	fmt.Fprintf(&b, "📱 <b>Phone:</b> <code>%s</code>\n", r.field(c.Phone))
	fmt.Fprintf(&b, "🕐 <b>Date:</b> %s", r.date(c.Meta))
	if link := r.adminLink(r.cfg.ContactAdminPath, c.ID); link != "" {
		b.WriteString("\n\n")
		b.WriteString(link)
	}
	return Notification{Stream: event.StreamContact, IDs: []int64{c.ID}, Text: b.String()}
}

// RenderGroup renders a merged service submission. Content comes from the
// lead member; attachments are collected from every member.
func (r *Renderer) RenderGroup(g correlate.Group) Notification {
	lead := g.Lead()
	files := r.ResolveAttachments(g.AttachmentRefs())

	message := Truncate(OrPlaceholder(strings.TrimSpace(lead.Message), r.cfg.Placeholder), r.cfg.TextLimit, DefaultEllipsis)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s - ORDER</b>\n\n", status(lead.Meta))
	fmt.Fprintf(&b, "🖨️ <b>Service request #%d</b>\n", lead.ID)
	if len(g.Members) > 1 {
		ids := make([]string, 0, len(g.Members))
		for _, id := range g.IDs() {
			ids = append(ids, fmt.Sprintf("#%d", id))
		}
		fmt.Fprintf(&b, "🔗 <b>Merged submissions:</b> %s\n", strings.Join(ids, ", "))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 <b>Name:</b> %s\n", r.field(lead.Name))
	fmt.Fprintf(&b, "📱 <b>Phone:</b> <code>%s</code>\n", r.field(lead.Phone))
	fmt.Fprintf(&b, "📧 <b>Email:</b> %s\n", r.field(lead.Email))
	fmt.Fprintf(&b, "🛠️ <b>Service:</b> %s\n", r.field(r.ServiceLabel(strings.TrimSpace(lead.Category))))
	fmt.Fprintf(&b, "💬 <b>Message:</b> %s\n", Esc(message))
	if refs := len(g.AttachmentRefs()); refs > 0 {
		if len(files) > 0 {
			fmt.Fprintf(&b, "📎 <b>Files:</b> %d attached\n", len(files))
		} else {
			b.WriteString("📎 <b>Files:</b> uploaded, not available on disk\n")
		}
	}
	fmt.Fprintf(&b, "🕐 <b>Date:</b> %s", r.date(lead.Meta))
	if link := r.adminLink(r.cfg.ServiceAdminPath, lead.ID); link != "" {
		b.WriteString("\n\n")
		b.WriteString(link)
	}
	return Notification{Stream: event.StreamService, IDs: g.IDs(), Text: b.String(), Attachments: files}
}

// ResolveAttachments maps references to existing files, dropping (and
// logging) unresolved ones and capping the list at MaxAttachments.
func (r *Renderer) ResolveAttachments(refs []string) []string {
	var out []string
	for _, ref := range refs {
		p, ok := r.resolver.Resolve(ref)
		if !ok {
			r.log.Warn("attachment not found; skipping", logx.String("ref", ref))
			continue
		}
		if len(out) == r.cfg.MaxAttachments {
			r.log.Warn("attachment limit reached; skipping", logx.String("ref", ref), logx.Int("limit", r.cfg.MaxAttachments))
			continue
		}
		out = append(out, p)
	}
	return out
}
