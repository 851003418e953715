package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requestbot/internal/correlate"
	"requestbot/internal/event"
	logx "requestbot/pkg/logx"
)

var at = time.Date(2024, 3, 5, 10, 20, 0, 0, time.UTC)

func newTestRenderer(t *testing.T, cfg Config) *Renderer {
	t.Helper()
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return New(cfg, logx.Nop())
}

func TestEscOrder(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;&amp;&lt;/script&gt;", Esc("<script>&</script>"))
	assert.Equal(t, "&amp;amp;", Esc("&amp;"))
	assert.Equal(t, `"quoted"`, Esc(`"quoted"`))
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := Truncate(long, 200, "...")
	assert.Equal(t, strings.Repeat("a", 200)+"...", got)

	exact := strings.Repeat("b", 200)
	assert.Equal(t, exact, Truncate(exact, 200, "..."))

	cyr := strings.Repeat("ж", 201)
	assert.Equal(t, strings.Repeat("ж", 200)+"...", Truncate(cyr, 200, "..."))
}

func TestOrPlaceholder(t *testing.T) {
	assert.Equal(t, "n/a", OrPlaceholder(" \t\n", "n/a"))
	assert.Equal(t, "x", OrPlaceholder("x", "n/a"))
}

func TestRenderContact(t *testing.T) {
	r := newTestRenderer(t, Config{AdminURL: "https://example.com/admin/"})
	n := r.RenderContact(event.ContactRequest{Meta: event.Meta{ID: 12, Name: "<script>&</script>", Phone: "+1 555", CreatedAt: at}})

	assert.Equal(t, event.StreamContact, n.Stream)
	assert.Equal(t, []int64{12}, n.IDs)
	assert.Contains(t, n.Text, "🔔 New request - CALLBACK")
	assert.Contains(t, n.Text, "Callback request #12")
	assert.Contains(t, n.Text, "&lt;script&gt;&amp;&lt;/script&gt;")
	assert.NotContains(t, n.Text, "&amp;lt;")
	assert.Contains(t, n.Text, "<code>+1 555</code>")
	assert.Contains(t, n.Text, "05.03.2024 10:20")
	assert.Contains(t, n.Text, `<a href="https://example.com/admin/main/callrequest/12/change/">Open in admin</a>`)
	assert.Empty(t, n.Attachments)
}

func TestRenderContactWithoutAdminURL(t *testing.T) {
	r := newTestRenderer(t, Config{})
	n := r.RenderContact(event.ContactRequest{Meta: event.Meta{ID: 1, Name: " ", Phone: "", Processed: true, CreatedAt: at}})
	assert.NotContains(t, n.Text, "<a href")
	assert.Contains(t, n.Text, "✅ Processed")
	assert.Contains(t, n.Text, "<b>Name:</b> Not specified")
}

func serviceReq(id int64, attachment string) event.ServiceRequest {
	return event.ServiceRequest{
		Meta:       event.Meta{ID: id, Name: "Ann", Phone: "+1", CreatedAt: at},
		Email:      "ann@example.com",
		Category:   "3d_printing",
		Message:    "",
		Attachment: attachment,
	}
}

func TestRenderGroupFields(t *testing.T) {
	r := newTestRenderer(t, Config{AdminURL: "https://example.com/admin", Labels: map[string]string{"laser": "Laser cutting"}})

	lead := serviceReq(7, "")
	lead.Message = strings.Repeat("m", 250)
	n := r.RenderGroup(correlate.Group{Members: []event.ServiceRequest{lead}})

	assert.Equal(t, event.StreamService, n.Stream)
	assert.Contains(t, n.Text, "Service request #7")
	assert.Contains(t, n.Text, "<b>Service:</b> 3D printing")
	assert.Contains(t, n.Text, "<b>Message:</b> "+strings.Repeat("m", 200)+"...\n")
	assert.NotContains(t, n.Text, "Merged")
	assert.NotContains(t, n.Text, "Files:")
	assert.Contains(t, n.Text, "/main/printorder/7/change/")

	unknown := serviceReq(8, "")
	unknown.Category = "laser"
	assert.Contains(t, r.RenderGroup(correlate.Group{Members: []event.ServiceRequest{unknown}}).Text, "Laser cutting")
	unknown.Category = "plasma"
	assert.Contains(t, r.RenderGroup(correlate.Group{Members: []event.ServiceRequest{unknown}}).Text, "<b>Service:</b> plasma")
}

func TestRenderGroupEmptyMessagePlaceholder(t *testing.T) {
	r := newTestRenderer(t, Config{})
	n := r.RenderGroup(correlate.Group{Members: []event.ServiceRequest{serviceReq(1, "")}})
	assert.Contains(t, n.Text, "<b>Message:</b> Not specified")
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
}

func TestRenderGroupMergesAttachments(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "media", "orders", "a.png"))
	writeFile(t, filepath.Join(base, "orders", "b.png"))
	abs := filepath.Join(t.TempDir(), "c.png")
	writeFile(t, abs)

	r := newTestRenderer(t, Config{MediaRoot: base})
	g := correlate.Group{Members: []event.ServiceRequest{
		serviceReq(1, "orders/a.png"),
		serviceReq(2, "orders/b.png"),
		serviceReq(3, "orders/missing.png"),
		serviceReq(4, abs),
	}}
	n := r.RenderGroup(g)

	assert.Equal(t, []int64{1, 2, 3, 4}, n.IDs)
	assert.Equal(t, []string{
		filepath.Join(base, "media", "orders", "a.png"),
		filepath.Join(base, "orders", "b.png"),
		abs,
	}, n.Attachments)
	assert.Contains(t, n.Text, "Merged submissions:</b> #1, #2, #3, #4")
	assert.Contains(t, n.Text, "Service request #1")
	assert.Contains(t, n.Text, "<b>Files:</b> 3 attached")
}

func TestResolveAttachmentsCapsList(t *testing.T) {
	base := t.TempDir()
	var refs []string
	for i := 0; i < 12; i++ {
		ref := filepath.Join("f", string(rune('a'+i))+".png")
		writeFile(t, filepath.Join(base, ref))
		refs = append(refs, ref)
	}
	r := newTestRenderer(t, Config{MediaRoot: base})
	assert.Len(t, r.ResolveAttachments(refs), DefaultMaxAttachments)
}

func TestResolverPrefersMediaDir(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "media", "x.png"))
	writeFile(t, filepath.Join(base, "x.png"))

	p, ok := Resolver{BasePath: base}.Resolve("x.png")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(base, "media", "x.png"), p)

	_, ok = Resolver{BasePath: base}.Resolve("")
	assert.False(t, ok)
}

func TestRenderGroupReportsMissingFiles(t *testing.T) {
	r := newTestRenderer(t, Config{MediaRoot: t.TempDir()})
	n := r.RenderGroup(correlate.Group{Members: []event.ServiceRequest{serviceReq(1, "gone.png")}})
	assert.Empty(t, n.Attachments)
	assert.Contains(t, n.Text, "not available on disk")
}
