package notes

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	mdhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/fredcamaral/slidectl/internal/domain/ports"
)

// Renderer turns presenter notes into sanitized HTML for the remote UI.
// Notes are treated as Markdown so bullet lists and emphasis typed in
// Keynote or PowerPoint come through; everything else is stripped.
type Renderer struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy

	mu       sync.Mutex
	lastIn   string
	lastHTML string
}

// NewRenderer creates a notes renderer
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			mdhtml.WithHardWraps(),
			mdhtml.WithXHTML(),
		),
	)

	return &Renderer{
		markdown:  md,
		sanitizer: createNotesSanitizer(),
	}
}

// Render converts notes to HTML. Empty notes render as "".
func (r *Renderer) Render(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}

	// status is rebuilt on every poll and the notes rarely change between them
	r.mu.Lock()
	defer r.mu.Unlock()
	if notes == r.lastIn {
		return r.lastHTML
	}

	var buf strings.Builder
	var out string
	if err := r.markdown.Convert([]byte(normalizeLineEndings(notes)), &buf); err != nil {
		// If markdown conversion fails, return escaped plain text
		out = "<p>" + strings.ReplaceAll(html.EscapeString(notes), "\n", "<br/>") + "</p>"
	} else {
		out = r.sanitizer.Sanitize(buf.String())
	}

	r.lastIn = notes
	r.lastHTML = strings.TrimSpace(out)
	return r.lastHTML
}

// normalizeLineEndings converts the carriage returns AppleScript hands back into newlines
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// createNotesSanitizer creates a restrictive HTML sanitizer for presenter notes
func createNotesSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	// Allow basic text formatting
	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("p", "br", "hr")
	p.AllowElements("strong", "b", "em", "i", "u", "s", "del", "mark")
	p.AllowElements("ul", "ol", "li")
	p.AllowElements("blockquote", "pre", "code")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	// Links open outside the remote UI
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return p
}

// Ensure Renderer implements ports.NotesRenderer
var _ ports.NotesRenderer = (*Renderer)(nil)
