// Package canvas renders a session transcript and its windows as HTML
// for a host page. Assistant text is Markdown; window documents are
// embedded untouched inside sandboxed iframes via srcdoc, so window
// script never runs in the host page.
package canvas

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	vitrail "vitrail"
)

// Renderer converts transcript turns and windows to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a transcript renderer. Raw HTML inside assistant
// Markdown is escaped, not passed through.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Markdown renders assistant Markdown to HTML. On a conversion error the
// text is escaped and wrapped in a paragraph instead.
func (r *Renderer) Markdown(text string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return strings.TrimSpace(buf.String())
}

// Transcript renders the conversation turns as a sequence of message
// divs. Tool turns and tool-call bookkeeping are skipped: the transcript
// shows what the user and the assistant said, not the plumbing.
func (r *Renderer) Transcript(history []vitrail.Message) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case "user":
			fmt.Fprintf(&b, `<div class="msg user">%s</div>`+"\n", html.EscapeString(m.Content))
		case "assistant":
			if m.Content == "" {
				continue
			}
			fmt.Fprintf(&b, `<div class="msg assistant">%s</div>`+"\n", r.Markdown(m.Content))
		}
	}
	return b.String()
}

// WindowFrame renders one window as a titled sandboxed iframe.
func (r *Renderer) WindowFrame(w vitrail.Window) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<section class="window" data-window-id="%s">`+"\n", html.EscapeString(w.ID))
	fmt.Fprintf(&b, `<h2>%s</h2>`+"\n", html.EscapeString(w.Title))
	// allow-scripts without allow-same-origin keeps the document in an
	// opaque origin: it can run its own script but cannot touch the host.
	fmt.Fprintf(&b, `<iframe sandbox="allow-scripts allow-forms" srcdoc="%s"></iframe>`+"\n",
		html.EscapeString(w.Markup))
	b.WriteString("</section>\n")
	return b.String()
}

// Page assembles a complete host page: transcript on the left, windows
// on the right.
func (r *Renderer) Page(title string, history []vitrail.Message, windows []vitrail.Window) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n<main class=\"transcript\">\n")
	b.WriteString(r.Transcript(history))
	b.WriteString("</main>\n<aside class=\"windows\">\n")
	for _, w := range windows {
		b.WriteString(r.WindowFrame(w))
	}
	b.WriteString("</aside>\n</body>\n</html>\n")
	return b.String()
}
