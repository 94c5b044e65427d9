package canvas

import (
	"strings"
	"testing"

	vitrail "vitrail"
)

func TestMarkdownBasics(t *testing.T) {
	r := NewRenderer()
	tests := []struct {
		name string
		md   string
		want string
	}{
		{"bold", "**hi**", "<strong>hi</strong>"},
		{"heading", "# Title", "<h1>Title</h1>"},
		{"code span", "run `go test`", "<code>go test</code>"},
		{"link", "[x](https://example.com)", `<a href="https://example.com">x</a>`},
		{"strikethrough", "~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Markdown(tt.md)
			if !strings.Contains(got, tt.want) {
				t.Errorf("Markdown(%q) = %q, want contains %q", tt.md, got, tt.want)
			}
		})
	}
}

func TestMarkdownEscapesRawHTML(t *testing.T) {
	r := NewRenderer()
	got := r.Markdown(`hello <script>alert(1)</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML passed through: %q", got)
	}
}

func TestTranscriptSkipsToolTurns(t *testing.T) {
	r := NewRenderer()
	history := []vitrail.Message{
		vitrail.UserMessage("make a timer"),
		{Role: "assistant", ToolCalls: []vitrail.ToolCall{{ID: "c1", Name: "create_new_window"}}},
		vitrail.ToolResultMessage("c1", `{"status":"created"}`),
		vitrail.AssistantMessage("Done, the **timer** is up."),
	}
	got := r.Transcript(history)
	if !strings.Contains(got, "make a timer") {
		t.Errorf("missing user turn: %q", got)
	}
	if !strings.Contains(got, "<strong>timer</strong>") {
		t.Errorf("assistant markdown not rendered: %q", got)
	}
	if strings.Contains(got, "created") {
		t.Errorf("tool result leaked into transcript: %q", got)
	}
}

func TestTranscriptEscapesUserText(t *testing.T) {
	r := NewRenderer()
	got := r.Transcript([]vitrail.Message{vitrail.UserMessage("<img src=x onerror=alert(1)>")})
	if strings.Contains(got, "<img") {
		t.Errorf("user text not escaped: %q", got)
	}
}

func TestWindowFrameSandboxed(t *testing.T) {
	r := NewRenderer()
	w := vitrail.Window{
		ID:     "w1",
		Title:  "Timer",
		Markup: `<html><body onload="tick()"><div id="t">0</div></body></html>`,
	}
	got := r.WindowFrame(w)
	if !strings.Contains(got, `sandbox="allow-scripts allow-forms"`) {
		t.Errorf("iframe not sandboxed: %q", got)
	}
	if !strings.Contains(got, "srcdoc=") {
		t.Errorf("markup not embedded via srcdoc: %q", got)
	}
	// The raw markup must only appear escaped inside the srcdoc attribute.
	if strings.Contains(got, `<div id="t">`) {
		t.Errorf("window markup leaked unescaped: %q", got)
	}
}

func TestPageStructure(t *testing.T) {
	r := NewRenderer()
	got := r.Page("session", []vitrail.Message{vitrail.UserMessage("hi")}, []vitrail.Window{
		{ID: "w1", Title: "Notes", Markup: "<p>n</p>"},
	})
	for _, want := range []string{"<!DOCTYPE html>", "<title>session</title>", `class="transcript"`, `data-window-id="w1"`} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
