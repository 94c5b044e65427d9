package heal

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestDocument_IdempotentOnBalanced(t *testing.T) {
	docs := []string{
		"",
		"hello",
		"<!DOCTYPE html><html><body><p>hi</p></body></html>",
		"<div><span>a</span><br><img src=\"x.png\"></div>",
		"<ul><li>one</li><li>two</li></ul>",
		"<div/>plain",
	}
	for _, d := range docs {
		if got := Document(d); got != d {
			t.Errorf("Document(%q) = %q, want unchanged", d, got)
		}
	}
}

func TestDocument_AutoClosesOpenElements(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<div>", "<div></div>"},
		{"<div><p>text", "<div><p>text</p></div>"},
		{"<html><body><div id=\"t\">0", "<html><body><div id=\"t\">0</div></body></html>"},
		{"<ul><li>one<li>two", "<ul><li>one<li>two</li></li></ul>"},
	}
	for _, tt := range tests {
		if got := Document(tt.in); got != tt.want {
			t.Errorf("Document(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocument_DropsTrailingPartialTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<div><sp", "<div></div>"},
		{"<div>text<", "<div>text</div>"},
		{"<div class=\"a", ""},
		{"<!DOCTYPE html><ht", "<!DOCTYPE html>"},
	}
	for _, tt := range tests {
		if got := Document(tt.in); got != tt.want {
			t.Errorf("Document(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocument_DropsUnclosedRawText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<div><script>let a = 1;", "<div></div>"},
		{"<div><style>.a { color:", "<div></div>"},
		{"<div><script>x</script><p>ok", "<div><script>x</script><p>ok</p></div>"},
		// An unclosed script swallows everything after its opening tag.
		{"<body><script type=\"module\">import x", "<body></body>"},
	}
	for _, tt := range tests {
		if got := Document(tt.in); got != tt.want {
			t.Errorf("Document(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocument_VoidAndSelfClosing(t *testing.T) {
	in := "<div><br><hr><img src=\"a\"><input type=\"text\"/><span>x"
	want := in + "</span></div>"
	if got := Document(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDocument_StrayCloserIgnored(t *testing.T) {
	in := "<div></span><p>x"
	want := "<div></span><p>x</p></div>"
	if got := Document(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestDocument_EveryPrefixParses feeds every prefix of a realistic
// streamed document through Document and verifies the result survives a
// strict parse/render round trip without losing tag balance.
func TestDocument_EveryPrefixParses(t *testing.T) {
	full := `<!DOCTYPE html><html><head><meta charset="utf-8"><style>body{margin:0}</style></head>` +
		`<body><div id="t" class="timer">0</div><button onclick="go()">Start</button>` +
		`<script>function go(){}</script></body></html>`
	for i := 0; i <= len(full); i++ {
		healed := Document(full[:i])
		node, err := html.Parse(strings.NewReader(healed))
		if err != nil {
			t.Fatalf("prefix %d: parse failed: %v\nhealed: %q", i, err, healed)
		}
		var b strings.Builder
		if err := html.Render(&b, node); err != nil {
			t.Fatalf("prefix %d: render failed: %v", i, err)
		}
	}
}

func TestDocument_FullDocumentRoundTrip(t *testing.T) {
	full := `<html><body><div id="t">0</div></body></html>`
	if got := Document(full); got != full {
		t.Errorf("balanced document changed: %q", got)
	}
}
