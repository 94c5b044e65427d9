// Package heal converts a truncated prefix of an HTML document into a
// structurally valid document suitable for immediate preview rendering.
//
// The input is an arbitrary prefix — possibly cut mid-tag, mid-attribute,
// or mid-text. Healing is best-effort and regex-based: fast enough to run
// on every streamed fragment, with no guarantee of visual fidelity to the
// eventual final document. Already-balanced documents pass through
// unchanged.
package heal

import (
	"regexp"
	"strings"
)

// tagRe matches opening and closing tags. Attribute values containing a
// literal '>' defeat it; that is an accepted trade-off for the preview
// path (the confirmed mutation path parses properly via the dom package).
var tagRe = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9-]*)([^>]*)>`)

// voidElements never take closing tags and are skipped by the tag stack.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// rawTextElements hold content that is not itself markup. A partially
// streamed script or style body cannot be previewed safely, so an opened
// but unclosed raw-text element is dropped whole.
var rawTextElements = []string{"script", "style", "textarea", "title"}

// Document heals a truncated markup prefix into a parseable document.
//
// In order: drop an opened-but-unclosed raw-text element, drop a trailing
// incomplete tag start ('<' with no matching '>'), then walk the rest
// with a tag-name stack and append closing tags for every still-open
// element, innermost first. Idempotent on balanced input.
func Document(prefix string) string {
	s := dropUnclosedRawText(prefix)
	s = dropTrailingPartialTag(s)

	var stack []string
	for _, m := range tagRe.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[2])
		switch {
		case m[1] == "/":
			// Pop to the matching open tag; a stray closer is ignored.
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == name {
					stack = stack[:i]
					break
				}
			}
		case voidElements[name]:
		case strings.HasSuffix(strings.TrimSpace(m[3]), "/"):
			// Self-closing syntax.
		default:
			stack = append(stack, name)
		}
	}

	if len(stack) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(stack)*8)
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</")
		b.WriteString(stack[i])
		b.WriteString(">")
	}
	return b.String()
}

// dropUnclosedRawText truncates s at the opening tag of the last raw-text
// element that has no corresponding closing tag yet.
func dropUnclosedRawText(s string) string {
	lower := strings.ToLower(s)
	for _, name := range rawTextElements {
		idx := lastOpenTag(lower, name)
		if idx < 0 {
			continue
		}
		if strings.Contains(lower[idx:], "</"+name) {
			continue
		}
		s = s[:idx]
		lower = lower[:idx]
	}
	return s
}

// lastOpenTag returns the index of the last "<name" occurrence that is a
// real tag start (followed by a delimiter or buffer end), or -1.
func lastOpenTag(lower, name string) int {
	needle := "<" + name
	for end := len(lower); end > 0; {
		idx := strings.LastIndex(lower[:end], needle)
		if idx < 0 {
			return -1
		}
		after := idx + len(needle)
		if after >= len(lower) {
			return idx
		}
		switch lower[after] {
		case '>', ' ', '\t', '\n', '\r', '/':
			return idx
		}
		end = idx
	}
	return -1
}

// dropTrailingPartialTag removes a trailing '<...' that never reached its
// closing '>'.
func dropTrailingPartialTag(s string) string {
	idx := strings.LastIndexByte(s, '<')
	if idx >= 0 && !strings.ContainsRune(s[idx:], '>') {
		return s[:idx]
	}
	return s
}
