// Package partialjson extracts complete string field values from a
// growing buffer that is eventually valid JSON.
//
// While a model streams tool-call arguments, the argument buffer is a
// syntactically incomplete JSON prefix for most of its lifetime. Callers
// that want to preview a field (a window's html, a title) before the
// object parses can re-invoke StringField on every fragment; it returns a
// value only once the field's closing quote has arrived, so a live
// preview never flashes truncated text.
package partialjson

import (
	"regexp"
	"strings"
	"sync"
)

// fieldPatterns caches one compiled pattern per field name. Extraction
// runs on every stream fragment, so recompiling per call would dominate.
var fieldPatterns sync.Map // string -> *regexp.Regexp

func fieldPattern(name string) *regexp.Regexp {
	if re, ok := fieldPatterns.Load(name); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"`)
	fieldPatterns.Store(name, re)
	return re
}

// StringField returns the most recent complete string value assigned to
// the named field inside buf, and whether one exists yet.
//
// It locates the last occurrence of the `"name":"` pattern and scans
// forward tracking a backslash-escape flag. If no unescaped closing quote
// has been received, the field is still streaming and ok is false — a
// truncated value is never returned. Safe to call repeatedly on a
// monotonically growing buffer: once a complete value exists the result
// only grows or stays equal as buf grows.
func StringField(buf, name string) (value string, ok bool) {
	locs := fieldPattern(name).FindAllStringIndex(buf, -1)
	if len(locs) == 0 {
		return "", false
	}
	start := locs[len(locs)-1][1]

	escaped := false
	for i := start; i < len(buf); i++ {
		c := buf[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			return unescape(buf[start:i]), true
		}
	}
	// Closing quote not received yet.
	return "", false
}

// StringFieldPrefix returns the received-so-far prefix of the named
// field's value, whether or not its closing quote has arrived, and
// whether the field has started at all. A trailing lone backslash (a
// split escape sequence) is dropped rather than decoded.
//
// Unlike StringField this may return a truncated value; it exists for
// consumers that can tolerate truncation because they repair it — the
// markup-healing preview path feeds this straight into heal.Document.
func StringFieldPrefix(buf, name string) (value string, started bool) {
	if v, ok := StringField(buf, name); ok {
		return v, true
	}
	locs := fieldPattern(name).FindAllStringIndex(buf, -1)
	if len(locs) == 0 {
		return "", false
	}
	span := buf[locs[len(locs)-1][1]:]
	if strings.HasSuffix(span, `\`) && !strings.HasSuffix(span, `\\`) {
		span = span[:len(span)-1]
	}
	return unescape(span), true
}

// unescape resolves standard JSON escapes in a raw captured span.
// Unknown escapes are left intact rather than dropped.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
