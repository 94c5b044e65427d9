package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Preview applies a growing list of operations to a live, uncommitted
// document tree. Streamed tool-call arguments complete one array entry at
// a time; each call to ApplyNew receives the full list decoded so far and
// applies only the entries past the internal cursor, so every op is
// applied exactly once no matter how often the caller re-decodes the
// buffer. Not safe for concurrent use.
type Preview struct {
	root    *html.Node
	applied int
	ops     []OpResult
}

// NewPreview parses markup into a live tree with the cursor at zero.
func NewPreview(markup string) (*Preview, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return &Preview{root: root}, nil
}

// ApplyNew applies the not-yet-applied tail of ops and advances the
// cursor. Returns detail records for the newly applied entries only.
// Passing a shorter list than a previous call is a no-op.
func (p *Preview) ApplyNew(ops []Op) []OpResult {
	if len(ops) <= p.applied {
		return nil
	}
	fresh := ops[p.applied:]
	out := make([]OpResult, 0, len(fresh))
	for _, op := range fresh {
		r := applyOp(p.root, op)
		out = append(out, r)
		p.ops = append(p.ops, r)
	}
	p.applied = len(ops)
	return out
}

// Applied returns how many operations the cursor has consumed.
func (p *Preview) Applied() int { return p.applied }

// Result serializes the current tree and tallies all records applied so
// far.
func (p *Preview) Result() (Result, error) {
	var b strings.Builder
	if err := html.Render(&b, p.root); err != nil {
		return Result{}, fmt.Errorf("dom: render document: %w", err)
	}
	res := Result{
		Markup:         b.String(),
		Ops:            append([]OpResult(nil), p.ops...),
		TotalMutations: len(p.ops),
	}
	tally(&res)
	return res, nil
}
