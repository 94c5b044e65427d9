// Package dom applies selector-scoped edit operations to an HTML
// document tree.
//
// Each operation carries a CSS selector (matched with cascadia) and an
// action-specific payload. Operations apply strictly in input order, each
// against the result of all prior ones, and a failing operation never
// aborts the rest of the batch — it is recorded in its detail record and
// the batch continues.
package dom

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Op actions. The selector is required for every action; the payload
// fields listed are required for that action and a missing one is a
// contract violation by the producer, not a runtime option.
const (
	ActionSetText         = "set_text"          // Text
	ActionSetHTML         = "set_html"          // HTML
	ActionReplaceWithHTML = "replace_with_html" // HTML
	ActionInsertHTML      = "insert_html"       // HTML, Position
	ActionSetAttr         = "set_attr"          // Name, Value
	ActionRemoveAttr      = "remove_attr"       // Name
	ActionAddClass        = "add_class"         // Class
	ActionRemoveClass     = "remove_class"      // Class
	ActionRemove          = "remove"            // (none)
)

// Positions accepted by insert_html, per the insertAdjacentHTML contract.
const (
	PosBeforeBegin = "beforebegin"
	PosAfterBegin  = "afterbegin"
	PosBeforeEnd   = "beforeend"
	PosAfterEnd    = "afterend"
)

// Op is one selector-scoped edit instruction.
type Op struct {
	Action   string `json:"action"`
	Selector string `json:"selector"`
	Text     string `json:"text,omitempty"`
	HTML     string `json:"html,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value,omitempty"`
	Class    string `json:"class,omitempty"`
	Position string `json:"position,omitempty"`
}

// OpResult records the outcome of one operation.
type OpResult struct {
	Action   string `json:"action"`
	Selector string `json:"selector"`
	Matched  int    `json:"matched"`
	Applied  int    `json:"applied"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of applying a batch of operations.
type Result struct {
	// Markup is the serialized document after all operations.
	Markup string `json:"-"`
	// Ops holds one detail record per input operation, in order.
	Ops []OpResult `json:"details"`
	// TotalMutations is the number of input operations.
	TotalMutations int `json:"totalMutations"`
	// TotalTargets is the sum of matched elements across operations.
	TotalTargets int `json:"totalTargets"`
	// TotalApplied is the sum of successful applications.
	TotalApplied int `json:"totalApplied"`
	// Failed counts operations with zero successful applications.
	Failed int `json:"failed"`
}

// Apply parses markup, applies ops in order, and returns the serialized
// result plus per-op details. A malformed selector or payload fails only
// its own op; an unmatched selector yields matched:0, applied:0 and is
// not an error. Apply never returns a Go error for per-op failures.
func Apply(markup string, ops []Op) (Result, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Result{}, fmt.Errorf("dom: parse document: %w", err)
	}

	res := Result{TotalMutations: len(ops)}
	for _, op := range ops {
		res.Ops = append(res.Ops, applyOp(root, op))
	}
	tally(&res)

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return Result{}, fmt.Errorf("dom: render document: %w", err)
	}
	res.Markup = b.String()
	return res, nil
}

// FailAll returns a Result marking every op failed with the given reason,
// touching no document. Used when the target window does not exist.
func FailAll(ops []Op, reason string) Result {
	res := Result{TotalMutations: len(ops), Failed: len(ops)}
	for _, op := range ops {
		res.Ops = append(res.Ops, OpResult{
			Action:   op.Action,
			Selector: op.Selector,
			Error:    reason,
		})
	}
	return res
}

func tally(res *Result) {
	res.TotalTargets, res.TotalApplied, res.Failed = 0, 0, 0
	for _, o := range res.Ops {
		res.TotalTargets += o.Matched
		res.TotalApplied += o.Applied
		if o.Applied == 0 {
			res.Failed++
		}
	}
}

// applyOp applies one operation to every element matching its selector.
// Panics from node surgery are recovered into the op's detail record so
// one bad op cannot abort its siblings.
func applyOp(root *html.Node, op Op) (out OpResult) {
	out = OpResult{Action: op.Action, Selector: op.Selector}
	defer func() {
		if p := recover(); p != nil {
			out.Matched, out.Applied = 0, 0
			out.Error = fmt.Sprintf("apply %s: %v", op.Action, p)
		}
	}()

	sel, err := cascadia.Parse(op.Selector)
	if err != nil {
		out.Error = fmt.Sprintf("selector %q: %v", op.Selector, err)
		return out
	}

	// Collect matches up front: several actions detach or replace nodes,
	// which must not disturb iteration.
	nodes := cascadia.QueryAll(root, sel)
	out.Matched = len(nodes)

	for _, n := range nodes {
		if err := applyToNode(n, op); err != nil {
			if out.Error == "" {
				out.Error = err.Error()
			}
			continue
		}
		out.Applied++
	}
	return out
}

func applyToNode(n *html.Node, op Op) error {
	switch op.Action {
	case ActionSetText:
		removeChildren(n)
		n.AppendChild(&html.Node{Type: html.TextNode, Data: op.Text})
		return nil
	case ActionSetHTML:
		frag, err := parseFragment(n, op.HTML)
		if err != nil {
			return err
		}
		removeChildren(n)
		for _, f := range frag {
			n.AppendChild(f)
		}
		return nil
	case ActionReplaceWithHTML:
		if n.Parent == nil {
			return fmt.Errorf("replace_with_html: node has no parent")
		}
		frag, err := parseFragment(n.Parent, op.HTML)
		if err != nil {
			return err
		}
		for _, f := range frag {
			n.Parent.InsertBefore(f, n)
		}
		n.Parent.RemoveChild(n)
		return nil
	case ActionInsertHTML:
		return insertAdjacent(n, op.Position, op.HTML)
	case ActionSetAttr:
		setAttr(n, op.Name, op.Value)
		return nil
	case ActionRemoveAttr:
		removeAttr(n, op.Name)
		return nil
	case ActionAddClass:
		addClass(n, op.Class)
		return nil
	case ActionRemoveClass:
		removeClass(n, op.Class)
		return nil
	case ActionRemove:
		if n.Parent == nil {
			return fmt.Errorf("remove: node has no parent")
		}
		n.Parent.RemoveChild(n)
		return nil
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
}

func insertAdjacent(n *html.Node, position, markup string) error {
	switch position {
	case PosBeforeBegin, PosAfterEnd:
		if n.Parent == nil {
			return fmt.Errorf("insert_html %s: node has no parent", position)
		}
		frag, err := parseFragment(n.Parent, markup)
		if err != nil {
			return err
		}
		if position == PosBeforeBegin {
			for _, f := range frag {
				n.Parent.InsertBefore(f, n)
			}
			return nil
		}
		ref := n.NextSibling
		for _, f := range frag {
			if ref != nil {
				n.Parent.InsertBefore(f, ref)
			} else {
				n.Parent.AppendChild(f)
			}
		}
		return nil
	case PosAfterBegin, PosBeforeEnd:
		frag, err := parseFragment(n, markup)
		if err != nil {
			return err
		}
		if position == PosAfterBegin {
			ref := n.FirstChild
			for _, f := range frag {
				if ref != nil {
					n.InsertBefore(f, ref)
				} else {
					n.AppendChild(f)
				}
			}
			return nil
		}
		for _, f := range frag {
			n.AppendChild(f)
		}
		return nil
	default:
		return fmt.Errorf("insert_html: unknown position %q", position)
	}
}

// parseFragment parses markup in the context of ctx's element name.
// A fresh context node is used: html.ParseFragment requires a context
// with no tree links.
func parseFragment(ctx *html.Node, markup string) ([]*html.Node, error) {
	name := "div"
	if ctx.Type == html.ElementNode && ctx.Data != "" {
		name = ctx.Data
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     name,
		DataAtom: atom.Lookup([]byte(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	return nodes, nil
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}

func setAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func addClass(n *html.Node, class string) {
	cur := attrValue(n, "class")
	for _, c := range strings.Fields(cur) {
		if c == class {
			return
		}
	}
	if cur == "" {
		setAttr(n, "class", class)
		return
	}
	setAttr(n, "class", cur+" "+class)
}

func removeClass(n *html.Node, class string) {
	cur := attrValue(n, "class")
	if cur == "" {
		return
	}
	var kept []string
	for _, c := range strings.Fields(cur) {
		if c != class {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// UnmarshalOps decodes a JSON array of operations. Used by the tool
// dispatcher and by preview paths feeding on partially received
// argument buffers that have completed individual array entries.
func UnmarshalOps(raw json.RawMessage) ([]Op, error) {
	var ops []Op
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, fmt.Errorf("dom: decode ops: %w", err)
	}
	return ops, nil
}
