// Package window exposes the agent-facing window operations: create a
// window from whole markup, mutate it with selector-scoped operations,
// retitle it, or replace its markup wholesale. All four operate against
// a vitrail.WindowStore owned by the host.
package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	vitrail "vitrail"
	"vitrail/dom"
)

// Tool provides the window manipulation functions.
type Tool struct {
	store vitrail.WindowStore
}

// New creates a window tool backed by store.
func New(store vitrail.WindowStore) *Tool {
	return &Tool{store: store}
}

func (t *Tool) Definitions() []vitrail.ToolDefinition {
	return []vitrail.ToolDefinition{
		{
			Name:        "create_new_window",
			Description: "Create a new window displaying the given HTML document. The name is the window's display name; if it is already taken a numeric suffix is appended. Returns the windowId to use for later mutations.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {
						"type": "string",
						"description": "Display name for the window"
					},
					"html": {
						"type": "string",
						"description": "Complete HTML document to render"
					}
				},
				"required": ["name", "html"]
			}`),
		},
		{
			Name:        "dom_replace",
			Description: "Apply targeted mutations to an existing window's document. Each mutation selects elements with a CSS selector and applies one action. Mutations run in order; a mutation that matches nothing or fails does not stop the rest. Prefer this over set_window_html for small updates.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"windowId": {
						"type": "string",
						"description": "Target window id from create_new_window"
					},
					"mutations": {
						"type": "array",
						"description": "Mutations to apply in order",
						"items": {
							"type": "object",
							"properties": {
								"action": {"type": "string", "enum": ["set_text", "set_html", "replace_with_html", "insert_html", "set_attr", "remove_attr", "add_class", "remove_class", "remove"]},
								"selector": {"type": "string", "description": "CSS selector for target elements"},
								"text": {"type": "string", "description": "Text content (set_text)"},
								"html": {"type": "string", "description": "HTML fragment (set_html, replace_with_html, insert_html)"},
								"name": {"type": "string", "description": "Attribute name (set_attr, remove_attr)"},
								"value": {"type": "string", "description": "Attribute value (set_attr)"},
								"class": {"type": "string", "description": "Class name (add_class, remove_class)"},
								"position": {"type": "string", "enum": ["beforebegin", "afterbegin", "beforeend", "afterend"], "description": "Insertion point (insert_html)"}
							},
							"required": ["action", "selector"]
						}
					}
				},
				"required": ["windowId", "mutations"]
			}`),
		},
		{
			Name:        "update_window_title",
			Description: "Change a window's title. Best-effort bookkeeping: always succeeds.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"windowId": {
						"type": "string",
						"description": "Target window id"
					},
					"title": {
						"type": "string",
						"description": "New title"
					}
				},
				"required": ["windowId", "title"]
			}`),
		},
		{
			Name:        "set_window_html",
			Description: "Replace a window's entire document with new HTML. Use when the change is too large for dom_replace.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"windowId": {
						"type": "string",
						"description": "Target window id"
					},
					"html": {
						"type": "string",
						"description": "Complete replacement HTML document"
					}
				},
				"required": ["windowId", "html"]
			}`),
		},
	}
}

func (t *Tool) Execute(ctx context.Context, name string, args json.RawMessage) (vitrail.ToolResult, error) {
	switch name {
	case "create_new_window":
		return t.createWindow(ctx, args)
	case "dom_replace":
		return t.domReplace(ctx, args)
	case "update_window_title":
		return t.updateTitle(ctx, args)
	case "set_window_html":
		return t.setHTML(ctx, args)
	default:
		return vitrail.ToolResult{Error: "unknown window tool: " + name}, nil
	}
}

// --- create_new_window ---

type createArgs struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

func (t *Tool) createWindow(ctx context.Context, args json.RawMessage) (vitrail.ToolResult, error) {
	var a createArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return vitrail.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	if a.Name == "" {
		return vitrail.ToolResult{Error: "name is required"}, nil
	}

	finalName, err := t.availableName(ctx, a.Name)
	if err != nil {
		return vitrail.ToolResult{Error: err.Error()}, nil
	}

	w := vitrail.Window{
		ID:        vitrail.NewID(),
		Name:      finalName,
		Title:     finalName,
		Markup:    a.HTML,
		CreatedAt: vitrail.NowUnix(),
	}
	if err := t.store.Create(ctx, w); err != nil {
		return vitrail.ToolResult{Error: "create window: " + err.Error()}, nil
	}

	status := "created"
	if finalName != a.Name {
		status = "renamed"
	}
	return marshalResult(map[string]any{
		"status":    status,
		"finalName": finalName,
		"windowId":  w.ID,
	})
}

// availableName returns name, or name with the lowest free numeric
// suffix when the display name is already taken.
func (t *Tool) availableName(ctx context.Context, name string) (string, error) {
	candidate := name
	for n := 2; ; n++ {
		_, err := t.store.GetByName(ctx, candidate)
		if errors.Is(err, vitrail.ErrWindowNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("lookup window name: %w", err)
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

// --- dom_replace ---

type domReplaceArgs struct {
	WindowID  string          `json:"windowId"`
	Mutations json.RawMessage `json:"mutations"`
}

func (t *Tool) domReplace(ctx context.Context, args json.RawMessage) (vitrail.ToolResult, error) {
	var a domReplaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return vitrail.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	ops, err := dom.UnmarshalOps(a.Mutations)
	if err != nil {
		return vitrail.ToolResult{Error: "invalid mutations: " + err.Error()}, nil
	}

	w, err := t.store.Get(ctx, a.WindowID)
	if errors.Is(err, vitrail.ErrWindowNotFound) {
		// Soft failure: every op reported failed, zero targets.
		return marshalDomResult(dom.FailAll(ops, "window not found: "+a.WindowID))
	}
	if err != nil {
		return vitrail.ToolResult{Error: "load window: " + err.Error()}, nil
	}

	res, err := dom.Apply(w.Markup, ops)
	if err != nil {
		return vitrail.ToolResult{Error: "apply mutations: " + err.Error()}, nil
	}
	if err := t.store.UpdateMarkup(ctx, a.WindowID, res.Markup); err != nil {
		return vitrail.ToolResult{Error: "save window: " + err.Error()}, nil
	}
	return marshalDomResult(res)
}

// --- update_window_title ---

type titleArgs struct {
	WindowID string `json:"windowId"`
	Title    string `json:"title"`
}

func (t *Tool) updateTitle(ctx context.Context, args json.RawMessage) (vitrail.ToolResult, error) {
	var a titleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return vitrail.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	// Idempotent: an unknown window still reports updated.
	if err := t.store.UpdateTitle(ctx, a.WindowID, a.Title); err != nil && !errors.Is(err, vitrail.ErrWindowNotFound) {
		return vitrail.ToolResult{Error: "update title: " + err.Error()}, nil
	}
	return marshalResult(map[string]any{"status": "updated"})
}

// --- set_window_html ---

type setHTMLArgs struct {
	WindowID string `json:"windowId"`
	HTML     string `json:"html"`
}

func (t *Tool) setHTML(ctx context.Context, args json.RawMessage) (vitrail.ToolResult, error) {
	var a setHTMLArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return vitrail.ToolResult{Error: "invalid args: " + err.Error()}, nil
	}
	if err := t.store.UpdateMarkup(ctx, a.WindowID, a.HTML); err != nil {
		if errors.Is(err, vitrail.ErrWindowNotFound) {
			return vitrail.ToolResult{Error: "window not found: " + a.WindowID}, nil
		}
		return vitrail.ToolResult{Error: "save window: " + err.Error()}, nil
	}
	return marshalResult(map[string]any{
		"status":       "set",
		"markupLength": len(a.HTML),
	})
}

// --- helpers ---

func marshalResult(v map[string]any) (vitrail.ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return vitrail.ToolResult{Error: "marshal error: " + err.Error()}, nil
	}
	return vitrail.ToolResult{Content: string(data)}, nil
}

func marshalDomResult(res dom.Result) (vitrail.ToolResult, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return vitrail.ToolResult{Error: "marshal error: " + err.Error()}, nil
	}
	// Per-op failures are data for the model, not tool errors: the
	// details travel in Content so the model can react op by op.
	return vitrail.ToolResult{Content: string(data)}, nil
}
