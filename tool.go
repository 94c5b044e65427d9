package vitrail

import (
	"context"
	"encoding/json"
)

// Tool is a capability the model can invoke. One Tool may expose several
// functions; Definitions lists their schemas and Execute dispatches on the
// function name.
//
// A failure the model should see and react to goes in ToolResult.Error.
// The returned Go error is reserved for infrastructure faults that should
// abort the run.
type Tool interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}

// ToolResult is what a tool hands back to the model.
type ToolResult struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// ToolRegistry maps function names to the tools that implement them.
type ToolRegistry struct {
	tools  []Tool
	byName map[string]Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{byName: make(map[string]Tool)}
}

// Add registers a tool. Later registrations win on name collisions.
func (r *ToolRegistry) Add(t Tool) {
	r.tools = append(r.tools, t)
	for _, d := range t.Definitions() {
		r.byName[d.Name] = t
	}
}

// AllDefinitions returns every registered function schema, in
// registration order.
func (r *ToolRegistry) AllDefinitions() []ToolDefinition {
	var defs []ToolDefinition
	for _, t := range r.tools {
		defs = append(defs, t.Definitions()...)
	}
	return defs
}

// Execute routes a call to the tool that defines name. An unregistered
// name is a soft error the model can recover from, not a run failure.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	t, ok := r.byName[name]
	if !ok {
		return ToolResult{Error: "unknown tool: " + name}, nil
	}
	return t.Execute(ctx, name, args)
}
