package vitrail

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// scriptProvider replays a fixed sequence of responses, one per
// ChatStream call, emitting the normalized events a real streaming
// backend would produce. It records every request it receives.
type scriptProvider struct {
	mu        sync.Mutex
	responses []ChatResponse
	errs      []error // parallel to responses; nil entries mean success
	calls     int
	requests  []ChatRequest
}

func (p *scriptProvider) Name() string { return "script" }

func (p *scriptProvider) take(req ChatRequest) (ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	var resp ChatResponse
	if i < len(p.responses) {
		resp = p.responses[i]
	}
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return resp, err
}

func (p *scriptProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	return p.take(req)
}

func (p *scriptProvider) ChatStream(_ context.Context, req ChatRequest, ch chan<- StreamEvent) (ChatResponse, error) {
	defer close(ch)
	resp, err := p.take(req)
	if err != nil {
		return ChatResponse{}, err
	}
	// Text first, two characters at a time, as a crude delta stream.
	for c := resp.Content; c != ""; {
		n := min(2, len(c))
		ch <- StreamEvent{Type: EventTextDelta, Content: c[:n]}
		c = c[n:]
	}
	for _, tc := range resp.ToolCalls {
		ch <- StreamEvent{Type: EventToolCall, ID: tc.ID, Name: tc.Name}
		// Arguments arrive in fragments.
		args := string(tc.Args)
		for a := args; a != ""; {
			n := min(8, len(a))
			ch <- StreamEvent{Type: EventToolInputDelta, ID: tc.ID, Name: tc.Name, Content: a[:n]}
			a = a[n:]
		}
	}
	return resp, nil
}

var _ Provider = (*scriptProvider)(nil)

// recorderTool is a Tool that remembers every call it receives and
// answers from a canned map.
type recorderTool struct {
	mu      sync.Mutex
	names   []string
	calls   []json.RawMessage
	results map[string]ToolResult
}

func newRecorderTool() *recorderTool {
	return &recorderTool{results: make(map[string]ToolResult)}
}

func (r *recorderTool) respond(name string, res ToolResult) *recorderTool {
	r.results[name] = res
	return r
}

func (r *recorderTool) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{Name: "create_new_window", Description: "create a window"},
		{Name: "dom_replace", Description: "mutate a window"},
		{Name: "update_window_title", Description: "retitle a window"},
		{Name: "set_window_html", Description: "replace window markup"},
	}
}

func (r *recorderTool) Execute(_ context.Context, name string, args json.RawMessage) (ToolResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.calls = append(r.calls, args)
	if res, ok := r.results[name]; ok {
		return res, nil
	}
	return ToolResult{Content: `{"status":"ok"}`}, nil
}

func (r *recorderTool) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// drain collects every event from a handle's stream.
func drain(h *RunHandle) []StreamEvent {
	var evs []StreamEvent
	for ev := range h.Events() {
		evs = append(evs, ev)
	}
	return evs
}

// eventTypes renders an event list compactly for assertions.
func eventTypes(evs []StreamEvent) string {
	types := make([]string, len(evs))
	for i, ev := range evs {
		types[i] = string(ev.Type)
	}
	return strings.Join(types, ",")
}
