package vitrail

import "encoding/json"

// --- LLM protocol types ---

// Message is a single conversation turn. Turns are append-only: once a
// message enters a history slice it is never mutated, only followed.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a completed, named invocation the model requested.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// ChatRequest is a provider-agnostic chat request.
type ChatRequest struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// ChatResponse is the consolidated final result of one model turn.
// When the turn was streamed, Usage carries the authoritative figures
// from the provider's final chunk rather than per-fragment accumulation.
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Usage holds token counts for a single step. The orchestration loop
// overwrites it each step; callers read the last-step value at loop exit.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ToolDefinition describes one callable tool exposed to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// --- Windows ---

// Window is one independently rendered, sandboxed markup document the
// agent creates or edits. Name is the collision-checked display name from
// creation; Title is the mutable display title.
type Window struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Markup    string `json:"markup"`
	CreatedAt int64  `json:"created_at"`
}

// WindowEvent is a structured interaction message emitted by a rendered
// window (a button press, a form submit) that re-enters the loop as a
// synthesized user turn.
type WindowEvent struct {
	Kind     string          `json:"kind"` // always "window-event"
	Event    string          `json:"event"` // "action" or "submit"
	WindowID string          `json:"windowId"`
	Action   string          `json:"action,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

// --- Message constructors ---

func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: "assistant", Content: text}
}

func ToolResultMessage(callID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: callID}
}
