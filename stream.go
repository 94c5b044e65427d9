package vitrail

import "encoding/json"

// StreamEventType identifies the kind of streaming event.
type StreamEventType string

const (
	// EventTextDelta carries an incremental text chunk from the LLM.
	EventTextDelta StreamEventType = "text-delta"
	// EventToolCall announces a tool call the model has started emitting.
	// Emitted exactly once per call id, before its arguments are complete.
	EventToolCall StreamEventType = "tool-call"
	// EventToolInputDelta carries an argument fragment for a streaming
	// tool call. Fragments concatenate into the call's argument JSON.
	EventToolInputDelta StreamEventType = "tool-input-delta"
	// EventToolResult carries the result of a dispatched tool call.
	EventToolResult StreamEventType = "tool-result"
	// EventFinishStep marks the end of one request/stream/dispatch cycle
	// and carries that step's token usage.
	EventFinishStep StreamEventType = "finish-step"
	// EventFinish marks loop termination and carries the finish reason
	// ("stop" for a natural end, "length" for step-budget exhaustion).
	EventFinish StreamEventType = "finish"
	// EventError carries a terminal transport or provider error.
	EventError StreamEventType = "error"
)

// Finish reasons carried by EventFinish.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// StreamEvent is a typed event emitted during a run. Consumers receive
// these on the channel returned by RunHandle.Events.
type StreamEvent struct {
	// Type identifies the event kind.
	Type StreamEventType `json:"type"`
	// ID is the provider-issued tool call id (tool events only).
	ID string `json:"id,omitempty"`
	// Name is the tool name (tool events only).
	Name string `json:"name,omitempty"`
	// Content carries the text delta (text-delta), argument fragment
	// (tool-input-delta), tool result (tool-result), finish reason
	// (finish), or error text (error).
	Content string `json:"content,omitempty"`
	// Args carries the completed call arguments (tool-result only).
	Args json.RawMessage `json:"args,omitempty"`
	// Usage carries the step's token usage (finish-step only).
	Usage Usage `json:"usage,omitzero"`
	// Step is the zero-based step index (finish-step and tool events).
	Step int `json:"step,omitempty"`
}
