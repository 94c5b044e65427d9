package vitrail

import (
	"context"
	"encoding/json"
)

// ToolCallResult records one dispatched tool call and its outcome.
type ToolCallResult struct {
	CallID string          `json:"call_id"`
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Result string          `json:"result"`
	// IsError signals that Result carries an error message rather than a
	// successful tool result. Structural, so callers never resort to
	// string-prefix heuristics.
	IsError bool `json:"is_error,omitempty"`
	Step    int  `json:"step"`
}

// StepResult is the immutable record of one request/stream/dispatch
// cycle.
type StepResult struct {
	Index     int        `json:"index"`
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// RunResult holds the deferred values of a finished run.
type RunResult struct {
	// Text is the concatenation of all text deltas across steps
	// (possibly empty).
	Text string `json:"text"`
	// ToolResults aggregates every dispatched call, in dispatch order.
	ToolResults []ToolCallResult `json:"tool_results,omitempty"`
	// Usage is the LAST step's token counts, not a cumulative total.
	Usage Usage `json:"usage"`
	// FinishReason is "stop" for a natural end, "length" when the step
	// budget ran out with calls still pending, "error" on a terminal
	// transport failure.
	FinishReason string `json:"finish_reason"`
	// Steps holds one record per completed step.
	Steps []StepResult `json:"steps,omitempty"`
	// NewMessages are the conversation turns the loop appended
	// (assistant turns with tool calls, tool turns with results), for
	// callers that maintain session history.
	NewMessages []Message `json:"-"`
}

// RunHandle tracks an orchestration run. The event channel can be
// consumed before the run completes; the deferred values resolve exactly
// once, at loop termination (normal, bounded, or errored). All methods
// are safe for concurrent use.
type RunHandle struct {
	id     string
	events chan StreamEvent
	result RunResult
	err    error
	done   chan struct{}
}

func newRunHandle() *RunHandle {
	return &RunHandle{
		id:     NewID(),
		events: make(chan StreamEvent, 64),
		done:   make(chan struct{}),
	}
}

// finish resolves the deferred values. Result/err are written before
// close(done): the channel close is the happens-before barrier, so every
// reader blocking on done is guaranteed to observe them. Called exactly
// once, by the run goroutine.
func (h *RunHandle) finish(res RunResult, err error) {
	h.result = res
	h.err = err
	close(h.done)
}

// ID returns the unique run identifier (UUIDv7, time-sortable).
func (h *RunHandle) ID() string { return h.id }

// Events returns the live event stream. The channel is closed when the
// run terminates. To abandon the stream mid-run, cancel the context
// passed to Run; in-flight tool side effects already dispatched are not
// rolled back.
func (h *RunHandle) Events() <-chan StreamEvent { return h.events }

// Done returns a channel closed when the run finishes on any path.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Await blocks until the run completes or ctx is cancelled.
func (h *RunHandle) Await(ctx context.Context) (RunResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return RunResult{}, ctx.Err()
	}
}

// Text resolves to the accumulated assistant text once the run finishes.
func (h *RunHandle) Text(ctx context.Context) (string, error) {
	res, err := h.Await(ctx)
	return res.Text, err
}

// ToolResults resolves to the aggregated tool results once the run
// finishes.
func (h *RunHandle) ToolResults(ctx context.Context) ([]ToolCallResult, error) {
	res, err := h.Await(ctx)
	return res.ToolResults, err
}

// Usage resolves to the last step's token usage once the run finishes.
func (h *RunHandle) Usage(ctx context.Context) (Usage, error) {
	res, err := h.Await(ctx)
	return res.Usage, err
}
