package vitrail

import "context"

// Provider abstracts the LLM backend.
type Provider interface {
	// Chat sends a request and returns a complete response. When
	// req.Tools is non-empty, the response may contain tool calls.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream streams normalized events into ch (text-delta,
	// tool-call, tool-input-delta), then returns the consolidated final
	// response with authoritative usage figures. Implementations close
	// ch when the stream ends, on every path.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- StreamEvent) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
}
