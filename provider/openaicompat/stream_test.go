package openaicompat

import (
	"context"
	"strings"
	"testing"

	"vitrail"
)

// buildSSE constructs a mock SSE stream from data lines.
func buildSSE(lines ...string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func collectStream(t *testing.T, sse string) (vitrail.ChatResponse, []vitrail.StreamEvent) {
	t.Helper()
	ch := make(chan vitrail.StreamEvent, 64)
	resp, err := DecodeStream(context.Background(), strings.NewReader(sse), ch)
	if err != nil {
		t.Fatalf("DecodeStream returned error: %v", err)
	}
	var events []vitrail.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return resp, events
}

func TestDecodeStream_TextChunks(t *testing.T) {
	sse := buildSSE(
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":"Hello"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{"content":" world"}}]}`,
		`{"id":"chatcmpl-1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`,
		"[DONE]",
	)
	resp, events := collectStream(t, sse)

	if resp.Content != "Hello world" {
		t.Errorf("content = %q", resp.Content)
	}
	var deltas int
	for _, ev := range events {
		if ev.Type == vitrail.EventTextDelta {
			deltas++
		}
	}
	if deltas != 2 {
		t.Errorf("expected 2 text deltas, got %d: %v", deltas, events)
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestDecodeStream_ToolCallStartDeduplicated(t *testing.T) {
	// The name rides on several fragments; tool-call must fire once.
	sse := buildSSE(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"create_new_window","arguments":""}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"create_new_window","arguments":"{\"name\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"Timer\"}"}}]}}]}`,
		"[DONE]",
	)
	resp, events := collectStream(t, sse)

	var starts, argDeltas int
	for _, ev := range events {
		switch ev.Type {
		case vitrail.EventToolCall:
			starts++
			if ev.ID != "call_1" || ev.Name != "create_new_window" {
				t.Errorf("tool-call event = %+v", ev)
			}
		case vitrail.EventToolInputDelta:
			argDeltas++
		}
	}
	if starts != 1 {
		t.Errorf("tool-call emitted %d times, want 1", starts)
	}
	if argDeltas != 2 {
		t.Errorf("tool-input-delta emitted %d times, want 2", argDeltas)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if got := string(resp.ToolCalls[0].Args); got != `{"name":"Timer"}` {
		t.Errorf("args = %s", got)
	}
}

func TestDecodeStream_MultipleConcurrentToolCalls(t *testing.T) {
	sse := buildSSE(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"set_window_html","arguments":"{\"a\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"update_window_title","arguments":"{\"b\":"}}]}}]}`,
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}},{"index":1,"function":{"arguments":"2}"}}]}}]}`,
		"[DONE]",
	)
	resp, _ := collectStream(t, sse)

	if len(resp.ToolCalls) != 2 {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].ID != "call_a" || string(resp.ToolCalls[0].Args) != `{"a":1}` {
		t.Errorf("call 0 = %+v", resp.ToolCalls[0])
	}
	if resp.ToolCalls[1].ID != "call_b" || string(resp.ToolCalls[1].Args) != `{"b":2}` {
		t.Errorf("call 1 = %+v", resp.ToolCalls[1])
	}
}

func TestDecodeStream_MalformedChunksSkipped(t *testing.T) {
	sse := buildSSE(
		`{"choices":[{"index":0,"delta":{"content":"ok"}}]}`,
		`{this is not json`,
		`{"unexpected":"shape"}`,
		`{"choices":[{"index":0,"delta":{"content":"!"}}]}`,
		"[DONE]",
	)
	resp, _ := collectStream(t, sse)
	if resp.Content != "ok!" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestDecodeStream_FinalUsageChunkWins(t *testing.T) {
	// Per-chunk snapshots get overwritten by the consolidated final
	// usage-only chunk.
	sse := buildSSE(
		`{"choices":[{"index":0,"delta":{"content":"x"}}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`,
		`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":7,"total_tokens":17}}`,
		"[DONE]",
	)
	resp, _ := collectStream(t, sse)
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestDecodeStream_InvalidArgsBecomeEmptyObject(t *testing.T) {
	sse := buildSSE(
		`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"dom_replace","arguments":"{\"mutations\":["}}]}}]}`,
		"[DONE]",
	)
	resp, _ := collectStream(t, sse)
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if got := string(resp.ToolCalls[0].Args); got != `{}` {
		t.Errorf("args = %s, want {}", got)
	}
}

func TestDecodeStream_ChannelClosed(t *testing.T) {
	ch := make(chan vitrail.StreamEvent, 4)
	_, err := DecodeStream(context.Background(), strings.NewReader(buildSSE("[DONE]")), ch)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if _, open := <-ch; open {
		t.Error("channel left open after stream end")
	}
}
