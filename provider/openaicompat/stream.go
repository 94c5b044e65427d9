package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"vitrail"
)

// DecodeStream reads an SSE stream from body, emits normalized events to
// ch, and returns the consolidated final response (content + tool calls
// + usage).
//
// Normalized events:
//   - text-delta for each content fragment
//   - tool-call exactly once per call id, however many fragments
//     announce its name
//   - tool-input-delta for each argument fragment
//
// Multiple concurrently-streaming tool calls are tracked by position
// index. Usage from later chunks overwrites earlier snapshots, so the
// consolidated usage-bearing final chunk wins over per-fragment
// accumulation. A malformed chunk is skipped, never a failure.
//
// The channel is closed when streaming completes, on every path. Callers
// should read from ch in a separate goroutine. The context cancels
// channel sends if the consumer is no longer interested.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	data: [DONE]\n
func DecodeStream(ctx context.Context, body io.Reader, ch chan<- vitrail.StreamEvent) (vitrail.ChatResponse, error) {
	defer close(ch)

	scanner := bufio.NewScanner(body)
	// Increase buffer for large SSE payloads.
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var fullContent strings.Builder
	var usage vitrail.Usage

	// Per-call streaming state, keyed by position index, alive only for
	// the duration of this step.
	type partialToolCall struct {
		ID      string
		Name    string
		Args    strings.Builder
		Started bool
	}
	var toolCalls []*partialToolCall

	emit := func(ev vitrail.StreamEvent) error {
		select {
		case ch <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		// SSE lines that carry data start with "data: ".
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		// End-of-stream sentinel.
		if data == "[DONE]" {
			break
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks.
			continue
		}

		// Usage snapshots may ride on any chunk, including choice-less
		// usage-only chunks some providers send last.
		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta == nil {
			continue
		}

		if delta.Content != "" {
			fullContent.WriteString(delta.Content)
			if err := emit(vitrail.StreamEvent{Type: vitrail.EventTextDelta, Content: delta.Content}); err != nil {
				return vitrail.ChatResponse{}, err
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := tc.Index
			if idx < 0 {
				continue
			}
			for len(toolCalls) <= idx {
				toolCalls = append(toolCalls, &partialToolCall{})
			}
			slot := toolCalls[idx]

			if tc.ID != "" {
				slot.ID = tc.ID
			}
			if tc.Function.Name != "" {
				slot.Name = tc.Function.Name
			}
			if !slot.Started && slot.Name != "" {
				slot.Started = true
				if err := emit(vitrail.StreamEvent{Type: vitrail.EventToolCall, ID: slot.ID, Name: slot.Name}); err != nil {
					return vitrail.ChatResponse{}, err
				}
			}
			if tc.Function.Arguments != "" {
				slot.Args.WriteString(tc.Function.Arguments)
				if err := emit(vitrail.StreamEvent{
					Type:    vitrail.EventToolInputDelta,
					ID:      slot.ID,
					Name:    slot.Name,
					Content: tc.Function.Arguments,
				}); err != nil {
					return vitrail.ChatResponse{}, err
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return vitrail.ChatResponse{}, err
	}

	// Build consolidated tool calls. Per-fragment state is discarded once
	// this returns.
	var calls []vitrail.ToolCall
	for _, tc := range toolCalls {
		if !tc.Started {
			continue
		}
		args := json.RawMessage(tc.Args.String())
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		calls = append(calls, vitrail.ToolCall{ID: tc.ID, Name: tc.Name, Args: args})
	}

	return vitrail.ChatResponse{
		Content:   fullContent.String(),
		ToolCalls: calls,
		Usage:     usage,
	}, nil
}
