package openaicompat

import (
	"encoding/json"

	"vitrail"
)

// ParseResponse converts an OpenAI-format ChatResponse to a vitrail
// ChatResponse. It extracts content, tool calls, and usage from
// choices[0].
func ParseResponse(resp ChatResponse) (vitrail.ChatResponse, error) {
	var out vitrail.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	if choice.Message != nil {
		out.Content = choice.Message.Content
		out.ToolCalls = ParseToolCalls(choice.Message.ToolCalls)
	}

	if resp.Usage != nil {
		out.Usage = vitrail.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out, nil
}

// ParseToolCalls converts OpenAI tool call requests to vitrail ToolCalls.
// OpenAI returns function.arguments as a JSON string. Arguments that are
// not valid JSON at completion time become empty-object arguments so the
// call can still be dispatched and report a result instead of crashing
// the step.
func ParseToolCalls(tcs []ToolCallRequest) []vitrail.ToolCall {
	if len(tcs) == 0 {
		return nil
	}

	out := make([]vitrail.ToolCall, 0, len(tcs))
	for _, tc := range tcs {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		out = append(out, vitrail.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out
}
