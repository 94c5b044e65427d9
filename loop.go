package vitrail

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultMaxSteps bounds the orchestration loop. Twelve tool-calling
// steps is enough for any sane window-building exchange; the bound
// guarantees termination even if the model loops on tool calls forever.
const DefaultMaxSteps = 12

// FinishError is the RunResult finish reason for a terminal transport or
// provider failure.
const FinishError = "error"

// Config holds everything a run needs.
type Config struct {
	// Provider is the streaming LLM backend. Required.
	Provider Provider
	// Tools dispatches completed tool calls. Optional; a run without
	// tools terminates after its first step.
	Tools *ToolRegistry
	// SystemPrompt, when non-empty, is prepended as a system turn.
	SystemPrompt string
	// MaxSteps bounds the loop (default DefaultMaxSteps).
	MaxSteps int
	// Logger receives structured run logs (default: discard).
	Logger *slog.Logger
	// Tracer creates run/step/dispatch spans (nil = no tracing).
	Tracer Tracer
	// Previews, when set, has its pending write for a call cancelled
	// before that call's confirmed dispatch, so a stale preview can
	// never land after the authoritative mutation.
	Previews *PreviewScheduler
	// OnEvent observes every emitted event before it is forwarded to
	// the handle's channel. Used by Session for live previews.
	OnEvent func(StreamEvent)
}

// Run starts the orchestration loop over history (which must already
// include the newest user turn) and returns immediately with a handle
// for consuming events and awaiting the deferred values.
func Run(ctx context.Context, cfg Config, history []Message) *RunHandle {
	h := newRunHandle()
	go func() {
		res, err := runLoop(ctx, cfg, history, h.events, cfg.OnEvent)
		h.finish(res, err)
	}()
	return h
}

// runLoop drives repeated request/stream/dispatch cycles. Single logical
// flow of control: it suspends only at stream-read points and at tool
// dispatch points. Tool calls within one step run strictly in order,
// never in parallel, so a later call can depend on document state a
// former call wrote.
func runLoop(ctx context.Context, cfg Config, history []Message, out chan<- StreamEvent, observe func(StreamEvent)) (RunResult, error) {
	defer close(out)

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	registry := cfg.Tools
	if registry == nil {
		registry = NewToolRegistry()
	}

	emit := func(ev StreamEvent) {
		if observe != nil {
			observe(ev)
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			// Consumer gone and run cancelled; drop the event. The
			// deferred values still resolve.
		}
	}

	var messages []Message
	if cfg.SystemPrompt != "" {
		messages = append(messages, SystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, history...)
	baseLen := len(messages)

	toolDefs := registry.AllDefinitions()

	var res RunResult
	runCtx := ctx
	if cfg.Tracer != nil {
		var span Span
		runCtx, span = cfg.Tracer.Start(ctx, "run",
			IntAttr("max_steps", maxSteps),
			BoolAttr("has_tools", len(toolDefs) > 0))
		defer span.End()
	}

	for step := 0; step < maxSteps; step++ {
		stepCtx := runCtx
		var stepSpan Span
		if cfg.Tracer != nil {
			stepCtx, stepSpan = cfg.Tracer.Start(runCtx, "run.step", IntAttr("step", step))
		}
		endStep := func() {
			if stepSpan != nil {
				stepSpan.End()
			}
		}

		// Forward the provider's normalized events live, stamping the
		// step index.
		stepCh := make(chan StreamEvent, 64)
		forwarded := make(chan struct{})
		go func(step int) {
			defer close(forwarded)
			for ev := range stepCh {
				ev.Step = step
				emit(ev)
			}
		}(step)

		req := ChatRequest{Messages: messages, Tools: toolDefs}
		resp, err := cfg.Provider.ChatStream(stepCtx, req, stepCh)
		<-forwarded

		if err != nil {
			logger.Error("provider stream failed", "step", step, "error", err)
			if stepSpan != nil {
				stepSpan.Error(err)
			}
			endStep()
			emit(StreamEvent{Type: EventError, Content: err.Error(), Step: step})
			// Deferred values resolve to neutral defaults; retry policy
			// is the host's concern.
			return RunResult{FinishReason: FinishError}, err
		}

		res.Text += resp.Content
		res.Usage = resp.Usage // last step wins, by contract

		stepRec := StepResult{Index: step, Text: resp.Content, ToolCalls: resp.ToolCalls, Usage: resp.Usage}

		// No tool calls: the exchange is complete.
		if len(resp.ToolCalls) == 0 {
			res.Steps = append(res.Steps, stepRec)
			emit(StreamEvent{Type: EventFinishStep, Usage: resp.Usage, Step: step})
			endStep()
			res.FinishReason = FinishStop
			res.NewMessages = append([]Message(nil), messages[baseLen:]...)
			if resp.Content != "" {
				res.NewMessages = append(res.NewMessages, AssistantMessage(resp.Content))
			}
			emit(StreamEvent{Type: EventFinish, Content: FinishStop, Step: step})
			logger.Info("run finished", "steps", step+1, "reason", FinishStop)
			return res, nil
		}

		// One assistant turn carries all of the step's calls.
		messages = append(messages, Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			args := tc.Args
			// Unparseable arguments degrade to an empty object so the
			// call still reports a (likely erroneous) result instead of
			// crashing the step.
			if !json.Valid(args) {
				args = json.RawMessage(`{}`)
			}

			// A confirmed dispatch supersedes any preview still
			// scheduled for this call.
			if cfg.Previews != nil {
				cfg.Previews.Cancel(tc.ID)
			}

			dispatchCtx := stepCtx
			var dispatchSpan Span
			if cfg.Tracer != nil {
				dispatchCtx, dispatchSpan = cfg.Tracer.Start(stepCtx, "run.dispatch",
					StringAttr("tool", tc.Name), IntAttr("step", step))
			}
			start := time.Now()
			content, isErr := dispatchTool(dispatchCtx, registry, tc.Name, args)
			if dispatchSpan != nil {
				dispatchSpan.SetAttr(BoolAttr("error", isErr))
				dispatchSpan.End()
			}
			logger.Debug("tool dispatched",
				"tool", tc.Name, "call_id", tc.ID, "step", step,
				"duration", time.Since(start), "error", isErr)

			emit(StreamEvent{Type: EventToolResult, ID: tc.ID, Name: tc.Name, Content: content, Args: args, Step: step})

			res.ToolResults = append(res.ToolResults, ToolCallResult{
				CallID: tc.ID, Name: tc.Name, Args: args,
				Result: content, IsError: isErr, Step: step,
			})
			messages = append(messages, ToolResultMessage(tc.ID, content))
		}

		res.Steps = append(res.Steps, stepRec)
		emit(StreamEvent{Type: EventFinishStep, Usage: resp.Usage, Step: step})
		endStep()
	}

	// Step budget exhausted with calls still pending. An observable
	// boundary condition, not an error.
	logger.Warn("max steps reached", "max_steps", maxSteps)
	res.FinishReason = FinishLength
	res.NewMessages = append([]Message(nil), messages[baseLen:]...)
	emit(StreamEvent{Type: EventFinish, Content: FinishLength, Step: maxSteps - 1})
	return res, nil
}

// dispatchTool executes one call and folds tool-level errors into the
// result content, structurally flagged.
func dispatchTool(ctx context.Context, registry *ToolRegistry, name string, args json.RawMessage) (content string, isErr bool) {
	result, err := registry.Execute(ctx, name, args)
	if err != nil {
		return "error: " + err.Error(), true
	}
	if result.Error != "" {
		return "error: " + result.Error, true
	}
	return result.Content, false
}
