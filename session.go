package vitrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vitrail/heal"
	"vitrail/partialjson"
)

// Session owns one end-user conversation: the append-only turn history,
// the tool set, and the single-in-flight guard. Only one run may be
// active per session; a new input while a run is in flight returns
// ErrBusy (reject, not queue).
//
// Conversation state lives for the life of the Session and is not
// persisted anywhere.
type Session struct {
	provider Provider
	windows  WindowStore
	registry *ToolRegistry
	system   string
	maxSteps int
	logger   *slog.Logger
	tracer   Tracer
	previews *PreviewScheduler

	mu       sync.Mutex
	history  []Message
	inFlight bool

	// Per-call argument buffers for live previews, discarded at run end.
	bufMu   sync.Mutex
	argBufs map[string]*strings.Builder
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionSystemPrompt sets the system instructions for every run.
func WithSessionSystemPrompt(prompt string) SessionOption {
	return func(s *Session) { s.system = prompt }
}

// WithSessionTools registers tools (typically tools/window.New(store)).
func WithSessionTools(tools ...Tool) SessionOption {
	return func(s *Session) {
		for _, t := range tools {
			s.registry.Add(t)
		}
	}
}

// WithSessionMaxSteps overrides the step budget (default DefaultMaxSteps).
func WithSessionMaxSteps(n int) SessionOption {
	return func(s *Session) { s.maxSteps = n }
}

// WithSessionLogger sets the structured logger for run lifecycle events.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithSessionTracer enables span-based tracing for runs.
func WithSessionTracer(t Tracer) SessionOption {
	return func(s *Session) { s.tracer = t }
}

// WithSessionPreviews enables live markup previews: as html-bearing tool
// arguments stream in, the healed prefix is delivered through sched.
// Pending previews for a call are cancelled before its confirmed
// dispatch.
func WithSessionPreviews(sched *PreviewScheduler) SessionOption {
	return func(s *Session) { s.previews = sched }
}

// NewSession creates a session over provider and windows.
func NewSession(provider Provider, windows WindowStore, opts ...SessionOption) *Session {
	s := &Session{
		provider: provider,
		windows:  windows,
		registry: NewToolRegistry(),
		logger:   nopLogger,
		argBufs:  make(map[string]*strings.Builder),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns a copy of the conversation turns so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// Windows returns the session's window store.
func (s *Session) Windows() WindowStore { return s.windows }

// Send appends a user turn and starts a run. Returns ErrBusy if a run
// is already in flight.
func (s *Session) Send(ctx context.Context, text string) (*RunHandle, error) {
	return s.start(ctx, UserMessage(text))
}

// HandleWindowEvent turns an interaction captured from a rendered
// window into a synthesized user turn and starts a run.
func (s *Session) HandleWindowEvent(ctx context.Context, ev WindowEvent) (*RunHandle, error) {
	if ev.Kind != "window-event" {
		return nil, fmt.Errorf("vitrail: unexpected event kind %q", ev.Kind)
	}
	return s.start(ctx, UserMessage(s.describeWindowEvent(ev)))
}

// describeWindowEvent renders a window interaction as text the model
// can act on.
func (s *Session) describeWindowEvent(ev WindowEvent) string {
	label := ev.WindowID
	if w, err := s.windows.Get(context.Background(), ev.WindowID); err == nil {
		label = fmt.Sprintf("%s (%q)", ev.WindowID, w.Title)
	}
	var b strings.Builder
	switch ev.Event {
	case "submit":
		fmt.Fprintf(&b, "The user submitted a form in window %s.", label)
	default:
		fmt.Fprintf(&b, "The user triggered action %q in window %s.", ev.Action, label)
	}
	if len(ev.Details) > 0 && string(ev.Details) != "null" {
		fmt.Fprintf(&b, " Details: %s", compactJSON(ev.Details))
	}
	b.WriteString(" Update the window accordingly.")
	return b.String()
}

func compactJSON(raw json.RawMessage) string {
	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return string(raw)
	}
	return b.String()
}

// start claims the in-flight slot, snapshots history plus the new turn,
// and launches the loop. The turn is committed to history immediately:
// turns are append-only even if the run later fails.
func (s *Session) start(ctx context.Context, turn Message) (*RunHandle, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.inFlight = true
	s.history = append(s.history, turn)
	snapshot := append([]Message(nil), s.history...)
	s.mu.Unlock()

	cfg := Config{
		Provider:     s.provider,
		Tools:        s.registry,
		SystemPrompt: s.system,
		MaxSteps:     s.maxSteps,
		Logger:       s.logger,
		Tracer:       s.tracer,
		Previews:     s.previews,
	}
	if s.previews != nil {
		cfg.OnEvent = s.observeEvent
	}

	h := Run(ctx, cfg, snapshot)
	go func() {
		<-h.Done()
		s.finishRun(h)
	}()
	return h, nil
}

// finishRun appends the loop's turns to history and releases the
// in-flight slot.
func (s *Session) finishRun(h *RunHandle) {
	res, err := h.Await(context.Background())

	if s.previews != nil {
		s.previews.CancelAll()
	}
	s.bufMu.Lock()
	s.argBufs = make(map[string]*strings.Builder)
	s.bufMu.Unlock()

	s.mu.Lock()
	s.history = append(s.history, res.NewMessages...)
	s.inFlight = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("run failed", "run_id", h.ID(), "error", err)
		return
	}
	s.logger.Info("run finished", "run_id", h.ID(),
		"reason", res.FinishReason, "steps", len(res.Steps),
		"tokens.input", res.Usage.InputTokens, "tokens.output", res.Usage.OutputTokens)
}

// htmlPreviewTools are the calls whose streamed arguments carry a whole
// document in an "html" field worth previewing as it grows.
var htmlPreviewTools = map[string]bool{
	"create_new_window": true,
	"set_window_html":   true,
}

// observeEvent accumulates streamed argument fragments and schedules a
// healed preview whenever the html field has grown.
func (s *Session) observeEvent(ev StreamEvent) {
	if ev.Type != EventToolInputDelta || !htmlPreviewTools[ev.Name] {
		return
	}

	s.bufMu.Lock()
	buf, ok := s.argBufs[ev.ID]
	if !ok {
		buf = &strings.Builder{}
		s.argBufs[ev.ID] = buf
	}
	buf.WriteString(ev.Content)
	args := buf.String()
	s.bufMu.Unlock()

	markup, started := partialjson.StringFieldPrefix(args, "html")
	if !started || markup == "" {
		return
	}
	// For set_window_html the target id completes early in the
	// argument stream; for a window still being created it stays empty
	// and the host stages the preview by call id.
	windowID, _ := partialjson.StringField(args, "windowId")
	s.previews.Schedule(ev.ID, windowID, heal.Document(markup))
}
