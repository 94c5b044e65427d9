// Package vitrail is a streaming tool-call orchestration engine for
// conversational agents that build and mutate small self-contained HTML
// "windows" in Go.
//
// It provides the pieces between a streaming chat-completion provider and a
// host that renders windows: a normalized stream decoder, a partial-JSON
// field extractor for live previews, a markup healer that turns truncated
// HTML prefixes into parseable documents, a selector-scoped mutation
// executor, and a bounded multi-step orchestration loop with deferred
// results.
//
// # Quick Start
//
//	provider := openaicompat.NewProvider(apiKey, model, baseURL)
//	windows := vitrail.NewMemoryWindowStore()
//
//	session := vitrail.NewSession(provider, windows,
//		vitrail.WithSessionSystemPrompt(prompt),
//	)
//
//	handle, err := session.Send(ctx, "Build me a pomodoro timer")
//	for ev := range handle.Events() {
//		// render text deltas, previews, tool results
//	}
//	text, _ := handle.Text(ctx)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Provider] — streaming LLM backend (chat, tool calling)
//   - [WindowStore] — window persistence (in-memory here, SQLite and
//     PostgreSQL under store/)
//   - [Tool] — pluggable capability for LLM function calling
//   - [Tracer] — optional span-based tracing (OTEL-backed in observer/)
//
// # Included Implementations
//
// Providers: provider/openaicompat (any OpenAI-compatible API).
// Storage: store/sqlite (local), store/postgres.
// Tools: tools/window (the four window-building operations).
// Parsing helpers: partialjson (incremental field extraction), heal
// (truncated-markup healing), dom (selector-scoped mutations).
//
// See the cmd/vitrail directory for a complete reference CLI.
package vitrail
