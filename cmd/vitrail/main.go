// Command vitrail is an interactive shell around a window-building
// session: type a prompt, watch the model stream text and tool calls,
// and find the resulting windows written next to the transcript.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	vitrail "vitrail"
	"vitrail/frontend/canvas"
	"vitrail/internal/config"
	"vitrail/observer"
	"vitrail/provider/openaicompat"
	"vitrail/store/postgres"
	"vitrail/store/sqlite"
	"vitrail/tools/window"
)

const systemPrompt = `You build and maintain small interactive HTML windows for the user.
Create windows with create_new_window, update them with dom_replace for
small changes and set_window_html for rewrites, and keep titles current
with update_window_title. Reply with a short confirmation when done.`

func main() {
	ctx := context.Background()
	cfg := config.Load(os.Getenv("VITRAIL_CONFIG"))
	if cfg.LLM.APIKey == "" {
		log.Fatal("no API key: set VITRAIL_API_KEY or llm.api_key in vitrail.toml")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var llm vitrail.Provider = openaicompat.NewProvider(
		cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL,
		openaicompat.WithLogger(logger),
	)
	llm = vitrail.WithRetry(llm, vitrail.RetryLogger(logger))

	var tracer vitrail.Tracer
	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			log.Fatalf("observer: %v", err)
		}
		defer shutdown(context.Background())
		llm = observer.WrapProvider(llm, cfg.LLM.Model, inst)
		tracer = observer.NewTracer()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	opts := []vitrail.SessionOption{
		vitrail.WithSessionSystemPrompt(systemPrompt),
		vitrail.WithSessionTools(window.New(store)),
		vitrail.WithSessionMaxSteps(cfg.Loop.MaxSteps),
		vitrail.WithSessionLogger(logger),
	}
	if tracer != nil {
		opts = append(opts, vitrail.WithSessionTracer(tracer))
	}
	if cfg.Preview.Enabled {
		previews := vitrail.NewPreviewScheduler(
			time.Duration(cfg.Preview.DelayMs)*time.Millisecond,
			func(callID, windowID, markup string) {
				fmt.Fprintf(os.Stderr, "\r[preview %s: %d bytes]", previewTarget(callID, windowID), len(markup))
			})
		opts = append(opts, vitrail.WithSessionPreviews(previews))
	}
	session := vitrail.NewSession(llm, store, opts...)

	fmt.Println("vitrail: describe a window to build (ctrl-d to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if err := runPrompt(ctx, session, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		writePage(ctx, session)
	}
}

func runPrompt(ctx context.Context, session *vitrail.Session, prompt string) error {
	h, err := session.Send(ctx, prompt)
	if err != nil {
		return err
	}

	for ev := range h.Events() {
		switch ev.Type {
		case vitrail.EventTextDelta:
			fmt.Print(ev.Content)
		case vitrail.EventToolCall:
			fmt.Printf("\n[%s]", ev.Name)
		case vitrail.EventToolResult:
			fmt.Print(" done")
		case vitrail.EventFinishStep:
			fmt.Println()
		}
	}

	res, err := h.Await(ctx)
	if err != nil {
		return err
	}
	if res.FinishReason == vitrail.FinishLength {
		fmt.Println("(stopped: step budget exhausted)")
	}
	return nil
}

// writePage renders the transcript and all windows to vitrail.html.
func writePage(ctx context.Context, session *vitrail.Session) {
	windows, err := session.Windows().List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list windows: %v\n", err)
		return
	}
	page := canvas.NewRenderer().Page("vitrail", session.History(), windows)
	path := filepath.Join(".", "vitrail.html")
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write page: %v\n", err)
		return
	}
	fmt.Printf("(%d window(s) -> %s)\n", len(windows), path)
}

func openStore(ctx context.Context, cfg config.Config) (vitrail.WindowStore, error) {
	switch cfg.Database.Driver {
	case "", "memory":
		return vitrail.NewMemoryWindowStore(), nil
	case "sqlite":
		s := sqlite.New(cfg.Database.Path)
		if err := s.Init(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		s := postgres.New(pool)
		if err := s.Init(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func previewTarget(callID, windowID string) string {
	if windowID != "" {
		return windowID
	}
	return "pending " + callID
}
