package vitrail

import "context"

// WindowStore abstracts window persistence. The host owns the store; the
// orchestration loop and tool dispatcher receive it by reference and never
// retain window copies beyond the scope of one operation.
type WindowStore interface {
	// Create stores a new window. The caller assigns the id.
	Create(ctx context.Context, w Window) error
	// Get returns the window with the given id, or ErrWindowNotFound.
	Get(ctx context.Context, id string) (Window, error)
	// GetByName returns the window with the given display name, or
	// ErrWindowNotFound. Names are unique per store (creation
	// disambiguates collisions).
	GetByName(ctx context.Context, name string) (Window, error)
	// List returns all windows ordered by creation time.
	List(ctx context.Context) ([]Window, error)
	// UpdateMarkup replaces the window's serialized markup.
	UpdateMarkup(ctx context.Context, id, markup string) error
	// UpdateTitle replaces the window's display title.
	UpdateTitle(ctx context.Context, id, title string) error
	// Delete removes the window. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error

	// Init prepares backing storage (creates tables for SQL stores).
	Init(ctx context.Context) error
	Close() error
}
