package vitrail

import (
	"context"
	"sort"
	"sync"
)

// MemoryWindowStore is an in-process WindowStore. Windows live for the
// duration of the process; nothing is persisted. Safe for concurrent use.
type MemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[string]Window
}

var _ WindowStore = (*MemoryWindowStore)(nil)

// NewMemoryWindowStore creates an empty in-memory store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]Window)}
}

func (s *MemoryWindowStore) Create(_ context.Context, w Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.ID] = w
	return nil
}

func (s *MemoryWindowStore) Get(_ context.Context, id string) (Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[id]
	if !ok {
		return Window{}, ErrWindowNotFound
	}
	return w, nil
}

func (s *MemoryWindowStore) GetByName(_ context.Context, name string) (Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.windows {
		if w.Name == name {
			return w, nil
		}
	}
	return Window{}, ErrWindowNotFound
}

func (s *MemoryWindowStore) List(_ context.Context) ([]Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryWindowStore) UpdateMarkup(_ context.Context, id, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	w.Markup = markup
	s.windows[id] = w
	return nil
}

func (s *MemoryWindowStore) UpdateTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	w.Title = title
	s.windows[id] = w
	return nil
}

func (s *MemoryWindowStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, id)
	return nil
}

func (s *MemoryWindowStore) Init(context.Context) error { return nil }

func (s *MemoryWindowStore) Close() error { return nil }
