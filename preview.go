package vitrail

import (
	"sync"
	"time"
)

// PreviewFunc receives a scheduled preview write. callID identifies the
// streaming tool call that produced it; windowID is empty for a window
// still being created (hosts stage those by call id).
type PreviewFunc func(callID, windowID, markup string)

// PreviewScheduler debounces live preview writes produced from streamed
// partial tool-call arguments, and guarantees that a pending preview for
// a call never lands after that call's confirmed, authoritative
// dispatch: the orchestration loop calls Cancel immediately before
// dispatching. Safe for concurrent use.
type PreviewScheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	apply   PreviewFunc
	pending map[string]*previewEntry // keyed by tool call id
}

type previewEntry struct {
	timer    *time.Timer
	windowID string
	markup   string
}

// NewPreviewScheduler creates a scheduler that delivers each call's most
// recent preview after delay of quiet, via apply. A delay of zero still
// defers delivery to a timer goroutine, keeping Schedule non-blocking.
func NewPreviewScheduler(delay time.Duration, apply PreviewFunc) *PreviewScheduler {
	return &PreviewScheduler{
		delay:   delay,
		apply:   apply,
		pending: make(map[string]*previewEntry),
	}
}

// Schedule records the latest preview markup for a call, resetting any
// previous pending write for the same call.
func (s *PreviewScheduler) Schedule(callID, windowID, markup string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[callID]; ok {
		e.timer.Stop()
	}
	e := &previewEntry{windowID: windowID, markup: markup}
	e.timer = time.AfterFunc(s.delay, func() { s.fire(callID, e) })
	s.pending[callID] = e
}

// fire delivers a preview unless it was cancelled or superseded.
func (s *PreviewScheduler) fire(callID string, e *previewEntry) {
	s.mu.Lock()
	if s.pending[callID] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, callID)
	s.mu.Unlock()
	s.apply(callID, e.windowID, e.markup)
}

// Cancel discards any pending preview for the call. Called by the loop
// before the call's confirmed dispatch.
func (s *PreviewScheduler) Cancel(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[callID]; ok {
		e.timer.Stop()
		delete(s.pending, callID)
	}
}

// CancelAll discards every pending preview (run teardown).
func (s *PreviewScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
}
