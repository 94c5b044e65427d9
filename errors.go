package vitrail

import (
	"errors"
	"fmt"
	"time"
)

// ErrBusy is returned by Session when a run is already in flight.
// Only one orchestration loop may be active per session at a time.
var ErrBusy = errors.New("vitrail: a run is already in flight for this session")

// ErrWindowNotFound is returned by WindowStore implementations when no
// window exists for the given id or name.
var ErrWindowNotFound = errors.New("vitrail: window not found")

// ErrLLM is a provider-level failure (transport, auth, decode).
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from the provider endpoint.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration // parsed from the Retry-After header, 0 if absent
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
