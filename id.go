package vitrail

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh window or call identifier. UUIDv7 so that ids
// created later sort later, which keeps store listings stable.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns the current time as Unix seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
