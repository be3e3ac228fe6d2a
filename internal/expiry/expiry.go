// Package expiry implements the flat validity window of an event's RSVP link.
package expiry

import (
	"fmt"
	"time"
)

// DefaultWindow is how long an RSVP link stays open after the event is created.
const DefaultWindow = time.Hour

// Remaining returns the whole seconds left in the window, never negative.
// Elapsed time is floored to whole seconds, so the link closes exactly when
// window seconds have passed. A createdAt in the future yields the full window.
func Remaining(createdAt, now time.Time, window time.Duration) int64 {
	total := int64(window / time.Second)
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		return total
	}
	left := total - int64(elapsed/time.Second)
	if left < 0 {
		return 0
	}
	return left
}

func IsExpired(createdAt, now time.Time, window time.Duration) bool {
	return Remaining(createdAt, now, window) == 0
}

// Policy binds a window to the expiry arithmetic.
type Policy struct {
	Window time.Duration
}

func NewPolicy(window time.Duration) Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	return Policy{Window: window}
}

func (p Policy) Remaining(createdAt, now time.Time) int64 {
	return Remaining(createdAt, now, p.Window)
}

func (p Policy) Expired(createdAt, now time.Time) bool {
	return IsExpired(createdAt, now, p.Window)
}

// OpenAfter returns the cutoff for stores: an event is still open at now
// when its createdAt is strictly after the returned instant.
func (p Policy) OpenAfter(now time.Time) time.Time {
	return now.Add(-p.Window)
}

// Deadline converts the remaining seconds reported by the server at
// observedAt into a local instant.
func Deadline(remainingSeconds int64, observedAt time.Time) time.Time {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	return observedAt.Add(time.Duration(remainingSeconds) * time.Second)
}

// Until returns the whole seconds left before deadline, rounded up and
// never negative. Rounding up matches Remaining at the instant of observation.
func Until(deadline, now time.Time) int64 {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int64((left + time.Second - 1) / time.Second)
}

// Format renders seconds as the hh:mm:ss countdown shown to voters.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
