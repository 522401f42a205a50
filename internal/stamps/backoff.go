package stamps

import (
	"math"
	"time"
)

// Backoff returns the wait before retry number attempt (0-based),
// doubling from base and capped at max. A max of 0 means no cap.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	shift := min(attempt, 62)
	if shift < 0 {
		shift = 0
	}

	delay := time.Duration(math.MaxInt64)
	if base <= time.Duration(math.MaxInt64>>shift) {
		delay = base << shift
	}
	if max > 0 {
		return min(delay, max)
	}
	return delay
}
