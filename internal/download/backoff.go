package download

import (
	"math/rand/v2"
	"time"
)

// backoff computes the delay before retry attempt n (0-based). The
// base doubles each attempt with up to 50% added jitter, capped at
// maxDelay. Because the jittered maximum of attempt n (1.5x) never
// exceeds the un-jittered base of attempt n+1 (2x), successive delays
// never decrease.
func backoff(n int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	d := base << uint(n)
	if d <= 0 || d > maxDelay {
		// Shift overflow or past the cap.
		return maxDelay
	}

	jittered := time.Duration(float64(d) * (1 + rand.Float64()*0.5))
	if jittered > maxDelay {
		return maxDelay
	}
	return jittered
}
