package supervisor

import "time"

// backoffSchedule returns the grab-retry delay for the given attempt
// (0-indexed), per §4.B: 100ms, 200ms, 400ms, 800ms, 1.6s, capped at
// 5s. maxAttempts bounds how many times the caller should retry before
// giving up.
const maxAttempts = 5

var backoffCap = 5 * time.Second

func backoffDelay(attempt int) time.Duration {
	d := 100 * time.Millisecond
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
