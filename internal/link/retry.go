package link

import (
	"time"

	"grimm.is/qdiscwatch/internal/clock"
)

// Forever calls fn until it returns nil, sleeping backoff between failed
// attempts, and returns the number of attempts made. onFailure, if non-nil,
// is called after each failed attempt.
//
// There is no attempt limit and no way to cancel. It is used for bringing
// the interface back up, where giving up would leave it down.
func Forever(sleeper clock.Sleeper, backoff time.Duration, fn func(attempt int) error, onFailure func(attempt int, err error)) int {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return attempt
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if backoff > 0 {
			sleeper.Sleep(backoff)
		}
	}
}
