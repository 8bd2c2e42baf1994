package feed

import (
	"math/rand"
	"time"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// RetryDelay returns the backoff before the retry following attempt
// (0-based): min(base * 2^attempt + jitter, cap). Pure, so retry timing
// is testable without sleeping.
func RetryDelay(attempt int, jitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := retryBaseDelay << uint(attempt)
	if delay <= 0 || delay > retryMaxDelay {
		return retryMaxDelay
	}

	delay += jitter
	if delay > retryMaxDelay {
		return retryMaxDelay
	}
	return delay
}

// Jitter returns a random duration in [0, 1s).
func Jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(time.Second)))
}
