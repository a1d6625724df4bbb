package engine

import "time"

// maxBackoffShift caps the exponent so the delay cannot overflow
const maxBackoffShift = 20

// Backoff returns the delay before an item that has now failed attempts times
// becomes eligible again: base * 2^attempts.
func Backoff(attempts int, base time.Duration) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > maxBackoffShift {
		attempts = maxBackoffShift
	}
	return base * time.Duration(1<<uint(attempts))
}
