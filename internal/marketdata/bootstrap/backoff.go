package bootstrap

import "time"

// maxShift caps the exponent so the shift cannot overflow int64 nanoseconds;
// the cap clamp below brings any clamped value back into range.
const maxShift = 32

// DelayForAttempt returns the wait before retrying after the given failed
// attempt: min(base * 2^(attempt-1), cap). Attempt 1 is the first retry.
// The sequence is deterministic and non-decreasing until it reaches the cap.
func DelayForAttempt(attempt int, base, ceiling time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}

	delay := base << shift
	if delay > ceiling || delay <= 0 {
		return ceiling
	}
	return delay
}
