package backoff

import (
	"math"
	"time"
)

/* Strategy computes how long to wait before the next delivery attempt
 * Implementations are pure: the same attempt always yields the same delay
 * Attempts below 1 are clamped to 1, callers are expected to start counting at 1
 */
type Strategy interface {
	WaitSeconds(attempt int) int64
	Wait(attempt int) time.Duration
}

// MaxWaitSeconds caps every strategy so large attempts never overflow (7 days)
const MaxWaitSeconds int64 = 7 * 24 * 60 * 60

// Exponential waits Base^attempt seconds (10s, 100s, 1000s, ... for the default base)
type Exponential struct {
	Base int64
}

// WaitSeconds returns Base^attempt, saturating at MaxWaitSeconds
func (e Exponential) WaitSeconds(attempt int) int64 {
	attempt = clamp(attempt)
	base := e.Base
	if base < 2 {
		base = 10
	}

	wait := int64(1)
	for i := 0; i < attempt; i++ {
		if wait > MaxWaitSeconds/base {
			return MaxWaitSeconds
		}
		wait *= base
	}
	return wait
}

// Wait returns WaitSeconds as a duration
func (e Exponential) Wait(attempt int) time.Duration {
	return toDuration(e.WaitSeconds(attempt))
}

// Linear waits Step*attempt seconds
type Linear struct {
	Step int64
}

// WaitSeconds returns Step*attempt, saturating at MaxWaitSeconds
func (l Linear) WaitSeconds(attempt int) int64 {
	attempt = clamp(attempt)
	step := l.Step
	if step <= 0 {
		step = 60
	}
	if step > MaxWaitSeconds/int64(attempt) {
		return MaxWaitSeconds
	}
	return step * int64(attempt)
}

// Wait returns WaitSeconds as a duration
func (l Linear) Wait(attempt int) time.Duration {
	return toDuration(l.WaitSeconds(attempt))
}

// Constant always waits the same number of seconds
type Constant struct {
	Seconds int64
}

// WaitSeconds ignores the attempt number
func (c Constant) WaitSeconds(attempt int) int64 {
	if c.Seconds < 0 {
		return 0
	}
	return min(c.Seconds, MaxWaitSeconds)
}

// Wait returns WaitSeconds as a duration
func (c Constant) Wait(attempt int) time.Duration {
	return toDuration(c.WaitSeconds(attempt))
}

// Default returns the gateway's retry schedule: 10^attempt seconds
func Default() Strategy {
	return Exponential{Base: 10}
}

func clamp(attempt int) int {
	if attempt < 1 {
		return 1
	}
	return attempt
}

func toDuration(seconds int64) time.Duration {
	if seconds > math.MaxInt64/int64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}
