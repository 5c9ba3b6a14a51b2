package session

import (
	"math"
	"math/rand"
	"time"
)

// Delay returns the wait before retry attempt N (1-based). With jitter the
// delay is scaled by a factor in [0.5, 1.5); a nil rng uses the midpoint.
func (b BackoffConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || b.InitialDelay <= 0 {
		return b.jitter(float64(b.InitialDelay), rng)
	}
	growth := math.Max(b.Multiplier, 1.0)
	delay := float64(b.InitialDelay) * math.Pow(growth, float64(attempt-1))
	if b.MaxDelay > 0 {
		delay = math.Min(delay, float64(b.MaxDelay))
	}
	return b.jitter(delay, rng)
}

func (b BackoffConfig) jitter(delay float64, rng *rand.Rand) time.Duration {
	if !b.Jitter || delay <= 0 {
		return time.Duration(delay)
	}
	factor := 1.0
	if rng != nil {
		factor = 0.5 + rng.Float64()
	}
	return time.Duration(delay * factor)
}
