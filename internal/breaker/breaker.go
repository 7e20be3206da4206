package breaker

import (
	"sync"
	"time"
)

// Config holds tunable parameters for the Breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failed polls that trips
	// the breaker. Default: 3.
	FailureThreshold int

	// StaleThreshold is the maximum age of the last successful poll before
	// the offer view is considered stale. Zero disables the check.
	StaleThreshold time.Duration

	// CoolOff is how long polls must keep succeeding after a trip before
	// actions are allowed again. Default: 1m.
	CoolOff time.Duration
}

// DefaultConfig returns the defaults used by the watch loop.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		StaleThreshold:   10 * time.Minute,
		CoolOff:          time.Minute,
	}
}

// Breaker gates side-effecting actions (confirming offers) behind a healthy
// poll history. It enforces:
//   - Consecutive failure limit
//   - Freshness of the last successful poll
//   - Cool-off period after recovery
//   - Manual halt
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	failures    int
	tripped     bool
	lastSuccess time.Time
	recoveredAt time.Time
	halted      bool

	nowFunc func() time.Time // injectable clock for testing
}

// New creates a Breaker. Nothing is allowed until the first success.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	return &Breaker{cfg: cfg, nowFunc: time.Now}
}

// RecordSuccess notes a successful poll. A tripped breaker starts its
// cool-off here.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowFunc()
	b.failures = 0
	b.lastSuccess = now
	if b.tripped {
		b.tripped = false
		b.recoveredAt = now
	}
}

// RecordFailure notes a failed poll and reports whether this call tripped
// the breaker.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if !b.tripped && b.failures >= b.cfg.FailureThreshold {
		b.tripped = true
		b.recoveredAt = time.Time{}
		return true
	}
	return false
}

// ManualHalt blocks every action until Resume is called.
func (b *Breaker) ManualHalt() {
	b.mu.Lock()
	b.halted = true
	b.mu.Unlock()
}

// Resume clears a manual halt. The other checks still apply.
func (b *Breaker) Resume() {
	b.mu.Lock()
	b.halted = false
	b.mu.Unlock()
}

// Allow returns true only if ALL of the following hold:
//  1. No manual halt is active.
//  2. The breaker is not tripped.
//  3. The last successful poll is within StaleThreshold.
//  4. The cool-off period has elapsed since recovery.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.halted || b.tripped || b.lastSuccess.IsZero() {
		return false
	}
	now := b.nowFunc()
	if b.cfg.StaleThreshold > 0 && now.Sub(b.lastSuccess) > b.cfg.StaleThreshold {
		return false
	}
	if !b.recoveredAt.IsZero() && now.Sub(b.recoveredAt) < b.cfg.CoolOff {
		return false
	}
	return true
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
