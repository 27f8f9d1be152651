package connection

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Backoff defaults.
const (
	// InitialBackoff is the first reconnection delay.
	InitialBackoff = 1 * time.Second

	// MaxBackoff caps the reconnection delay.
	MaxBackoff = 30 * time.Second

	// BackoffMultiplier is the factor applied after every attempt.
	BackoffMultiplier = 2.0

	// JitterFactor is the maximum jitter as a fraction of the base delay.
	JitterFactor = 0.25
)

// BackoffConfig allows customizing backoff parameters.
// Zero fields take the package defaults.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"`
}

// Backoff calculates exponential backoff delays with jitter.
// It is safe for concurrent use.
type Backoff struct {
	mu sync.Mutex

	// base delay of the next attempt, before jitter
	current  time.Duration
	attempts int

	cfg BackoffConfig
}

// NewBackoff creates a backoff calculator with default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: JitterFactor})
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
// A zero Jitter disables jitter.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Backoff{current: cfg.Initial, cfg: cfg}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.withJitter(b.current)

	b.attempts++
	b.current = min(time.Duration(float64(b.current)*b.cfg.Multiplier), b.cfg.Max)

	return delay
}

// Wait sleeps for the next delay. It returns ctx.Err() if ctx ends first.
func (b *Backoff) Wait(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset restarts the sequence from the initial delay.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.Initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the base delay of the next attempt (without jitter).
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Backoff) withJitter(d time.Duration) time.Duration {
	if b.cfg.Jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.cfg.Jitter*rand.Float64())
}
