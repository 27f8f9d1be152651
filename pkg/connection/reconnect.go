package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State represents the supervisor state.
type State uint8

const (
	// StateIdle is the state before Run is called.
	StateIdle State = iota

	// StateConnecting indicates a lifetime has started but is not yet
	// connected.
	StateConnecting

	// StateConnected indicates the current lifetime reported itself ready.
	StateConnected

	// StateReconnecting indicates the supervisor is waiting out a backoff
	// delay.
	StateReconnecting

	// StateStopped indicates Run has returned.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// LifetimeFunc runs one connected lifetime. It calls ready once the link is
// usable and returns when the link is lost.
type LifetimeFunc func(ctx context.Context, ready func()) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Run returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Supervisor restarts a LifetimeFunc with backoff until told to stop.
type Supervisor struct {
	mu    sync.RWMutex
	state State

	backoff *Backoff
	logger  *slog.Logger

	onStateChange func(oldState, newState State)
}

// NewSupervisor creates a supervisor. A nil logger uses slog.Default().
func NewSupervisor(cfg BackoffConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		backoff: NewBackoffWithConfig(cfg),
		logger:  logger,
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnStateChange sets a callback for state changes. Set it before Run.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// Attempts returns the number of reconnects since the last ready lifetime.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// Run calls fn until ctx ends or fn returns a Permanent error.
//
// A lifetime that calls ready resets the backoff, so a camera that stays
// up for a while reconnects quickly after its next drop.
func (s *Supervisor) Run(ctx context.Context, fn LifetimeFunc) error {
	defer s.setState(StateStopped)

	for {
		s.setState(StateConnecting)
		started := time.Now()

		err := fn(ctx, func() {
			s.backoff.Reset()
			s.setState(StateConnected)
		})

		if ctx.Err() != nil {
			return ctx.Err()
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		s.setState(StateReconnecting)
		s.logger.Warn("camera link lost",
			slog.Any("error", err),
			slog.Duration("uptime", time.Since(started)),
			slog.Int("attempt", s.backoff.Attempts()+1),
			slog.Duration("retry_in", s.backoff.Current()))

		if err := s.backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

func (s *Supervisor) setState(newState State) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	fn := s.onStateChange
	s.mu.Unlock()

	if oldState != newState && fn != nil {
		fn(oldState, newState)
	}
}
