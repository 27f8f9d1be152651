package motion

import (
	"context"
	"time"
)

// AwaitStart blocks until motion has been active for at least minDuration
// without a Stop in between. Zero returns as soon as a Start is the newest
// Start or Stop, whether it was already seen or arrives later.
func (s *Session) AwaitStart(ctx context.Context, minDuration time.Duration) error {
	return s.awaitHeld(ctx, KindStart, minDuration)
}

// AwaitStop blocks until motion has been inactive for at least minDuration
// without a Start in between. Zero returns as soon as any Stop is seen.
func (s *Session) AwaitStop(ctx context.Context, minDuration time.Duration) error {
	return s.awaitHeld(ctx, KindStop, minDuration)
}

// awaitHeld waits until a target status has been held for minDuration,
// measured from the status timestamp. An opposite status restarts the wait.
//
// The wait starts from the newest Start or Stop seen so far, including one
// already consumed by an earlier call. NoChange never decides anything here.
func (s *Session) awaitHeld(ctx context.Context, target Kind, minDuration time.Duration) error {
	if _, err := s.Drain(); err != nil {
		return err
	}
	last := s.lastKnown

	for {
		if last.Kind == target {
			held := time.Since(last.At)
			if minDuration == 0 || held >= minDuration {
				return nil
			}
			newest, interrupted, err := s.interruptedWithin(ctx, target.Opposite(), minDuration-held)
			if err != nil {
				return err
			}
			if !interrupted {
				return nil
			}
			// The interrupting batch may already carry a new target status;
			// its own timestamp restarts the clock.
			if last = newest; last.Kind == target {
				continue
			}
		}

		// Next may hand back a NoChange that hides an earlier Start or Stop
		// from the same batch.
		if _, err := s.Next(ctx); err != nil {
			return err
		}
		last = s.lastKnown
	}
}

// interruptedWithin reports whether a status of kind opposite arrives before
// remaining elapses. On interruption it also returns the newest Start or Stop
// consumed. Statuses of any other kind are consumed and ignored.
func (s *Session) interruptedWithin(ctx context.Context, opposite Kind, remaining time.Duration) (Status, bool, error) {
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	for {
		statuses, err := s.Drain()
		if err != nil {
			return Status{}, false, err
		}
		if len(statuses) == 0 {
			select {
			case <-timer.C:
				return Status{}, false, nil
			case <-ctx.Done():
				return Status{}, false, ctx.Err()
			case r, open := <-s.rx:
				st, err := s.accept(r, open)
				if err != nil {
					return Status{}, false, err
				}
				statuses = append(statuses, st)
			}
		}
		for _, st := range statuses {
			if st.Kind == opposite {
				return s.lastKnown, true, nil
			}
		}
	}
}
