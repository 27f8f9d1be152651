package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		// Expected base sequence: 1s, 2s, 4s, 8s, 16s, 30s, 30s
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			30 * time.Second,
			30 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()

			if base != exp {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Next()
			b.Reset()
		}

		for i, s := range samples {
			if s < time.Second || s > 1250*time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		for range 5 {
			b.Next()
		}
		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}

		for i, exp := range expected {
			if got := b.Next(); got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(expected))
		}
	})

	t.Run("MaxBelowInitial", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Initial: time.Second, Max: time.Millisecond})
		if got := b.Next(); got != time.Second {
			t.Errorf("Next() = %v, want 1s", got)
		}
		if got := b.Current(); got != time.Second {
			t.Errorf("Current() = %v, want capped at 1s", got)
		}
	})

	t.Run("WaitHonoursContext", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{Initial: time.Hour})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	})
}

func fastSupervisor() *Supervisor {
	return NewSupervisor(BackoffConfig{
		Initial:    10 * time.Millisecond,
		Max:        40 * time.Millisecond,
		Multiplier: 2.0,
	}, nil)
}

func TestSupervisor(t *testing.T) {
	t.Run("RetriesUntilPermanent", func(t *testing.T) {
		s := fastSupervisor()
		stop := errors.New("unsupported camera")

		var calls atomic.Int32
		err := s.Run(context.Background(), func(ctx context.Context, ready func()) error {
			if calls.Add(1) < 3 {
				return errors.New("dial refused")
			}
			return Permanent(stop)
		})

		if err != stop {
			t.Errorf("Run() error = %v, want %v", err, stop)
		}
		if calls.Load() != 3 {
			t.Errorf("lifetime called %d times, want 3", calls.Load())
		}
		if s.State() != StateStopped {
			t.Errorf("State() = %v, want StateStopped", s.State())
		}
	})

	t.Run("ReadyResetsBackoff", func(t *testing.T) {
		s := fastSupervisor()

		var calls atomic.Int32
		var attemptsAtReady []int
		err := s.Run(context.Background(), func(ctx context.Context, ready func()) error {
			switch calls.Add(1) {
			case 1, 2:
				return errors.New("dial refused")
			case 3:
				ready()
				attemptsAtReady = append(attemptsAtReady, s.Attempts())
				return errors.New("link dropped")
			default:
				return Permanent(errors.New("done"))
			}
		})

		if err == nil || err.Error() != "done" {
			t.Fatalf("Run() error = %v, want done", err)
		}
		if len(attemptsAtReady) != 1 || attemptsAtReady[0] != 0 {
			t.Errorf("attempts after ready = %v, want [0]", attemptsAtReady)
		}
		if s.Attempts() != 1 {
			t.Errorf("Attempts() = %d, want 1 after one post-ready drop", s.Attempts())
		}
	})

	t.Run("StopsOnContextCancel", func(t *testing.T) {
		s := NewSupervisor(BackoffConfig{Initial: time.Hour}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		result := make(chan error, 1)
		go func() {
			result <- s.Run(ctx, func(ctx context.Context, ready func()) error {
				return errors.New("dial refused")
			})
		}()

		time.Sleep(20 * time.Millisecond)
		if s.State() != StateReconnecting {
			t.Errorf("State() = %v, want StateReconnecting", s.State())
		}
		cancel()

		select {
		case err := <-result:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run() error = %v, want Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("StateChangeCallback", func(t *testing.T) {
		s := fastSupervisor()

		var mu sync.Mutex
		var transitions []struct{ old, new State }
		s.OnStateChange(func(old, new State) {
			mu.Lock()
			transitions = append(transitions, struct{ old, new State }{old, new})
			mu.Unlock()
		})

		var calls atomic.Int32
		_ = s.Run(context.Background(), func(ctx context.Context, ready func()) error {
			if calls.Add(1) == 1 {
				ready()
				return errors.New("link dropped")
			}
			return Permanent(errors.New("done"))
		})

		expected := []struct{ old, new State }{
			{StateIdle, StateConnecting},
			{StateConnecting, StateConnected},
			{StateConnected, StateReconnecting},
			{StateReconnecting, StateConnecting},
			{StateConnecting, StateStopped},
		}

		mu.Lock()
		defer mu.Unlock()
		if len(transitions) != len(expected) {
			t.Fatalf("Got %d transitions, want %d: %v", len(transitions), len(expected), transitions)
		}
		for i, exp := range expected {
			if transitions[i] != exp {
				t.Errorf("Transition %d: got %v→%v, want %v→%v",
					i, transitions[i].old, transitions[i].new, exp.old, exp.new)
			}
		}
	})
}

func TestPermanentNil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateStopped, "STOPPED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
