package motion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camlink/camlink-go/pkg/transport"
)

// awaitAsync runs fn in a goroutine and returns a channel with its result.
func awaitAsync(fn func() error) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	return ch
}

func TestAwaitStartZeroPastStart(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())
	_, _, err := s.IsMotion()
	require.NoError(t, err)

	// The Start was consumed by IsMotion but is still the newest status.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.AwaitStart(ctx, 0))
}

func TestAwaitStartZeroFutureStart(t *testing.T) {
	s, live := newTestSession(t)

	result := awaitAsync(func() error { return s.AwaitStart(context.Background(), 0) })

	live.in <- noChangeMsg()
	live.in <- stopMsg()
	select {
	case err := <-result:
		t.Fatalf("returned before a Start: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	live.in <- startMsg()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitStart did not return after a Start")
	}
}

func TestAwaitStopAlreadyStable(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, stopMsg())
	time.Sleep(60 * time.Millisecond)

	begin := time.Now()
	require.NoError(t, s.AwaitStop(context.Background(), 50*time.Millisecond))
	assert.Less(t, time.Since(begin), 40*time.Millisecond)
}

func TestAwaitStopRestartsOnStart(t *testing.T) {
	const hold = 150 * time.Millisecond
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())
	result := awaitAsync(func() error { return s.AwaitStop(context.Background(), hold) })

	time.Sleep(20 * time.Millisecond)
	live.in <- stopMsg()

	// Interrupt the stop before it has been held long enough.
	time.Sleep(hold / 2)
	live.in <- startMsg()
	time.Sleep(20 * time.Millisecond)

	lastStop := time.Now()
	live.in <- stopMsg()

	select {
	case err := <-result:
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(lastStop), hold,
			"the hold is measured from the last Stop")
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitStop did not return")
	}
}

func TestAwaitStopMeasuresFromStatusTimestamp(t *testing.T) {
	const hold = 300 * time.Millisecond
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())
	time.Sleep(50 * time.Millisecond)

	stopSent := time.Now()
	inject(t, s, live, stopMsg())

	// Start waiting well into the hold window.
	time.Sleep(hold / 2)
	begin := time.Now()

	require.NoError(t, s.AwaitStop(context.Background(), hold))
	assert.GreaterOrEqual(t, time.Since(stopSent), hold)
	assert.Less(t, time.Since(begin), hold-50*time.Millisecond,
		"the wait must not restart from the call")
}

func TestAwaitStartIgnoresNoChangeWhileHolding(t *testing.T) {
	const hold = 100 * time.Millisecond
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())
	result := awaitAsync(func() error { return s.AwaitStart(context.Background(), hold) })

	for range 3 {
		time.Sleep(15 * time.Millisecond)
		live.in <- noChangeMsg()
		live.in <- startMsg()
	}

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitStart was restarted by non-opposite statuses")
	}
}

func TestAwaitStartRestartsFromBacklog(t *testing.T) {
	const hold = 200 * time.Millisecond
	s, live := newTestSession(t)

	// An old Start that has not yet been held long enough.
	s.lastUpdate = Status{Kind: KindStart, At: time.Now().Add(-hold / 2)}
	s.lastKnown = s.lastUpdate

	inject(t, s, live, stopMsg(), startMsg())
	restarted := time.Now()

	require.NoError(t, s.AwaitStart(context.Background(), hold))
	assert.GreaterOrEqual(t, time.Since(restarted), hold-10*time.Millisecond,
		"the newest Start restarts the clock")
}

func TestInterruptedWithinSeesWholeBatch(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, noChangeMsg(), stopMsg(), startMsg())

	newest, interrupted, err := s.interruptedWithin(context.Background(), KindStop, time.Hour)
	require.NoError(t, err)
	assert.True(t, interrupted, "a Stop inside the batch interrupts")
	assert.Equal(t, KindStart, newest.Kind)
}

func TestInterruptedWithinSkipsTrailingNoChange(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, stopMsg(), startMsg(), noChangeMsg())

	newest, interrupted, err := s.interruptedWithin(context.Background(), KindStop, time.Hour)
	require.NoError(t, err)
	assert.True(t, interrupted)
	assert.Equal(t, KindStart, newest.Kind, "NoChange does not hide the renewed Start")
}

func TestAwaitStartRestartsFromBatchEndingInNoChange(t *testing.T) {
	const hold = 100 * time.Millisecond
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())
	result := awaitAsync(func() error { return s.AwaitStart(context.Background(), hold) })

	// Motion blips off and on again, then the camera reports only an
	// unrelated channel.
	time.Sleep(20 * time.Millisecond)
	restarted := time.Now()
	live.in <- stopMsg()
	live.in <- startMsg()
	live.in <- noChangeMsg()

	select {
	case err := <-result:
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(restarted), hold-10*time.Millisecond,
			"the renewed Start restarts the clock")
	case <-time.After(time.Second):
		t.Fatal("AwaitStart did not return after the renewed Start was held")
	}
}

func TestAwaitStartBacklogEndingInNoChange(t *testing.T) {
	const hold = 50 * time.Millisecond
	s, live := newTestSession(t)

	inject(t, s, live, stopMsg(), startMsg(), noChangeMsg())
	queued := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.AwaitStart(ctx, hold))
	assert.GreaterOrEqual(t, time.Since(queued), hold-10*time.Millisecond)

	// IsMotion still reports the trailing NoChange as unknown.
	_, known, err := s.IsMotion()
	require.NoError(t, err)
	assert.False(t, known)
}

func TestInterruptedWithinTimesOut(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, startMsg(), noChangeMsg())

	_, interrupted, err := s.interruptedWithin(context.Background(), KindStop, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, interrupted)
}

func TestAwaitContextCancelled(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, startMsg())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.AwaitStart(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = s.AwaitStop(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The session is still usable.
	_, err = s.Drain()
	assert.NoError(t, err)
}

func TestAwaitConnectionLost(t *testing.T) {
	s, live := newTestSession(t)

	inject(t, s, live, stopMsg())
	result := awaitAsync(func() error { return s.AwaitStop(context.Background(), time.Hour) })

	time.Sleep(20 * time.Millisecond)
	live.errs <- transport.ErrConnectionLost

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrConnectionLost)
	case <-time.After(time.Second):
		t.Fatal("AwaitStop ignored the connection failure")
	}
}
