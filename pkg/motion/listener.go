package motion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/metrics"
	"github.com/camlink/camlink-go/pkg/transport"
)

// listener reads notifications from one stream and feeds the session queue.
type listener struct {
	stream    transport.MessageStream
	channelID uint8
	connID    string
	tx        chan<- result
	logger    *slog.Logger
	plog      log.Logger
	metrics   *metrics.Motion
}

// run loops until ctx is cancelled or the stream fails. A stream failure is
// pushed as the final queue entry. On exit the stream is closed before the
// queue and done are.
func (l *listener) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	defer close(l.tx)
	defer l.stream.Close()

	last := KindNoChange
	for {
		msg, err := l.stream.Recv(ctx)
		if ctx.Err() != nil {
			return
		}

		var r result
		if err != nil {
			r.err = fmt.Errorf("%w: %w", ErrConnectionLost, err)
			l.logger.Warn("motion stream failed", slog.Any("error", err))
			l.metrics.ObserveConnectionLost()
			l.logError(err)
		} else {
			r.status = Classify(msg, l.channelID, time.Now())
			l.metrics.ObserveStatus(r.status.Kind.String())
			if r.status.Kind != KindNoChange && r.status.Kind != last {
				l.logTransition(last, r.status.Kind)
				last = r.status.Kind
			}
		}

		select {
		case l.tx <- r:
			l.metrics.SetQueueDepth(len(l.tx))
		case <-ctx.Done():
			return
		}
		if r.err != nil {
			return
		}
	}
}

func (l *listener) logTransition(from, to Kind) {
	l.logger.Debug("motion state changed",
		slog.String("from", from.String()),
		slog.String("to", to.String()))

	ch := l.channelID
	l.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		ChannelID:    &ch,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityMotion,
			OldState: from.String(),
			NewState: to.String(),
		},
	})
}

func (l *listener) logError(err error) {
	ch := l.channelID
	l.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: l.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerSession,
		Category:     log.CategoryError,
		ChannelID:    &ch,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Context: "motion listener",
		},
	})
}
