package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/metrics"
	"github.com/camlink/camlink-go/pkg/transport"
	"github.com/camlink/camlink-go/pkg/wire"
)

// QueueCapacity is the number of statuses buffered between the listener
// and the session before the listener stops reading from the transport.
const QueueCapacity = 20

// Session errors.
var (
	// ErrSetupRejected is returned by Listen when the camera does not
	// acknowledge the motion request with a success code.
	ErrSetupRejected = errors.New("motion reporting setup rejected")

	// ErrConnectionLost is returned once the listener's transport failed.
	ErrConnectionLost = errors.New("motion connection lost")

	// ErrSessionClosed is returned after Close, or if the listener ended
	// without reporting a failure.
	ErrSessionClosed = errors.New("motion session closed")
)

// StreamOpener opens a message stream on a message number.
// *transport.Conn implements it.
type StreamOpener interface {
	OpenStream(ctx context.Context, msgNum uint16) (transport.MessageStream, error)
}

var _ StreamOpener = (*transport.Conn)(nil)

// Config configures a motion session.
type Config struct {
	// ChannelID is the camera channel to watch.
	ChannelID uint8

	// MsgNum is the message number used for arming and notifications.
	MsgNum uint16

	// ConnectionID tags protocol log events. Optional.
	ConnectionID string

	// Logger for operational messages. Defaults to slog.Default().
	Logger *slog.Logger

	// ProtocolLogger records motion transitions. Optional.
	ProtocolLogger log.Logger

	// Metrics collects pipeline counters. Optional.
	Metrics *metrics.Motion
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
}

// result is one queue entry: a status or the listener's terminal failure.
type result struct {
	status Status
	err    error
}

// Session is the consumer side of a motion listener.
//
// Session methods must not be called concurrently. Close stops the listener;
// a Session that is dropped without Close has its listener cancelled once
// the garbage collector reclaims it.
type Session struct {
	cancel  context.CancelFunc
	done    <-chan struct{}
	rx      <-chan result
	metrics *metrics.Motion
	logger  *slog.Logger

	lastUpdate Status
	lastKnown  Status // newest Start or Stop
	err        error
	closeOnce  sync.Once
}

// Listen arms motion reporting and starts a listener for cfg.ChannelID.
//
// The motion request is sent on cfg.MsgNum and must be answered with a
// success code, otherwise ErrSetupRejected is returned and no listener is
// started. On success the listener runs on a fresh stream for the same
// message number until the session is closed or the transport fails.
func Listen(ctx context.Context, opener StreamOpener, cfg Config) (*Session, error) {
	cfg.applyDefaults()

	if err := arm(ctx, opener, cfg); err != nil {
		return nil, err
	}

	stream, err := opener.OpenStream(ctx, cfg.MsgNum)
	if err != nil {
		return nil, fmt.Errorf("open motion stream: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	queue := make(chan result, QueueCapacity)
	done := make(chan struct{})

	l := &listener{
		stream:    stream,
		channelID: cfg.ChannelID,
		connID:    cfg.ConnectionID,
		tx:        queue,
		logger:    cfg.Logger.With(slog.Int("channel", int(cfg.ChannelID))),
		plog:      cfg.ProtocolLogger,
		metrics:   cfg.Metrics,
	}
	go l.run(listenCtx, done)

	s := &Session{
		cancel:     cancel,
		done:       done,
		rx:         queue,
		metrics:    cfg.Metrics,
		logger:     l.logger,
		lastUpdate: Status{Kind: KindNoChange, At: time.Now()},
		lastKnown:  Status{Kind: KindNoChange, At: time.Now()},
	}
	runtime.AddCleanup(s, func(cancel context.CancelFunc) { cancel() }, cancel)
	cfg.Metrics.SessionOpened()

	return s, nil
}

// arm performs the motion request command/ack exchange.
func arm(ctx context.Context, opener StreamOpener, cfg Config) error {
	stream, err := opener.OpenStream(ctx, cfg.MsgNum)
	if err != nil {
		cfg.Metrics.ObserveArm(metrics.ArmError)
		return fmt.Errorf("open arming stream: %w", err)
	}
	defer stream.Close()

	req := &wire.Message{
		Header: wire.Header{
			MsgID:     wire.MsgIDMotionRequest,
			ChannelID: cfg.ChannelID,
			MsgNum:    cfg.MsgNum,
			Class:     wire.ClassModern,
		},
	}
	if err := stream.Send(ctx, req); err != nil {
		cfg.Metrics.ObserveArm(metrics.ArmError)
		return fmt.Errorf("send motion request: %w", err)
	}

	reply, err := stream.Recv(ctx)
	if err != nil {
		cfg.Metrics.ObserveArm(metrics.ArmError)
		return fmt.Errorf("%w: no reply: %w", ErrSetupRejected, err)
	}
	if !reply.IsSuccess() {
		cfg.Metrics.ObserveArm(metrics.ArmRejected)
		return fmt.Errorf("%w: response %d (%s)", ErrSetupRejected,
			uint16(reply.Header.ResponseCode), reply.Header.ResponseCode)
	}

	cfg.Metrics.ObserveArm(metrics.ArmOK)
	cfg.Logger.Debug("motion reporting armed",
		slog.Int("channel", int(cfg.ChannelID)),
		slog.Int("msg_num", int(cfg.MsgNum)))
	return nil
}

// Drain returns every status queued since the last call without blocking.
//
// If the listener reported a failure, Drain returns it and discards the
// statuses collected in the same call. The first failure is remembered and
// returned by every later call.
func (s *Session) Drain() ([]Status, error) {
	if s.err != nil {
		return nil, s.err
	}

	var statuses []Status
	for {
		select {
		case r, ok := <-s.rx:
			if !ok {
				return nil, s.fail(ErrSessionClosed)
			}
			if r.err != nil {
				return nil, s.fail(r.err)
			}
			statuses = append(statuses, r.status)
		default:
			for _, st := range statuses {
				s.observe(st)
			}
			return statuses, nil
		}
	}
}

// IsMotion reports whether motion is active according to the latest status.
// known is false while the latest status is NoChange.
func (s *Session) IsMotion() (active, known bool, err error) {
	if _, err := s.Drain(); err != nil {
		return false, false, err
	}

	switch s.lastUpdate.Kind {
	case KindStart:
		return true, true, nil
	case KindStop:
		return false, true, nil
	default:
		return false, false, nil
	}
}

// IsMotionWithin is IsMotion, except that motion which stopped less than
// window ago still counts as active.
func (s *Session) IsMotionWithin(window time.Duration) (active, known bool, err error) {
	if _, err := s.Drain(); err != nil {
		return false, false, err
	}

	switch s.lastUpdate.Kind {
	case KindStart:
		return true, true, nil
	case KindStop:
		return time.Since(s.lastUpdate.At) < window, true, nil
	default:
		return false, false, nil
	}
}

// Next returns the newest queued status, or waits for one if the queue is
// empty. Older queued statuses are discarded; use Drain to see all of them.
func (s *Session) Next(ctx context.Context) (Status, error) {
	if st, ok, err := s.latest(); err != nil || ok {
		return st, err
	}

	select {
	case r, ok := <-s.rx:
		return s.accept(r, ok)
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Close stops the listener, waits for it to exit and releases its stream.
// Calls after Close return ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		if s.err == nil {
			s.err = ErrSessionClosed
		}
		s.metrics.SessionClosed()
		s.logger.Debug("motion session closed")
	})
	return nil
}

// latest drains the queue and returns its newest status, if any.
func (s *Session) latest() (Status, bool, error) {
	statuses, err := s.Drain()
	if err != nil {
		return Status{}, false, err
	}
	if len(statuses) == 0 {
		return Status{}, false, nil
	}
	return statuses[len(statuses)-1], true, nil
}

// accept applies one entry received directly from the queue.
func (s *Session) accept(r result, ok bool) (Status, error) {
	if !ok {
		return Status{}, s.fail(ErrSessionClosed)
	}
	if r.err != nil {
		return Status{}, s.fail(r.err)
	}
	s.observe(r.status)
	return r.status, nil
}

func (s *Session) observe(st Status) {
	s.lastUpdate = st
	if st.Kind != KindNoChange {
		s.lastKnown = st
	}
}

func (s *Session) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return s.err
}
