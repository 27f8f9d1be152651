package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/wire"
)

// Connection errors.
var (
	ErrConnectionClosed   = errors.New("connection closed")
	ErrConnectionLost     = errors.New("connection lost")
	ErrSubscriptionExists = errors.New("message number already subscribed")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Config configures a camera connection.
type Config struct {
	// MaxBodySize is the maximum message body size (default: 64KB).
	MaxBodySize uint32

	// DialTimeout bounds Dial when ctx has no deadline (default: 10s).
	DialTimeout time.Duration

	// IdleTimeout fails the connection when nothing arrives for this long
	// (0 = never). Cameras with motion armed push alarms periodically, so a
	// silent link usually means a dead one.
	IdleTimeout time.Duration

	// SubscriptionBuffer is the per-subscription queue length (default: 64).
	// When it fills, the read loop waits for the subscriber.
	SubscriptionBuffer int

	// ProtocolLogger receives frame, message and state events (optional).
	ProtocolLogger log.Logger

	// Logger receives operational logs (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns the default connection configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:        DefaultMaxBodySize,
		DialTimeout:        10 * time.Second,
		SubscriptionBuffer: 64,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MaxBodySize == 0 {
		c.MaxBodySize = def.MaxBodySize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = def.DialTimeout
	}
	if c.SubscriptionBuffer <= 0 {
		c.SubscriptionBuffer = def.SubscriptionBuffer
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Conn is a multiplexed connection to a camera.
type Conn struct {
	config Config
	nc     net.Conn
	framer *Framer
	id     string
	logger *slog.Logger

	mu   sync.Mutex
	subs map[uint16]*Subscription

	closeOnce sync.Once
	done      chan struct{}
	err       error // set before done is closed
}

// Dial connects to a camera at address and starts the read loop.
func Dial(ctx context.Context, address string, config Config) (*Conn, error) {
	config.applyDefaults()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.DialTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	nc, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	return NewConn(nc, config), nil
}

// NewConn wraps an established network connection and starts the read loop.
func NewConn(nc net.Conn, config Config) *Conn {
	config.applyDefaults()

	c := &Conn{
		config: config,
		nc:     nc,
		framer: NewFramerWithMaxSize(nc, config.MaxBodySize),
		id:     uuid.NewString(),
		subs:   make(map[uint16]*Subscription),
		done:   make(chan struct{}),
	}
	c.logger = config.Logger.With(slog.String("conn_id", c.id))
	c.framer.SetLogger(config.ProtocolLogger, c.id)

	c.logState("", "CONNECTED", "")
	go c.readLoop()

	return c
}

// ID returns the connection id used in protocol logs.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the camera address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

// Done is closed once the connection is closed or lost.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is alive.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Subscribe claims msgNum and returns a Subscription receiving every
// message the camera sends on it.
func (c *Conn) Subscribe(ctx context.Context, msgNum uint16) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	if _, exists := c.subs[msgNum]; exists {
		return nil, fmt.Errorf("%w: %d", ErrSubscriptionExists, msgNum)
	}

	sub := &Subscription{
		conn:   c,
		msgNum: msgNum,
		ch:     make(chan *wire.Message, c.config.SubscriptionBuffer),
		closed: make(chan struct{}),
	}
	c.subs[msgNum] = sub

	c.logger.Debug("subscribed", slog.Int("msg_num", int(msgNum)))
	return sub, nil
}

// OpenStream is Subscribe returning the MessageStream interface, so a Conn
// can be handed to consumers that only need one stream.
func (c *Conn) OpenStream(ctx context.Context, msgNum uint16) (MessageStream, error) {
	sub, err := c.Subscribe(ctx, msgNum)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close tears the connection down. Open subscriptions fail with
// ErrConnectionClosed.
func (c *Conn) Close() error {
	var err error
	c.shutdown(ErrConnectionClosed, func() {
		err = c.nc.Close()
	})
	return err
}

// shutdown records cause, closes done and runs closeFn exactly once.
func (c *Conn) shutdown(cause error, closeFn func()) {
	c.closeOnce.Do(func() {
		c.err = cause
		close(c.done)
		closeFn()

		reason := ""
		if !errors.Is(cause, ErrConnectionClosed) {
			reason = cause.Error()
		}
		c.logState("CONNECTED", "DISCONNECTED", reason)
	})
}

func (c *Conn) unsubscribe(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[sub.msgNum] == sub {
		delete(c.subs, sub.msgNum)
		c.logger.Debug("unsubscribed", slog.Int("msg_num", int(sub.msgNum)))
	}
}

func (c *Conn) send(ctx context.Context, msg *wire.Message) error {
	select {
	case <-c.done:
		return c.err
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		c.nc.SetWriteDeadline(deadline)
		defer c.nc.SetWriteDeadline(time.Time{})
	}

	if err := c.framer.WriteMessage(msg); err != nil {
		return err
	}
	c.logMessage(msg, log.DirectionOut)
	return nil
}

// readLoop reads frames and routes them to subscriptions by message number.
func (c *Conn) readLoop() {
	for {
		if c.config.IdleTimeout > 0 {
			c.nc.SetReadDeadline(time.Now().Add(c.config.IdleTimeout))
		}

		msg, err := c.framer.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return // Expected during close
			default:
			}
			c.logger.Warn("camera connection lost", slog.Any("error", err))
			c.config.ProtocolLogger.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: c.id,
				Direction:    log.DirectionIn,
				Layer:        log.LayerTransport,
				Category:     log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerTransport,
					Message: err.Error(),
					Context: "read",
				},
			})
			c.shutdown(fmt.Errorf("%w: %w", ErrConnectionLost, err), func() {
				c.nc.Close()
			})
			return
		}

		c.logMessage(msg, log.DirectionIn)
		c.dispatch(msg)
	}
}

// dispatch hands msg to its subscriber, waiting while the subscriber's
// queue is full.
func (c *Conn) dispatch(msg *wire.Message) {
	c.mu.Lock()
	sub := c.subs[msg.Header.MsgNum]
	c.mu.Unlock()

	if sub == nil {
		c.logger.Debug("dropping message for unknown msg_num",
			slog.Int("msg_num", int(msg.Header.MsgNum)),
			slog.Int("msg_id", int(msg.Header.MsgID)))
		return
	}

	select {
	case sub.ch <- msg:
	case <-sub.closed:
	case <-c.done:
	}
}

func (c *Conn) logMessage(msg *wire.Message, dir log.Direction) {
	ch := msg.Header.ChannelID
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		ChannelID:    &ch,
		Message: &log.MessageEvent{
			MsgID:        msg.Header.MsgID,
			MsgNum:       msg.Header.MsgNum,
			ChannelID:    msg.Header.ChannelID,
			ResponseCode: msg.Header.ResponseCode,
			Class:        msg.Header.Class,
		},
	})
}

func (c *Conn) logState(oldState, newState, reason string) {
	remote := ""
	if addr := c.nc.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	c.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Subscription receives the messages sent on one message number.
type Subscription struct {
	conn   *Conn
	msgNum uint16
	ch     chan *wire.Message

	closeOnce sync.Once
	closed    chan struct{}
}

// MsgNum returns the message number this subscription holds.
func (s *Subscription) MsgNum() uint16 {
	return s.msgNum
}

// Send stamps msg with the subscription's message number and writes it.
func (s *Subscription) Send(ctx context.Context, msg *wire.Message) error {
	select {
	case <-s.closed:
		return ErrSubscriptionClosed
	default:
	}

	msg.Header.MsgNum = s.msgNum
	return s.conn.send(ctx, msg)
}

// Recv blocks until a message arrives on this message number.
// Messages that arrived before the connection failed are still delivered;
// after that Recv returns the connection error.
func (s *Subscription) Recv(ctx context.Context) (*wire.Message, error) {
	select {
	case msg := <-s.ch:
		return msg, nil
	default:
	}

	select {
	case msg := <-s.ch:
		return msg, nil
	case <-s.closed:
		return nil, ErrSubscriptionClosed
	case <-s.conn.done:
		select {
		case msg := <-s.ch:
			return msg, nil
		default:
		}
		return nil, s.conn.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the message number. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.unsubscribe(s)
	})
	return nil
}
