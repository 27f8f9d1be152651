package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/metrics"
	"github.com/camlink/camlink-go/pkg/motion"
	"github.com/camlink/camlink-go/pkg/transport"
	"github.com/camlink/camlink-go/pkg/wire"
)

// ErrCommandRejected is returned when the camera answers a command with a
// non-success response code.
var ErrCommandRejected = errors.New("command rejected by camera")

// DefaultCommandTimeout bounds a command exchange when ctx has no deadline.
const DefaultCommandTimeout = 10 * time.Second

// Conn is the transport surface a Camera needs.
// *transport.Conn implements it.
type Conn interface {
	motion.StreamOpener

	// ID identifies the connection in protocol logs.
	ID() string
}

var _ Conn = (*transport.Conn)(nil)

// Options configures a Camera.
type Options struct {
	// ChannelID is the camera channel behind the connection (0 for
	// standalone cameras, the NVR port otherwise).
	ChannelID uint8

	// CommandTimeout bounds each command exchange (default: 10s).
	CommandTimeout time.Duration

	// Logger for operational messages (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger records motion transitions (optional).
	ProtocolLogger log.Logger

	// Metrics collects motion counters (optional).
	Metrics *metrics.Motion
}

// Camera issues commands to one camera channel.
type Camera struct {
	conn   Conn
	opts   Options
	logger *slog.Logger

	nextMsgNum atomic.Uint32
}

// New creates a camera client on conn.
func New(conn Conn, opts Options) *Camera {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Camera{
		conn:   conn,
		opts:   opts,
		logger: opts.Logger.With(slog.Int("channel", int(opts.ChannelID))),
	}
}

// ChannelID returns the camera channel this client addresses.
func (c *Camera) ChannelID() uint8 {
	return c.opts.ChannelID
}

// NewMessageNum allocates the next message number. Numbers wrap at 65535.
func (c *Camera) NewMessageNum() uint16 {
	return uint16(c.nextMsgNum.Add(1))
}

// ListenOnMotion arms motion reporting and returns a session watching this
// camera's channel.
func (c *Camera) ListenOnMotion(ctx context.Context) (*motion.Session, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return motion.Listen(ctx, c.conn, motion.Config{
		ChannelID:      c.opts.ChannelID,
		MsgNum:         c.NewMessageNum(),
		ConnectionID:   c.conn.ID(),
		Logger:         c.opts.Logger,
		ProtocolLogger: c.opts.ProtocolLogger,
		Metrics:        c.opts.Metrics,
	})
}

// SetFloodlightManual switches the floodlight on or off. When on, the light
// stays lit for duration seconds.
func (c *Camera) SetFloodlightManual(ctx context.Context, on bool, duration uint16) error {
	ch := c.opts.ChannelID
	var status uint8
	if on {
		status = 1
	}

	req := &wire.Message{
		Header: wire.Header{
			MsgID:     wire.MsgIDFloodlightManual,
			ChannelID: ch,
			Class:     wire.ClassModern,
		},
		Body: &wire.Body{
			Extension: &wire.Extension{ChannelID: &ch},
			FloodlightManual: &wire.FloodlightManual{
				Version:   "1",
				ChannelID: ch,
				Status:    status,
				Duration:  duration,
			},
		},
	}

	if err := c.command(ctx, "floodlight manual", req); err != nil {
		return err
	}

	c.logger.Info("floodlight set",
		slog.Bool("on", on),
		slog.Int("duration", int(duration)))
	return nil
}

// command runs one request/reply exchange on a fresh message number.
func (c *Camera) command(ctx context.Context, name string, req *wire.Message) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	msgNum := c.NewMessageNum()
	stream, err := c.conn.OpenStream(ctx, msgNum)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer stream.Close()

	req.Header.MsgNum = msgNum
	if err := stream.Send(ctx, req); err != nil {
		return fmt.Errorf("%s: send: %w", name, err)
	}

	reply, err := stream.Recv(ctx)
	if err != nil {
		return fmt.Errorf("%s: await reply: %w", name, err)
	}
	if !reply.IsSuccess() {
		return fmt.Errorf("%w: %s: response %d (%s)", ErrCommandRejected, name,
			uint16(reply.Header.ResponseCode), reply.Header.ResponseCode)
	}
	return nil
}

func (c *Camera) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CommandTimeout)
}
