package transport

import (
	"context"

	"github.com/camlink/camlink-go/pkg/wire"
)

// MessageStream is one message number's send/receive pair.
// Implemented by Subscription.
type MessageStream interface {
	// Send writes msg on the stream's message number.
	Send(ctx context.Context, msg *wire.Message) error

	// Recv waits for the next message on the stream's message number.
	Recv(ctx context.Context) (*wire.Message, error)

	// Close releases the message number.
	Close() error
}

// FrameReadWriter provides header-delimited frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads a header and its raw body.
	ReadFrame() (wire.Header, []byte, error)

	// WriteFrame writes a header and body.
	WriteFrame(h wire.Header, body []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ MessageStream   = (*Subscription)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
