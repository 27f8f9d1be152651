package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/wire"
)

// Framing constants.
const (
	// DefaultMaxBodySize is the default maximum body size (64 KB).
	DefaultMaxBodySize = 65536

	// MaxLogFrameDataSize is the maximum body size to include in logs (4 KB).
	// Larger bodies are truncated in log events.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the body exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrFrameTruncated indicates the frame was truncated.
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameWriter writes header-delimited frames to an underlying writer.
type FrameWriter struct {
	w           io.Writer
	maxBodySize uint32
	mu          sync.Mutex

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameWriter creates a new frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxBodySize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max body size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{
		w:           w,
		maxBodySize: maxSize,
	}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.logger = logger
	fw.connID = connID
}

// WriteFrame writes a header followed by body.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WriteFrame(h wire.Header, body []byte) error {
	if uint32(len(body)) > fw.maxBodySize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(body), fw.maxBodySize)
	}

	header := wire.EncodeHeader(h, uint32(len(body)))
	frame := make([]byte, 0, wire.HeaderSize+len(body))
	frame = append(frame, header[:]...)
	frame = append(frame, body...)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	// One write per frame so a concurrent writer never splits header and body.
	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, body, log.DirectionOut))
	}

	return nil
}

// FrameReader reads header-delimited frames from an underlying reader.
type FrameReader struct {
	r           io.Reader
	maxBodySize uint32
	headerBuf   [wire.HeaderSize]byte

	// Logging support (optional)
	logger log.Logger
	connID string
}

// NewFrameReader creates a new frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxBodySize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max body size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{
		r:           r,
		maxBodySize: maxSize,
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.logger = logger
	fr.connID = connID
}

// ReadFrame reads one frame and returns its header and raw body.
// Returns io.EOF if the stream ends cleanly between frames.
func (fr *FrameReader) ReadFrame() (wire.Header, []byte, error) {
	if _, err := io.ReadFull(fr.r, fr.headerBuf[:]); err != nil {
		if err == io.EOF {
			return wire.Header{}, nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return wire.Header{}, nil, ErrFrameTruncated
		}
		return wire.Header{}, nil, fmt.Errorf("failed to read header: %w", err)
	}

	h, length, err := wire.DecodeHeader(fr.headerBuf[:])
	if err != nil {
		return wire.Header{}, nil, err
	}
	if length > fr.maxBodySize {
		return wire.Header{}, nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxBodySize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return wire.Header{}, nil, ErrFrameTruncated
		}
		return wire.Header{}, nil, fmt.Errorf("failed to read body: %w", err)
	}

	if fr.logger != nil {
		fr.logger.Log(makeFrameEvent(fr.connID, body, log.DirectionIn))
	}

	return h, body, nil
}

// makeFrameEvent creates a log event for a frame.
func makeFrameEvent(connID string, body []byte, direction log.Direction) log.Event {
	data := body
	truncated := false
	if len(body) > MaxLogFrameDataSize {
		data = body[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      wire.HeaderSize + len(body),
			Data:      data,
			Truncated: truncated,
		},
	}
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxBodySize)
}

// NewFramerWithMaxSize creates a framer with a custom max body size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// ReadMessage reads one frame and decodes its body.
func (f *Framer) ReadMessage() (*wire.Message, error) {
	h, data, err := f.ReadFrame()
	if err != nil {
		return nil, err
	}
	body, err := wire.DecodeBody(data)
	if err != nil {
		return nil, err
	}
	return &wire.Message{Header: h, Body: body}, nil
}

// WriteMessage encodes the body of msg and writes the frame.
func (f *Framer) WriteMessage(msg *wire.Message) error {
	body, err := wire.EncodeBody(msg.Body)
	if err != nil {
		return err
	}
	return f.WriteFrame(msg.Header, body)
}
