package log

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends protocol events to a .clog file as a CBOR stream.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewFileLogger creates a new FileLogger that writes to the specified path.
// If the file exists, new events are appended. The file is created with
// permissions 0640 if it doesn't exist.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: eventEnc.NewEncoder(f),
	}, nil
}

// Log writes an event to the log file.
// This method is safe for concurrent use.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		l.dropped.Add(1)
		return
	}

	// A broken log must not stall the camera link; count and move on.
	if err := l.encoder.Encode(event); err != nil {
		l.dropped.Add(1)
		return
	}
	l.written.Add(1)
}

// Written returns the number of events encoded to the file.
func (l *FileLogger) Written() uint64 {
	return l.written.Load()
}

// Dropped returns the number of events lost, either because the logger was
// closed or because encoding or writing failed.
func (l *FileLogger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close closes the log file.
// It is safe to call Close multiple times.
// After Close is called, subsequent Log calls are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
