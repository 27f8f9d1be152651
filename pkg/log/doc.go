// Package log provides structured protocol logging for camlink.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at several layers (transport, wire, session).
// It is separate from operational logging (slog): protocol capture gives a
// complete machine-readable trace of what the camera sent and how the
// motion pipeline interpreted it.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field debugging: write to a binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/camlink/cam1.clog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded headers (MessageEvent)
//   - Session: motion and subscription state changes (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events (.clog). The camlink-log
// command prints and filters them.
package log
