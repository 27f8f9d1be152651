package log

import (
	"fmt"
	"time"

	"github.com/camlink/camlink-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the camera connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the camera address (host:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// ChannelID is the camera channel the event concerns, if any.
	ChannelID *uint8 `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

func (d Direction) String() string { return enumName(directionNames, d) }

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message layer (decoded header and body).
	LayerWire Layer = 1
	// LayerSession is the motion session layer.
	LayerSession Layer = 2
)

func (l Layer) String() string { return enumName(layerNames, l) }

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

func (c Category) String() string { return enumName(categoryNames, c) }

var (
	directionNames = []string{"IN", "OUT"}
	layerNames     = []string{"TRANSPORT", "WIRE", "SESSION"}
	categoryNames  = []string{"MESSAGE", "STATE", "ERROR"}
	entityNames    = []string{"CONNECTION", "SUBSCRIPTION", "MOTION"}
)

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including the header).
	Size int `cbor:"1,keyasint"`

	// Data is the raw body bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded message header at the wire layer.
type MessageEvent struct {
	MsgID        uint32            `cbor:"1,keyasint"`
	MsgNum       uint16            `cbor:"2,keyasint"`
	ChannelID    uint8             `cbor:"3,keyasint"`
	ResponseCode wire.ResponseCode `cbor:"4,keyasint"`
	Class        uint16            `cbor:"5,keyasint"`
}

// MessageName names the message ids this client sends or receives.
func MessageName(id uint32) string {
	switch id {
	case wire.MsgIDMotionRequest:
		return "MotionRequest"
	case wire.MsgIDMotion:
		return "Motion"
	case wire.MsgIDFloodlightManual:
		return "FloodlightManual"
	default:
		return fmt.Sprintf("Msg%d", id)
	}
}

// StateChangeEvent captures connection, subscription and motion changes.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySubscription indicates a subscription was opened or closed.
	StateEntitySubscription StateEntity = 1
	// StateEntityMotion indicates a motion start or stop.
	StateEntityMotion StateEntity = 2
)

func (s StateEntity) String() string { return enumName(entityNames, s) }

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the response code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
