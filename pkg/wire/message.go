package wire

import "fmt"

// Message ids used by this client.
const (
	// MsgIDMotionRequest arms motion reporting. The camera acknowledges on
	// the request's message number and then pushes notifications there.
	MsgIDMotionRequest uint32 = 31

	// MsgIDMotion is the msg id carried by pushed alarm notifications.
	MsgIDMotion uint32 = 33

	// MsgIDFloodlightManual switches the floodlight on or off.
	MsgIDFloodlightManual uint32 = 288
)

// ClassModern is the header class of modern (body-carrying) messages.
const ClassModern uint16 = 0x6414

// Alarm event status values.
const (
	// AlarmStatusMotion marks an alarm entry reporting detected motion.
	AlarmStatusMotion = "MD"

	// AlarmStatusNone marks an alarm entry reporting that motion ended.
	AlarmStatusNone = "none"
)

// Header is the fixed routing part of every message.
type Header struct {
	MsgID        uint32
	ChannelID    uint8
	StreamType   uint8
	MsgNum       uint16
	ResponseCode ResponseCode
	Class        uint16
}

// Message is a decoded protocol message.
type Message struct {
	Header Header

	// Body is nil for header-only messages.
	Body *Body
}

// IsSuccess returns true if the message carries a success response code.
func (m *Message) IsSuccess() bool {
	return m.Header.ResponseCode.IsSuccess()
}

// AlarmEvents returns the alarm entries carried by the message, if any.
func (m *Message) AlarmEvents() ([]AlarmEvent, bool) {
	if m.Body == nil || m.Body.AlarmEventList == nil {
		return nil, false
	}
	return m.Body.AlarmEventList.Events, true
}

// String returns a short description for logs.
func (m *Message) String() string {
	return fmt.Sprintf("msg{id=%d num=%d ch=%d code=%d}",
		m.Header.MsgID, m.Header.MsgNum, m.Header.ChannelID, m.Header.ResponseCode)
}

// Body is the CBOR-encoded part of a modern message.
//
// CBOR encoding:
//
//	{
//	  1: extension,          // optional
//	  2: alarmEventList,     // notifications on the motion message number
//	  3: floodlightManual    // floodlight command
//	}
type Body struct {
	Extension        *Extension        `cbor:"1,keyasint,omitempty"`
	AlarmEventList   *AlarmEventList   `cbor:"2,keyasint,omitempty"`
	FloodlightManual *FloodlightManual `cbor:"3,keyasint,omitempty"`
}

// Extension carries addressing that does not fit the header.
type Extension struct {
	ChannelID *uint8 `cbor:"1,keyasint,omitempty"`
}

// AlarmEventList is the payload of an alarm notification.
type AlarmEventList struct {
	Events []AlarmEvent `cbor:"1,keyasint"`
}

// AlarmEvent is one entry of an alarm notification.
type AlarmEvent struct {
	ChannelID uint8  `cbor:"1,keyasint"`
	Status    string `cbor:"2,keyasint"`

	// AIType lists smart-detection classes ("people", "vehicle"), if any.
	AIType string `cbor:"3,keyasint,omitempty"`

	// Recording is 1 while the camera is recording the event.
	Recording int `cbor:"4,keyasint,omitempty"`
}

// FloodlightManual is the payload of a floodlight command.
type FloodlightManual struct {
	Version   string `cbor:"1,keyasint"`
	ChannelID uint8  `cbor:"2,keyasint"`

	// Status is 1 for on, 0 for off.
	Status uint8 `cbor:"3,keyasint"`

	// Duration is how long the light stays on, in seconds.
	Duration uint16 `cbor:"4,keyasint"`
}
