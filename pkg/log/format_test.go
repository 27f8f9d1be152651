package log

import (
	"testing"
	"time"

	"github.com/camlink/camlink-go/pkg/wire"
)

func TestEventRoundTrip(t *testing.T) {
	ch := uint8(1)
	code := 409
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)

	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionIn,
				Layer: LayerTransport, Category: CategoryMessage,
				Frame: &FrameEvent{Size: 42, Data: []byte{0xDE, 0xAD}, Truncated: true},
			},
		},
		{
			name: "message",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionOut,
				Layer: LayerWire, Category: CategoryMessage, RemoteAddr: "10.0.0.5:9000",
				Message: &MessageEvent{MsgID: wire.MsgIDMotionRequest, MsgNum: 3, ResponseCode: wire.ResponseOK, Class: wire.ClassModern},
			},
		},
		{
			name: "motion state",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Layer: LayerSession, Category: CategoryState,
				ChannelID:   &ch,
				StateChange: &StateChangeEvent{Entity: StateEntityMotion, OldState: "STOP", NewState: "START"},
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Layer: LayerSession, Category: CategoryError,
				Error: &ErrorEventData{Layer: LayerSession, Message: "rejected", Code: &code, Context: "arm"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}

			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}
			if got.ConnectionID != tt.event.ConnectionID || got.Layer != tt.event.Layer ||
				got.Category != tt.event.Category || got.Direction != tt.event.Direction {
				t.Errorf("envelope mismatch: got %+v", got)
			}
			if (got.Frame == nil) != (tt.event.Frame == nil) ||
				(got.Message == nil) != (tt.event.Message == nil) ||
				(got.StateChange == nil) != (tt.event.StateChange == nil) ||
				(got.Error == nil) != (tt.event.Error == nil) {
				t.Fatalf("payload presence mismatch: got %+v", got)
			}
			if tt.event.Message != nil && *got.Message != *tt.event.Message {
				t.Errorf("Message = %+v, want %+v", *got.Message, *tt.event.Message)
			}
			if tt.event.StateChange != nil && *got.StateChange != *tt.event.StateChange {
				t.Errorf("StateChange = %+v, want %+v", *got.StateChange, *tt.event.StateChange)
			}
			if tt.event.ChannelID != nil && (got.ChannelID == nil || *got.ChannelID != ch) {
				t.Errorf("ChannelID = %v, want %d", got.ChannelID, ch)
			}
			if tt.event.Error != nil && (got.Error.Code == nil || *got.Error.Code != code) {
				t.Errorf("Error.Code = %v, want %d", got.Error.Code, code)
			}
		})
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xFF, 0x00}); err == nil {
		t.Error("expected error decoding garbage")
	}
}

func TestDecodeEventRejectsForeignEncodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"duplicate key", []byte{0xA2, 0x02, 0x61, 'a', 0x02, 0x61, 'b'}},
		{"indefinite map", []byte{0xBF, 0x02, 0x61, 'a', 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent(tt.data); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEncodeEventDeterministic(t *testing.T) {
	ch := uint8(2)
	event := Event{
		ConnectionID: "c1",
		Layer:        LayerSession,
		Category:     CategoryState,
		ChannelID:    &ch,
		StateChange:  &StateChangeEvent{Entity: StateEntityMotion, OldState: "STOP", NewState: "START"},
	}

	a, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, _ := EncodeEvent(event)
	if string(a) != string(b) {
		t.Error("encoding the same event twice gave different bytes")
	}
}
