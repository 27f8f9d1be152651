package wire

import (
	"errors"
	"testing"
)

func u8(v uint8) *uint8 { return &v }

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		MsgID:        MsgIDMotionRequest,
		ChannelID:    2,
		StreamType:   1,
		MsgNum:       0xBEEF,
		ResponseCode: ResponseOK,
		Class:        ClassModern,
	}

	b := EncodeHeader(h, 1234)
	got, bodyLen, err := DecodeHeader(b[:])
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if got != h {
		t.Errorf("header = %+v, want %+v", got, h)
	}
	if bodyLen != 1234 {
		t.Errorf("bodyLen = %d, want 1234", bodyLen)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	b := EncodeHeader(Header{MsgID: 1}, 0)

	if _, _, err := DecodeHeader(b[:HeaderSize-1]); !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected ErrShortHeader, got %v", err)
	}

	b[0] ^= 0xFF
	if _, _, err := DecodeHeader(b[:]); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "header only",
			msg: Message{Header: Header{
				MsgID:  MsgIDMotionRequest,
				MsgNum: 7,
				Class:  ClassModern,
			}},
		},
		{
			name: "alarm notification",
			msg: Message{
				Header: Header{MsgID: MsgIDMotion, MsgNum: 7, Class: ClassModern},
				Body: &Body{AlarmEventList: &AlarmEventList{Events: []AlarmEvent{
					{ChannelID: 0, Status: AlarmStatusMotion, AIType: "people", Recording: 1},
					{ChannelID: 1, Status: AlarmStatusNone},
				}}},
			},
		},
		{
			name: "floodlight command",
			msg: Message{
				Header: Header{MsgID: MsgIDFloodlightManual, MsgNum: 9, Class: ClassModern},
				Body: &Body{
					Extension: &Extension{ChannelID: u8(0)},
					FloodlightManual: &FloodlightManual{
						Version:  "1",
						Status:   1,
						Duration: 180,
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeMessage(&tt.msg)
			if err != nil {
				t.Fatalf("EncodeMessage failed: %v", err)
			}

			got, err := DecodeMessage(data)
			if err != nil {
				t.Fatalf("DecodeMessage failed: %v", err)
			}
			if got.Header != tt.msg.Header {
				t.Errorf("header = %+v, want %+v", got.Header, tt.msg.Header)
			}
			if (got.Body == nil) != (tt.msg.Body == nil) {
				t.Fatalf("body presence = %v, want %v", got.Body != nil, tt.msg.Body != nil)
			}

			wantEvents, wantOK := tt.msg.AlarmEvents()
			gotEvents, gotOK := got.AlarmEvents()
			if gotOK != wantOK || len(gotEvents) != len(wantEvents) {
				t.Fatalf("alarm events = %v (%v), want %v (%v)", gotEvents, gotOK, wantEvents, wantOK)
			}
			for i := range wantEvents {
				if gotEvents[i] != wantEvents[i] {
					t.Errorf("event[%d] = %+v, want %+v", i, gotEvents[i], wantEvents[i])
				}
			}
		})
	}
}

func TestDecodeMessageLengthMismatch(t *testing.T) {
	data, err := EncodeMessage(&Message{
		Header: Header{MsgID: MsgIDMotion},
		Body:   &Body{AlarmEventList: &AlarmEventList{}},
	})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	if _, err := DecodeMessage(data[:len(data)-1]); err == nil {
		t.Error("expected error for truncated body")
	}
}

func TestResponseCode(t *testing.T) {
	if !ResponseOK.IsSuccess() {
		t.Error("ResponseOK.IsSuccess() = false")
	}
	if ResponseBusy.IsSuccess() {
		t.Error("ResponseBusy.IsSuccess() = true")
	}
	if got := ResponseCode(999).String(); got != "UNKNOWN" {
		t.Errorf("String() = %q, want UNKNOWN", got)
	}
}
