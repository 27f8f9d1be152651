package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Header constants.
const (
	// Magic opens every message header.
	Magic uint32 = 0x0abcdef0

	// HeaderSize is the encoded header size in bytes.
	HeaderSize = 20
)

// Codec errors.
var (
	// ErrBadMagic indicates the header does not start with Magic.
	ErrBadMagic = errors.New("bad header magic")

	// ErrShortHeader indicates fewer than HeaderSize bytes were given.
	ErrShortHeader = errors.New("header too short")
)

// encMode is the CBOR encoder mode for message bodies.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for message bodies.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Cameras add fields between firmware releases; unknown keys are ignored.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeHeader encodes h followed by the body length.
func EncodeHeader(h Header, bodyLen uint32) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint32(b[0:4], Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.MsgID)
	binary.LittleEndian.PutUint32(b[8:12], bodyLen)
	b[12] = h.ChannelID
	b[13] = h.StreamType
	binary.LittleEndian.PutUint16(b[14:16], h.MsgNum)
	binary.LittleEndian.PutUint16(b[16:18], uint16(h.ResponseCode))
	binary.LittleEndian.PutUint16(b[18:20], h.Class)
	return b
}

// DecodeHeader decodes a header and returns it with the announced body length.
func DecodeHeader(b []byte) (Header, uint32, error) {
	if len(b) < HeaderSize {
		return Header{}, 0, ErrShortHeader
	}
	if magic := binary.LittleEndian.Uint32(b[0:4]); magic != Magic {
		return Header{}, 0, fmt.Errorf("%w: %#08x", ErrBadMagic, magic)
	}
	h := Header{
		MsgID:        binary.LittleEndian.Uint32(b[4:8]),
		ChannelID:    b[12],
		StreamType:   b[13],
		MsgNum:       binary.LittleEndian.Uint16(b[14:16]),
		ResponseCode: ResponseCode(binary.LittleEndian.Uint16(b[16:18])),
		Class:        binary.LittleEndian.Uint16(b[18:20]),
	}
	return h, binary.LittleEndian.Uint32(b[8:12]), nil
}

// EncodeBody encodes a message body. A nil body encodes to no bytes.
func EncodeBody(body *Body) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return data, nil
}

// DecodeBody decodes a message body. Empty input decodes to nil.
func DecodeBody(data []byte) (*Body, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var body Body
	if err := Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	return &body, nil
}

// EncodeMessage encodes a full message: header then body.
func EncodeMessage(msg *Message) ([]byte, error) {
	body, err := EncodeBody(msg.Body)
	if err != nil {
		return nil, err
	}
	header := EncodeHeader(msg.Header, uint32(len(body)))
	return append(header[:], body...), nil
}

// DecodeMessage decodes a full message produced by EncodeMessage.
func DecodeMessage(data []byte) (*Message, error) {
	h, bodyLen, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	rest := data[HeaderSize:]
	if uint32(len(rest)) != bodyLen {
		return nil, fmt.Errorf("body length mismatch: header says %d, have %d", bodyLen, len(rest))
	}
	body, err := DecodeBody(rest)
	if err != nil {
		return nil, err
	}
	return &Message{Header: h, Body: body}, nil
}
