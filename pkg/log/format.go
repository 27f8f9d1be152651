package log

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FileExtension is the conventional suffix of protocol log files.
const FileExtension = ".clog"

// A .clog file is a plain concatenation of CBOR-encoded Events. There is no
// file header, so a log can be appended to by several runs and a watcher
// killed mid-write leaves at most one partial event at the tail.
var (
	eventEnc cbor.EncMode
	eventDec cbor.DecMode
)

func init() {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: event encoder: %v", err))
	}

	// Events nest at most two levels (event, payload); anything deeper or
	// with repeated keys was not written by FileLogger.
	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		MaxNestedLevels: 8,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: event decoder: %v", err))
	}

	eventEnc, eventDec = enc, dec
}

// EncodeEvent encodes one event as it is stored in a .clog file.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEnc.Marshal(event)
}

// DecodeEvent decodes one stored event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
