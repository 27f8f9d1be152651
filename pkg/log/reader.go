package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events from a log. Nil or empty fields match everything.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// ChannelID keeps events for one camera channel. Events without a
	// channel never match.
	ChannelID *uint8

	// Entity keeps state changes of one entity, e.g. StateEntityMotion.
	// Events that are not state changes never match.
	Entity *StateEntity

	// TimeStart and TimeEnd bound the timestamp to [TimeStart, TimeEnd).
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// MotionFilter selects the motion transitions of one channel.
func MotionFilter(channel uint8) Filter {
	category := CategoryState
	entity := StateEntityMotion
	return Filter{Category: &category, ChannelID: &channel, Entity: &entity}
}

func (f *Filter) matches(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case !is(f.Direction, event.Direction), !is(f.Layer, event.Layer), !is(f.Category, event.Category):
		return false
	case f.ChannelID != nil && (event.ChannelID == nil || *event.ChannelID != *f.ChannelID):
		return false
	case f.Entity != nil && (event.StateChange == nil || event.StateChange.Entity != *f.Entity):
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// is reports whether want is unset or equal to got.
func is[T comparable](want *T, got T) bool {
	return want == nil || *want == got
}

// Reader streams events from a .clog file.
type Reader struct {
	file      *os.File
	decoder   *cbor.Decoder
	filter    Filter
	truncated bool
}

// NewReader opens path for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path for reading the events that match filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: eventDec.NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the log.
//
// A partial event at the very end, as left by a process killed while
// writing, also ends the log; Truncated reports it afterwards.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.truncated = true
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Truncated reports whether the log ended in a partial event.
func (r *Reader) Truncated() bool {
	return r.truncated
}

// Close closes the log file.
func (r *Reader) Close() error {
	return r.file.Close()
}
