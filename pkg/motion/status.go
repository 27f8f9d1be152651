package motion

import (
	"fmt"
	"time"

	"github.com/camlink/camlink-go/pkg/wire"
)

// Kind identifies which of the three status variants a Status holds.
type Kind uint8

const (
	// KindNoChange marks a notification with nothing motion-relevant for
	// the session's channel.
	KindNoChange Kind = iota
	// KindStart marks motion becoming active.
	KindStart
	// KindStop marks motion becoming inactive.
	KindStop
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNoChange:
		return "NO_CHANGE"
	case KindStart:
		return "START"
	case KindStop:
		return "STOP"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Opposite returns Stop for Start and Start for Stop.
// NoChange has no opposite and is returned unchanged.
func (k Kind) Opposite() Kind {
	switch k {
	case KindStart:
		return KindStop
	case KindStop:
		return KindStart
	default:
		return k
	}
}

// Status is one classified notification.
//
// At holds the monotonic reading taken when the status was produced; only
// compare it with time.Since or Time.Sub.
type Status struct {
	Kind Kind
	At   time.Time
}

// String returns a short human-readable form.
func (s Status) String() string {
	return fmt.Sprintf("%s(%s ago)", s.Kind, time.Since(s.At).Round(time.Millisecond))
}

// Classify maps a notification to a status for the given channel.
//
// The first alarm event addressed to channelID decides the result: "MD"
// means Start, "none" means Stop and anything else means NoChange.
// Notifications without an alarm event list, or without an event for the
// channel, are NoChange.
func Classify(msg *wire.Message, channelID uint8, now time.Time) Status {
	events, ok := msg.AlarmEvents()
	if !ok {
		return Status{Kind: KindNoChange, At: now}
	}

	for _, ev := range events {
		if ev.ChannelID != channelID {
			continue
		}
		switch ev.Status {
		case wire.AlarmStatusMotion:
			return Status{Kind: KindStart, At: now}
		case wire.AlarmStatusNone:
			return Status{Kind: KindStop, At: now}
		default:
			return Status{Kind: KindNoChange, At: now}
		}
	}
	return Status{Kind: KindNoChange, At: now}
}
