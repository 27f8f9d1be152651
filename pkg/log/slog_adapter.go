package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events into an slog.Logger so they can be
// read next to operational logs. Motion transitions are logged at Info,
// errors at Warn and everything else at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes one record per event. Events below the handler's level are
// skipped before any attributes are built.
func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	level := eventLevel(event)
	if !a.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 5)
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn", event.ConnectionID))
	}
	if event.ChannelID != nil {
		attrs = append(attrs, slog.Int("channel", int(*event.ChannelID)))
	}
	attrs = append(attrs,
		slog.String("dir", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	)
	if payload, ok := payloadAttr(event); ok {
		attrs = append(attrs, payload)
	}

	a.logger.LogAttrs(ctx, level, eventSummary(event), attrs...)
}

func eventLevel(event Event) slog.Level {
	switch {
	case event.Error != nil:
		return slog.LevelWarn
	case event.StateChange != nil && event.StateChange.Entity == StateEntityMotion:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func eventSummary(event Event) string {
	switch {
	case event.Frame != nil:
		return "frame"
	case event.Message != nil:
		return MessageName(event.Message.MsgID)
	case event.StateChange != nil:
		return event.StateChange.Entity.String() + " " + event.StateChange.NewState
	case event.Error != nil:
		return "protocol error"
	default:
		return event.Category.String()
	}
}

// payloadAttr groups the fields of whichever payload the event carries.
func payloadAttr(event Event) (slog.Attr, bool) {
	switch {
	case event.Frame != nil:
		return slog.Group("frame",
			slog.Int("size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		), true
	case event.Message != nil:
		m := event.Message
		return slog.Group("header",
			slog.Uint64("id", uint64(m.MsgID)),
			slog.Uint64("num", uint64(m.MsgNum)),
			slog.String("response", m.ResponseCode.String()),
		), true
	case event.StateChange != nil:
		sc := event.StateChange
		args := []any{slog.String("to", sc.NewState)}
		if sc.OldState != "" {
			args = append(args, slog.String("from", sc.OldState))
		}
		if sc.Reason != "" {
			args = append(args, slog.String("reason", sc.Reason))
		}
		return slog.Group("state", args...), true
	case event.Error != nil:
		e := event.Error
		args := []any{
			slog.String("layer", e.Layer.String()),
			slog.String("msg", e.Message),
		}
		if e.Context != "" {
			args = append(args, slog.String("during", e.Context))
		}
		if e.Code != nil {
			args = append(args, slog.Int("code", *e.Code))
		}
		return slog.Group("err", args...), true
	default:
		return slog.Attr{}, false
	}
}

var _ Logger = (*SlogAdapter)(nil)
