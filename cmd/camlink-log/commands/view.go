package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/wire"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the selected events of the log at path, one per line.
func RunView(path string, sel Selection, w io.Writer) error {
	filter, err := sel.Filter()
	if err != nil {
		return err
	}
	truncated, err := scan(path, filter, func(e log.Event) error {
		_, err := io.WriteString(w, eventLine(e)+"\n")
		return err
	})
	if err != nil {
		return err
	}
	if truncated {
		fmt.Fprintln(w, "# log ends in a partial event")
	}
	return nil
}

// eventLine renders "time conn dir layer [chN] kind key=value...".
func eventLine(e log.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-8s %-3s %-9s", e.Timestamp.UTC().Format(timeLayout),
		shortID(e.ConnectionID), e.Direction, e.Layer)
	if e.ChannelID != nil {
		fmt.Fprintf(&b, " ch%d", *e.ChannelID)
	}
	b.WriteString(" " + eventType(e))
	for _, f := range details(e) {
		fmt.Fprintf(&b, " %s=%s", f.key, f.value)
	}
	return b.String()
}

// eventType returns a short label for the event payload.
func eventType(e log.Event) string {
	switch {
	case e.Frame != nil:
		return "Frame"
	case e.Message != nil:
		return log.MessageName(e.Message.MsgID)
	case e.StateChange != nil:
		return "State"
	case e.Error != nil:
		return "Error"
	default:
		return "-"
	}
}

type field struct {
	key, value string
}

// details lists the payload fields of e in display order.
func details(e log.Event) []field {
	switch {
	case e.Frame != nil:
		fs := []field{{"size", strconv.Itoa(e.Frame.Size)}}
		if len(e.Frame.Data) > 0 {
			data := hex.EncodeToString(e.Frame.Data)
			if e.Frame.Truncated {
				data += "..."
			}
			fs = append(fs, field{"data", data})
		}
		return fs
	case e.Message != nil:
		m := e.Message
		fs := []field{{"num", strconv.Itoa(int(m.MsgNum))}}
		if m.ResponseCode != wire.ResponseNone {
			fs = append(fs, field{"response", fmt.Sprintf("%s(%d)", m.ResponseCode, uint16(m.ResponseCode))})
		}
		if m.Class != 0 {
			fs = append(fs, field{"class", fmt.Sprintf("0x%04x", m.Class)})
		}
		return fs
	case e.StateChange != nil:
		sc := e.StateChange
		fs := []field{{"entity", sc.Entity.String()}}
		if sc.OldState != "" {
			fs = append(fs, field{"from", sc.OldState})
		}
		fs = append(fs, field{"to", sc.NewState})
		if sc.Reason != "" {
			fs = append(fs, field{"reason", strconv.Quote(sc.Reason)})
		}
		return fs
	case e.Error != nil:
		fs := []field{
			{"layer", e.Error.Layer.String()},
			{"msg", strconv.Quote(e.Error.Message)},
		}
		if e.Error.Code != nil {
			fs = append(fs, field{"code", strconv.Itoa(*e.Error.Code)})
		}
		if e.Error.Context != "" {
			fs = append(fs, field{"during", strconv.Quote(e.Error.Context)})
		}
		return fs
	default:
		return nil
	}
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
