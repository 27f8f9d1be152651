package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
)

// Stats summarizes a protocol log.
type Stats struct {
	Events     int
	ByLayer    map[log.Layer]int
	ByCategory map[log.Category]int
	First      time.Time
	Last       time.Time
	Errors     int

	// Connections in order of first appearance.
	Connections []*ConnectionStats
	Channels    map[uint8]*ChannelStats

	// Truncated is set when the log ends in a partial event.
	Truncated bool

	byConn map[string]*ConnectionStats
}

// ConnectionStats describes one camera connection.
type ConnectionStats struct {
	ID        string
	Camera    string
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int

	// Closed is the reason given when the connection went down.
	Closed string
}

// ChannelStats tracks motion episodes on one camera channel. An episode
// runs from a START to the next STOP.
type ChannelStats struct {
	Starts    int
	Stops     int
	InMotion  time.Duration
	Longest   time.Duration
	LastStart time.Time

	open time.Time
}

func newStats() *Stats {
	return &Stats{
		ByLayer:    make(map[log.Layer]int),
		ByCategory: make(map[log.Category]int),
		Channels:   make(map[uint8]*ChannelStats),
		byConn:     make(map[string]*ConnectionStats),
	}
}

// RunStats summarizes the selected events of the log at path.
func RunStats(path string, sel Selection, w io.Writer) error {
	filter, err := sel.Filter()
	if err != nil {
		return err
	}

	stats := newStats()
	stats.Truncated, err = scan(path, filter, func(e log.Event) error {
		stats.add(e)
		return nil
	})
	if err != nil {
		return err
	}
	return stats.print(w)
}

func (s *Stats) add(e log.Event) {
	s.Events++
	s.ByLayer[e.Layer]++
	s.ByCategory[e.Category]++
	if s.First.IsZero() || e.Timestamp.Before(s.First) {
		s.First = e.Timestamp
	}
	if e.Timestamp.After(s.Last) {
		s.Last = e.Timestamp
	}
	if e.Error != nil {
		s.Errors++
	}

	conn := s.connection(e)
	if sc := e.StateChange; sc != nil {
		switch sc.Entity {
		case log.StateEntityConnection:
			if sc.Reason != "" {
				conn.Closed = sc.Reason
			}
		case log.StateEntityMotion:
			if e.ChannelID != nil {
				s.channel(*e.ChannelID).observe(sc.NewState, e.Timestamp)
			}
		}
	}
}

func (s *Stats) connection(e log.Event) *ConnectionStats {
	c, ok := s.byConn[e.ConnectionID]
	if !ok {
		c = &ConnectionStats{ID: e.ConnectionID, FirstSeen: e.Timestamp}
		s.byConn[e.ConnectionID] = c
		s.Connections = append(s.Connections, c)
	}
	c.Events++
	if e.Timestamp.After(c.LastSeen) {
		c.LastSeen = e.Timestamp
	}
	if c.Camera == "" {
		c.Camera = e.RemoteAddr
	}
	return c
}

func (s *Stats) channel(ch uint8) *ChannelStats {
	c, ok := s.Channels[ch]
	if !ok {
		c = &ChannelStats{}
		s.Channels[ch] = c
	}
	return c
}

func (c *ChannelStats) observe(state string, at time.Time) {
	switch state {
	case "START":
		c.Starts++
		if at.After(c.LastStart) {
			c.LastStart = at
		}
		if c.open.IsZero() {
			c.open = at
		}
	case "STOP":
		c.Stops++
		if !c.open.IsZero() {
			d := at.Sub(c.open)
			c.InMotion += d
			c.Longest = max(c.Longest, d)
			c.open = time.Time{}
		}
	}
}

// counts renders "NAME=n" for the non-zero entries of m in key order.
func counts[K interface {
	~uint8
	fmt.Stringer
}](m map[K]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if m[k] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
		}
	}
	return strings.Join(parts, " ")
}

func (s *Stats) print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Events:\t%d\n", s.Events)
	if s.Truncated {
		fmt.Fprintln(tw, "Note:\tlog ends in a partial event (writer was interrupted)")
	}
	if s.Events > 0 {
		fmt.Fprintf(tw, "Span:\t%s .. %s (%s)\n", s.First.UTC().Format(time.RFC3339),
			s.Last.UTC().Format(time.RFC3339), s.Last.Sub(s.First).Round(time.Second))
		fmt.Fprintf(tw, "Layers:\t%s\n", counts(s.ByLayer))
		fmt.Fprintf(tw, "Categories:\t%s\n", counts(s.ByCategory))
	}
	fmt.Fprintf(tw, "Errors:\t%d\n", s.Errors)

	if len(s.Connections) > 0 {
		fmt.Fprintf(tw, "\nConnections (%d):\n", len(s.Connections))
		fmt.Fprintln(tw, "  ID\tCAMERA\tEVENTS\tUP\tCLOSED")
		for _, c := range s.Connections {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%s\n", shortID(c.ID), orDash(c.Camera), c.Events,
				c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond), orDash(c.Closed))
		}
	}

	if len(s.Channels) > 0 {
		fmt.Fprintln(tw, "\nMotion:")
		fmt.Fprintln(tw, "  CH\tSTARTS\tSTOPS\tIN MOTION\tLONGEST\tLAST START")
		for _, ch := range slices.Sorted(maps.Keys(s.Channels)) {
			c := s.Channels[ch]
			last := "-"
			if !c.LastStart.IsZero() {
				last = c.LastStart.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%s\t%s\n", ch, c.Starts, c.Stops,
				c.InMotion.Round(time.Second), c.Longest.Round(time.Second), last)
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
