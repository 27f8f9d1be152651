// Package commands implements the camlink-log CLI commands.
package commands

import (
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/camlink/camlink-go/pkg/log"
)

// Selection holds the event selection flags shared by every command.
// Empty fields select everything.
type Selection struct {
	ConnID    string
	Channel   *uint8
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string

	// MotionOnly keeps motion transitions and drops everything else.
	MotionOnly bool
}

var (
	layerNames = map[string]log.Layer{
		"transport": log.LayerTransport,
		"wire":      log.LayerWire,
		"session":   log.LayerSession,
	}
	directionNames = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
	categoryNames = map[string]log.Category{
		"message": log.CategoryMessage,
		"state":   log.CategoryState,
		"error":   log.CategoryError,
	}
)

// Register binds the selection to flags on fs.
func (s *Selection) Register(fs *flag.FlagSet) {
	fs.StringVar(&s.ConnID, "conn-id", "", "Select one connection ID")
	fs.Var(channelFlag{&s.Channel}, "channel", "Select one camera channel (0-255)")
	fs.StringVar(&s.TimeStart, "time-start", "", "Select events at or after this time (RFC3339)")
	fs.StringVar(&s.TimeEnd, "time-end", "", "Select events before this time (RFC3339)")
	fs.StringVar(&s.Layer, "layer", "", "Select a layer ("+choices(layerNames)+")")
	fs.StringVar(&s.Direction, "direction", "", "Select a direction ("+choices(directionNames)+")")
	fs.StringVar(&s.Category, "category", "", "Select a category ("+choices(categoryNames)+")")
	fs.BoolVar(&s.MotionOnly, "motion", false, "Select motion transitions only")
}

// Filter converts the selection into a reader filter.
func (s Selection) Filter() (log.Filter, error) {
	f := log.Filter{ConnectionID: s.ConnID, ChannelID: s.Channel}
	if s.MotionOnly {
		entity := log.StateEntityMotion
		f.Entity = &entity
	}

	var err error
	if f.TimeStart, err = parseTime("time-start", s.TimeStart); err != nil {
		return f, err
	}
	if f.TimeEnd, err = parseTime("time-end", s.TimeEnd); err != nil {
		return f, err
	}
	if f.Layer, err = lookup("layer", layerNames, s.Layer); err != nil {
		return f, err
	}
	if f.Direction, err = lookup("direction", directionNames, s.Direction); err != nil {
		return f, err
	}
	if f.Category, err = lookup("category", categoryNames, s.Category); err != nil {
		return f, err
	}
	return f, nil
}

// lookup resolves a case-insensitive flag value. An empty value yields nil.
func lookup[T any](name string, names map[string]T, value string) (*T, error) {
	if value == "" {
		return nil, nil
	}
	v, ok := names[strings.ToLower(value)]
	if !ok {
		return nil, fmt.Errorf("invalid %s %q (one of %s)", name, value, choices(names))
	}
	return &v, nil
}

func choices[T any](names map[string]T) string {
	return strings.Join(slices.Sorted(maps.Keys(names)), ", ")
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &t, nil
}

// channelFlag sets an optional channel number.
type channelFlag struct {
	dst **uint8
}

func (c channelFlag) String() string {
	if c.dst == nil || *c.dst == nil {
		return ""
	}
	return strconv.Itoa(int(**c.dst))
}

func (c channelFlag) Set(value string) error {
	n, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return fmt.Errorf("invalid channel %q", value)
	}
	ch := uint8(n)
	*c.dst = &ch
	return nil
}

// scan calls fn for every event of the log at path that filter selects.
// It reports whether the log ended in a partial event.
func scan(path string, filter log.Filter, fn func(log.Event) error) (truncated bool, err error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return false, fmt.Errorf("open log: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return reader.Truncated(), nil
		}
		if err != nil {
			return false, fmt.Errorf("read event: %w", err)
		}
		if err := fn(event); err != nil {
			return false, err
		}
	}
}
