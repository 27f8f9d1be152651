package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/camlink/camlink-go/pkg/log"
)

// ExportOptions controls the export command.
type ExportOptions struct {
	Selection

	// Format is "jsonl" or "csv".
	Format string

	// Output is the destination file; empty writes to stdout.
	Output string
}

// sink writes exported events and finishes the output.
type sink struct {
	emit  func(log.Event) error
	flush func() error
}

var formats = map[string]func(io.Writer) (sink, error){
	"jsonl": jsonlSink,
	"csv":   csvSink,
}

var csvHeader = []string{"timestamp", "connection_id", "direction", "layer", "category", "channel", "type", "detail"}

// RunExport writes the selected events of the log at path in opts.Format.
func RunExport(path string, opts ExportOptions) error {
	newSink, ok := formats[opts.Format]
	if !ok {
		return fmt.Errorf("unknown format %q (one of %s)", opts.Format, choices(formats))
	}
	filter, err := opts.Filter()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	s, err := newSink(w)
	if err != nil {
		return err
	}
	if _, err := scan(path, filter, s.emit); err != nil {
		return err
	}
	return s.flush()
}

func jsonlSink(w io.Writer) (sink, error) {
	enc := json.NewEncoder(w)
	return sink{
		emit:  func(e log.Event) error { return enc.Encode(e) },
		flush: func() error { return nil },
	}, nil
}

func csvSink(w io.Writer) (sink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return sink{}, fmt.Errorf("write header: %w", err)
	}
	return sink{
		emit: func(e log.Event) error { return cw.Write(csvRecord(e)) },
		flush: func() error {
			cw.Flush()
			return cw.Error()
		},
	}, nil
}

func csvRecord(e log.Event) []string {
	var channel string
	if e.ChannelID != nil {
		channel = strconv.Itoa(int(*e.ChannelID))
	}
	pairs := make([]string, 0, 4)
	for _, f := range details(e) {
		pairs = append(pairs, f.key+"="+f.value)
	}
	return []string{
		e.Timestamp.UTC().Format(timeLayout),
		e.ConnectionID,
		e.Direction.String(),
		e.Layer.String(),
		e.Category.String(),
		channel,
		eventType(e),
		strings.Join(pairs, " "),
	}
}
