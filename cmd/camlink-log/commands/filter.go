package commands

import (
	"fmt"
	"os"

	"github.com/camlink/camlink-go/pkg/log"
)

// FilterOptions controls the filter command.
type FilterOptions struct {
	Selection

	// Output is the .clog file the selected events are appended to.
	Output string
}

// RunFilter appends the selected events of the log at path to opts.Output
// and returns how many were copied.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.Filter()
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("open log: %w", err)
	}

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	_, err = scan(path, filter, func(e log.Event) error {
		out.Log(e)
		return nil
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && out.Dropped() > 0 {
		err = fmt.Errorf("%d events could not be written", out.Dropped())
	}
	return int(out.Written()), err
}
