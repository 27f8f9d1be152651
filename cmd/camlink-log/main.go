// Command camlink-log views and analyzes camlink protocol log files.
//
// Log files are written by camlink-motion when started with -protocol-log.
// Every command accepts the same selection flags (-channel, -motion,
// -layer, -category, -direction, -conn-id, -time-start, -time-end).
//
// Examples:
//
//	# Motion transitions, one per line
//	camlink-log view -motion front-door.clog
//
//	# Export channel 2 to CSV
//	camlink-log export -channel 2 -format csv -o ch2.csv nvr.clog
//
//	# Keep the motion transitions of channel 2 in a smaller log
//	camlink-log filter -channel 2 -motion -o ch2-motion.clog nvr.clog
//
//	# Per-channel motion counts for one evening
//	camlink-log stats -time-start 2026-05-01T18:00:00Z nvr.clog
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/camlink/camlink-go/cmd/camlink-log/commands"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commandList = []command{
	{"view", "Print events one per line", runView},
	{"export", "Export events as JSONL or CSV", runExport},
	{"filter", "Copy selected events into a new log file", runFilter},
	{"stats", "Summarize connections and motion per channel", runStats},
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage(os.Stdout)
		return
	}

	for _, c := range commandList {
		if c.name != name {
			continue
		}
		if err := c.run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "camlink-log %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "camlink-log: unknown command %q\n\n", name)
	printUsage(os.Stderr)
	os.Exit(2)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: camlink-log <command> [flags] <file.clog>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commandList {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "camlink-log <command> -help" for its flags.`)
}

// newFlagSet returns a flag set for name with the selection flags bound to sel.
func newFlagSet(name string, sel *commands.Selection) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: camlink-log %s [flags] <file.clog>\n\nFlags:\n", name)
		fs.PrintDefaults()
	}
	sel.Register(fs)
	return fs
}

// logPath parses args and returns the single log file operand.
func logPath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", errors.New("expected exactly one log file")
	}
	return fs.Arg(0), nil
}

func runView(args []string) error {
	var sel commands.Selection
	path, err := logPath(newFlagSet("view", &sel), args)
	if err != nil {
		return err
	}
	return commands.RunView(path, sel, os.Stdout)
}

func runExport(args []string) error {
	var opts commands.ExportOptions
	fs := newFlagSet("export", &opts.Selection)
	fs.StringVar(&opts.Format, "format", "jsonl", "Output format (csv, jsonl)")
	fs.StringVar(&opts.Output, "o", "", "Output file (default: stdout)")

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunExport(path, opts)
}

func runFilter(args []string) error {
	var opts commands.FilterOptions
	fs := newFlagSet("filter", &opts.Selection)
	fs.StringVar(&opts.Output, "o", "", "Output log file (required)")

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	if opts.Output == "" {
		fs.Usage()
		return errors.New("output file (-o) required")
	}

	count, err := commands.RunFilter(path, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
	return nil
}

func runStats(args []string) error {
	var sel commands.Selection
	path, err := logPath(newFlagSet("stats", &sel), args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, sel, os.Stdout)
}
