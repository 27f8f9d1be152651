// Package interactive provides the interactive prompt of camlink-motion.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/camlink/camlink-go/pkg/camera"
	"github.com/camlink/camlink-go/pkg/motion"
)

// DefaultWaitTimeout bounds blocking commands when no timeout is given.
const DefaultWaitTimeout = 60 * time.Second

// Options configures the shell.
type Options struct {
	// Channel is shown in the prompt.
	Channel uint8

	// FloodlightDuration is used by "floodlight on" without an explicit
	// duration (seconds).
	FloodlightDuration uint16
}

// Shell answers motion queries typed at a prompt.
//
// The shell is the only user of the session, which is not safe for
// concurrent use.
type Shell struct {
	cam     *camera.Camera
	session *motion.Session
	opts    Options
	rl      *readline.Instance
	out     io.Writer

	closeOnce sync.Once
}

// New creates a shell on the terminal. The terminal is taken over right
// away, so logs can be routed through Stdout before the camera is
// connected; Attach the session before calling Run.
func New(opts Options) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("ch%d> ", opts.Channel),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(nil, nil, opts, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(cam *camera.Camera, session *motion.Session, opts Options, out io.Writer) *Shell {
	return &Shell{cam: cam, session: session, opts: opts, out: out}
}

// Attach sets the camera and motion session the commands act on.
func (s *Shell) Attach(cam *camera.Camera, session *motion.Session) {
	s.cam = cam
	s.session = session
}

// Close releases the terminal. It is safe to call more than once.
func (s *Shell) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.rl != nil {
			err = s.rl.Close()
		}
	})
	return err
}

// Stdout returns a writer that coordinates with the prompt.
// Use this for log output so it does not garble the input line.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx ends.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.execute(ctx, line) {
			cancel()
			return
		}
	}
}

// execute runs one command line. It returns false when the shell should exit.
func (s *Shell) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "motion", "m":
		s.cmdMotion()
	case "within", "w":
		s.cmdWithin(args)
	case "next", "n":
		s.cmdNext(ctx, args)
	case "drain", "d":
		s.cmdDrain()
	case "wait-start", "ws":
		s.cmdAwait(ctx, motion.KindStart, args)
	case "wait-stop", "wt":
		s.cmdAwait(ctx, motion.KindStop, args)
	case "floodlight", "f":
		s.cmdFloodlight(ctx, args)
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Motion Commands:
  Queries:
    motion                    - Is motion active right now?
    within <dur>              - Active, or stopped less than <dur> ago?
    next [timeout]            - Wait for the next status
    drain                     - Show queued statuses

  Debounce:
    wait-start <dur> [timeout] - Wait until motion held for <dur>
    wait-stop <dur> [timeout]  - Wait until stillness held for <dur>

  Camera:
    floodlight on|off [secs]  - Switch the floodlight

  General:
    help                      - Show this help
    quit                      - Exit

  Durations use Go syntax: 500ms, 5s, 1m30s`)
}

func (s *Shell) cmdMotion() {
	active, known, err := s.session.IsMotion()
	s.printMotion(active, known, err)
}

func (s *Shell) cmdWithin(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: within <dur>")
		return
	}
	window, err := time.ParseDuration(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid duration: %v\n", err)
		return
	}
	active, known, err := s.session.IsMotionWithin(window)
	s.printMotion(active, known, err)
}

func (s *Shell) printMotion(active, known bool, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	case !known:
		fmt.Fprintln(s.out, "motion: unknown")
	case active:
		fmt.Fprintln(s.out, "motion: active")
	default:
		fmt.Fprintln(s.out, "motion: inactive")
	}
}

func (s *Shell) cmdNext(ctx context.Context, args []string) {
	timeout, ok := s.timeoutArg(args, 0)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st, err := s.session.Next(ctx)
	if err != nil {
		s.printWaitError(err)
		return
	}
	fmt.Fprintln(s.out, st)
}

func (s *Shell) cmdDrain() {
	statuses, err := s.session.Drain()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(statuses) == 0 {
		fmt.Fprintln(s.out, "(no statuses queued)")
		return
	}
	for _, st := range statuses {
		fmt.Fprintln(s.out, st)
	}
}

func (s *Shell) cmdAwait(ctx context.Context, kind motion.Kind, args []string) {
	if len(args) < 1 {
		fmt.Fprintf(s.out, "Usage: %s <dur> [timeout]\n", awaitName(kind))
		return
	}
	hold, err := time.ParseDuration(args[0])
	if err != nil || hold < 0 {
		fmt.Fprintf(s.out, "Invalid duration: %s\n", args[0])
		return
	}
	timeout, ok := s.timeoutArg(args, 1)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	if kind == motion.KindStart {
		err = s.session.AwaitStart(ctx, hold)
	} else {
		err = s.session.AwaitStop(ctx, hold)
	}
	if err != nil {
		s.printWaitError(err)
		return
	}
	fmt.Fprintf(s.out, "%s held for %s (waited %s)\n", kind, hold, time.Since(started).Round(time.Millisecond))
}

func awaitName(kind motion.Kind) string {
	if kind == motion.KindStart {
		return "wait-start"
	}
	return "wait-stop"
}

func (s *Shell) cmdFloodlight(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(s.out, "Usage: floodlight on|off [secs]")
		return
	}

	var on bool
	switch strings.ToLower(args[0]) {
	case "on":
		on = true
	case "off":
	default:
		fmt.Fprintln(s.out, "Usage: floodlight on|off [secs]")
		return
	}

	var duration uint16
	if on {
		duration = s.opts.FloodlightDuration
	}
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid duration: %s\n", args[1])
			return
		}
		duration = uint16(v)
	}

	if err := s.cam.SetFloodlightManual(ctx, on, duration); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

// timeoutArg parses args[i] as a timeout, defaulting to DefaultWaitTimeout.
func (s *Shell) timeoutArg(args []string, i int) (time.Duration, bool) {
	if len(args) <= i {
		return DefaultWaitTimeout, true
	}
	d, err := time.ParseDuration(args[i])
	if err != nil || d <= 0 {
		fmt.Fprintf(s.out, "Invalid timeout: %s\n", args[i])
		return 0, false
	}
	return d, true
}

func (s *Shell) printWaitError(err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(s.out, "timed out")
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
