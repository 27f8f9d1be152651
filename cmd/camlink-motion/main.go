// Command camlink-motion watches a camera for motion and reacts to it.
//
// It keeps a connection to the camera, arms motion reporting and logs
// debounced motion start and stop events. Optionally it switches the
// floodlight on while motion is active.
//
// Usage:
//
//	camlink-motion [flags]
//
// Flags:
//
//	-config string        YAML configuration file
//	-address string       Camera address (host:port)
//	-channel int          Camera channel (default 0)
//	-start-hold duration  Motion must persist this long before it counts (default 1s)
//	-stop-hold duration   Stillness must persist this long before it counts (default 10s)
//	-floodlight           Switch the floodlight on while motion is active
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-log-format string    Log format: text, json (default "text")
//	-protocol-log string  Write protocol events to this .clog file
//	-metrics-addr string  Serve Prometheus metrics on this address
//	-interactive          Query the motion session from a prompt
//
// Examples:
//
//	# Watch channel 2 of an NVR
//	camlink-motion -address 192.168.1.20:9000 -channel 2
//
//	# Run from a config file with a protocol trace
//	camlink-motion -config /etc/camlink/motion.yaml -protocol-log motion.clog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camlink/camlink-go/cmd/camlink-motion/interactive"
	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/metrics"
)

var (
	configFile string
	flags      = DefaultConfig()
	channel    uint // flag package has no uint8
)

func init() {
	flag.StringVar(&configFile, "config", "", "YAML configuration file")
	flag.StringVar(&flags.Address, "address", "", "Camera address (host:port)")
	flag.UintVar(&channel, "channel", 0, "Camera channel")
	flag.DurationVar(&flags.StartHold, "start-hold", flags.StartHold, "Motion must persist this long before it counts")
	flag.DurationVar(&flags.StopHold, "stop-hold", flags.StopHold, "Stillness must persist this long before it counts")
	flag.BoolVar(&flags.Floodlight.OnMotion, "floodlight", false, "Switch the floodlight on while motion is active")
	flag.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text, json")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to this .clog file")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Query the motion session from a prompt")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogging(os.Stderr, cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("camlink-motion failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flags the user
// set explicitly on top of it.
func loadConfig() (Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = LoadConfig(configFile); err != nil {
			return Config{}, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			cfg.Address = flags.Address
		case "channel":
			cfg.Channel = uint8(channel)
		case "start-hold":
			cfg.StartHold = flags.StartHold
		case "stop-hold":
			cfg.StopHold = flags.StopHold
		case "floodlight":
			cfg.Floodlight.OnMotion = flags.Floodlight.OnMotion
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "metrics-addr":
			cfg.MetricsAddr = flags.MetricsAddr
		}
	})
	cfg.Interactive = flags.Interactive

	if channel > 0xff {
		return Config{}, fmt.Errorf("channel %d out of range", channel)
	}
	return cfg, cfg.Validate()
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var shell *interactive.Shell
	if cfg.Interactive {
		var err error
		shell, err = interactive.New(interactive.Options{
			Channel:            cfg.Channel,
			FloodlightDuration: cfg.Floodlight.Duration,
		})
		if err != nil {
			return err
		}
		defer shell.Close()

		// Everything logged from here on goes through readline so it does
		// not garble the prompt.
		logger = setupLogging(shell.Stdout(), cfg)
	}

	plog, closeLog, err := setupProtocolLog(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMotion(reg)

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, logger)
	}

	w := &watcher{cfg: cfg, logger: logger, plog: plog, metrics: m}

	if shell != nil {
		return runInteractive(ctx, stop, w, shell)
	}

	logger.Info("watching camera",
		slog.String("address", cfg.Address),
		slog.Int("channel", int(cfg.Channel)),
		slog.Duration("start_hold", cfg.StartHold),
		slog.Duration("stop_hold", cfg.StopHold))

	err = w.run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// runInteractive connects once and hands the session to the prompt.
// The link is not re-established; quit and restart after a drop.
func runInteractive(ctx context.Context, cancel context.CancelFunc, w *watcher, shell *interactive.Shell) error {
	conn, cam, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err := cam.ListenOnMotion(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	shell.Attach(cam, session)
	shell.Run(ctx, cancel)
	return nil
}

// setupLogging installs a handler writing to out as the default logger.
func setupLogging(out io.Writer, cfg Config) *slog.Logger {
	logger := slog.New(newHandler(out, cfg.LogLevel, cfg.LogFormat))
	slog.SetDefault(logger)
	return logger
}

func newHandler(out io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupProtocolLog builds the protocol event sink: the .clog file when
// configured, plus the slog adapter at debug level.
func setupProtocolLog(cfg Config, logger *slog.Logger) (log.Logger, func(), error) {
	var sinks []log.Logger
	closeFn := func() {}

	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("closing protocol log", slog.Any("error", err))
			}
		}
		logger.Info("protocol logging enabled", slog.String("path", cfg.ProtocolLog))
	}
	if cfg.LogLevel == "debug" {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	if len(sinks) == 0 {
		return log.NoopLogger{}, closeFn, nil
	}
	return log.NewMultiLogger(sinks...), closeFn, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
