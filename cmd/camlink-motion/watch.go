package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/camlink/camlink-go/pkg/camera"
	"github.com/camlink/camlink-go/pkg/connection"
	"github.com/camlink/camlink-go/pkg/log"
	"github.com/camlink/camlink-go/pkg/metrics"
	"github.com/camlink/camlink-go/pkg/motion"
	"github.com/camlink/camlink-go/pkg/transport"
)

// watcher keeps a camera connected and follows its motion state.
type watcher struct {
	cfg     Config
	logger  *slog.Logger
	plog    log.Logger
	metrics *metrics.Motion
}

// run supervises connections until ctx ends or the camera refuses to
// report motion.
func (w *watcher) run(ctx context.Context) error {
	sup := connection.NewSupervisor(w.cfg.Reconnect, w.logger)
	sup.OnStateChange(func(oldState, newState connection.State) {
		w.logger.Debug("link state",
			slog.String("from", oldState.String()),
			slog.String("to", newState.String()))
	})
	return sup.Run(ctx, w.lifetime)
}

// lifetime is one connection: dial, arm, follow motion until the link drops.
func (w *watcher) lifetime(ctx context.Context, ready func()) error {
	conn, cam, err := w.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err := cam.ListenOnMotion(ctx)
	if err != nil {
		if refused(err) {
			return connection.Permanent(err)
		}
		return err
	}
	defer session.Close()

	ready()
	w.logger.Info("motion armed",
		slog.String("conn_id", conn.ID()),
		slog.Int("channel", int(cam.ChannelID())))

	return w.follow(ctx, cam, session)
}

func (w *watcher) connect(ctx context.Context) (*transport.Conn, *camera.Camera, error) {
	conn, err := transport.Dial(ctx, w.cfg.Address, transport.Config{
		DialTimeout:    w.cfg.DialTimeout,
		IdleTimeout:    w.cfg.IdleTimeout,
		ProtocolLogger: w.plog,
		Logger:         w.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	cam := camera.New(conn, camera.Options{
		ChannelID:      w.cfg.Channel,
		Logger:         w.logger,
		ProtocolLogger: w.plog,
		Metrics:        w.metrics,
	})
	return conn, cam, nil
}

// follow alternates between waiting for stable motion and stable
// stillness. It only returns with an error.
func (w *watcher) follow(ctx context.Context, cam *camera.Camera, session *motion.Session) error {
	for {
		if err := session.AwaitStart(ctx, w.cfg.StartHold); err != nil {
			return err
		}
		w.logger.Info("motion started", slog.Int("channel", int(cam.ChannelID())))
		w.floodlight(ctx, cam, true)

		if err := session.AwaitStop(ctx, w.cfg.StopHold); err != nil {
			return err
		}
		w.logger.Info("motion stopped", slog.Int("channel", int(cam.ChannelID())))
		w.floodlight(ctx, cam, false)
	}
}

// floodlight failures are logged; motion tracking goes on without the light.
func (w *watcher) floodlight(ctx context.Context, cam *camera.Camera, on bool) {
	if !w.cfg.Floodlight.OnMotion {
		return
	}
	var duration uint16
	if on {
		duration = w.cfg.Floodlight.Duration
	}
	if err := cam.SetFloodlightManual(ctx, on, duration); err != nil {
		w.logger.Warn("floodlight command failed",
			slog.Bool("on", on),
			slog.Any("error", err))
	}
}

// refused reports whether the camera answered the motion request with an
// error code. A camera that refuses motion alarms keeps refusing them; a
// missing reply is worth another attempt.
func refused(err error) bool {
	return errors.Is(err, motion.ErrSetupRejected) &&
		!errors.Is(err, transport.ErrConnectionLost) &&
		!errors.Is(err, transport.ErrConnectionClosed) &&
		!errors.Is(err, context.DeadlineExceeded)
}
