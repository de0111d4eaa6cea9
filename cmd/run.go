package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/supervisor"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// CreateRunCmd creates the headless run command.
func CreateRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Stream without the HTTP API",
		Long: `Starts the supervisor immediately and keeps the stream cycling until SIGINT or SIGTERM. ` +
			`Settings are re-read from the settings file at the start of every segment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runErr error
			humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
				runErr = func() error {
					if err := config.LoadConfig(opts, cmd); err != nil {
						return err
					}
					logging.Initialize(opts.LoggingConfig())

					ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()
					return Run(ctx, opts)
				}()
			})(cmd, args)
			return runErr
		},
	}
}

// Run streams until ctx is cancelled, then stops the encoder.
func Run(ctx context.Context, opts *Options) error {
	logger := logging.GetLogger("main")
	stack := NewStack(opts, nil)

	if err := stack.Controller.Start(); err != nil {
		return err
	}
	logger.Info("Supervisor started", "settings", opts.SettingsFile, "ffmpeg", opts.FFmpegPath)
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("sd_notify failed", "error", err)
	}

	done := stack.Controller.Done()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		logger.Info("Stopping supervisor")
		err := stack.Controller.Stop()
		if errors.Is(err, supervisor.ErrNotRunning) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-done:
			if gctx.Err() != nil {
				return nil
			}
			return errors.New("supervisor exited unexpectedly")
		case <-gctx.Done():
			return nil
		}
	})
	return g.Wait()
}
