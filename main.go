package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smazurov/restreamer/cmd"
	"github.com/smazurov/restreamer/internal/api"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/metrics/collectors"
	"github.com/smazurov/restreamer/internal/metrics/exporters"
	"github.com/smazurov/restreamer/internal/settings"
	"github.com/smazurov/restreamer/internal/supervisor"
	"github.com/smazurov/restreamer/internal/version"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env only fills variables that are not already set.
	_ = godotenv.Load()

	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(opts.LoggingConfig())
		logger := logging.GetLogger("main")

		eventBus := events.New()
		stack := cmd.NewStack(opts, eventBus)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Controller:   stack.Controller,
			Store:        stack.Store,
			Builder:      stack.Builder,
			EventBus:     eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		sseExporter := exporters.NewSSEExporter(eventBus)
		settingsWatcher := newSettingsWatcher(opts, eventBus)

		hooks.OnStart(func() {
			if opts.MetricsEnabled {
				collector := collectors.NewProcessCollector(stack.Supervisor.EncoderPID, logging.GetLogger("metrics"))
				if regErr := prometheus.Register(collector); regErr != nil {
					logger.Warn("Failed to register encoder process collector", "error", regErr)
				}
			}
			sseExporter.Start(context.Background())

			if watchErr := settingsWatcher.Start(); watchErr != nil {
				logger.Warn("Settings file will not be watched", "path", opts.SettingsFile, "error", watchErr)
			}

			if opts.Autostart {
				if startErr := stack.Controller.Start(); startErr != nil {
					logger.Error("Failed to autostart stream", "error", startErr)
				} else {
					logger.Info("Stream autostarted")
				}
			}

			logger.Info("Restreamer starting", "version", version.String(), "port", opts.Port, "settings", opts.SettingsFile)
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("sd_notify failed", "error", notifyErr)
			}
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if stopErr := server.Stop(ctx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stop the encoder after the API stops accepting requests.
			if stopErr := stack.Controller.Stop(); stopErr != nil && !errors.Is(stopErr, supervisor.ErrNotRunning) {
				logger.Error("Error stopping stream", "error", stopErr)
			}

			if stopErr := settingsWatcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping settings watcher", "error", stopErr)
			}
			sseExporter.Stop()
		})
	})

	cli.Root().Use = "restreamer"
	cli.Root().Short = "Keep a looping ffmpeg RTMP stream alive"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(cmd.CreateRunCmd())
	cli.Root().AddCommand(cmd.CreateCheckCmd())

	cli.Run()
}

// newSettingsWatcher logs settings file edits and announces them on the bus.
// The supervisor itself re-reads the file at the start of every segment.
func newSettingsWatcher(opts *cmd.Options, bus *events.Bus) *config.Watcher[settings.Settings] {
	logger := logging.GetLogger("config")

	w := config.NewConfigWatcher(
		opts.SettingsFile,
		settings.LoadFile,
		logger,
		config.WithDebounce[settings.Settings](opts.SettingsDebounce()),
		config.WithErrorHandler[settings.Settings](func(err error) {
			bus.Publish(events.SettingsReloadedEvent{
				Path:      opts.SettingsFile,
				Valid:     false,
				Timestamp: time.Now().Format(time.RFC3339),
			})
			if errors.Is(err, settings.ErrNotConfigured) {
				logger.Warn("Settings file removed or emptied; the next segment will wait for settings", "path", opts.SettingsFile)
				return
			}
			logger.Warn("Settings file is unreadable; the next segment will wait for a valid file", "error", err)
		}),
	)

	w.OnReload(func(cfg settings.Settings) {
		validErr := cfg.Validate()
		bus.Publish(events.SettingsReloadedEvent{
			Path:      opts.SettingsFile,
			Profile:   string(cfg.PerformanceProfile),
			Valid:     validErr == nil,
			Timestamp: time.Now().Format(time.RFC3339),
		})
		if validErr != nil {
			logger.Warn("Reloaded settings are invalid", "error", validErr)
			return
		}
		logger.Info("Settings changed; applied at the next segment",
			"profile", cfg.PerformanceProfile,
			"stream_duration", cfg.StreamDuration,
			"upload_pause", cfg.UploadPause)
	})
	return w
}
