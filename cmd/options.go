// Package cmd holds the CLI options shared by every command and the
// subcommands that run without the HTTP server.
package cmd

import (
	"time"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/settings"
	"github.com/smazurov/restreamer/internal/supervisor"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"*" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Stream settings
	SettingsFile       string `help:"Stream settings file" default:"stream.toml" toml:"stream.settings_file" env:"STREAM_SETTINGS_FILE"`
	SettingsDebounceMs int    `help:"Quiet period before a changed settings file is reloaded, in milliseconds" default:"500" toml:"stream.settings_debounce_ms" env:"STREAM_SETTINGS_DEBOUNCE_MS"`
	Autostart          bool   `help:"Start streaming as soon as the server is up" default:"false" toml:"stream.autostart" env:"STREAM_AUTOSTART"`
	FFmpegPath         string `name:"ffmpeg-path" help:"ffmpeg binary" default:"ffmpeg" toml:"ffmpeg.path" env:"FFMPEG_PATH"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (auth is off when empty)" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingWatchdog   string `help:"Watchdog logging level" default:"info" toml:"logging.watchdog" env:"LOGGING_WATCHDOG"`
	LoggingFFmpeg     string `name:"logging-ffmpeg" help:"Encoder output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingProcess    string `help:"Process logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP       string `help:"HTTP access logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfigLvl  string `name:"logging-config" help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// LoggingConfig returns the logging setup described by the options.
func (o *Options) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"supervisor": o.LoggingSupervisor,
			"watchdog":   o.LoggingWatchdog,
			"ffmpeg":     o.LoggingFFmpeg,
			"process":    o.LoggingProcess,
			"api":        o.LoggingAPI,
			"http":       o.LoggingHTTP,
			"config":     o.LoggingConfigLvl,
		},
	}
}

// SettingsDebounce returns the settings reload debounce.
func (o *Options) SettingsDebounce() time.Duration {
	return time.Duration(o.SettingsDebounceMs) * time.Millisecond
}

// Stack is a supervisor with its collaborators.
type Stack struct {
	Store      *settings.FileStore
	Builder    ffmpeg.Builder
	Supervisor *supervisor.Supervisor
	Controller *supervisor.Controller
}

// NewStack assembles the supervisor for opts. bus may be nil.
func NewStack(opts *Options, bus *events.Bus) *Stack {
	store := settings.NewFileStore(opts.SettingsFile)
	builder := ffmpeg.Builder{Binary: opts.FFmpegPath}

	sup := supervisor.New(store, supervisor.ExecRuntime{Logger: logging.GetLogger("process")}, supervisor.Options{
		Builder: builder,
		Events:  bus,
	})

	return &Stack{
		Store:      store,
		Builder:    builder,
		Supervisor: sup,
		Controller: supervisor.NewController(sup),
	}
}
