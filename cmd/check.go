package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/restreamer/internal/config"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/settings"
	"github.com/spf13/cobra"
)

// ErrNotConfigured is returned by Check when the settings file is missing or empty.
var ErrNotConfigured = settings.ErrNotConfigured

// CreateCheckCmd creates the check command.
func CreateCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate stream settings and print the encoder command",
		Long: `Loads the settings file, validates it and prints the ffmpeg command the next segment would run ` +
			`with the stream key masked. Exits with status 1 when the settings cannot produce a command.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			if err := config.LoadConfig(opts, cmd); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config:", err)
				os.Exit(1)
			}
			if err := Check(opts, cmd.OutOrStdout()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				os.Exit(1)
			}
		}),
	}
}

// Check loads and validates the settings named by opts and writes the
// redacted encoder command to w.
func Check(opts *Options, w io.Writer) error {
	store := settings.NewFileStore(opts.SettingsFile)
	cfg, ok, err := store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", opts.SettingsFile, ErrNotConfigured)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	inv, err := ffmpeg.Builder{Binary: opts.FFmpegPath}.Build(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "settings:    %s\n", store.Path())
	fmt.Fprintf(w, "profile:     %s\n", inv.Profile)
	fmt.Fprintf(w, "segment:     %s\n", cfg.StreamDurationTime())
	fmt.Fprintf(w, "pause:       %s\n", cfg.UploadPauseTime())
	fmt.Fprintf(w, "destination: %s\n", inv.RedactedDestination())
	fmt.Fprintf(w, "command:     %s\n", inv.Redacted())
	return nil
}
