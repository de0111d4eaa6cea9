// Package ffmpeg builds encoder invocations and parses ffmpeg output.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/smazurov/restreamer/internal/settings"
)

// DefaultBinary is the encoder looked up on PATH when none is configured.
const DefaultBinary = "ffmpeg"

// ErrConfig marks settings that cannot produce an invocation.
var ErrConfig = errors.New("config error")

// ConfigError describes why settings were rejected. It matches ErrConfig.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// Is reports ErrConfig as the target sentinel.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// Invocation is the argument list for one encoder run.
type Invocation struct {
	Binary      string
	Args        []string
	Destination string
	Profile     settings.Profile
	Params      Params

	streamKey string
}

// Argv returns the binary followed by the arguments.
func (inv *Invocation) Argv() []string {
	return append([]string{inv.Binary}, inv.Args...)
}

// Redacted returns the command line with the stream key masked.
func (inv *Invocation) Redacted() string {
	line := strings.Join(inv.Argv(), " ")
	if inv.streamKey == "" {
		return line
	}
	return strings.ReplaceAll(line, inv.streamKey, "****")
}

// RedactedDestination returns Destination with the stream key masked.
func (inv *Invocation) RedactedDestination() string {
	if inv.streamKey == "" {
		return inv.Destination
	}
	return strings.ReplaceAll(inv.Destination, inv.streamKey, "****")
}

// Builder turns settings into an Invocation.
type Builder struct {
	// Binary is the encoder executable. Empty means DefaultBinary.
	Binary string
}

// Build validates cfg and returns the invocation. It reads nothing but the
// video file's metadata.
func (b Builder) Build(cfg settings.Settings) (*Invocation, error) {
	key := strings.TrimSpace(cfg.StreamKey)
	if key == "" || key == settings.PlaceholderStreamKey {
		return nil, &ConfigError{Field: "stream_key", Reason: "a valid stream key is required"}
	}

	info, err := os.Stat(cfg.VideoFile)
	if err != nil {
		return nil, &ConfigError{Field: "video_file", Reason: fmt.Sprintf("%q not found", cfg.VideoFile)}
	}
	if info.IsDir() {
		return nil, &ConfigError{Field: "video_file", Reason: fmt.Sprintf("%q is a directory", cfg.VideoFile)}
	}

	binary := b.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	params := ParamsFor(cfg.PerformanceProfile)
	destination := cfg.RTMPURL + "/" + key

	args := []string{
		"-re",
		"-stream_loop", "-1",
		"-i", cfg.VideoFile,
		"-c:v", VideoCodec,
		"-preset", params.Preset,
		"-threads", strconv.Itoa(params.Threads),
		"-maxrate", MaxRate,
		"-bufsize", BufferSize,
		"-pix_fmt", PixelFormat,
		"-g", strconv.Itoa(GOP),
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-ar", strconv.Itoa(AudioSampleRate),
		"-f", OutputFormat,
		destination,
	}

	profile := cfg.PerformanceProfile
	if !profile.Valid() {
		profile = settings.ProfileVPSOptimized
	}

	return &Invocation{
		Binary:      binary,
		Args:        args,
		Destination: destination,
		Profile:     profile,
		Params:      params,
		streamKey:   key,
	}, nil
}
