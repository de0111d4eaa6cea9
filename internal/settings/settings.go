// Package settings holds the stream configuration and its file-backed store.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Profile selects the encoder speed/quality trade-off.
type Profile string

// Performance profiles.
const (
	ProfileVPSOptimized Profile = "vps_optimized"
	ProfileBalanced     Profile = "balanced"
	ProfileHighQuality  Profile = "high_quality"
)

// Profiles lists every accepted profile, default first.
var Profiles = []Profile{ProfileVPSOptimized, ProfileBalanced, ProfileHighQuality}

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	for _, known := range Profiles {
		if p == known {
			return true
		}
	}
	return false
}

const (
	// PlaceholderStreamKey is the value shipped in sample configs.
	PlaceholderStreamKey = "YOUR_STREAM_KEY_HERE"
	// DefaultRTMPURL is the YouTube primary ingest.
	DefaultRTMPURL = "rtmp://a.rtmp.youtube.com/live2"
	// DefaultVideoFile is used when no video is configured.
	DefaultVideoFile = "video.mp4"
	// DefaultStreamDuration stays under YouTube's 12h archive limit.
	DefaultStreamDuration = 11 * 60 * 60
	// DefaultUploadPause is the quiet window between segments.
	DefaultUploadPause = 5 * 60
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid settings")

// ErrNotConfigured means the settings file is missing or empty.
var ErrNotConfigured = errors.New("stream settings not configured")

// Settings is the stream configuration supplied to the supervisor.
// Durations are stored in seconds.
type Settings struct {
	VideoFile          string  `toml:"video_file" json:"video_file"`
	StreamKey          string  `toml:"stream_key" json:"stream_key"`
	RTMPURL            string  `toml:"rtmp_url" json:"rtmp_url"`
	PerformanceProfile Profile `toml:"performance_profile" json:"performance_profile"`
	StreamDuration     int     `toml:"stream_duration" json:"stream_duration"`
	UploadPause        int     `toml:"upload_pause" json:"upload_pause"`
	ChannelID          string  `toml:"channel_id" json:"channel_id"`
}

// Defaults returns the settings used for any field a file leaves out.
func Defaults() Settings {
	return Settings{
		VideoFile:          DefaultVideoFile,
		RTMPURL:            DefaultRTMPURL,
		PerformanceProfile: ProfileVPSOptimized,
		StreamDuration:     DefaultStreamDuration,
		UploadPause:        DefaultUploadPause,
	}
}

// StreamDurationTime returns the segment length.
func (s Settings) StreamDurationTime() time.Duration {
	return time.Duration(s.StreamDuration) * time.Second
}

// UploadPauseTime returns the pause between planned segments.
func (s Settings) UploadPauseTime() time.Duration {
	return time.Duration(s.UploadPause) * time.Second
}

// Validate checks ranges and enums. It does not look at the filesystem or the
// stream key; those are checked when the encoder command is built.
func (s Settings) Validate() error {
	var problems []string

	if s.PerformanceProfile != "" && !s.PerformanceProfile.Valid() {
		problems = append(problems, fmt.Sprintf("unknown performance_profile %q", s.PerformanceProfile))
	}
	if s.StreamDuration <= 0 {
		problems = append(problems, "stream_duration must be positive")
	}
	if s.UploadPause < 0 {
		problems = append(problems, "upload_pause must not be negative")
	}
	if s.RTMPURL != "" && !strings.HasPrefix(s.RTMPURL, "rtmp://") && !strings.HasPrefix(s.RTMPURL, "rtmps://") {
		problems = append(problems, "rtmp_url must start with rtmp:// or rtmps://")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
