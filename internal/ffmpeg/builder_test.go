package ffmpeg

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/smazurov/restreamer/internal/settings"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loop.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validSettings(t *testing.T) settings.Settings {
	cfg := settings.Defaults()
	cfg.VideoFile = writeVideo(t)
	cfg.StreamKey = "abcd-efgh-ijkl"
	return cfg
}

func TestBuildExactArguments(t *testing.T) {
	cfg := validSettings(t)

	inv, err := Builder{}.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		"ffmpeg",
		"-re",
		"-stream_loop", "-1",
		"-i", cfg.VideoFile,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-threads", "3",
		"-maxrate", "3000k",
		"-bufsize", "6000k",
		"-pix_fmt", "yuv420p",
		"-g", "50",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-f", "flv",
		"rtmp://a.rtmp.youtube.com/live2/abcd-efgh-ijkl",
	}
	if got := inv.Argv(); !reflect.DeepEqual(got, want) {
		t.Errorf("Argv mismatch:\n got  %q\n want %q", got, want)
	}
	if inv.Destination != "rtmp://a.rtmp.youtube.com/live2/abcd-efgh-ijkl" {
		t.Errorf("Destination = %q", inv.Destination)
	}
}

func TestBuildFixedParametersAppearOnce(t *testing.T) {
	for _, profile := range settings.Profiles {
		t.Run(string(profile), func(t *testing.T) {
			cfg := validSettings(t)
			cfg.PerformanceProfile = profile

			inv, err := Builder{}.Build(cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			for _, flag := range []string{"-re", "-stream_loop", "-i", "-c:v", "-preset", "-threads",
				"-maxrate", "-bufsize", "-pix_fmt", "-g", "-c:a", "-b:a", "-ar", "-f"} {
				count := 0
				for _, arg := range inv.Args {
					if arg == flag {
						count++
					}
				}
				if count != 1 {
					t.Errorf("flag %s appears %d times", flag, count)
				}
			}
		})
	}
}

func TestBuildProfiles(t *testing.T) {
	tests := []struct {
		profile     settings.Profile
		wantPreset  string
		wantThreads string
		wantProfile settings.Profile
	}{
		{settings.ProfileVPSOptimized, "veryfast", "3", settings.ProfileVPSOptimized},
		{settings.ProfileBalanced, "medium", "0", settings.ProfileBalanced},
		{settings.ProfileHighQuality, "slow", "0", settings.ProfileHighQuality},
		{"", "veryfast", "3", settings.ProfileVPSOptimized},
		{"turbo", "veryfast", "3", settings.ProfileVPSOptimized},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			cfg := validSettings(t)
			cfg.PerformanceProfile = tt.profile

			inv, err := Builder{}.Build(cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			if got := argAfter(inv.Args, "-preset"); got != tt.wantPreset {
				t.Errorf("preset = %q, want %q", got, tt.wantPreset)
			}
			if got := argAfter(inv.Args, "-threads"); got != tt.wantThreads {
				t.Errorf("threads = %q, want %q", got, tt.wantThreads)
			}
			if inv.Profile != tt.wantProfile {
				t.Errorf("Profile = %q, want %q", inv.Profile, tt.wantProfile)
			}
		})
	}
}

func TestBuildRejectsBadStreamKey(t *testing.T) {
	for _, key := range []string{"", "   ", settings.PlaceholderStreamKey} {
		cfg := validSettings(t)
		cfg.StreamKey = key

		inv, err := Builder{}.Build(cfg)
		if inv != nil {
			t.Errorf("key %q: expected no invocation", key)
		}
		if !errors.Is(err, ErrConfig) {
			t.Fatalf("key %q: expected ErrConfig, got %v", key, err)
		}

		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "stream_key" {
			t.Errorf("key %q: expected stream_key ConfigError, got %v", key, err)
		}
	}
}

func TestBuildRejectsMissingVideo(t *testing.T) {
	cfg := validSettings(t)
	cfg.VideoFile = filepath.Join(t.TempDir(), "missing.mp4")

	_, err := Builder{}.Build(cfg)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.mp4") {
		t.Errorf("error should name the file: %v", err)
	}

	cfg.VideoFile = t.TempDir()
	if _, err := (Builder{}).Build(cfg); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for a directory, got %v", err)
	}
}

func TestBuildCustomBinaryAndRedaction(t *testing.T) {
	cfg := validSettings(t)
	cfg.RTMPURL = "rtmp://live.example.com/app"

	inv, err := Builder{Binary: "/opt/ffmpeg/bin/ffmpeg"}.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if inv.Binary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Binary = %q", inv.Binary)
	}

	redacted := inv.Redacted()
	if strings.Contains(redacted, cfg.StreamKey) {
		t.Errorf("stream key leaked: %s", redacted)
	}
	if !strings.HasSuffix(redacted, "rtmp://live.example.com/app/****") {
		t.Errorf("unexpected redaction: %s", redacted)
	}
	if got := inv.RedactedDestination(); got != "rtmp://live.example.com/app/****" {
		t.Errorf("RedactedDestination = %q", got)
	}
}

func argAfter(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
