package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "stream.toml"))

	cfg, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("expected missing file to be reported as not configured")
	}
	if cfg != Defaults() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte("\n  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("expected empty file to be reported as not configured")
	}
}

func TestLoadPartialFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	content := `
stream_key = "abcd-1234"
video_file = "videos/loop.mp4"
stream_duration = 600
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, ok, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected configured")
	}

	if cfg.StreamKey != "abcd-1234" || cfg.VideoFile != "videos/loop.mp4" {
		t.Errorf("explicit fields not read: %+v", cfg)
	}
	if cfg.StreamDurationTime() != 10*time.Minute {
		t.Errorf("StreamDurationTime = %v", cfg.StreamDurationTime())
	}
	if cfg.UploadPause != DefaultUploadPause {
		t.Errorf("UploadPause = %d, want default %d", cfg.UploadPause, DefaultUploadPause)
	}
	if cfg.RTMPURL != DefaultRTMPURL {
		t.Errorf("RTMPURL = %q, want default", cfg.RTMPURL)
	}
	if cfg.PerformanceProfile != ProfileVPSOptimized {
		t.Errorf("PerformanceProfile = %q, want default", cfg.PerformanceProfile)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte("stream_key = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := NewFileStore(path).Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if ok {
		t.Error("expected not configured on parse error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stream.toml")
	store := NewFileStore(path)

	want := Settings{
		VideoFile:          "/srv/videos/a.mp4",
		StreamKey:          "key",
		RTMPURL:            "rtmp://live.example.com/app",
		PerformanceProfile: ProfileHighQuality,
		StreamDuration:     3600,
		UploadPause:        120,
		ChannelID:          "UC123",
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "performance_profile") || !strings.Contains(string(data), "high_quality") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	if err := valid.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"unknown profile", func(s *Settings) { s.PerformanceProfile = "ultra" }, "performance_profile"},
		{"zero duration", func(s *Settings) { s.StreamDuration = 0 }, "stream_duration"},
		{"negative pause", func(s *Settings) { s.UploadPause = -1 }, "upload_pause"},
		{"http url", func(s *Settings) { s.RTMPURL = "http://example.com" }, "rtmp_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileReportsNotConfigured(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "absent.toml")); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing file: err = %v, want ErrNotConfigured", err)
	}

	empty := filepath.Join(dir, "empty.toml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(empty); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("empty file: err = %v, want ErrNotConfigured", err)
	}

	full := filepath.Join(dir, "stream.toml")
	if err := os.WriteFile(full, []byte("stream_key = \"k\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(full)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.StreamKey != "k" {
		t.Errorf("StreamKey = %q", cfg.StreamKey)
	}
}
