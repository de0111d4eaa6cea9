package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/restreamer/internal/settings"
)

const testDebounce = 50 * time.Millisecond

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func settingsTOML(key string, seconds int) string {
	return fmt.Sprintf("stream_key = %q\nstream_duration = %d\n", key, seconds)
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[settings.Settings]) *Watcher[settings.Settings] {
	t.Helper()
	opts = append([]WatcherOption[settings.Settings]{WithDebounce[settings.Settings](testDebounce)}, opts...)
	w := NewConfigWatcher(path, settings.LoadFile, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return w
}

func waitFor(t *testing.T, ch <-chan settings.Settings) settings.Settings {
	t.Helper()
	select {
	case cfg := <-ch:
		return cfg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
		return settings.Settings{}
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("first", 60)), 0o644); err != nil {
		t.Fatal(err)
	}

	received := make(chan settings.Settings, 4)
	w := startWatcher(t, path)
	w.OnReload(func(cfg settings.Settings) { received <- cfg })

	if err := os.WriteFile(path, []byte(settingsTOML("second", 90)), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := waitFor(t, received)
	if cfg.StreamKey != "second" || cfg.StreamDuration != 90 {
		t.Errorf("got key=%q duration=%d", cfg.StreamKey, cfg.StreamDuration)
	}
}

func TestWatcherFollowsAtomicSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	store := settings.NewFileStore(path)

	cfg := settings.Defaults()
	cfg.StreamKey = "one"
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}

	received := make(chan settings.Settings, 4)
	w := startWatcher(t, path)
	w.OnReload(func(cfg settings.Settings) { received <- cfg })

	cfg.StreamKey = "two"
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, received); got.StreamKey != "two" {
		t.Fatalf("first save: key = %q", got.StreamKey)
	}

	// The first rename replaced the inode; later saves must still be seen.
	cfg.StreamKey = "three"
	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, received); got.StreamKey != "three" {
		t.Fatalf("second save: key = %q", got.StreamKey)
	}
}

func TestWatcherFileCreatedAfterStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")

	received := make(chan settings.Settings, 4)
	w := startWatcher(t, path)
	w.OnReload(func(cfg settings.Settings) { received <- cfg })

	if err := os.WriteFile(path, []byte(settingsTOML("late", 30)), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, received); got.StreamKey != "late" {
		t.Errorf("key = %q", got.StreamKey)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 60)), 0o644); err != nil {
		t.Fatal(err)
	}

	var count atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(settings.Settings) { count.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads, got %d", got)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 60)), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	received := make(chan settings.Settings, 1)
	w := startWatcher(t, path, WithErrorHandler[settings.Settings](func(err error) {
		errs <- err
	}))
	w.OnReload(func(cfg settings.Settings) { received <- cfg })

	if err := os.WriteFile(path, []byte("stream_key = [[["), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-received:
		t.Fatal("handler must not run for an unparsable file")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcherReportsClearedSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 60)), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 4)
	var reloads atomic.Int32
	w := startWatcher(t, path, WithErrorHandler[settings.Settings](func(err error) {
		errs <- err
	}))
	w.OnReload(func(settings.Settings) { reloads.Add(1) })

	waitErr := func(what string) {
		t.Helper()
		select {
		case err := <-errs:
			if !errors.Is(err, settings.ErrNotConfigured) {
				t.Fatalf("%s: err = %v, want ErrNotConfigured", what, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: timeout waiting for error handler", what)
		}
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	waitErr("emptied")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitErr("removed")

	if got := reloads.Load(); got != 0 {
		t.Errorf("reload handler ran %d times for a cleared file", got)
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	var count atomic.Int32
	var last atomic.Int32
	w := startWatcher(t, path, WithDebounce[settings.Settings](200*time.Millisecond))
	w.OnReload(func(cfg settings.Settings) {
		count.Add(1)
		last.Store(int32(cfg.StreamDuration))
	})

	for i := 2; i <= 6; i++ {
		if err := os.WriteFile(path, []byte(settingsTOML("k", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(40 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced reload, got %d", got)
	}
	if got := last.Load(); got != 6 {
		t.Errorf("expected final duration 6, got %d", got)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	kept := make(chan settings.Settings, 4)
	var removed atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(cfg settings.Settings) { kept <- cfg })
	unsubscribe := w.OnReload(func(settings.Settings) { removed.Add(1) })

	if err := os.WriteFile(path, []byte(settingsTOML("k", 2)), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, kept)

	unsubscribe()
	unsubscribe()

	if err := os.WriteFile(path, []byte(settingsTOML("k", 3)), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitFor(t, kept); got.StreamDuration != 3 {
		t.Errorf("duration = %d", got.StreamDuration)
	}
	if got := removed.Load(); got != 1 {
		t.Errorf("removed handler ran %d times, want 1", got)
	}
}

func TestWatcherStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.toml")
	if err := os.WriteFile(path, []byte(settingsTOML("k", 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	var count atomic.Int32
	w := NewConfigWatcher(path, settings.LoadFile, newTestLogger(), WithDebounce[settings.Settings](testDebounce))
	w.OnReload(func(settings.Settings) { count.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != ErrWatcherStarted {
		t.Errorf("second Start = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}

	if err := os.WriteFile(path, []byte(settingsTOML("k", 99)), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(4 * testDebounce)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads after Stop, got %d", got)
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "x.toml"), settings.LoadFile, newTestLogger())
	if err := w.Stop(); err != nil {
		t.Errorf("Stop = %v", err)
	}
}
