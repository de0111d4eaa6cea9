package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetLogging() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels = make(map[string]*slog.LevelVar)
	globalConfig = Config{Level: "info", Format: "text"}
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"supervisor": "debug",
			"api":        "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"supervisor", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging()

	early := GetLogger("early")
	if early.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled before Initialize")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"early": "debug"}})

	if !GetLogger("early").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled after Initialize with module override")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info"})

	logger := GetLogger("watchdog")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled")
	}

	if !SetModuleLevel("watchdog", "debug") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled after SetModuleLevel")
	}

	if SetModuleLevel("watchdog", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestMultiHandlerFanOut(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	handler := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(handler).With("module", "test")

	logger.Debug("debug message")
	logger.Info("info message")

	if !strings.Contains(debugBuf.String(), "debug message") {
		t.Error("debug handler missed debug message")
	}
	if strings.Contains(infoBuf.String(), "debug message") {
		t.Error("info handler received debug message")
	}
	if !strings.Contains(infoBuf.String(), "info message") || !strings.Contains(infoBuf.String(), "module=test") {
		t.Errorf("info handler output = %q", infoBuf.String())
	}
}

func TestBufferHandler(t *testing.T) {
	buffer := NewRingBuffer(10)
	logger := slog.New(NewBufferHandler(buffer, slog.LevelInfo)).With("module", "supervisor")

	logger.Debug("dropped")
	logger.WithGroup("segment").Info("Segment ended",
		"reason", "elapsed",
		"uptime", 3*time.Second,
		"error", errors.New("boom"),
	)

	entries := buffer.Last(0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Module != "supervisor" {
		t.Errorf("Module = %q, want supervisor", entry.Module)
	}
	if entry.Level != "info" {
		t.Errorf("Level = %q, want info", entry.Level)
	}
	if got := entry.Attributes["segment.reason"]; got != "elapsed" {
		t.Errorf("segment.reason = %v", got)
	}
	if got := entry.Attributes["segment.uptime"]; got != "3s" {
		t.Errorf("segment.uptime = %v", got)
	}
	if got := entry.Attributes["segment.error"]; got != "boom" {
		t.Errorf("segment.error = %v", got)
	}
	if !strings.Contains(entry.String(), "[INFO] [supervisor] Segment ended") {
		t.Errorf("String() = %q", entry.String())
	}
}

func TestRingBufferWrapsInOrder(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		rb.Write(LogEntry{Message: msg})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count = %d, want 3", rb.Count())
	}

	got := rb.Last(0)
	want := []string{"c", "d", "e"}
	for i, entry := range got {
		if entry.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want[i])
		}
	}

	last := rb.Last(2)
	if len(last) != 2 || last[0].Message != "d" || last[1].Message != "e" {
		t.Errorf("Last(2) = %+v", last)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
