package supervisor

import (
	"io"
	"log/slog"
	"time"

	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/smazurov/restreamer/internal/settings"
)

// ConfigProvider supplies a settings snapshot each cycle. ok is false when
// nothing has been configured yet.
type ConfigProvider interface {
	Load() (cfg settings.Settings, ok bool, err error)
}

// ConfigFunc adapts a function to ConfigProvider.
type ConfigFunc func() (settings.Settings, bool, error)

// Load calls f.
func (f ConfigFunc) Load() (settings.Settings, bool, error) {
	return f()
}

// Encoder is one running encoder process.
type Encoder interface {
	PID() int
	Alive() bool
	Terminate() error
	Kill() error
	Wait(timeout time.Duration) bool
	// Diagnostics is consumed once, by the activity monitor.
	Diagnostics() io.Reader
}

// Runtime launches encoders.
type Runtime interface {
	Spawn(inv *ffmpeg.Invocation) (Encoder, error)
}

// exitCoder is implemented by encoders that know their exit status.
type exitCoder interface {
	ExitCode() (int, bool)
}

// exitErrer is implemented by encoders that keep the error their exit produced.
type exitErrer interface {
	Err() error
}

func exitError(enc Encoder) error {
	if e, ok := enc.(exitErrer); ok {
		return e.Err()
	}
	return nil
}

// ExecRuntime runs the invocation as a real child process.
type ExecRuntime struct {
	Logger *slog.Logger
}

// Spawn starts the encoder binary.
func (r ExecRuntime) Spawn(inv *ffmpeg.Invocation) (Encoder, error) {
	h, err := process.Start(inv.Binary, inv.Args, r.Logger)
	if err != nil {
		return nil, err
	}
	return execEncoder{h}, nil
}

type execEncoder struct {
	*process.Handle
}

func (e execEncoder) Diagnostics() io.Reader {
	return e.Handle.Diagnostics()
}
