package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ErrSpawn is returned when the child cannot be started.
var ErrSpawn = errors.New("spawn failed")

// Handle is a started child process.
type Handle struct {
	cmd    *exec.Cmd
	pid    int
	stderr *os.File
	logger *slog.Logger

	done     chan struct{}
	mu       sync.Mutex
	exitCode int
	exitErr  error
}

// Start launches binary with args in a new process group. The returned
// Handle's Diagnostics must be drained by the caller.
func Start(binary string, args []string, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %w", ErrSpawn, err)
	}

	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		logger.Error("Failed to start process", "binary", binary, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawn, binary, err)
	}

	// The child holds its own copy of the write end; EOF on r follows its exit.
	_ = w.Close()

	h := &Handle{
		cmd:      cmd,
		pid:      cmd.Process.Pid,
		stderr:   r,
		logger:   logger,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	go h.reap()

	logger.Info("Process started", "pid", h.pid, "binary", binary)
	return h, nil
}

func (h *Handle) reap() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exitErr = err
	h.exitCode = exitCodeFromState(h.cmd.ProcessState, err)
	code := h.exitCode
	h.mu.Unlock()

	close(h.done)
	h.logger.Info("Process exited", "pid", h.pid, "exit_code", code)
}

// exitCodeFromState returns the exit status, or 128+signal for a signalled child.
func exitCodeFromState(state *os.ProcessState, err error) int {
	if state == nil {
		if err != nil {
			return 1
		}
		return 0
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// PID returns the child's process id.
func (h *Handle) PID() int {
	return h.pid
}

// Alive reports whether the child has not yet been reaped.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Terminate asks the process group to stop with SIGINT without waiting.
func (h *Handle) Terminate() error {
	return h.signalGroup(syscall.SIGINT)
}

// Kill sends SIGKILL to the process group.
func (h *Handle) Kill() error {
	return h.signalGroup(syscall.SIGKILL)
}

func (h *Handle) signalGroup(sig syscall.Signal) error {
	if !h.Alive() {
		return nil
	}
	h.logger.Debug("Signalling process group", "pid", h.pid, "signal", sig.String())
	err := syscall.Kill(-h.pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	// Group signalling can be refused; fall back to the leader alone.
	if perr := h.cmd.Process.Signal(sig); perr != nil && !errors.Is(perr, os.ErrProcessDone) {
		return fmt.Errorf("signal %s to %d: %w", sig, h.pid, perr)
	}
	return nil
}

// Wait blocks until the child exits or timeout elapses. It reports whether
// the child exited.
func (h *Handle) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return true
	case <-timer.C:
		return false
	}
}

// ExitCode returns the exit status once the child has exited.
func (h *Handle) ExitCode() (int, bool) {
	if h.Alive() {
		return 0, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode, true
}

// Err returns the error from reaping the child, nil while it runs or on a clean exit.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Diagnostics is the read end of the child's stderr. The reader sees EOF
// after the child exits and must close it.
func (h *Handle) Diagnostics() io.ReadCloser {
	return h.stderr
}
