// Package watchdog tracks encoder liveness from its diagnostic output.
package watchdog

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const maxTokenSize = 1 << 20

// Monitor drains a diagnostic stream on its own goroutine and records when
// output was last seen.
type Monitor struct {
	r      io.Reader
	onLine func(string)

	base  time.Time
	last  atomic.Int64 // nanoseconds after base
	lines atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Attach starts reading r. onLine, if non-nil, is called from the monitor
// goroutine for every non-empty line. The activity timestamp starts at the
// moment of attachment.
func Attach(r io.Reader, onLine func(string)) *Monitor {
	m := &Monitor{
		r:      r,
		onLine: onLine,
		base:   time.Now(),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	defer close(m.done)
	defer m.closeReader()

	scanner := bufio.NewScanner(m.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	scanner.Split(ScanLinesOrCR)

	for scanner.Scan() {
		m.touch()
		if line := scanner.Text(); line != "" && m.onLine != nil {
			m.onLine(line)
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
		m.err = err
	}
}

func (m *Monitor) touch() {
	m.last.Store(int64(time.Since(m.base)))
	m.lines.Add(1)
}

func (m *Monitor) closeReader() {
	m.closeOnce.Do(func() {
		if c, ok := m.r.(io.Closer); ok {
			_ = c.Close()
		}
	})
}

// LastActivity returns the time output was last seen.
func (m *Monitor) LastActivity() time.Time {
	return m.base.Add(time.Duration(m.last.Load()))
}

// IdleFor returns how long the stream has been silent as of now.
func (m *Monitor) IdleFor(now time.Time) time.Duration {
	return now.Sub(m.LastActivity())
}

// Lines returns the number of tokens read so far.
func (m *Monitor) Lines() int64 {
	return m.lines.Load()
}

// Done is closed when the stream reaches EOF, fails, or is closed.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Err returns the read error that ended the monitor, if any. Valid after Done.
func (m *Monitor) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Close closes the underlying reader, which unblocks a pending read.
func (m *Monitor) Close() {
	m.closeReader()
}

// Join waits up to timeout for the monitor to finish and force-closes the
// reader if it has not. It reports whether the goroutine exited in time.
func (m *Monitor) Join(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.done:
		return true
	case <-timer.C:
	}

	m.Close()
	timer.Reset(timeout)
	select {
	case <-m.done:
	case <-timer.C:
		return false
	}
	return true
}

// ScanLinesOrCR is a bufio.SplitFunc that ends a token at '\n' or '\r'.
// ffmpeg redraws its stats line with bare carriage returns.
func ScanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
