package supervisor

import (
	"context"
	"sync"
	"time"
)

// StopTimeout bounds how long Stop waits for the loop before escalating.
const StopTimeout = 5 * time.Second

// Status is a point-in-time copy of the supervisor state. StartTime and
// NextRestart are either both set or both nil.
type Status struct {
	Running      bool
	Phase        Phase
	StartTime    *time.Time
	NextRestart  *time.Time
	PauseUntil   *time.Time
	PID          int
	SegmentID    string
	Segments     int
	Restarts     int
	LastActivity *time.Time
}

// Controller starts and stops a Supervisor's loop. At most one loop runs at a
// time.
type Controller struct {
	sup         *Supervisor
	stopTimeout time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController wraps sup.
func NewController(sup *Supervisor) *Controller {
	return &Controller{sup: sup, stopTimeout: StopTimeout}
}

// Start launches the loop and returns immediately.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done

	// A Stop issued before Run takes the lock must still see an active loop.
	c.sup.mu.Lock()
	c.sup.active = true
	c.sup.mu.Unlock()

	go func() {
		defer close(done)
		c.sup.Run(ctx)

		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
		cancel()
	}()
	return nil
}

// Stop requests shutdown and waits for the loop to exit. If the encoder has
// not exited within StopTimeout it is killed; ErrShutdownTimeout is returned
// if the loop still has not finished after that.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	c.sup.markStopping()
	cancel()
	c.sup.signalEncoder(false)

	if waitClosed(done, c.stopTimeout) {
		return nil
	}

	c.sup.logger.Warn("Supervisor still stopping, killing encoder", "waited", c.stopTimeout)
	c.sup.signalEncoder(true)
	if waitClosed(done, c.sup.killTimeout) {
		return nil
	}
	return ErrShutdownTimeout
}

// Status returns a snapshot. It has no side effects.
func (c *Controller) Status() Status {
	st := c.sup.snapshot()
	c.mu.Lock()
	st.Running = c.running
	c.mu.Unlock()
	return st
}

// Running reports whether the loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Done returns a channel closed when the current loop exits, or nil when idle.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	return c.done
}

func waitClosed(ch <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
