// Package supervisor keeps one ffmpeg encoder streaming in bounded segments.
//
// Each cycle loads settings, builds the encoder invocation, runs it until the
// configured duration elapses, and then pauses for the upload window before
// the next segment. A segment whose encoder exits on its own, fails to spawn,
// or goes silent for longer than the freeze threshold is restarted at once
// without a pause. Every wait is cancellable by the context passed to Run.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/logging"
	"github.com/smazurov/restreamer/internal/metrics"
	"github.com/smazurov/restreamer/internal/process"
	"github.com/smazurov/restreamer/internal/settings"
	"github.com/smazurov/restreamer/internal/watchdog"
)

// Timing defaults.
const (
	PollInterval   = 1 * time.Second
	RetryDelay     = 5 * time.Second
	StaleThreshold = 30 * time.Second
	GracePeriod    = 10 * time.Second
	KillTimeout    = 5 * time.Second
	MonitorJoin    = 2 * time.Second
)

// Options configures a Supervisor. Zero values select defaults.
type Options struct {
	Builder ffmpeg.Builder
	Events  *events.Bus
	// Logger receives supervisor messages; OutputLogger receives encoder output.
	Logger       *slog.Logger
	OutputLogger *slog.Logger
}

// Supervisor runs the segment loop. Use Controller to start and stop it.
type Supervisor struct {
	config  ConfigProvider
	runtime Runtime
	builder ffmpeg.Builder
	bus     *events.Bus
	logger  *slog.Logger
	output  *slog.Logger

	pollInterval   time.Duration
	retryDelay     time.Duration
	staleThreshold time.Duration
	gracePeriod    time.Duration
	killTimeout    time.Duration
	monitorJoin    time.Duration
	durations      func(settings.Settings) (segment, pause time.Duration)
	phaseHook      func(prev, next Phase)

	mu          sync.Mutex
	active      bool
	phase       Phase
	startTime   time.Time
	nextRestart time.Time
	pauseUntil  time.Time
	segmentID   string
	segments    int
	restarts    int
	encoder     Encoder
	monitor     *watchdog.Monitor
}

// New creates a Supervisor in the stopped phase.
func New(config ConfigProvider, runtime Runtime, opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("supervisor")
	}
	output := opts.OutputLogger
	if output == nil {
		output = logging.GetLogger("ffmpeg")
	}

	return &Supervisor{
		config:         config,
		runtime:        runtime,
		builder:        opts.Builder,
		bus:            opts.Events,
		logger:         logger,
		output:         output,
		pollInterval:   PollInterval,
		retryDelay:     RetryDelay,
		staleThreshold: StaleThreshold,
		gracePeriod:    GracePeriod,
		killTimeout:    KillTimeout,
		monitorJoin:    MonitorJoin,
		durations: func(cfg settings.Settings) (time.Duration, time.Duration) {
			return cfg.StreamDurationTime(), cfg.UploadPauseTime()
		},
		phase: PhaseStopped,
	}
}

// Run executes cycles until ctx is cancelled. It always returns in the
// stopped phase with no encoder alive.
func (s *Supervisor) Run(ctx context.Context) {
	s.mu.Lock()
	s.active = true
	s.segments = 0
	s.restarts = 0
	s.mu.Unlock()

	s.logger.Info("Supervisor started")
	defer s.logger.Info("Supervisor stopped")
	defer s.transition(PhaseStopped, func() { s.active = false })

loop:
	for ctx.Err() == nil {
		cfg, err := s.loadSettings(ctx)
		if err != nil {
			break
		}

		inv, err := s.builder.Build(cfg)
		if err != nil {
			s.setPhase(PhaseConfigError)
			s.logger.Error("Cannot build encoder command", "error", err, "retry_in", s.retryDelay)
			if !s.sleep(ctx, s.retryDelay) {
				break
			}
			continue
		}

		segment, pause := s.durations(cfg)
		switch s.runSegment(ctx, inv, segment) {
		case ReasonStopped:
			break loop
		case ReasonElapsed:
			s.beginPause(pause)
			s.logger.Info("Segment complete, pausing for upload", "pause", pause)
			if !s.sleep(ctx, pause) {
				break loop
			}
		case ReasonSpawnFailed:
			if !s.sleep(ctx, s.pollInterval) {
				break loop
			}
		}
	}
	s.setPhase(PhaseStopping)
}

// loadSettings returns the next configuration, retrying at a constant
// interval while the provider is empty or failing. Only ctx ends the retry.
func (s *Supervisor) loadSettings(ctx context.Context) (settings.Settings, error) {
	var cfg settings.Settings
	op := func() error {
		loaded, ok, err := s.config.Load()
		if err != nil {
			return err
		}
		if !ok {
			return settings.ErrNotConfigured
		}
		cfg = loaded
		return nil
	}
	notify := func(err error, next time.Duration) {
		if errors.Is(err, settings.ErrNotConfigured) {
			s.logger.Warn("Waiting for stream settings", "retry_in", next)
			return
		}
		s.logger.Error("Failed to load stream settings", "error", err, "retry_in", next)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(s.retryDelay), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return settings.Settings{}, err
	}
	return cfg, nil
}

// runSegment runs one encoder from spawn to teardown.
func (s *Supervisor) runSegment(ctx context.Context, inv *ffmpeg.Invocation, length time.Duration) EndReason {
	start := time.Now()
	deadline := start.Add(length)
	segmentID := uuid.NewString()

	if !s.beginSegment(ctx, segmentID, start, deadline) {
		return ReasonStopped
	}
	logger := s.logger.With("segment_id", segmentID)
	logger.Info("Starting segment", "command", inv.Redacted(), "until", deadline.Format(time.RFC3339))

	enc, err := s.spawn(ctx, inv)
	if err != nil {
		if ctx.Err() != nil {
			return ReasonStopped
		}
		logger.Error("Failed to launch encoder", "error", err)
		s.endSegment(segmentID, ReasonSpawnFailed, start, nil)
		return ReasonSpawnFailed
	}

	tail := newLineTail(10)
	mon := watchdog.Attach(enc.Diagnostics(), s.lineHandler(segmentID, tail))
	s.mu.Lock()
	s.monitor = mon
	s.mu.Unlock()

	reason := s.watch(ctx, enc, mon, deadline, logger)
	if reason == ReasonStopped {
		s.setPhase(PhaseStopping)
	}
	s.teardown(enc, mon, reason, logger)

	if reason == ReasonExited {
		logger.Warn("Encoder exited unexpectedly", "error", exitError(enc), "last_output", tail.lines())
	}
	s.endSegment(segmentID, reason, start, enc)
	return reason
}

// spawn launches the encoder under the lock so that a concurrent stop either
// prevents the launch or finds the new encoder to signal.
func (s *Supervisor) spawn(ctx context.Context, inv *ffmpeg.Invocation) (Encoder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.IncSpawn()
	enc, err := s.runtime.Spawn(inv)
	if err != nil {
		return nil, err
	}
	s.encoder = enc
	return enc, nil
}

// watch polls the encoder until the segment has to end.
func (s *Supervisor) watch(ctx context.Context, enc Encoder, mon *watchdog.Monitor, deadline time.Time, logger *slog.Logger) EndReason {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ReasonStopped
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return ReasonStopped
		}

		now := time.Now()
		if !now.Before(deadline) {
			logger.Info("Segment duration reached")
			return ReasonElapsed
		}
		if !enc.Alive() {
			return ReasonExited
		}

		metrics.SetLastActivity(float64(mon.LastActivity().UnixNano()) / 1e9)
		if idle := mon.IdleFor(now); idle > s.staleThreshold {
			logger.Warn("Encoder output stalled, restarting", "idle", idle.Round(time.Millisecond), "pid", enc.PID())
			s.setPhase(PhaseFrozenRestarting)
			metrics.IncWatchdogTrip()
			s.bus.Publish(events.WatchdogTrippedEvent{
				SegmentID:   s.currentSegment(),
				PID:         enc.PID(),
				IdleSeconds: idle.Seconds(),
				Timestamp:   now.Format(time.RFC3339),
			})
			return ReasonFrozen
		}
	}
}

// teardown makes sure the encoder is dead and the monitor has finished.
// A frozen encoder is killed outright; anything else gets SIGINT first.
func (s *Supervisor) teardown(enc Encoder, mon *watchdog.Monitor, reason EndReason, logger *slog.Logger) {
	if enc.Alive() {
		if reason != ReasonFrozen {
			if err := enc.Terminate(); err != nil {
				logger.Warn("Failed to terminate encoder", "error", err)
			}
			if !enc.Wait(s.gracePeriod) {
				logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", s.gracePeriod)
			}
		}
		if enc.Alive() {
			if err := enc.Kill(); err != nil {
				logger.Error("Failed to kill encoder", "error", err)
			}
			if !enc.Wait(s.killTimeout) {
				logger.Error("Encoder did not exit after kill signal", "pid", enc.PID())
			}
		}
	}

	if !mon.Join(s.monitorJoin) {
		logger.Warn("Output monitor did not finish", "timeout", s.monitorJoin)
	} else if err := mon.Err(); err != nil {
		logger.Warn("Output monitor stopped on read error", "error", err, "lines", mon.Lines())
	} else {
		logger.Debug("Output monitor finished", "lines", mon.Lines())
	}

	s.mu.Lock()
	s.encoder = nil
	s.monitor = nil
	s.mu.Unlock()
}

func (s *Supervisor) lineHandler(segmentID string, tail *lineTail) func(string) {
	return func(line string) {
		if p, ok := ffmpeg.ParseProgress(line); ok {
			metrics.SetEncoder(metrics.EncoderMetrics{
				SegmentID:       segmentID,
				Frame:           p.Frame,
				FPS:             p.FPS,
				BitrateKbps:     p.BitrateKbps,
				Speed:           p.Speed,
				DroppedFrames:   p.Drop,
				DuplicateFrames: p.Dup,
			})
			s.output.Debug(line)
			return
		}
		tail.add(line)
		process.LogLine(s.output, ffmpeg.ParseLogLevel, line)
	}
}

func (s *Supervisor) beginSegment(ctx context.Context, segmentID string, start, deadline time.Time) bool {
	if ctx.Err() != nil {
		return false
	}
	return s.transition(PhaseStreaming, func() {
		s.segmentID = segmentID
		s.segments++
		s.startTime = start
		s.nextRestart = deadline
	})
}

func (s *Supervisor) beginPause(pause time.Duration) {
	s.transition(PhasePaused, func() {
		s.pauseUntil = time.Now().Add(pause)
	})
}

func (s *Supervisor) endSegment(segmentID string, reason EndReason, start time.Time, enc Encoder) {
	ended := time.Now()

	s.mu.Lock()
	if reason.unplanned() {
		s.restarts++
	}
	s.mu.Unlock()

	ev := events.SegmentEndedEvent{
		SegmentID: segmentID,
		Reason:    string(reason),
		Seconds:   ended.Sub(start).Seconds(),
		Timestamp: ended.Format(time.RFC3339),
	}
	if ec, ok := enc.(exitCoder); ok {
		if code, exited := ec.ExitCode(); exited {
			ev.ExitCode = &code
		}
	}

	metrics.IncSegment(string(reason))
	metrics.ResetEncoder()
	s.bus.Publish(ev)
	s.logger.Info("Segment ended", "segment_id", segmentID, "reason", reason, "duration", ended.Sub(start).Round(time.Second))
}

// setPhase records a transition. Stopping can only be followed by stopped.
func (s *Supervisor) setPhase(next Phase) {
	s.transition(next, nil)
}

// transition moves to next and applies update under the same lock, so a
// snapshot never sees the new phase with the old timing. It reports false if
// the transition was refused because a stop is in progress.
func (s *Supervisor) transition(next Phase, update func()) bool {
	return s.transitionIf(nil, next, update)
}

// transitionIf is transition with an extra precondition checked under the lock.
func (s *Supervisor) transitionIf(allow func() bool, next Phase, update func()) bool {
	s.mu.Lock()
	prev := s.phase
	if (allow != nil && !allow()) || (prev == PhaseStopping && next != PhaseStopped) {
		s.mu.Unlock()
		return false
	}
	s.phase = next
	if !next.hasTiming() {
		s.startTime = time.Time{}
		s.nextRestart = time.Time{}
	}
	if next != PhasePaused {
		s.pauseUntil = time.Time{}
	}
	if update != nil {
		update()
	}
	segmentID := s.segmentID
	hook := s.phaseHook
	s.mu.Unlock()

	if prev == next {
		return true
	}

	s.logger.Info("Phase changed", "from", prev, "to", next)
	metrics.SetPhase(string(next), phaseNames())
	s.bus.Publish(events.PhaseChangedEvent{
		Phase:     string(next),
		Previous:  string(prev),
		SegmentID: segmentID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if hook != nil {
		hook(prev, next)
	}
	return true
}

// markStopping is called by the controller before it cancels the loop. It is
// a no-op once Run has returned, so a late Stop cannot leave the phase stuck.
func (s *Supervisor) markStopping() {
	s.transitionIf(func() bool { return s.active }, PhaseStopping, nil)
}

// signalEncoder sends a termination or kill to the current encoder, if any.
func (s *Supervisor) signalEncoder(kill bool) {
	s.mu.Lock()
	enc := s.encoder
	s.mu.Unlock()
	if enc == nil {
		return
	}

	var err error
	if kill {
		err = enc.Kill()
	} else {
		err = enc.Terminate()
	}
	if err != nil {
		s.logger.Warn("Failed to signal encoder", "kill", kill, "error", err)
	}
}

// EncoderPID returns the pid of the live encoder, or 0.
func (s *Supervisor) EncoderPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.encoder == nil {
		return 0
	}
	return s.encoder.PID()
}

func (s *Supervisor) currentSegment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.segmentID
}

// snapshot copies the observable state. running is filled in by Controller.
func (s *Supervisor) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Phase:    s.phase,
		Segments: s.segments,
		Restarts: s.restarts,
	}
	if s.phase.hasTiming() && !s.startTime.IsZero() {
		start, next := s.startTime, s.nextRestart
		st.StartTime = &start
		st.NextRestart = &next
	}
	if s.phase == PhasePaused && !s.pauseUntil.IsZero() {
		until := s.pauseUntil
		st.PauseUntil = &until
	}
	if s.encoder != nil {
		st.PID = s.encoder.PID()
		st.SegmentID = s.segmentID
	}
	if s.monitor != nil {
		last := s.monitor.LastActivity()
		st.LastActivity = &last
	}
	return st
}

// sleep waits for d or until ctx is cancelled. It reports whether the full
// duration elapsed.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// lineTail keeps the last few non-stats lines for crash reports.
type lineTail struct {
	mu    sync.Mutex
	max   int
	items []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{max: n}
}

func (t *lineTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.items) == t.max {
		t.items = t.items[1:]
	}
	t.items = append(t.items, line)
}

func (t *lineTail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.items...)
}
