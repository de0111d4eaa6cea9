package supervisor

// Phase is the supervisor's externally visible state.
type Phase string

// Supervisor phases.
const (
	PhaseStopped          Phase = "stopped"
	PhaseStreaming        Phase = "streaming"
	PhaseFrozenRestarting Phase = "frozen_restarting"
	PhasePaused           Phase = "paused"
	PhaseConfigError      Phase = "config_error"
	PhaseStopping         Phase = "stopping"
)

// Phases lists every phase.
var Phases = []Phase{
	PhaseStopped,
	PhaseStreaming,
	PhaseFrozenRestarting,
	PhasePaused,
	PhaseConfigError,
	PhaseStopping,
}

// hasTiming reports whether start_time and next_restart are meaningful in p.
func (p Phase) hasTiming() bool {
	return p == PhaseStreaming || p == PhaseFrozenRestarting
}

// EndReason says why a segment ended.
type EndReason string

// Segment end reasons.
const (
	ReasonElapsed     EndReason = "elapsed"
	ReasonExited      EndReason = "exited"
	ReasonFrozen      EndReason = "frozen"
	ReasonSpawnFailed EndReason = "spawn_failed"
	ReasonStopped     EndReason = "stopped"
)

// unplanned reports whether the segment ended without reaching its duration
// or a stop request.
func (r EndReason) unplanned() bool {
	return r == ReasonExited || r == ReasonFrozen || r == ReasonSpawnFailed
}

func phaseNames() []string {
	names := make([]string, len(Phases))
	for i, p := range Phases {
		names[i] = string(p)
	}
	return names
}
