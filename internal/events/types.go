package events

// Event type constants for kelindar/event.
const (
	TypePhaseChanged uint32 = iota + 1
	TypeSegmentEnded
	TypeWatchdogTripped
	TypeEncoderProgress
	TypeSettingsReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PhaseChangedEvent is published on every supervisor phase transition.
type PhaseChangedEvent struct {
	Phase     string `json:"phase" example:"streaming" doc:"New supervisor phase"`
	Previous  string `json:"previous" example:"paused" doc:"Phase before the transition"`
	SegmentID string `json:"segment_id,omitempty" doc:"Segment active at the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition time"`
}

// Type returns the event type identifier for PhaseChangedEvent.
func (e PhaseChangedEvent) Type() uint32 { return TypePhaseChanged }

// SegmentEndedEvent is published when an encoder segment is torn down.
type SegmentEndedEvent struct {
	SegmentID string  `json:"segment_id" doc:"Segment identifier"`
	Reason    string  `json:"reason" example:"elapsed" doc:"Why the segment ended: elapsed, exited, frozen, spawn_failed, stopped"`
	Seconds   float64 `json:"seconds" example:"39600" doc:"How long the segment ran"`
	ExitCode  *int    `json:"exit_code,omitempty" doc:"Encoder exit status when known"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"End time"`
}

// Type returns the event type identifier for SegmentEndedEvent.
func (e SegmentEndedEvent) Type() uint32 { return TypeSegmentEnded }

// WatchdogTrippedEvent is published when encoder output goes silent past the threshold.
type WatchdogTrippedEvent struct {
	SegmentID   string  `json:"segment_id" doc:"Segment identifier"`
	PID         int     `json:"pid" example:"4242" doc:"Encoder process id"`
	IdleSeconds float64 `json:"idle_seconds" example:"31.2" doc:"Seconds since the last output line"`
	Timestamp   string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Detection time"`
}

// Type returns the event type identifier for WatchdogTrippedEvent.
func (e WatchdogTrippedEvent) Type() uint32 { return TypeWatchdogTripped }

// EncoderProgressEvent carries one parsed ffmpeg stats line.
type EncoderProgressEvent struct {
	SegmentID   string  `json:"segment_id"`
	Frame       int64   `json:"frame"`
	FPS         float64 `json:"fps"`
	BitrateKbps float64 `json:"bitrate_kbps"`
	Speed       float64 `json:"speed"`
	Drop        int64   `json:"dropped_frames"`
	Dup         int64   `json:"duplicate_frames"`
}

// Type returns the event type identifier for EncoderProgressEvent.
func (e EncoderProgressEvent) Type() uint32 { return TypeEncoderProgress }

// SettingsReloadedEvent is published when the stream settings file changes on disk.
type SettingsReloadedEvent struct {
	Path      string `json:"path" example:"stream.toml" doc:"Settings file"`
	Profile   string `json:"performance_profile" example:"vps_optimized" doc:"Profile now in effect"`
	Valid     bool   `json:"valid" doc:"Whether the new settings passed validation"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload time"`
}

// Type returns the event type identifier for SettingsReloadedEvent.
func (e SettingsReloadedEvent) Type() uint32 { return TypeSettingsReloaded }
