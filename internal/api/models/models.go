// Package models holds the request and response shapes of the HTTP API.
package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// MessageData is returned by lifecycle actions.
type MessageData struct {
	Message string `json:"message" example:"Stream started" doc:"Operation result"`
}

type MessageResponse struct {
	Body MessageData
}

// StatusData mirrors the supervisor snapshot. start_time and next_restart are
// present only while streaming or restarting after a freeze; pause_until only
// while paused.
type StatusData struct {
	Running      bool       `json:"running" doc:"Whether the supervisor loop is active"`
	Phase        string     `json:"phase" example:"streaming" enum:"stopped,streaming,frozen_restarting,paused,config_error,stopping" doc:"Current phase"`
	StartTime    *time.Time `json:"start_time,omitempty" doc:"When the current segment began"`
	NextRestart  *time.Time `json:"next_restart,omitempty" doc:"When the current segment is planned to end"`
	PauseUntil   *time.Time `json:"pause_until,omitempty" doc:"End of the upload pause"`
	PID          int        `json:"pid,omitempty" example:"4242" doc:"Encoder process id"`
	SegmentID    string     `json:"segment_id,omitempty" doc:"Current segment identifier"`
	Segments     int        `json:"segments" example:"3" doc:"Encoder launches since start"`
	Restarts     int        `json:"restarts" example:"1" doc:"Unplanned restarts since start"`
	LastActivity *time.Time `json:"last_activity,omitempty" doc:"Time of the last encoder output line"`
}

type StatusResponse struct {
	Body StatusData
}

// SettingsData is the stream configuration as exposed over HTTP.
type SettingsData struct {
	VideoFile          string `json:"video_file" example:"videos/loop.mp4" doc:"Video to loop"`
	StreamKey          string `json:"stream_key" doc:"RTMP stream key"`
	RTMPURL            string `json:"rtmp_url" example:"rtmp://a.rtmp.youtube.com/live2" doc:"RTMP base URL"`
	PerformanceProfile string `json:"performance_profile" required:"false" enum:"vps_optimized,balanced,high_quality" example:"vps_optimized" doc:"Encoder speed/quality trade-off"`
	StreamDuration     int    `json:"stream_duration" minimum:"1" example:"39600" doc:"Segment length in seconds"`
	UploadPause        int    `json:"upload_pause" minimum:"0" example:"300" doc:"Pause between segments in seconds"`
	ChannelID          string `json:"channel_id" required:"false" doc:"Channel identifier, informational"`
}

type SettingsResponse struct {
	Body struct {
		SettingsData
		Configured bool `json:"configured" doc:"False when the settings file is missing or empty"`
	}
}

type SettingsRequest struct {
	Body SettingsData
}

// CommandData is the encoder invocation built from the stored settings.
type CommandData struct {
	Command     string `json:"command" example:"ffmpeg -re -stream_loop -1 -i video.mp4 ..." doc:"Full command line with the stream key masked"`
	Destination string `json:"destination" example:"rtmp://a.rtmp.youtube.com/live2/****" doc:"Masked RTMP destination"`
	Profile     string `json:"performance_profile" example:"vps_optimized" doc:"Profile applied"`
}

type CommandResponse struct {
	Body CommandData
}

// LogEntryData is one buffered log line.
type LogEntryData struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level" example:"info"`
	Module     string         `json:"module" example:"supervisor"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type LogsRequest struct {
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Maximum number of entries"`
	Module string `query:"module" doc:"Only entries from this module"`
}

type LogsResponse struct {
	Body struct {
		Entries []LogEntryData `json:"entries"`
		Count   int            `json:"count"`
	}
}
