package ffmpeg

import "github.com/smazurov/restreamer/internal/settings"

// Params are the encode parameters that depend on the performance profile.
type Params struct {
	Preset  string // libx264 preset
	Threads int    // 0 lets ffmpeg decide
}

// Fixed encode parameters shared by every profile.
const (
	VideoCodec      = "libx264"
	MaxRate         = "3000k"
	BufferSize      = "6000k"
	PixelFormat     = "yuv420p"
	GOP             = 50
	AudioCodec      = "aac"
	AudioBitrate    = "128k"
	AudioSampleRate = 44100
	OutputFormat    = "flv"
)

// The vps_optimized profile leaves one of four vCPUs to the OS and API.
var profileParams = map[settings.Profile]Params{
	settings.ProfileVPSOptimized: {Preset: "veryfast", Threads: 3},
	settings.ProfileBalanced:     {Preset: "medium", Threads: 0},
	settings.ProfileHighQuality:  {Preset: "slow", Threads: 0},
}

// ParamsFor resolves a profile. Unknown or empty profiles fall back to vps_optimized.
func ParamsFor(profile settings.Profile) Params {
	if p, ok := profileParams[profile]; ok {
		return p
	}
	return profileParams[settings.ProfileVPSOptimized]
}
