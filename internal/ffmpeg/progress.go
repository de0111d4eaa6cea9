package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress is one periodic stats line from ffmpeg stderr, e.g.
//
//	frame= 1234 fps= 30 q=28.0 size=   12345kB time=00:00:41.13 bitrate=2457.3kbits/s dup=0 drop=2 speed=1.00x
type Progress struct {
	Frame       int64
	FPS         float64
	BitrateKbps float64
	Speed       float64
	OutTime     time.Duration
	Dup         int64
	Drop        int64
}

// ParseProgress parses a stats line. ok is false for any other output.
func ParseProgress(line string) (Progress, bool) {
	fields := progressFields(line)
	if _, hasFrame := fields["frame"]; !hasFrame {
		if _, hasSize := fields["size"]; !hasSize {
			return Progress{}, false
		}
	}
	if _, hasTime := fields["time"]; !hasTime {
		return Progress{}, false
	}

	var p Progress
	p.Frame, _ = strconv.ParseInt(fields["frame"], 10, 64)
	p.FPS, _ = strconv.ParseFloat(fields["fps"], 64)
	p.BitrateKbps, _ = strconv.ParseFloat(strings.TrimSuffix(fields["bitrate"], "kbits/s"), 64)
	p.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(fields["speed"], "x"), 64)
	p.Dup, _ = strconv.ParseInt(fields["dup"], 10, 64)
	p.Drop, _ = strconv.ParseInt(fields["drop"], 10, 64)
	p.OutTime = parseClock(fields["time"])
	return p, true
}

// progressFields splits "key= value key=value" pairs; ffmpeg pads values
// with spaces after the '='.
func progressFields(line string) map[string]string {
	fields := make(map[string]string)
	tokens := strings.Fields(line)
	for i := 0; i < len(tokens); i++ {
		key, value, found := strings.Cut(tokens[i], "=")
		if !found || key == "" {
			continue
		}
		if value == "" && i+1 < len(tokens) && !strings.Contains(tokens[i+1], "=") {
			i++
			value = tokens[i]
		}
		// Lsize is printed on the final line.
		if key == "Lsize" {
			key = "size"
		}
		fields[key] = value
	}
	return fields
}

// parseClock parses HH:MM:SS.ss. Invalid or negative values yield 0.
func parseClock(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.ParseFloat(parts[2], 64)
	if errH != nil || errM != nil || errS != nil || hours < 0 {
		return 0
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
}
