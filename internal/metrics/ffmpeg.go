// Package metrics provides Prometheus metrics for the supervisor and the encoder.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "restreamer"

var (
	encoderFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "fps",
		Help:      "Current encoding FPS",
	})

	encoderBitrate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "bitrate_kbps",
		Help:      "Current output bitrate in kbit/s",
	})

	encoderSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "processing_speed",
		Help:      "Encoding speed relative to realtime",
	})

	encoderDroppedFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "dropped_frames",
		Help:      "Frames dropped in the current segment",
	})

	encoderDuplicateFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "encoder",
		Name:      "duplicate_frames",
		Help:      "Frames duplicated in the current segment",
	})

	encoderCache   EncoderMetrics
	encoderCacheOK bool
	encoderCacheMu sync.RWMutex
)

// EncoderMetrics holds the latest encoder stats for one segment.
type EncoderMetrics struct {
	SegmentID       string
	Frame           int64
	FPS             float64
	BitrateKbps     float64
	Speed           float64
	DroppedFrames   int64
	DuplicateFrames int64
}

// SetEncoder records a stats sample.
func SetEncoder(m EncoderMetrics) {
	encoderFPS.Set(m.FPS)
	encoderBitrate.Set(m.BitrateKbps)
	encoderSpeed.Set(m.Speed)
	encoderDroppedFrames.Set(float64(m.DroppedFrames))
	encoderDuplicateFrames.Set(float64(m.DuplicateFrames))

	encoderCacheMu.Lock()
	encoderCache = m
	encoderCacheOK = true
	encoderCacheMu.Unlock()
}

// ResetEncoder zeroes encoder gauges when no segment is running.
func ResetEncoder() {
	encoderFPS.Set(0)
	encoderBitrate.Set(0)
	encoderSpeed.Set(0)
	encoderDroppedFrames.Set(0)
	encoderDuplicateFrames.Set(0)

	encoderCacheMu.Lock()
	encoderCache = EncoderMetrics{}
	encoderCacheOK = false
	encoderCacheMu.Unlock()
}

// GetEncoder returns the latest sample, or false if none since the last reset.
func GetEncoder() (EncoderMetrics, bool) {
	encoderCacheMu.RLock()
	defer encoderCacheMu.RUnlock()
	return encoderCache, encoderCacheOK
}
