package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEncoderCache(t *testing.T) {
	ResetEncoder()

	if _, ok := GetEncoder(); ok {
		t.Error("expected no sample after reset")
	}

	SetEncoder(EncoderMetrics{SegmentID: "seg", Frame: 100, FPS: 25, BitrateKbps: 2500, Speed: 1, DroppedFrames: 3})

	m, ok := GetEncoder()
	if !ok {
		t.Fatal("expected a sample")
	}
	if m.SegmentID != "seg" || m.FPS != 25 || m.DroppedFrames != 3 {
		t.Errorf("unexpected sample %+v", m)
	}
	if got := testutil.ToFloat64(encoderBitrate); got != 2500 {
		t.Errorf("bitrate gauge = %v", got)
	}

	ResetEncoder()
	if got := testutil.ToFloat64(encoderFPS); got != 0 {
		t.Errorf("fps gauge after reset = %v", got)
	}
}

func TestSetPhase(t *testing.T) {
	phases := []string{"stopped", "streaming", "paused"}

	SetPhase("streaming", phases)
	if got := testutil.ToFloat64(supervisorPhase.WithLabelValues("streaming")); got != 1 {
		t.Errorf("streaming = %v, want 1", got)
	}
	if got := testutil.ToFloat64(supervisorPhase.WithLabelValues("stopped")); got != 0 {
		t.Errorf("stopped = %v, want 0", got)
	}

	SetPhase("paused", phases)
	if got := testutil.ToFloat64(supervisorPhase.WithLabelValues("streaming")); got != 0 {
		t.Errorf("streaming after pause = %v, want 0", got)
	}
}

func TestIncSegment(t *testing.T) {
	before := testutil.ToFloat64(segmentsTotal.WithLabelValues("frozen"))
	IncSegment("frozen")
	IncSegment("frozen")
	if got := testutil.ToFloat64(segmentsTotal.WithLabelValues("frozen")) - before; got != 2 {
		t.Errorf("frozen delta = %v, want 2", got)
	}
}
