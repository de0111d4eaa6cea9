package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter publishes the latest encoder stats once per interval, so SSE
// clients see a steady rate regardless of how often ffmpeg prints.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 1 * time.Second,
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run()
}

// Stop stops the exporter and waits for the goroutine to finish.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	m, ok := metrics.GetEncoder()
	if !ok {
		return
	}
	s.eventBus.Publish(events.EncoderProgressEvent{
		SegmentID:   m.SegmentID,
		Frame:       m.Frame,
		FPS:         m.FPS,
		BitrateKbps: m.BitrateKbps,
		Speed:       m.Speed,
		Drop:        m.DroppedFrames,
		Dup:         m.DuplicateFrames,
	})
}
