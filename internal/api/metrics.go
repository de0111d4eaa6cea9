package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/restreamer/internal/events"
)

// registerMetricsRoutes registers the encoder progress SSE endpoint.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Encoder Metrics Stream",
		Description: "Throttled ffmpeg progress (fps, bitrate, speed, dropped frames) while a segment is running",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"encoder-progress": events.EncoderProgressEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribe := events.SubscribeToChannel[events.EncoderProgressEvent](s.eventBus, eventCh)
		defer unsubscribe()

		forwardEvents(ctx, eventCh, send)
	})
}
