package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/restreamer/internal/events"
)

// registerSSERoutes registers the supervisor event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of phase changes, segment ends, watchdog trips and settings reloads. The current phase is sent first.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"phase-changed":     events.PhaseChangedEvent{},
		"segment-ended":     events.SegmentEndedEvent{},
		"watchdog-tripped":  events.WatchdogTrippedEvent{},
		"settings-reloaded": events.SettingsReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.PhaseChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SegmentEndedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.WatchdogTrippedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SettingsReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		status := s.controller.Status()
		if err := send.Data(events.PhaseChangedEvent{
			Phase:     string(status.Phase),
			Previous:  string(status.Phase),
			SegmentID: status.SegmentID,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		forwardEvents(ctx, eventCh, send)
	})
}

// forwardEvents relays events until the client goes away or a write fails.
func forwardEvents(ctx context.Context, eventCh <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventCh:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
