package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/supervisor"
)

// registerStreamRoutes registers the supervisor lifecycle endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Stream Status",
		Description: "Get the current supervisor phase and segment timing",
		Tags:        []string{"stream"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: statusToAPI(s.controller.Status())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/api/start",
		Summary:     "Start Stream",
		Description: "Start the supervisor loop. Returns immediately; follow /api/status or /api/events for progress.",
		Tags:        []string{"stream"},
		Errors:      []int{401, 409},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := s.controller.Start(); err != nil {
			return nil, mapLifecycleError(err)
		}
		s.logger.Info("Stream started via API")
		return &models.MessageResponse{Body: models.MessageData{Message: "Stream started"}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/api/stop",
		Summary:     "Stop Stream",
		Description: "Stop the supervisor loop and terminate the encoder. Blocks until the encoder is gone.",
		Tags:        []string{"stream"},
		Errors:      []int{401, 409, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.MessageResponse, error) {
		if err := s.controller.Stop(); err != nil {
			return nil, mapLifecycleError(err)
		}
		s.logger.Info("Stream stopped via API")
		return &models.MessageResponse{Body: models.MessageData{Message: "Stream stopped"}}, nil
	})
}

func statusToAPI(st supervisor.Status) models.StatusData {
	return models.StatusData{
		Running:      st.Running,
		Phase:        string(st.Phase),
		StartTime:    st.StartTime,
		NextRestart:  st.NextRestart,
		PauseUntil:   st.PauseUntil,
		PID:          st.PID,
		SegmentID:    st.SegmentID,
		Segments:     st.Segments,
		Restarts:     st.Restarts,
		LastActivity: st.LastActivity,
	}
}

// mapLifecycleError maps controller errors to HTTP errors.
func mapLifecycleError(err error) error {
	switch {
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		return huma.Error409Conflict("Stream is already running", err)
	case errors.Is(err, supervisor.ErrNotRunning):
		return huma.Error409Conflict("Stream is not running", err)
	case errors.Is(err, supervisor.ErrShutdownTimeout):
		return huma.Error500InternalServerError("Encoder did not exit in time", err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
