package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/logging"
)

// registerLogRoutes registers the recent log endpoint backed by the ring buffer.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Recent Logs",
		Description: "Most recent log entries, oldest first. Encoder output appears under the ffmpeg module at debug level.",
		Tags:        []string{"logs"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LogsRequest) (*models.LogsResponse, error) {
		resp := &models.LogsResponse{}
		resp.Body.Entries = []models.LogEntryData{}

		buffer := logging.Buffer()
		if buffer == nil {
			return resp, nil
		}

		// Filter over the whole buffer so a module filter still yields up to limit entries.
		for _, entry := range buffer.Last(0) {
			if input.Module != "" && entry.Module != input.Module {
				continue
			}
			resp.Body.Entries = append(resp.Body.Entries, models.LogEntryData{
				Timestamp:  entry.Timestamp,
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		}
		if input.Limit > 0 && len(resp.Body.Entries) > input.Limit {
			resp.Body.Entries = resp.Body.Entries[len(resp.Body.Entries)-input.Limit:]
		}
		resp.Body.Count = len(resp.Body.Entries)
		return resp, nil
	})
}
