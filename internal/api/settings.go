package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/restreamer/internal/api/models"
	"github.com/smazurov/restreamer/internal/ffmpeg"
	"github.com/smazurov/restreamer/internal/settings"
)

// registerSettingsRoutes registers the stream settings endpoints. Changes
// take effect when the supervisor starts its next segment.
func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/api/config",
		Summary:     "Get Stream Settings",
		Description: "Get the stored stream settings. Defaults are returned when no settings file exists.",
		Tags:        []string{"config"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.SettingsResponse, error) {
		cfg, configured, err := s.store.Load()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read settings", err)
		}
		resp := &models.SettingsResponse{}
		resp.Body.SettingsData = settingsToAPI(cfg)
		resp.Body.Configured = configured
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-config",
		Method:      http.MethodPut,
		Path:        "/api/config",
		Summary:     "Update Stream Settings",
		Description: "Validate and atomically replace the stream settings",
		Tags:        []string{"config"},
		Errors:      []int{400, 401, 422, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.SettingsRequest) (*models.SettingsResponse, error) {
		cfg := settingsFromAPI(input.Body)
		if err := cfg.Validate(); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error(), err)
		}
		if err := s.store.Save(cfg); err != nil {
			return nil, huma.Error500InternalServerError("Failed to save settings", err)
		}
		s.logger.Info("Stream settings updated via API",
			"video_file", cfg.VideoFile,
			"profile", cfg.PerformanceProfile,
			"stream_duration", cfg.StreamDuration,
			"upload_pause", cfg.UploadPause)

		resp := &models.SettingsResponse{}
		resp.Body.SettingsData = settingsToAPI(cfg)
		resp.Body.Configured = true
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-config-command",
		Method:      http.MethodGet,
		Path:        "/api/config/command",
		Summary:     "Preview Encoder Command",
		Description: "Build the ffmpeg command the next segment would run, with the stream key masked",
		Tags:        []string{"config"},
		Errors:      []int{401, 422, 500},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.CommandResponse, error) {
		cfg, _, err := s.store.Load()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read settings", err)
		}

		inv, err := s.builder.Build(cfg)
		if err != nil {
			return nil, mapBuildError(err)
		}
		return &models.CommandResponse{
			Body: models.CommandData{
				Command:     inv.Redacted(),
				Destination: inv.RedactedDestination(),
				Profile:     string(inv.Profile),
			},
		}, nil
	})
}

func mapBuildError(err error) error {
	var cfgErr *ffmpeg.ConfigError
	if errors.As(err, &cfgErr) {
		return huma.Error422UnprocessableEntity("Settings cannot produce an encoder command", &huma.ErrorDetail{
			Location: "config." + cfgErr.Field,
			Message:  cfgErr.Reason,
		})
	}
	return huma.Error500InternalServerError("Failed to build encoder command", err)
}

func settingsToAPI(cfg settings.Settings) models.SettingsData {
	return models.SettingsData{
		VideoFile:          cfg.VideoFile,
		StreamKey:          cfg.StreamKey,
		RTMPURL:            cfg.RTMPURL,
		PerformanceProfile: string(cfg.PerformanceProfile),
		StreamDuration:     cfg.StreamDuration,
		UploadPause:        cfg.UploadPause,
		ChannelID:          cfg.ChannelID,
	}
}

func settingsFromAPI(data models.SettingsData) settings.Settings {
	cfg := settings.Settings{
		VideoFile:          data.VideoFile,
		StreamKey:          data.StreamKey,
		RTMPURL:            data.RTMPURL,
		PerformanceProfile: settings.Profile(data.PerformanceProfile),
		StreamDuration:     data.StreamDuration,
		UploadPause:        data.UploadPause,
		ChannelID:          data.ChannelID,
	}
	if cfg.PerformanceProfile == "" {
		cfg.PerformanceProfile = settings.ProfileVPSOptimized
	}
	return cfg
}
