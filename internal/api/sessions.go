package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videosqueeze/internal/api/models"
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/events"
	"github.com/smazurov/videosqueeze/internal/ffmpeg"
	"github.com/smazurov/videosqueeze/internal/process"
	"github.com/smazurov/videosqueeze/internal/settings"
)

func (s *Server) sessionData(sess *conversion.Session) models.SessionData {
	snap := sess.Snapshot()
	engineState, _ := s.driver.EngineState()
	return models.SessionData{
		Snapshot: snap,
		State:    conversion.CombinedState(engineState, snap.Status),
	}
}

func (s *Server) sessionResponse(sess *conversion.Session) *models.SessionResponse {
	return &models.SessionResponse{Body: s.sessionData(sess)}
}

func (s *Server) session(id string) (*conversion.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return sess, nil
}

// uploadContentType trusts the client unless it sent nothing useful.
func uploadContentType(header, filename string) string {
	if header != "" && !strings.HasPrefix(header, "application/octet-stream") {
		return header
	}
	ext := settings.Format(ffmpeg.Extension(filename, ""))
	if settings.IsKnownFormat(ext) {
		return ffmpeg.MimeType(ext)
	}
	return "application/octet-stream"
}

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-session",
		Method:        http.MethodPost,
		Path:          "/api/sessions",
		Summary:       "Drop File",
		Description:   "Upload a video as the raw request body. Creates a session with default settings and starts loading the engine if it is idle.",
		Tags:          []string{"sessions"},
		Security:      withAuth(),
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.options.MaxUploadBytes,
		Errors:        []int{400, 401, 413},
	}, func(_ context.Context, input *models.UploadRequest) (*models.SessionResponse, error) {
		sess, err := s.driver.Open(conversion.FileInput{
			Name:        input.Filename,
			ContentType: uploadContentType(input.ContentType, input.Filename),
			Data:        input.RawBody,
		})
		if err != nil {
			return nil, s.mapError(err)
		}
		s.sessions.Add(sess)
		return s.sessionResponse(sess), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/api/sessions",
		Summary:     "List Sessions",
		Description: "Every open session, oldest first",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(context.Context, *struct{}) (*models.SessionListResponse, error) {
		list := s.sessions.List()
		out := make([]models.SessionData, len(list))
		for i, sess := range list {
			out[i] = s.sessionData(sess)
		}
		return &models.SessionListResponse{
			Body: models.SessionListData{Sessions: out, Count: len(out)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{id}",
		Summary:     "Get Session",
		Description: "Settings, progress and output of one session",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.SessionPath) (*models.SessionResponse, error) {
		sess, err := s.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		return s.sessionResponse(sess), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/sessions/{id}/settings",
		Summary:     "Replace Settings",
		Description: "Replace the session's settings. Values are checked when compression starts.",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 422},
	}, func(_ context.Context, input *models.SettingsRequest) (*models.SessionResponse, error) {
		sess, err := s.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		if err := sess.SetSettings(input.Body); err != nil {
			return nil, s.mapError(err)
		}
		return s.sessionResponse(sess), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-preset",
		Method:      http.MethodPost,
		Path:        "/api/sessions/{id}/presets/{name}",
		Summary:     "Apply Preset",
		Description: "Edit the session's settings with a named preset",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409},
	}, func(_ context.Context, input *models.ApplyPresetRequest) (*models.SessionResponse, error) {
		sess, err := s.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		preset, err := s.presets.Get(input.Name)
		if err != nil {
			return nil, s.mapError(err)
		}
		if _, err := sess.UpdateSettings(preset.Apply); err != nil {
			return nil, s.mapError(err)
		}
		return s.sessionResponse(sess), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-args",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{id}/args",
		Summary:     "Dry Run",
		Description: "The argument vector compression would run with the current settings",
		Tags:        []string{"sessions"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 422},
	}, func(_ context.Context, input *models.SessionPath) (*models.ArgsResponse, error) {
		sess, err := s.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		cfg := sess.Settings()
		args, err := ffmpeg.BuildArgs(ffmpeg.Input{
			InputName:  ffmpeg.InputName(sess.File().FileName),
			OutputName: ffmpeg.OutputName(cfg.Format),
			Duration:   sess.Media().Duration,
		}, cfg)
		if err != nil {
			return nil, s.mapError(err)
		}
		return &models.ArgsResponse{
			Body: models.ArgsData{
				Args:    args,
				Command: process.FormatCommand(append([]string{"ffmpeg"}, args...)),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "compress",
		Method:        http.MethodPost,
		Path:          "/api/sessions/{id}/compress",
		Summary:       "Compress",
		Description:   "Start compressing. Progress and the result arrive on /api/events.",
		Tags:          []string{"sessions"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 404, 409, 422, 503},
	}, func(_ context.Context, input *models.SessionPath) (*models.SessionResponse, error) {
		sess, err := s.session(input.SessionID)
		if err != nil {
			return nil, err
		}
		if err := sess.Settings().Validate(); err != nil {
			return nil, s.mapError(err)
		}
		updates, err := s.driver.Start(s.jobCtx, sess)
		if err != nil {
			return nil, s.mapError(err)
		}
		go func() {
			// Subscribers follow along on the event bus.
			for range updates {
			}
		}()
		return s.sessionResponse(sess), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/api/sessions/{id}",
		Summary:       "Reset Session",
		Description:   "Revoke the session's URLs and forget it. A running conversion finishes but its output is discarded.",
		Tags:          []string{"sessions"},
		Security:      withAuth(),
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404},
	}, func(_ context.Context, input *models.SessionPath) (*struct{}, error) {
		sess, err := s.sessions.Remove(input.SessionID)
		if err != nil {
			return nil, s.mapError(err)
		}
		s.driver.Reset(sess)
		if s.eventBus != nil {
			s.eventBus.Publish(events.SessionDeletedEvent{SessionID: sess.ID, Timestamp: events.Now()})
		}
		return nil, nil
	})
}
