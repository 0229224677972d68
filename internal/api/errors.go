package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videosqueeze/internal/config"
	"github.com/smazurov/videosqueeze/internal/conversion"
	"github.com/smazurov/videosqueeze/internal/ffmpeg"
	"github.com/smazurov/videosqueeze/internal/settings"
)

// mapError maps domain errors to HTTP errors.
func (s *Server) mapError(err error) error {
	var verr *settings.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]error, len(verr.Fields))
		for i, f := range verr.Fields {
			details[i] = &huma.ErrorDetail{Location: "body." + f.Field, Message: f.Message}
		}
		return huma.Error422UnprocessableEntity("invalid settings", details...)
	case errors.Is(err, ffmpeg.ErrInvalidNumber):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, conversion.ErrSessionNotFound), errors.Is(err, conversion.ErrSessionClosed),
		errors.Is(err, config.ErrPresetNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, conversion.ErrBusy):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, conversion.ErrEngineNotReady):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, conversion.ErrNoInput):
		return huma.Error400BadRequest(err.Error())
	default:
		s.logger.Error("Request failed", "error", err)
		return huma.Error500InternalServerError("internal server error")
	}
}
