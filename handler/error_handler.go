package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/camarasaas/portal/pkg/binder"
	"github.com/camarasaas/portal/pkg/logger"
	"github.com/camarasaas/portal/pkg/validator"
)

// ErrorMapper translates a domain error into an HTTPError. It reports false
// when it does not recognise err.
type ErrorMapper func(err error) (HTTPError, bool)

// MapError builds an ErrorMapper matching target with errors.Is.
func MapError(target error, to HTTPError) ErrorMapper {
	return func(err error) (HTTPError, bool) {
		if errors.Is(err, target) {
			return to, true
		}
		return HTTPError{}, false
	}
}

// NewErrorHandler renders errors as JSON. Validation failures become 422 with
// per-field details, binder failures 400 or 415, and anything unmapped 500.
// Server errors are logged at error level, client errors at warn.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(w http.ResponseWriter, r *http.Request, err error) {
		status, detail := classify(err, mappers)

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		if renderErr := jsonError(status, detail).Render(w, r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}

func classify(err error, mappers []ErrorMapper) (int, *ErrorDetail) {
	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
		details := make(map[string][]string, len(verrs))
		for _, v := range verrs {
			details[v.Field] = append(details[v.Field], v.Message)
		}
		return http.StatusUnprocessableEntity, &ErrorDetail{
			Code:    "validation_error",
			Message: "validation failed",
			Details: details,
		}
	}

	for _, m := range mappers {
		if httpErr, ok := m(err); ok {
			return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}
		}
	}

	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		httpErr = ErrUnsupportedMedia
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrFailedToParsePath):
		return http.StatusBadRequest, &ErrorDetail{Code: ErrBadRequest.Key, Message: err.Error()}
	default:
		httpErr = ErrInternalServerError
	}
	return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}
}
