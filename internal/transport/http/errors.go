package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/vinodismyname/salesdash/internal/dashboard"
	"github.com/vinodismyname/salesdash/internal/loader"
	"github.com/vinodismyname/salesdash/internal/pipeline"
	"github.com/vinodismyname/salesdash/internal/presenter"
	"github.com/vinodismyname/salesdash/internal/security"
	"github.com/vinodismyname/salesdash/pkg/mcperr"
)

// APIError is the JSON error body of every API route.
type APIError struct {
	StatusCode int    `json:"status"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// NewAPIError creates an APIError.
func NewAPIError(status int, code mcperr.Code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: string(code), Message: message}
}

// errorFor maps a pipeline error to its HTTP status and code. Failures to
// obtain usable upstream data are reported as 502.
func errorFor(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	status, code := http.StatusInternalServerError, mcperr.Code("INTERNAL")
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, mcperr.Timeout
	case errors.Is(err, security.ErrNotAllowed), errors.Is(err, security.ErrUnsupportedExtension),
		errors.Is(err, security.ErrNotFound), errors.Is(err, security.ErrInvalidURL):
		status, code = http.StatusForbidden, mcperr.PermissionDenied
	case errors.Is(err, loader.ErrTooLarge):
		status, code = http.StatusBadGateway, mcperr.FileTooLarge
	case errors.Is(err, loader.ErrUnsupportedFormat):
		status, code = http.StatusBadGateway, mcperr.UnsupportedFormat
	case errors.Is(err, loader.ErrEmpty):
		status, code = http.StatusBadGateway, mcperr.EmptyDataset
	case errors.Is(err, pipeline.ErrSchema):
		status, code = http.StatusBadGateway, mcperr.SchemaMismatch
	case errors.Is(err, loader.ErrFetch), errors.Is(err, loader.ErrStatus), errors.Is(err, loader.ErrEmptySource):
		status, code = http.StatusBadGateway, mcperr.LoadFailed
	case errors.Is(err, dashboard.ErrDatasetNotFound):
		status, code = http.StatusNotFound, mcperr.InvalidDataset
	case errors.Is(err, presenter.ErrUnknownPanel):
		status, code = http.StatusNotFound, mcperr.InvalidPanel
	case errors.Is(err, presenter.ErrFormat):
		status, code = http.StatusNotFound, mcperr.Validation
	case errors.Is(err, dashboard.ErrNoChart):
		status, code = http.StatusUnprocessableEntity, mcperr.RenderFailed
	}
	return NewAPIError(status, code, err.Error())
}

// renderError writes err as an APIError.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	_ = render.Render(w, r, errorFor(err))
}
