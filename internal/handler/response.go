package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ProblemDetails is an RFC 7807 error body
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const errorTypeBase = "https://scholarx.app/errors/"

const (
	ErrorTypeValidation   = errorTypeBase + "validation"
	ErrorTypeNotFound     = errorTypeBase + "not-found"
	ErrorTypeUnauthorized = errorTypeBase + "unauthorized"
	ErrorTypeConflict     = errorTypeBase + "conflict"
	ErrorTypeInternal     = errorTypeBase + "internal"
	ErrorTypeUnavailable  = errorTypeBase + "unavailable"
)

var problemTitles = map[int]string{
	http.StatusBadRequest: "Validation Error",
}

// writeProblem renders status as problem+json for the current request path
func writeProblem(c echo.Context, status int, errorType, detail string, fields []ValidationError) error {
	title, ok := problemTitles[status]
	if !ok {
		title = http.StatusText(status)
	}
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   fields,
	})
}

func NewValidationError(c echo.Context, detail string, fields []ValidationError) error {
	return writeProblem(c, http.StatusBadRequest, ErrorTypeValidation, detail, fields)
}

func NewNotFoundError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusNotFound, ErrorTypeNotFound, detail, nil)
}

func NewUnauthorizedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, detail, nil)
}

func NewConflictError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusConflict, ErrorTypeConflict, detail, nil)
}

func NewInternalError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusInternalServerError, ErrorTypeInternal, detail, nil)
}

// NewServiceUnavailableError reports a feature whose backing service is not configured
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, detail, nil)
}
