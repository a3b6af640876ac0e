package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails mirrors handler.ProblemDetails; middleware cannot import handler
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const (
	errorTypeUnauthorized = "https://scholarx.app/errors/unauthorized"
	errorTypeRateLimit    = "https://scholarx.app/errors/rate-limit"
	errorTypeInternal     = "https://scholarx.app/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string) error {
	return c.JSON(status, problemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// unauthorizedError answers 401 with a bearer challenge (RFC 6750)
func unauthorizedError(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="scholarx"`)
	return problem(c, http.StatusUnauthorized, errorTypeUnauthorized, "Unauthorized", detail)
}

func rateLimitError(c echo.Context, retryAfter int) error {
	detail := fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter)
	return problem(c, http.StatusTooManyRequests, errorTypeRateLimit, "Rate Limit Exceeded", detail)
}

func internalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, errorTypeInternal, "Internal Server Error", detail)
}
