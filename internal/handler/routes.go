package handler

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/scholarx/scholarx-backend/internal/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Router holds everything the HTTP routes are built from
type Router struct {
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter

	AuthHandler    *AuthHandler
	ProfileHandler *ProfileHandler
	AvatarHandler  *AvatarHandler
	WSHandler      *WebSocketHandler
}

// Register mounts docs, the event stream and the v1 API on e
func (r Router) Register(e *echo.Echo) {
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/api/openapi.json", ServeOpenAPI3Spec)

	// Authenticates through the token query parameter
	e.GET("/ws", r.WSHandler.HandleWS)

	v1 := e.Group("/api/v1")

	// The caller may not have a profile yet
	v1.POST("/auth/callback", r.AuthHandler.Callback, r.Auth.Authenticate())

	profile := v1.Group("/profile",
		r.Auth.Authenticate(),
		r.Auth.RequireProfile(),
		middleware.RateLimitMiddleware(r.RateLimiter),
	)
	profile.GET("", r.ProfileHandler.GetProfile)
	profile.PUT("", r.ProfileHandler.UpdateProfile)
	// Multipart overhead on top of the 5MB image limit
	profile.POST("/avatar", r.AvatarHandler.UploadAvatar, echomiddleware.BodyLimit("6M"))
}
