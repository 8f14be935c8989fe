// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/streamverse/catalog-api/internal/handler"
	"github.com/streamverse/catalog-api/internal/middleware"
)

// BasePath prefixes every API route; it also appears in token issuer URLs.
const BasePath = "/api/v1.0/streamverse"

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler) {
	e.GET("/healthz", health.Check)
}

// RegisterAuth registers the auth endpoints and the admin surface. The
// public group (register/login/refresh) is rate limited; logout only needs
// an authentic token, so it bypasses the full gate. Admin routes compose
// Authenticate then RequireAdmin — in that order, since authorization can
// only run once an identity is resolved.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UsersHandler, logs *handler.AuditHandler, authn, limiter echo.MiddlewareFunc) {
	pub := e.Group(BasePath + "/auth")
	pub.POST("/register", a.Register, limiter)
	pub.POST("/login", a.Login, limiter)
	pub.POST("/logout", a.Logout)
	pub.POST("/token/refresh", a.Refresh, limiter)

	adm := e.Group(BasePath+"/auth/users", authn, middleware.RequireAdmin)
	adm.GET("", u.List)
	adm.GET("/:username", u.Get)
	adm.PATCH("/:username", u.Update)
	adm.POST("/:username/password", u.ResetPassword)
	adm.PATCH("/:username/activate", u.Activate)
	adm.PATCH("/:username/deactivate", u.Deactivate)
	adm.DELETE("/:username", u.Delete)

	maint := e.Group(BasePath+"/auth/blacklist", authn, middleware.RequireAdmin)
	maint.DELETE("/prune", a.PruneBlacklist)

	aud := e.Group(BasePath+"/audit", authn, middleware.RequireAdmin)
	aud.GET("", logs.List)
	aud.GET("/stats", logs.Stats)
	aud.GET("/:id", logs.Get)
	aud.DELETE("/prune", logs.Prune)
}
