package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/gatewise/checkin-engine/internal/handler"    // import the handlers that implement business logic
    "github.com/gatewise/checkin-engine/internal/middleware" // import middleware for session authentication and capabilities
    "github.com/gatewise/checkin-engine/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // The health endpoint can be used by load balancers or monitoring
    // systems to verify that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterSession registers the device login endpoint.  Opening a session
// is the only unauthenticated operation besides the health check; every
// other route demands the token it issues.
func RegisterSession(e *echo.Echo, s *handler.SessionHandler) {
    e.POST("/v1/auth/device", s.Open)
}

// RegisterValidation wires the authenticated validation surface.  All
// routes in the group pass SessionAuth first, so handlers can assume a
// parsed DeviceSession in the context; extraMw (typically the Redis rate
// limiter) runs after authentication so its keys can include the device.
func RegisterValidation(e *echo.Echo, v *handler.ValidateHandler, a *handler.TicketAdminHandler, jwtSecret string, extraMw ...echo.MiddlewareFunc) {
    g := e.Group("/v1")
    g.Use(middleware.SessionAuth(jwtSecret))
    for _, mw := range extraMw {
        g.Use(mw)
    }

    // Live scanning path: one decoded code per call.
    g.POST("/validate", v.Validate)
    // Offline reconciliation path: a device's buffered attempts, replayed
    // through the same engine.
    g.POST("/sync-batch", v.SyncBatch)
    // Audit reads for dashboards.
    g.GET("/tickets/:code/history", v.History)
    g.GET("/events/:id/checkins/count", v.CheckinCount)

    // Supervisor override is its own audited operation behind the
    // override capability.
    g.POST("/override", v.Override, middleware.RequireCapability(model.CapabilityOverride))

    // Issuance surface consumed by the purchase/payment collaborator.
    admin := g.Group("/tickets", middleware.RequireCapability(model.CapabilityAdmin))
    admin.POST("", a.Create)
    admin.POST("/:code/activate", a.Activate)
    admin.POST("/:code/revoke", a.Revoke)
}
