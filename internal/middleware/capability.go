package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireCapability returns a middleware that enforces that the device
// session carries the named capability.  Capabilities correspond to the
// values stored in the session token's "caps" claim.  Sessions without
// the capability are aborted with a 403 Forbidden response.  It assumes
// SessionAuth has already stored the session in the context.
func RequireCapability(name string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            sess, ok := SessionFrom(c)
            if !ok || !sess.HasCapability(name) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
