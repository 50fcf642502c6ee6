package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming
    "time"     // expiry comparison

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/utils"
)

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and injects the rebuilt DeviceSession into the request context
// under "session" (plus "device_id" for the rate limiter).  The provided
// secret must match the one used when opening sessions.  Expired sessions
// are rejected with 401 before any handler runs; this is the session
// layer of the error taxonomy and produces no ledger entry.
func SessionAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            sess, err := utils.ParseSessionToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
            }
            if !time.Now().UTC().Before(sess.ExpiresAt) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
            }

            c.Set("session", sess)
            c.Set("device_id", sess.DeviceID)
            return next(c)
        }
    }
}

// SessionFrom extracts the DeviceSession stored by SessionAuth.  Handlers
// registered behind the middleware may assume it is present; the bool
// guards direct handler tests that skip the middleware.
func SessionFrom(c echo.Context) (*model.DeviceSession, bool) {
    sess, ok := c.Get("session").(*model.DeviceSession)
    return sess, ok
}
