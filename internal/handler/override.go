package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/middleware"
)

type overrideReq struct {
    attemptReq
    Action  string `json:"action"`
    Confirm bool   `json:"confirm"`
}

// Override handles POST /v1/override.  A supervisor session may force
// used → valid (readmit) or admit a revoked ticket; both demand the
// override capability and an explicit confirmation flag, and each is
// recorded as its own ledger entry type.
func (h *ValidateHandler) Override(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req overrideReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    att, err := req.toAttempt()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    action := engine.OverrideAction(req.Action)
    if action != engine.OverrideReadmit && action != engine.OverrideAdmitRevoked {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "action must be readmit or admit_revoked"})
    }
    if !req.Confirm {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "override requires explicit confirmation"})
    }

    v, err := h.Engine.Override(c.Request().Context(), sess, att, action)
    if err != nil {
        return sessionOrInfraError(c, err)
    }
    h.publishAccepted(v)
    return c.JSON(http.StatusOK, verdictBody(v))
}
