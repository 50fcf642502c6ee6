package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/middleware"
)

// History handles GET /v1/tickets/:code/history.  It returns the ordered
// CheckinRecords for a ticket so dashboards can audit every attempt,
// accepted or rejected.  The list is scoped to the session's event: codes
// belonging to other events read as empty rather than leaking their
// history.
func (h *ValidateHandler) History(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket code"})
    }

    records, err := h.Engine.History(c.Request().Context(), code)
    if err != nil {
        return sessionOrInfraError(c, err)
    }
    out := make([]echo.Map, 0, len(records))
    for i := range records {
        if records[i].EventID != sess.EventID {
            continue
        }
        out = append(out, checkinBody(&records[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"ticket_code": code, "checkins": out})
}

// CheckinCount handles GET /v1/events/:id/checkins/count, the aggregate
// consumed by the dashboard's reporting screens.
func (h *ValidateHandler) CheckinCount(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if eventID != sess.EventID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "session bound to a different event"})
    }

    n, err := h.Engine.AcceptedCount(c.Request().Context(), eventID)
    if err != nil {
        return sessionOrInfraError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "accepted": n})
}
