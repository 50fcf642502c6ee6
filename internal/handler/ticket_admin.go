package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/middleware"
    "github.com/gatewise/checkin-engine/internal/model"
)

// TicketStore is the registry surface the issuing collaborator needs:
// the engine's read/CAS contract plus ticket creation.  Satisfied by
// repository.TicketRepo and store.TicketStore.
type TicketStore interface {
    engine.Registry
    Create(ctx context.Context, t *model.Ticket) error
}

// TicketAdminHandler implements the collaborator-facing issuance surface:
// create (issued), activate (issued → valid) and revoke.  Every
// transition goes through the same compare-and-swap the engine uses; no
// status write bypasses it.
type TicketAdminHandler struct {
    Tickets TicketStore
}

// NewTicketAdminHandler constructs a TicketAdminHandler.
func NewTicketAdminHandler(tickets TicketStore) *TicketAdminHandler {
    if tickets == nil {
        panic("nil ticket store passed to NewTicketAdminHandler")
    }
    return &TicketAdminHandler{Tickets: tickets}
}

type createTicketReq struct {
    Code      string `json:"code"`
    HolderRef string `json:"holder_ref"`
}

// Create handles POST /v1/tickets.  Tickets are born issued, scoped to
// the session's event; activation is a separate step driven by the
// payment flow.
func (h *TicketAdminHandler) Create(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createTicketReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Code = strings.TrimSpace(req.Code)
    if req.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
    }

    t := &model.Ticket{
        Code:      req.Code,
        EventID:   sess.EventID,
        Status:    model.TicketIssued,
        HolderRef: req.HolderRef,
        Version:   1,
    }
    if err := h.Tickets.Create(c.Request().Context(), t); err != nil {
        if errors.Is(err, engine.ErrVersionConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "ticket code already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create ticket", "retryable": true})
    }
    return c.JSON(http.StatusCreated, ticketBody(t))
}

// Activate handles POST /v1/tickets/:code/activate, moving issued →
// valid once payment/allocation is confirmed upstream.
func (h *TicketAdminHandler) Activate(c echo.Context) error {
    return h.transition(c, func(t *model.Ticket) (model.TicketStatus, error) {
        if t.Status != model.TicketIssued {
            return "", engine.ErrInvalidTransition
        }
        return model.TicketValid, nil
    })
}

// Revoke handles POST /v1/tickets/:code/revoke.  Any state may move to
// revoked; revoking an already revoked ticket is a no-op conflict.
func (h *TicketAdminHandler) Revoke(c echo.Context) error {
    return h.transition(c, func(t *model.Ticket) (model.TicketStatus, error) {
        if t.Status == model.TicketRevoked {
            return "", engine.ErrInvalidTransition
        }
        return model.TicketRevoked, nil
    })
}

// transition loads the ticket, validates event scope, derives the target
// status and applies it through the version-guarded swap.  A concurrent
// scan that moves the version first surfaces as a 409 so the caller can
// re-read and retry.
func (h *TicketAdminHandler) transition(c echo.Context, next func(*model.Ticket) (model.TicketStatus, error)) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    code := c.Param("code")
    if code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket code"})
    }
    ctx := c.Request().Context()

    t, err := h.Tickets.Get(ctx, code)
    if err != nil {
        if errors.Is(err, engine.ErrTicketNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registry unavailable", "retryable": true})
    }
    if t.EventID != sess.EventID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "session bound to a different event"})
    }

    status, err := next(t)
    if err != nil {
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition", "status": t.Status})
    }
    updated, err := h.Tickets.CompareAndSwapStatus(ctx, code, t.Version, status, t.LastCheckinID)
    if err != nil {
        if errors.Is(err, engine.ErrVersionConflict) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, re-read and retry"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registry unavailable", "retryable": true})
    }
    return c.JSON(http.StatusOK, ticketBody(updated))
}

func ticketBody(t *model.Ticket) echo.Map {
    body := echo.Map{
        "code":       t.Code,
        "event_id":   t.EventID,
        "status":     t.Status,
        "version":    t.Version,
        "holder_ref": t.HolderRef,
    }
    if t.LastCheckinID != nil {
        body["last_checkin_id"] = *t.LastCheckinID
    }
    return body
}
