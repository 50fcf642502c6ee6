package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/middleware"
    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/queue"
    queue_publisher "github.com/gatewise/checkin-engine/internal/service"
)

// ValidateHandler exposes the validation engine over HTTP.  It owns the
// live-scan, offline-batch and override endpoints; every decision is made
// by the engine so the three paths cannot diverge.  Publish, when set,
// receives every non-replayed accepted verdict for broker fan-out.
type ValidateHandler struct {
    Engine  *engine.Engine
    Publish func(*engine.Verdict)
}

// NewValidateHandler constructs a ValidateHandler without broker fan-out;
// callers that want it set Publish (see PublishAcceptedEvent).
func NewValidateHandler(eng *engine.Engine) *ValidateHandler {
    if eng == nil {
        panic("nil engine passed to NewValidateHandler")
    }
    return &ValidateHandler{Engine: eng}
}

type attemptReq struct {
    Code     string `json:"code"`
    Nonce    string `json:"nonce"`
    ClientTS string `json:"client_ts"`
}

func (r attemptReq) toAttempt() (engine.Attempt, error) {
    if r.Code == "" || r.Nonce == "" {
        return engine.Attempt{}, errors.New("code and nonce are required")
    }
    att := engine.Attempt{Code: r.Code, Nonce: r.Nonce}
    if r.ClientTS != "" {
        ts, err := time.Parse(time.RFC3339, r.ClientTS)
        if err != nil {
            return engine.Attempt{}, errors.New("client_ts must be RFC3339")
        }
        att.ClientTS = ts.UTC()
    } else {
        att.ClientTS = time.Now().UTC()
    }
    return att, nil
}

// Validate handles POST /v1/validate.  The verdict is always a 200 with
// an application-level result enum; only session failures and malformed
// input surface as transport-level statuses.
func (h *ValidateHandler) Validate(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req attemptReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    att, err := req.toAttempt()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }

    v, err := h.Engine.Validate(c.Request().Context(), sess, att)
    if err != nil {
        return sessionOrInfraError(c, err)
    }
    h.publishAccepted(v)
    return c.JSON(http.StatusOK, verdictBody(v))
}

// publishAccepted fans an admission out to the broker for dashboards.
// Publishing is best effort and detached from the request: the verdict is
// already durable in the registry and ledger, so a broker outage must not
// fail or delay the response.
func (h *ValidateHandler) publishAccepted(v *engine.Verdict) {
    if h.Publish == nil || v == nil || v.Replayed || !v.Accepted() {
        return
    }
    h.Publish(v)
}

// PublishAcceptedEvent is the production Publish hook: it ships the
// accepted record to the checkin.accepted queue in the background.
func PublishAcceptedEvent(v *engine.Verdict) {
    rec := v.Record
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = queue_publisher.PublishCheckinAccepted(ctx, queue.CheckinAcceptedEvent{
            RecordID:   rec.ID,
            TicketCode: rec.TicketCode,
            EventID:    rec.EventID,
            DeviceID:   rec.DeviceID,
            OperatorID: rec.OperatorID,
            Result:     rec.ResultString(),
            ServerSeq:  rec.ServerSeq,
            AcceptedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
        })
    }()
}

// sessionOrInfraError maps engine errors onto the transport.  Session
// failures are 401/403; everything else is infrastructure and flagged
// retryable so the device resubmits with the identical nonce.
func sessionOrInfraError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, engine.ErrSessionExpired):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
    case errors.Is(err, engine.ErrWrongEvent):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "session bound to a different event"})
    case errors.Is(err, engine.ErrCapabilityRequired):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, engine.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
    case errors.Is(err, engine.ErrTicketNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validation backend unavailable", "retryable": true})
    }
}

// verdictBody renders a Verdict as the response shape shared by the
// validate, sync and override endpoints.
func verdictBody(v *engine.Verdict) echo.Map {
    body := echo.Map{
        "result":     v.Record.ResultString(),
        "record_id":  v.Record.ID,
        "server_seq": v.Record.ServerSeq,
        "replayed":   v.Replayed,
    }
    if v.Ticket != nil {
        body["ticket"] = echo.Map{
            "code":     v.Ticket.Code,
            "event_id": v.Ticket.EventID,
            "status":   v.Ticket.Status,
        }
    }
    if v.Prior != nil {
        body["prior_checkin"] = checkinBody(v.Prior)
    }
    return body
}

// checkinBody renders one ledger record for responses.
func checkinBody(rec *model.CheckinRecord) echo.Map {
    return echo.Map{
        "id":          rec.ID,
        "ticket_code": rec.TicketCode,
        "event_id":    rec.EventID,
        "device_id":   rec.DeviceID,
        "operator_id": rec.OperatorID,
        "result":      rec.ResultString(),
        "client_ts":   rec.ClientTS.UTC().Format(time.RFC3339),
        "server_seq":  rec.ServerSeq,
        "recorded_at": rec.CreatedAt.UTC().Format(time.RFC3339),
    }
}
