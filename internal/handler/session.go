package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/config"
    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/utils"
)

// DeviceStore is the device registry the session manager consumes.  Both
// repository.DeviceRepo (MySQL) and store.DeviceStore (memory) satisfy it.
type DeviceStore interface {
    GetByID(ctx context.Context, id string) (model.Device, error)
    StoreSession(ctx context.Context, s *model.DeviceSession) error
}

// SessionHandler opens device sessions.  A session binds a scanning
// device to one event and one operator for a bounded window; the issued
// token is the authorization context every validation call must carry.
type SessionHandler struct {
    Cfg     config.Config
    Devices DeviceStore
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(cfg config.Config, devices DeviceStore) *SessionHandler {
    if devices == nil {
        panic("nil device store passed to NewSessionHandler")
    }
    return &SessionHandler{Cfg: cfg, Devices: devices}
}

type openSessionReq struct {
    DeviceID     string `json:"device_id"`
    DeviceSecret string `json:"device_secret"`
    OperatorID   string `json:"operator_id"`
    EventID      uint64 `json:"event_id"`
}

// Open handles POST /v1/auth/device.  It verifies the device secret
// against the stored bcrypt hash and issues a session token scoped to
// exactly one event.  The session inherits the device's capability set.
func (h *SessionHandler) Open(c echo.Context) error {
    var req openSessionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.DeviceID = strings.TrimSpace(req.DeviceID)
    req.OperatorID = strings.TrimSpace(req.OperatorID)
    if req.DeviceID == "" || req.DeviceSecret == "" || req.OperatorID == "" || req.EventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "device_id, device_secret, operator_id and event_id are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    dev, err := h.Devices.GetByID(ctx, req.DeviceID)
    if err != nil || !dev.IsActive || !utils.VerifySecret(dev.SecretHash, req.DeviceSecret) {
        // One answer for unknown device, inactive device and bad secret.
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid device credentials"})
    }

    now := time.Now().UTC()
    sess := &model.DeviceSession{
        ID:           uuid.NewString(),
        DeviceID:     dev.ID,
        OperatorID:   req.OperatorID,
        EventID:      req.EventID,
        Capabilities: dev.Capabilities,
        IssuedAt:     now,
        ExpiresAt:    now.Add(time.Duration(h.Cfg.SessionTTLMin) * time.Minute),
    }
    if err := h.Devices.StoreSession(ctx, sess); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store session"})
    }

    tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, sess)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue session token"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "session_id":   sess.ID,
        "token":        tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
        "event_id":     sess.EventID,
        "capabilities": sess.Capabilities,
    })
}
