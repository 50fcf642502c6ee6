package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/utils"
)

// DeviceRepo persists registered scanning devices and the sessions opened
// for them.  Device secrets are stored only as bcrypt hashes; session
// rows exist for audit even though the session token itself is
// self-contained.
type DeviceRepo struct{ DB *sql.DB }

// NewDeviceRepo returns a DeviceRepo bound to the given database.
func NewDeviceRepo(db *sql.DB) *DeviceRepo { return &DeviceRepo{DB: db} }

// Register inserts a device with a bcrypt-hashed secret and the
// capability set its sessions will inherit.
func (r *DeviceRepo) Register(ctx context.Context, id, secret, label string, capabilities []string, cost int) error {
    hash, err := utils.HashSecret(secret, cost)
    if err != nil {
        return err
    }
    _, err = r.DB.ExecContext(ctx,
        "INSERT INTO devices (id, secret_hash, label, capabilities, is_active) VALUES (?,?,?,?,1)",
        id, hash, label, strings.Join(capabilities, ","))
    if err != nil && strings.Contains(err.Error(), "1062") {
        return ErrDeviceExists
    }
    return err
}

// GetByID fetches a device record.
func (r *DeviceRepo) GetByID(ctx context.Context, id string) (model.Device, error) {
    var d model.Device
    var caps string
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, secret_hash, label, capabilities, is_active, created_at FROM devices WHERE id=? LIMIT 1",
        id).Scan(&d.ID, &d.SecretHash, &d.Label, &caps, &d.IsActive, &d.CreatedAt)
    if caps != "" {
        d.Capabilities = strings.Split(caps, ",")
    }
    return d, err
}

// StoreSession records an opened session for audit.  The capabilities are
// stored comma separated the same way they ride in the token claims.
func (r *DeviceRepo) StoreSession(ctx context.Context, s *model.DeviceSession) error {
    _, err := r.DB.ExecContext(ctx,
        "INSERT INTO sessions (id, device_id, operator_id, event_id, capabilities, issued_at, expires_at) VALUES (?,?,?,?,?,?,?)",
        s.ID, s.DeviceID, s.OperatorID, s.EventID, strings.Join(s.Capabilities, ","),
        s.IssuedAt.UTC().Format("2006-01-02 15:04:05"), s.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
    return err
}

// GetSession loads a stored session by id.  Expiry is not checked here;
// the engine enforces it on every call.
func (r *DeviceRepo) GetSession(ctx context.Context, id string) (*model.DeviceSession, error) {
    var s model.DeviceSession
    var caps string
    var issued, expires time.Time
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, device_id, operator_id, event_id, capabilities, issued_at, expires_at FROM sessions WHERE id=? LIMIT 1",
        id).Scan(&s.ID, &s.DeviceID, &s.OperatorID, &s.EventID, &caps, &issued, &expires)
    if err != nil {
        return nil, err
    }
    if caps != "" {
        s.Capabilities = strings.Split(caps, ",")
    }
    s.IssuedAt = issued.UTC()
    s.ExpiresAt = expires.UTC()
    return &s, nil
}
