package model

import "time"

// Capability names carried in a device session.  Capabilities gate the
// privileged operations; a plain scanning session carries none.
const (
    CapabilityOverride = "override" // may force used→valid or admit revoked
    CapabilityAdmin    = "admin"    // may issue/activate/revoke tickets
)

// Device represents a registered scanning device as stored in the
// `devices` table.  The secret is never stored in plain form; only its
// bcrypt hash.  A device is registered by the back office and presents
// its secret when opening a session.
//
// Fields:
//  ID           – external device identifier (e.g. "gate-north-2").
//  SecretHash   – bcrypt hash of the device secret.
//  Label        – human-readable description shown on dashboards.
//  Capabilities – capabilities granted to sessions opened by this device
//                 (supervisor stations carry "override").
//  IsActive     – whether the device may open new sessions.
//  CreatedAt    – timestamp of registration.
type Device struct {
    ID           string    // devices.id
    SecretHash   string    // devices.secret_hash
    Label        string    // devices.label
    Capabilities []string  // devices.capabilities (comma separated)
    IsActive     bool      // devices.is_active
    CreatedAt    time.Time // devices.created_at
}

// DeviceSession binds a scanning device to one event and one operator for
// a bounded window.  Every validation call carries this context; an
// expired or event-mismatched session is rejected before any ticket
// lookup.
//
// Fields:
//  ID           – session identifier (UUID, also the JWT id claim).
//  DeviceID     – device the session belongs to.
//  OperatorID   – operator who opened the session.
//  EventID      – the single event this session may validate tickets for.
//  Capabilities – privileged operations this session may perform.
//  IssuedAt     – when the session was opened.
//  ExpiresAt    – hard expiry; no call is honored past this instant.
type DeviceSession struct {
    ID           string    // sessions.id
    DeviceID     string    // sessions.device_id
    OperatorID   string    // sessions.operator_id
    EventID      uint64    // sessions.event_id
    Capabilities []string  // sessions.capabilities (comma separated)
    IssuedAt     time.Time // sessions.issued_at
    ExpiresAt    time.Time // sessions.expires_at
}

// HasCapability reports whether the session carries the named capability.
func (s *DeviceSession) HasCapability(name string) bool {
    for _, c := range s.Capabilities {
        if c == name {
            return true
        }
    }
    return false
}
