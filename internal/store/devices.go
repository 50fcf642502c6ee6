package store

import (
    "context"
    "database/sql"
    "sync"
    "time"

    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/utils"
)

// DeviceStore is an in-memory device registry and session log mirroring
// the semantics of repository.DeviceRepo.
type DeviceStore struct {
    mu       sync.RWMutex
    devices  map[string]model.Device
    sessions map[string]model.DeviceSession
}

// NewDeviceStore returns an empty device store.
func NewDeviceStore() *DeviceStore {
    return &DeviceStore{
        devices:  make(map[string]model.Device),
        sessions: make(map[string]model.DeviceSession),
    }
}

// Register inserts a device with a bcrypt-hashed secret.
func (s *DeviceStore) Register(ctx context.Context, id, secret, label string, capabilities []string, cost int) error {
    hash, err := utils.HashSecret(secret, cost)
    if err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    s.devices[id] = model.Device{
        ID:           id,
        SecretHash:   hash,
        Label:        label,
        Capabilities: capabilities,
        IsActive:     true,
        CreatedAt:    time.Now().UTC(),
    }
    return nil
}

// GetByID fetches a device record.  Unknown ids report sql.ErrNoRows so
// callers can treat both backends alike.
func (s *DeviceStore) GetByID(ctx context.Context, id string) (model.Device, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    d, ok := s.devices[id]
    if !ok {
        return model.Device{}, sql.ErrNoRows
    }
    return d, nil
}

// StoreSession records an opened session for audit.
func (s *DeviceStore) StoreSession(ctx context.Context, sess *model.DeviceSession) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.sessions[sess.ID] = *sess
    return nil
}
