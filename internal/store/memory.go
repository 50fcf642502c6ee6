// Package store provides in-memory implementations of the engine's
// registry and ledger contracts.  They carry the reference semantics the
// MySQL repositories mirror and back the test suite, where spinning up a
// database is unwarranted.
package store

import (
    "context"
    "sync"
    "time"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/model"
)

var (
    _ engine.Registry = (*TicketStore)(nil)
    _ engine.Ledger   = (*LedgerStore)(nil)
)

// TicketStore is an in-memory ticket registry.  Mutations hold the store
// lock for the duration of the compare-and-swap, which makes the swap
// atomic with respect to concurrent callers.
type TicketStore struct {
    mu      sync.RWMutex
    tickets map[string]model.Ticket
}

// NewTicketStore returns an empty registry.
func NewTicketStore() *TicketStore {
    return &TicketStore{tickets: make(map[string]model.Ticket)}
}

// Create inserts a ticket.  Existing codes are overwritten only if absent;
// a second create for the same code returns engine.ErrVersionConflict so
// issuing retries are visible to the caller.
func (s *TicketStore) Create(ctx context.Context, t *model.Ticket) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.tickets[t.Code]; ok {
        return engine.ErrVersionConflict
    }
    now := time.Now().UTC()
    t.CreatedAt = now
    t.UpdatedAt = now
    s.tickets[t.Code] = *t
    return nil
}

// Get returns a copy of the ticket for a code.
func (s *TicketStore) Get(ctx context.Context, code string) (*model.Ticket, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    t, ok := s.tickets[code]
    if !ok {
        return nil, engine.ErrTicketNotFound
    }
    return &t, nil
}

// CompareAndSwapStatus transitions the ticket only when the stored version
// matches expectedVersion, bumping the version and recording the accepted
// check-in reference.
func (s *TicketStore) CompareAndSwapStatus(ctx context.Context, code string, expectedVersion uint64, newStatus model.TicketStatus, lastCheckinID *string) (*model.Ticket, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    t, ok := s.tickets[code]
    if !ok {
        return nil, engine.ErrTicketNotFound
    }
    if t.Version != expectedVersion {
        return nil, engine.ErrVersionConflict
    }
    t.Status = newStatus
    t.Version++
    t.LastCheckinID = lastCheckinID
    t.UpdatedAt = time.Now().UTC()
    s.tickets[code] = t
    return &t, nil
}

// LedgerStore is an in-memory append-only check-in ledger with the
// (device, nonce) idempotency guarantee and a monotonically increasing
// server sequence.
type LedgerStore struct {
    mu      sync.RWMutex
    seq     uint64
    byID    map[string]*model.CheckinRecord
    byNonce map[string]*model.CheckinRecord
    records []*model.CheckinRecord
}

// NewLedgerStore returns an empty ledger.
func NewLedgerStore() *LedgerStore {
    return &LedgerStore{
        byID:    make(map[string]*model.CheckinRecord),
        byNonce: make(map[string]*model.CheckinRecord),
    }
}

func nonceKey(deviceID, nonce string) string { return deviceID + "\x00" + nonce }

// Append stores the record and assigns its server sequence.  A record
// already present under the same (device, nonce) key is returned with
// engine.ErrDuplicateNonce and no second entry is created.
func (s *LedgerStore) Append(ctx context.Context, rec *model.CheckinRecord) (*model.CheckinRecord, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    key := nonceKey(rec.DeviceID, rec.Nonce)
    if existing, ok := s.byNonce[key]; ok {
        cp := *existing
        return &cp, engine.ErrDuplicateNonce
    }
    s.seq++
    stored := *rec
    stored.ServerSeq = s.seq
    if stored.CreatedAt.IsZero() {
        stored.CreatedAt = time.Now().UTC()
    }
    p := &stored
    s.byID[stored.ID] = p
    s.byNonce[key] = p
    s.records = append(s.records, p)
    cp := stored
    return &cp, nil
}

// FindByDeviceNonce returns the record for an idempotency key.
func (s *LedgerStore) FindByDeviceNonce(ctx context.Context, deviceID, nonce string) (*model.CheckinRecord, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if rec, ok := s.byNonce[nonceKey(deviceID, nonce)]; ok {
        cp := *rec
        return &cp, nil
    }
    return nil, engine.ErrRecordNotFound
}

// GetByID returns a record by id.
func (s *LedgerStore) GetByID(ctx context.Context, id string) (*model.CheckinRecord, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if rec, ok := s.byID[id]; ok {
        cp := *rec
        return &cp, nil
    }
    return nil, engine.ErrRecordNotFound
}

// ListByTicket returns the attempt history for a ticket in server
// sequence order.
func (s *LedgerStore) ListByTicket(ctx context.Context, code string) ([]model.CheckinRecord, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]model.CheckinRecord, 0)
    for _, rec := range s.records {
        if rec.TicketCode == code {
            out = append(out, *rec)
        }
    }
    return out, nil
}

// CountAccepted returns the number of admissions for an event, override
// admissions included.
func (s *LedgerStore) CountAccepted(ctx context.Context, eventID uint64) (uint64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var n uint64
    for _, rec := range s.records {
        if rec.EventID != eventID {
            continue
        }
        if rec.Result == model.ResultAccepted || rec.Result == model.ResultOverrideAccepted {
            n++
        }
    }
    return n, nil
}
