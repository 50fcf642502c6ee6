package engine

import (
    "context"

    "github.com/gatewise/checkin-engine/internal/model"
)

// Registry is the durable store of ticket identity and current status,
// the single source of truth.  CompareAndSwapStatus is the only mutation
// path for ticket status; its atomicity is what prevents double
// admission.
type Registry interface {
    // Get returns the ticket for a credential code, or ErrTicketNotFound.
    Get(ctx context.Context, code string) (*model.Ticket, error)

    // CompareAndSwapStatus transitions the ticket to newStatus only if its
    // current version equals expectedVersion, incrementing the version and
    // recording lastCheckinID as the accepted transition.  It returns the
    // updated ticket, ErrVersionConflict when the version moved, or
    // ErrTicketNotFound.
    CompareAndSwapStatus(ctx context.Context, code string, expectedVersion uint64, newStatus model.TicketStatus, lastCheckinID *string) (*model.Ticket, error)
}

// Ledger is the append-only record of every validation attempt that
// reached ticket state.  Append is atomic per (device, nonce) key; records
// are immutable once written.
type Ledger interface {
    // Append stores the record and assigns its server sequence number.
    // When a record with the same (device, nonce) already exists, the
    // stored record is returned together with ErrDuplicateNonce and no
    // second row is created.
    Append(ctx context.Context, rec *model.CheckinRecord) (*model.CheckinRecord, error)

    // FindByDeviceNonce returns the record for an idempotency key, or
    // ErrRecordNotFound.
    FindByDeviceNonce(ctx context.Context, deviceID, nonce string) (*model.CheckinRecord, error)

    // GetByID returns a record by its id, or ErrRecordNotFound.
    GetByID(ctx context.Context, id string) (*model.CheckinRecord, error)

    // ListByTicket returns the full attempt history for a ticket in
    // server-sequence order.
    ListByTicket(ctx context.Context, code string) ([]model.CheckinRecord, error)

    // CountAccepted returns the number of accepted admissions for an
    // event, including override admissions.
    CountAccepted(ctx context.Context, eventID uint64) (uint64, error)
}
