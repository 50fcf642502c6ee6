package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/model"
)

// TicketRepo is the MySQL-backed ticket registry.  The status column is
// only ever written through CompareAndSwapStatus, whose UPDATE is guarded
// by the version column; that database-level optimistic lock is the
// serialization point that prevents a ticket from admitting twice.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// transactions spanning multiple repositories.
func (r *TicketRepo) DB() *sql.DB { return r.db }

const ticketColumns = "code, event_id, status, holder_ref, version, last_checkin_id, created_at, updated_at"

func scanTicket(row *sql.Row) (*model.Ticket, error) {
    var t model.Ticket
    var lastCheckin sql.NullString
    err := row.Scan(&t.Code, &t.EventID, &t.Status, &t.HolderRef, &t.Version, &lastCheckin, &t.CreatedAt, &t.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if lastCheckin.Valid {
        id := lastCheckin.String
        t.LastCheckinID = &id
    }
    return &t, nil
}

// Create inserts a ticket in its initial state.  A duplicate code returns
// engine.ErrVersionConflict so the issuing collaborator sees the retry.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO tickets (code, event_id, status, holder_ref, version) VALUES (?,?,?,?,?)",
        t.Code, t.EventID, t.Status, t.HolderRef, t.Version)
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            return engine.ErrVersionConflict
        }
        return err
    }
    return nil
}

// Get returns the ticket for a credential code.
func (r *TicketRepo) Get(ctx context.Context, code string) (*model.Ticket, error) {
    row := r.db.QueryRowContext(ctx,
        "SELECT "+ticketColumns+" FROM tickets WHERE code=? LIMIT 1", code)
    t, err := scanTicket(row)
    if err == sql.ErrNoRows {
        return nil, engine.ErrTicketNotFound
    }
    if err != nil {
        return nil, err
    }
    return t, nil
}

// CompareAndSwapStatus performs the optimistic-lock transition.  The
// UPDATE matches on both code and version; zero affected rows means
// either the ticket is gone or another caller moved the version first,
// and a follow-up SELECT distinguishes the two.
func (r *TicketRepo) CompareAndSwapStatus(ctx context.Context, code string, expectedVersion uint64, newStatus model.TicketStatus, lastCheckinID *string) (*model.Ticket, error) {
    res, err := r.db.ExecContext(ctx,
        "UPDATE tickets SET status=?, version=version+1, last_checkin_id=?, updated_at=UTC_TIMESTAMP() WHERE code=? AND version=?",
        newStatus, lastCheckinID, code, expectedVersion)
    if err != nil {
        return nil, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n == 0 {
        if _, getErr := r.Get(ctx, code); getErr != nil {
            return nil, getErr
        }
        return nil, engine.ErrVersionConflict
    }
    return r.Get(ctx, code)
}
