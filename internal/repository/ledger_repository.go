package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/model"
)

// LedgerRepo is the MySQL-backed check-in ledger.  Rows are append-only;
// nothing in this repository updates or deletes them.  The server_seq
// column is AUTO_INCREMENT and serves as the authoritative Lamport-style
// ordering across devices; the (device_id, nonce) unique key enforces
// idempotency at the database level.
type LedgerRepo struct {
    db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to the given database.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

const checkinColumns = "id, ticket_code, event_id, device_id, operator_id, nonce, result, client_ts, server_seq, created_at"

func scanCheckin(scan func(dest ...any) error) (*model.CheckinRecord, error) {
    var rec model.CheckinRecord
    var result string
    if err := scan(&rec.ID, &rec.TicketCode, &rec.EventID, &rec.DeviceID, &rec.OperatorID,
        &rec.Nonce, &result, &rec.ClientTS, &rec.ServerSeq, &rec.CreatedAt); err != nil {
        return nil, err
    }
    rec.Result, rec.DuplicateOf = model.ParseResult(result)
    return &rec, nil
}

// Append inserts the record and reads it back with its assigned server
// sequence.  A duplicate (device_id, nonce) insert returns the original
// row together with engine.ErrDuplicateNonce, so retried submissions are
// answered from the first attempt.
func (r *LedgerRepo) Append(ctx context.Context, rec *model.CheckinRecord) (*model.CheckinRecord, error) {
    _, err := r.db.ExecContext(ctx,
        "INSERT INTO checkins (id, ticket_code, event_id, device_id, operator_id, nonce, result, client_ts) VALUES (?,?,?,?,?,?,?,?)",
        rec.ID, rec.TicketCode, rec.EventID, rec.DeviceID, rec.OperatorID, rec.Nonce,
        rec.ResultString(), rec.ClientTS.UTC().Format("2006-01-02 15:04:05.000000"))
    if err != nil {
        if strings.Contains(err.Error(), "1062") {
            existing, findErr := r.FindByDeviceNonce(ctx, rec.DeviceID, rec.Nonce)
            if findErr != nil {
                return nil, findErr
            }
            return existing, engine.ErrDuplicateNonce
        }
        return nil, err
    }
    return r.GetByID(ctx, rec.ID)
}

// FindByDeviceNonce returns the record for an idempotency key.
func (r *LedgerRepo) FindByDeviceNonce(ctx context.Context, deviceID, nonce string) (*model.CheckinRecord, error) {
    row := r.db.QueryRowContext(ctx,
        "SELECT "+checkinColumns+" FROM checkins WHERE device_id=? AND nonce=? LIMIT 1", deviceID, nonce)
    rec, err := scanCheckin(row.Scan)
    if err == sql.ErrNoRows {
        return nil, engine.ErrRecordNotFound
    }
    if err != nil {
        return nil, err
    }
    return rec, nil
}

// GetByID returns a record by id.
func (r *LedgerRepo) GetByID(ctx context.Context, id string) (*model.CheckinRecord, error) {
    row := r.db.QueryRowContext(ctx,
        "SELECT "+checkinColumns+" FROM checkins WHERE id=? LIMIT 1", id)
    rec, err := scanCheckin(row.Scan)
    if err == sql.ErrNoRows {
        return nil, engine.ErrRecordNotFound
    }
    if err != nil {
        return nil, err
    }
    return rec, nil
}

// ListByTicket returns the full accepted/rejected history for a ticket in
// server sequence order.
func (r *LedgerRepo) ListByTicket(ctx context.Context, code string) ([]model.CheckinRecord, error) {
    rows, err := r.db.QueryContext(ctx,
        "SELECT "+checkinColumns+" FROM checkins WHERE ticket_code=? ORDER BY server_seq ASC", code)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.CheckinRecord, 0)
    for rows.Next() {
        rec, err := scanCheckin(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, *rec)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// CountAccepted returns the number of admissions for an event, override
// admissions included.
func (r *LedgerRepo) CountAccepted(ctx context.Context, eventID uint64) (uint64, error) {
    var n uint64
    err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM checkins WHERE event_id=? AND (result=? OR result=?)",
        eventID, string(model.ResultAccepted), string(model.ResultOverrideAccepted)).Scan(&n)
    if err != nil {
        return 0, err
    }
    return n, nil
}
