package engine

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"

    "github.com/gatewise/checkin-engine/internal/model"
)

// casRetries bounds the reload-and-retry loop that absorbs genuine races
// between two devices scanning the same code within milliseconds.
const casRetries = 3

// Engine applies the per-ticket state machine.  It is stateless apart
// from its storage handles and safe for concurrent use; all coordination
// funnels through the registry's compare-and-swap.
type Engine struct {
    registry Registry
    ledger   Ledger
    now      func() time.Time
}

// New returns an Engine over the given registry and ledger.
func New(registry Registry, ledger Ledger) *Engine {
    return &Engine{registry: registry, ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
}

// NewWithClock is New with an injectable clock, used by tests.
func NewWithClock(registry Registry, ledger Ledger, now func() time.Time) *Engine {
    return &Engine{registry: registry, ledger: ledger, now: now}
}

// Attempt is one decoded scan as submitted by a device.
type Attempt struct {
    Code     string    // decoded credential string
    Nonce    string    // client-generated idempotency token
    ClientTS time.Time // device clock at scan time (untrusted)
}

// Verdict is the outcome of one validation attempt.  Record is the ledger
// entry covering the attempt and is always set.  Ticket is the ticket's
// state after the attempt (nil for unknown codes).  Prior is the accepted
// record a duplicate collided with, so callers can render "already used
// by device X at 19:02".  Replayed marks idempotent retries that returned
// the stored verdict unchanged.
type Verdict struct {
    Record   *model.CheckinRecord
    Ticket   *model.Ticket
    Prior    *model.CheckinRecord
    Replayed bool
}

// Accepted reports whether the attempt admitted the holder.
func (v *Verdict) Accepted() bool {
    return v.Record.Result == model.ResultAccepted || v.Record.Result == model.ResultOverrideAccepted
}

// checkSession enforces the session-level preconditions shared by every
// engine entry point.  Session failures never touch the ledger.
func (e *Engine) checkSession(sess *model.DeviceSession) error {
    if sess == nil || !e.now().Before(sess.ExpiresAt) {
        return ErrSessionExpired
    }
    return nil
}

// Validate runs the state machine for one presented credential:
// idempotent-retry lookup, ticket resolution, event scoping, status
// decision, and the compare-and-swap that serializes the transition to
// USED.  Across any number of concurrent calls for one ticket, at most
// one returns an accepted verdict; the rest deterministically receive
// duplicate_of referencing that single acceptance.
func (e *Engine) Validate(ctx context.Context, sess *model.DeviceSession, att Attempt) (*Verdict, error) {
    if err := e.checkSession(sess); err != nil {
        return nil, err
    }

    // Idempotent retry: the exact same attempt returns the stored verdict
    // without touching ticket state again.
    if existing, err := e.ledger.FindByDeviceNonce(ctx, sess.DeviceID, att.Nonce); err == nil {
        return e.replayVerdict(ctx, existing)
    } else if !errors.Is(err, ErrRecordNotFound) {
        return nil, err
    }

    ticket, err := e.registry.Get(ctx, att.Code)
    if errors.Is(err, ErrTicketNotFound) {
        return e.appendVerdict(ctx, sess, att, nil, model.ResultRejectedUnknown, "")
    }
    if err != nil {
        return nil, err
    }

    if ticket.EventID != sess.EventID {
        return e.appendVerdict(ctx, sess, att, ticket, model.ResultWrongEvent, "")
    }

    for attempt := 0; ; attempt++ {
        switch ticket.Status {
        case model.TicketRevoked:
            return e.appendVerdict(ctx, sess, att, ticket, model.ResultRejectedRevoked, "")

        case model.TicketIssued:
            // Not yet activated: treated as not-yet-valid, not as a
            // different code.
            return e.appendVerdict(ctx, sess, att, ticket, model.ResultRejectedUnknown, "")

        case model.TicketUsed:
            return e.duplicateVerdict(ctx, sess, att, ticket)

        case model.TicketValid:
            if attempt >= casRetries {
                // Retries exhausted: someone else won the race; report a
                // duplicate of the now-current acceptance.
                return e.duplicateVerdict(ctx, sess, att, ticket)
            }
            recordID := uuid.NewString()
            updated, casErr := e.registry.CompareAndSwapStatus(ctx, att.Code, ticket.Version, model.TicketUsed, &recordID)
            if casErr == nil {
                return e.appendAccepted(ctx, sess, att, updated, recordID)
            }
            if !errors.Is(casErr, ErrVersionConflict) {
                return nil, casErr
            }
            // Lost the race; reload and re-decide from the fresh status.
            ticket, err = e.registry.Get(ctx, att.Code)
            if err != nil {
                return nil, err
            }

        default:
            return e.appendVerdict(ctx, sess, att, ticket, model.ResultRejectedUnknown, "")
        }
    }
}

// replayVerdict rebuilds a Verdict from a previously stored record so a
// retried submission returns the original outcome unchanged.
func (e *Engine) replayVerdict(ctx context.Context, rec *model.CheckinRecord) (*Verdict, error) {
    v := &Verdict{Record: rec, Replayed: true}
    if t, err := e.registry.Get(ctx, rec.TicketCode); err == nil {
        v.Ticket = t
    }
    if rec.DuplicateOf != "" {
        if prior, err := e.ledger.GetByID(ctx, rec.DuplicateOf); err == nil {
            v.Prior = prior
        }
    }
    return v, nil
}

// duplicateVerdict records the attempt against an already-used ticket.
// When the accepted record is resolvable the verdict is duplicate_of with
// the original device/operator/time attached; a used ticket without a
// recorded acceptance (administrative state) falls back to
// rejected_already_used.
func (e *Engine) duplicateVerdict(ctx context.Context, sess *model.DeviceSession, att Attempt, ticket *model.Ticket) (*Verdict, error) {
    if ticket.LastCheckinID == nil {
        return e.appendVerdict(ctx, sess, att, ticket, model.ResultAlreadyUsed, "")
    }
    v, err := e.appendVerdict(ctx, sess, att, ticket, model.ResultDuplicate, *ticket.LastCheckinID)
    if err != nil {
        return nil, err
    }
    if prior, perr := e.ledger.GetByID(ctx, *ticket.LastCheckinID); perr == nil {
        v.Prior = prior
    }
    return v, nil
}

// appendAccepted writes the accepted ledger entry whose id the registry
// already points at.  The transition is decided once the CAS is durable;
// the ledger append merely materializes the audit row, so a duplicate
// nonce race here still resolves to the stored record.
func (e *Engine) appendAccepted(ctx context.Context, sess *model.DeviceSession, att Attempt, ticket *model.Ticket, recordID string) (*Verdict, error) {
    rec := e.newRecord(sess, att, ticket)
    rec.ID = recordID
    rec.Result = model.ResultAccepted
    stored, err := e.ledger.Append(ctx, rec)
    if errors.Is(err, ErrDuplicateNonce) {
        return &Verdict{Record: stored, Ticket: ticket, Replayed: true}, nil
    }
    if err != nil {
        return nil, err
    }
    return &Verdict{Record: stored, Ticket: ticket}, nil
}

// appendVerdict writes a rejection (or duplicate) ledger entry and wraps
// it in a Verdict.  A concurrent identical retry that already appended
// under the same nonce resolves to the stored record.
func (e *Engine) appendVerdict(ctx context.Context, sess *model.DeviceSession, att Attempt, ticket *model.Ticket, result model.CheckinResult, duplicateOf string) (*Verdict, error) {
    rec := e.newRecord(sess, att, ticket)
    rec.ID = uuid.NewString()
    rec.Result = result
    rec.DuplicateOf = duplicateOf
    stored, err := e.ledger.Append(ctx, rec)
    if errors.Is(err, ErrDuplicateNonce) {
        return e.replayVerdict(ctx, stored)
    }
    if err != nil {
        return nil, err
    }
    return &Verdict{Record: stored, Ticket: ticket}, nil
}

func (e *Engine) newRecord(sess *model.DeviceSession, att Attempt, ticket *model.Ticket) *model.CheckinRecord {
    rec := &model.CheckinRecord{
        TicketCode: att.Code,
        EventID:    sess.EventID,
        DeviceID:   sess.DeviceID,
        OperatorID: sess.OperatorID,
        Nonce:      att.Nonce,
        ClientTS:   att.ClientTS,
        CreatedAt:  e.now(),
    }
    if ticket != nil {
        rec.TicketCode = ticket.Code
    }
    return rec
}

// History returns the ordered attempt history for a ticket.
func (e *Engine) History(ctx context.Context, code string) ([]model.CheckinRecord, error) {
    return e.ledger.ListByTicket(ctx, code)
}

// AcceptedCount returns the number of admissions recorded for an event.
func (e *Engine) AcceptedCount(ctx context.Context, eventID uint64) (uint64, error) {
    return e.ledger.CountAccepted(ctx, eventID)
}
