package engine

import (
    "context"
    "errors"

    "github.com/google/uuid"

    "github.com/gatewise/checkin-engine/internal/model"
)

// OverrideAction names the privileged operations a supervisor session may
// perform.  Both are distinct, audited operations and are never folded
// into normal validation.
type OverrideAction string

const (
    // OverrideReadmit forces used → valid so the holder can be admitted
    // again through a normal scan.
    OverrideReadmit OverrideAction = "readmit"

    // OverrideAdmitRevoked admits a revoked ticket after explicit
    // operator confirmation, transitioning it straight to used.
    OverrideAdmitRevoked OverrideAction = "admit_revoked"
)

// Override applies a supervisor action to a ticket.  The session must
// carry the override capability and be scoped to the ticket's event.
// Each override is recorded as its own ledger entry type, idempotent
// under the same (device, nonce) key like any other attempt.
func (e *Engine) Override(ctx context.Context, sess *model.DeviceSession, att Attempt, action OverrideAction) (*Verdict, error) {
    if err := e.checkSession(sess); err != nil {
        return nil, err
    }
    if !sess.HasCapability(model.CapabilityOverride) {
        return nil, ErrCapabilityRequired
    }

    if existing, err := e.ledger.FindByDeviceNonce(ctx, sess.DeviceID, att.Nonce); err == nil {
        return e.replayVerdict(ctx, existing)
    } else if !errors.Is(err, ErrRecordNotFound) {
        return nil, err
    }

    ticket, err := e.registry.Get(ctx, att.Code)
    if err != nil {
        return nil, err
    }
    if ticket.EventID != sess.EventID {
        return nil, ErrWrongEvent
    }

    for attempt := 0; attempt < casRetries; attempt++ {
        switch action {
        case OverrideReadmit:
            if ticket.Status != model.TicketUsed {
                return nil, ErrInvalidTransition
            }
            // The previous acceptance stays on the ticket for audit until
            // the next accepted scan replaces it.
            updated, casErr := e.registry.CompareAndSwapStatus(ctx, att.Code, ticket.Version, model.TicketValid, ticket.LastCheckinID)
            if casErr == nil {
                return e.appendOverride(ctx, sess, att, updated, model.ResultOverrideReadmit, uuid.NewString())
            }
            if !errors.Is(casErr, ErrVersionConflict) {
                return nil, casErr
            }

        case OverrideAdmitRevoked:
            if ticket.Status != model.TicketRevoked {
                return nil, ErrInvalidTransition
            }
            recordID := uuid.NewString()
            updated, casErr := e.registry.CompareAndSwapStatus(ctx, att.Code, ticket.Version, model.TicketUsed, &recordID)
            if casErr == nil {
                return e.appendOverride(ctx, sess, att, updated, model.ResultOverrideAccepted, recordID)
            }
            if !errors.Is(casErr, ErrVersionConflict) {
                return nil, casErr
            }

        default:
            return nil, ErrInvalidTransition
        }

        if ticket, err = e.registry.Get(ctx, att.Code); err != nil {
            return nil, err
        }
    }
    return nil, ErrVersionConflict
}

func (e *Engine) appendOverride(ctx context.Context, sess *model.DeviceSession, att Attempt, ticket *model.Ticket, result model.CheckinResult, recordID string) (*Verdict, error) {
    rec := e.newRecord(sess, att, ticket)
    rec.ID = recordID
    rec.Result = result
    stored, err := e.ledger.Append(ctx, rec)
    if errors.Is(err, ErrDuplicateNonce) {
        return &Verdict{Record: stored, Ticket: ticket, Replayed: true}, nil
    }
    if err != nil {
        return nil, err
    }
    return &Verdict{Record: stored, Ticket: ticket}, nil
}
