// Package engine implements the ticket validation state machine.  It is
// the only place that decides whether a presented credential admits, and
// it guarantees at-most-once admission per ticket by funneling every
// status transition through the registry's compare-and-swap.
package engine

import "errors"

// Storage sentinels.  Both the MySQL repositories and the in-memory store
// return these so the engine can treat either backend identically.
var (
    // ErrTicketNotFound is returned by Registry.Get for an unknown code.
    ErrTicketNotFound = errors.New("ticket not found")

    // ErrVersionConflict is returned by CompareAndSwapStatus when the
    // ticket's version moved since it was read.  The engine absorbs a
    // bounded number of these before settling on a duplicate verdict.
    ErrVersionConflict = errors.New("version conflict")

    // ErrRecordNotFound is returned by ledger lookups that match nothing.
    ErrRecordNotFound = errors.New("checkin record not found")

    // ErrDuplicateNonce is returned by Ledger.Append when a record with
    // the same (device, nonce) key already exists.  The original record
    // accompanies the error so retried submissions get the stored verdict.
    ErrDuplicateNonce = errors.New("duplicate nonce")
)

// Session-level failures.  These are rejected before any ticket lookup and
// never produce a ledger entry.
var (
    // ErrSessionExpired means the device session passed its expiry.
    ErrSessionExpired = errors.New("session expired")

    // ErrWrongEvent means the session is scoped to a different event than
    // the one it tried to act on.
    ErrWrongEvent = errors.New("session bound to a different event")

    // ErrCapabilityRequired means the session lacks the capability a
    // privileged operation demands.
    ErrCapabilityRequired = errors.New("session lacks required capability")
)

// ErrInvalidTransition is returned by Override when the requested action
// does not apply to the ticket's current state (e.g. re-admitting a
// ticket that was never used).
var ErrInvalidTransition = errors.New("invalid status transition")
