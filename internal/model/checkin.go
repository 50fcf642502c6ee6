package model

import (
    "strings"
    "time"
)

// CheckinResult enumerates the application-level verdicts a validation
// attempt can produce.  These are stored verbatim in the ledger; the
// duplicate verdict is serialized as "duplicate_of:<record id>" so the
// accepted record can be recovered from the stored string alone.
type CheckinResult string

const (
    ResultAccepted         CheckinResult = "accepted"
    ResultRejectedUnknown  CheckinResult = "rejected_unknown"
    ResultWrongEvent       CheckinResult = "rejected_wrong_event"
    ResultAlreadyUsed      CheckinResult = "rejected_already_used"
    ResultRejectedRevoked  CheckinResult = "rejected_revoked"
    ResultDuplicate        CheckinResult = "duplicate_of"
    ResultOverrideReadmit  CheckinResult = "override_readmit"
    ResultOverrideAccepted CheckinResult = "override_accepted"
)

// CheckinRecord is the immutable ledger entry written for every validation
// attempt that reached ticket state, accepted or rejected.  Records are
// never mutated or deleted once appended.
//
// Fields:
//  ID          – globally unique record id (UUID).
//  TicketCode  – credential the attempt targeted.
//  EventID     – event scope of the session that made the attempt.
//  DeviceID    – scanning device.
//  OperatorID  – operator bound to the device session.
//  Nonce       – client-generated token; (DeviceID, Nonce) is the
//                idempotency key for retried submissions.
//  Result      – verdict (see CheckinResult).
//  DuplicateOf – when Result is duplicate_of, the id of the accepted
//                record this attempt collided with.
//  ClientTS    – device clock at scan time; untrusted, kept for display
//                and offline replay ordering only.
//  ServerSeq   – server-assigned Lamport-style counter, authoritative for
//                ordering across devices.
//  CreatedAt   – server wall-clock time the record was appended.
type CheckinRecord struct {
    ID          string        // checkins.id
    TicketCode  string        // checkins.ticket_code
    EventID     uint64        // checkins.event_id
    DeviceID    string        // checkins.device_id
    OperatorID  string        // checkins.operator_id
    Nonce       string        // checkins.nonce
    Result      CheckinResult // checkins.result
    DuplicateOf string        // embedded in checkins.result when set
    ClientTS    time.Time     // checkins.client_ts
    ServerSeq   uint64        // checkins.server_seq
    CreatedAt   time.Time     // checkins.created_at
}

// ResultString renders the stored form of the verdict.  Duplicate verdicts
// carry the accepted record id inline, e.g. "duplicate_of:3f2a...".
func (r *CheckinRecord) ResultString() string {
    if r.Result == ResultDuplicate && r.DuplicateOf != "" {
        return string(ResultDuplicate) + ":" + r.DuplicateOf
    }
    return string(r.Result)
}

// ParseResult splits a stored verdict string back into the enum value and
// the optional duplicate reference.
func ParseResult(s string) (CheckinResult, string) {
    if rest, ok := strings.CutPrefix(s, string(ResultDuplicate)+":"); ok {
        return ResultDuplicate, rest
    }
    return CheckinResult(s), ""
}
