package model

import "time"

// TicketStatus enumerates the lifecycle states of a ticket.  A ticket is
// created as ISSUED by the purchase collaborator, becomes VALID once
// payment/allocation is confirmed, moves to USED when an entry scan is
// accepted, and may be REVOKED from any state.  USED never returns to
// VALID implicitly; only the privileged re-admit operation does that.
type TicketStatus string

const (
    TicketIssued  TicketStatus = "ISSUED"  // created, not yet activated
    TicketValid   TicketStatus = "VALID"   // admissible at the entry point
    TicketUsed    TicketStatus = "USED"    // already admitted once
    TicketRevoked TicketStatus = "REVOKED" // withdrawn; must never admit
)

// Ticket is a single admission credential tied to one event and one
// holder.  The Code doubles as the decoded QR/barcode payload presented
// at the gate and is globally unique.
//
// Fields:
//  Code          – stable external credential identifier (primary key).
//  EventID       – event this ticket admits to.
//  Status        – current lifecycle state (see TicketStatus).
//  HolderRef     – opaque reference to holder/attendee info owned by an
//                  external collaborator; never interpreted here.
//  Version       – optimistic concurrency token, incremented on every
//                  successful status transition.
//  LastCheckinID – id of the CheckinRecord that performed the most recent
//                  accepted transition (nil until first admission).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – timestamp of the last status transition.
type Ticket struct {
    Code          string       // tickets.code
    EventID       uint64       // tickets.event_id
    Status        TicketStatus // tickets.status
    HolderRef     string       // tickets.holder_ref
    Version       uint64       // tickets.version
    LastCheckinID *string      // tickets.last_checkin_id (nullable)
    CreatedAt     time.Time    // tickets.created_at
    UpdatedAt     time.Time    // tickets.updated_at
}
