// Package queue defines message payloads exchanged over the message broker.
package queue

// CheckinAcceptedEvent is published when a validation attempt admits a
// holder.  It contains enough information for downstream consumers to
// log, update attendance dashboards, or trigger analytics without
// querying the primary database.
type CheckinAcceptedEvent struct {
    RecordID   string `json:"record_id"`
    TicketCode string `json:"ticket_code"`
    EventID    uint64 `json:"event_id"`
    DeviceID   string `json:"device_id"`
    OperatorID string `json:"operator_id"`
    Result     string `json:"result"`
    ServerSeq  uint64 `json:"server_seq"`
    AcceptedAt string `json:"accepted_at"`
}
