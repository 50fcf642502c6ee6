package engine_test

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/model"
    "github.com/gatewise/checkin-engine/internal/store"
)

var base = time.Date(2026, 5, 14, 18, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*engine.Engine, *store.TicketStore, *store.LedgerStore) {
    t.Helper()
    tickets := store.NewTicketStore()
    ledger := store.NewLedgerStore()
    eng := engine.NewWithClock(tickets, ledger, func() time.Time { return base })
    return eng, tickets, ledger
}

func session(eventID uint64, deviceID string, caps ...string) *model.DeviceSession {
    return &model.DeviceSession{
        ID:           "sess-" + deviceID,
        DeviceID:     deviceID,
        OperatorID:   "op-1",
        EventID:      eventID,
        Capabilities: caps,
        IssuedAt:     base,
        ExpiresAt:    base.Add(8 * time.Hour),
    }
}

func seedTicket(t *testing.T, tickets *store.TicketStore, code string, eventID uint64, status model.TicketStatus) {
    t.Helper()
    err := tickets.Create(context.Background(), &model.Ticket{
        Code:      code,
        EventID:   eventID,
        Status:    status,
        HolderRef: "holder-1",
        Version:   1,
    })
    if err != nil {
        t.Fatalf("seed ticket %s: %v", code, err)
    }
}

func TestValidateAcceptsValidTicket(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    sess := session(7, "gate-1")
    v, err := eng.Validate(context.Background(), sess, engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if !v.Accepted() {
        t.Fatalf("expected accepted, got %s", v.Record.Result)
    }
    if v.Replayed {
        t.Error("first attempt marked as replayed")
    }
    if v.Record.ServerSeq != 1 {
        t.Errorf("server seq = %d, want 1", v.Record.ServerSeq)
    }

    tk, err := tickets.Get(context.Background(), "TKT-001")
    if err != nil {
        t.Fatalf("reload ticket: %v", err)
    }
    if tk.Status != model.TicketUsed {
        t.Errorf("ticket status = %s, want USED", tk.Status)
    }
    if tk.Version != 2 {
        t.Errorf("ticket version = %d, want 2", tk.Version)
    }
    if tk.LastCheckinID == nil || *tk.LastCheckinID != v.Record.ID {
        t.Error("ticket does not reference the accepted record")
    }
}

func TestValidateIdempotentRetry(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    sess := session(7, "gate-1")
    att := engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base}

    first, err := eng.Validate(context.Background(), sess, att)
    if err != nil {
        t.Fatalf("first: %v", err)
    }
    second, err := eng.Validate(context.Background(), sess, att)
    if err != nil {
        t.Fatalf("retry: %v", err)
    }
    if !second.Replayed {
        t.Error("retry not marked as replayed")
    }
    if second.Record.ID != first.Record.ID {
        t.Errorf("retry returned a different record: %s vs %s", second.Record.ID, first.Record.ID)
    }
    if second.Record.Result != model.ResultAccepted {
        t.Errorf("retry result = %s, want accepted", second.Record.Result)
    }

    n, err := eng.AcceptedCount(context.Background(), 7)
    if err != nil {
        t.Fatalf("count: %v", err)
    }
    if n != 1 {
        t.Errorf("accepted count = %d, want 1", n)
    }
}

func TestValidateDuplicateReferencesAcceptance(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    first, err := eng.Validate(context.Background(), session(7, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("first: %v", err)
    }
    dup, err := eng.Validate(context.Background(), session(7, "gate-2"), engine.Attempt{Code: "TKT-001", Nonce: "n2", ClientTS: base.Add(time.Minute)})
    if err != nil {
        t.Fatalf("second: %v", err)
    }
    if dup.Record.Result != model.ResultDuplicate {
        t.Fatalf("result = %s, want duplicate_of", dup.Record.Result)
    }
    if dup.Record.DuplicateOf != first.Record.ID {
        t.Errorf("duplicate references %s, want %s", dup.Record.DuplicateOf, first.Record.ID)
    }
    if dup.Prior == nil || dup.Prior.DeviceID != "gate-1" {
        t.Error("prior acceptance not attached to the duplicate verdict")
    }
}

func TestValidateUnknownCode(t *testing.T) {
    eng, _, _ := newTestEngine(t)

    v, err := eng.Validate(context.Background(), session(7, "gate-1"), engine.Attempt{Code: "NOPE", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if v.Record.Result != model.ResultRejectedUnknown {
        t.Errorf("result = %s, want rejected_unknown", v.Record.Result)
    }
    if v.Ticket != nil {
        t.Error("unknown code returned a ticket")
    }

    // The rejection still lands in the ledger.
    recs, err := eng.History(context.Background(), "NOPE")
    if err != nil {
        t.Fatalf("history: %v", err)
    }
    if len(recs) != 1 {
        t.Errorf("history length = %d, want 1", len(recs))
    }
}

func TestValidateIssuedNotYetActivated(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketIssued)

    v, err := eng.Validate(context.Background(), session(7, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if v.Record.Result != model.ResultRejectedUnknown {
        t.Errorf("result = %s, want rejected_unknown", v.Record.Result)
    }

    tk, _ := tickets.Get(context.Background(), "TKT-001")
    if tk.Status != model.TicketIssued {
        t.Errorf("rejection mutated ticket status to %s", tk.Status)
    }
}

func TestValidateRevoked(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketRevoked)

    v, err := eng.Validate(context.Background(), session(7, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if v.Record.Result != model.ResultRejectedRevoked {
        t.Errorf("result = %s, want rejected_revoked", v.Record.Result)
    }
}

func TestValidateWrongEvent(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    v, err := eng.Validate(context.Background(), session(9, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if v.Record.Result != model.ResultWrongEvent {
        t.Errorf("result = %s, want rejected_wrong_event", v.Record.Result)
    }

    tk, _ := tickets.Get(context.Background(), "TKT-001")
    if tk.Status != model.TicketValid {
        t.Error("wrong-event rejection mutated the ticket")
    }
}

func TestValidateUsedWithoutRecordedAcceptance(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketUsed)

    v, err := eng.Validate(context.Background(), session(7, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != nil {
        t.Fatalf("validate: %v", err)
    }
    if v.Record.Result != model.ResultAlreadyUsed {
        t.Errorf("result = %s, want rejected_already_used", v.Record.Result)
    }
}

func TestValidateExpiredSession(t *testing.T) {
    eng, tickets, ledger := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    sess := session(7, "gate-1")
    sess.ExpiresAt = base.Add(-time.Minute)

    _, err := eng.Validate(context.Background(), sess, engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
    if err != engine.ErrSessionExpired {
        t.Fatalf("err = %v, want ErrSessionExpired", err)
    }

    // Session failures must not leave ledger entries behind.
    if _, err := ledger.FindByDeviceNonce(context.Background(), "gate-1", "n1"); err != engine.ErrRecordNotFound {
        t.Errorf("ledger entry written for an expired session (err=%v)", err)
    }
}

func TestValidateNilSession(t *testing.T) {
    eng, _, _ := newTestEngine(t)
    if _, err := eng.Validate(context.Background(), nil, engine.Attempt{Code: "X", Nonce: "n"}); err != engine.ErrSessionExpired {
        t.Fatalf("err = %v, want ErrSessionExpired", err)
    }
}

// TestValidateConcurrentScansAdmitOnce hammers one ticket from many
// goroutines at once.  Exactly one attempt may be accepted; every other
// attempt must come back as a duplicate referencing that acceptance.
func TestValidateConcurrentScansAdmitOnce(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    const devices = 16
    verdicts := make([]*model.CheckinRecord, devices)
    var wg sync.WaitGroup
    for i := 0; i < devices; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            sess := session(7, "gate-"+string(rune('a'+i)))
            v, err := eng.Validate(context.Background(), sess, engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base})
            if err != nil {
                t.Errorf("device %d: %v", i, err)
                return
            }
            verdicts[i] = v.Record
        }(i)
    }
    wg.Wait()

    var acceptedID string
    accepted := 0
    for _, rec := range verdicts {
        if rec == nil {
            continue
        }
        if rec.Result == model.ResultAccepted {
            accepted++
            acceptedID = rec.ID
        }
    }
    if accepted != 1 {
        t.Fatalf("accepted %d attempts, want exactly 1", accepted)
    }
    for i, rec := range verdicts {
        if rec == nil || rec.Result == model.ResultAccepted {
            continue
        }
        if rec.Result != model.ResultDuplicate {
            t.Errorf("device %d result = %s, want duplicate_of", i, rec.Result)
            continue
        }
        if rec.DuplicateOf != acceptedID {
            t.Errorf("device %d references %s, want %s", i, rec.DuplicateOf, acceptedID)
        }
    }

    n, _ := eng.AcceptedCount(context.Background(), 7)
    if n != 1 {
        t.Errorf("accepted count = %d, want 1", n)
    }
}

func TestHistoryInServerOrder(t *testing.T) {
    eng, tickets, _ := newTestEngine(t)
    seedTicket(t, tickets, "TKT-001", 7, model.TicketValid)

    ctx := context.Background()
    if _, err := eng.Validate(ctx, session(7, "gate-1"), engine.Attempt{Code: "TKT-001", Nonce: "n1", ClientTS: base}); err != nil {
        t.Fatal(err)
    }
    if _, err := eng.Validate(ctx, session(7, "gate-2"), engine.Attempt{Code: "TKT-001", Nonce: "n2", ClientTS: base}); err != nil {
        t.Fatal(err)
    }

    recs, err := eng.History(ctx, "TKT-001")
    if err != nil {
        t.Fatalf("history: %v", err)
    }
    if len(recs) != 2 {
        t.Fatalf("history length = %d, want 2", len(recs))
    }
    if recs[0].ServerSeq >= recs[1].ServerSeq {
        t.Errorf("history out of order: %d then %d", recs[0].ServerSeq, recs[1].ServerSeq)
    }
    if recs[0].Result != model.ResultAccepted || recs[1].Result != model.ResultDuplicate {
        t.Errorf("history results = %s, %s", recs[0].Result, recs[1].Result)
    }
}
