package handler_test

import (
    "net/http"
    "testing"

    "github.com/gatewise/checkin-engine/internal/model"
)

func TestTicketLifecycleOverAdminEndpoints(t *testing.T) {
    ts := newTestServer(t)
    admin := ts.token(t, "office-1", 7, model.CapabilityAdmin)

    rec := ts.do(t, http.MethodPost, "/v1/tickets", admin, `{"code":"TKT-500","holder_ref":"ord-77"}`)
    if rec.Code != http.StatusCreated {
        t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
    }
    body := decode(t, rec)
    if body["status"] != "ISSUED" || body["event_id"] != float64(7) {
        t.Errorf("created ticket = %v", body)
    }

    // Issued tickets do not admit yet.
    gate := ts.token(t, "gate-1", 7)
    vr := decode(t, ts.do(t, http.MethodPost, "/v1/validate", gate, `{"code":"TKT-500","nonce":"n1"}`))
    if vr["result"] != "rejected_unknown" {
        t.Errorf("pre-activation scan = %v, want rejected_unknown", vr["result"])
    }

    rec = ts.do(t, http.MethodPost, "/v1/tickets/TKT-500/activate", admin, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("activate: status = %d, body %s", rec.Code, rec.Body.String())
    }
    if decode(t, rec)["status"] != "VALID" {
        t.Error("activation did not yield VALID")
    }

    vr = decode(t, ts.do(t, http.MethodPost, "/v1/validate", gate, `{"code":"TKT-500","nonce":"n2"}`))
    if vr["result"] != "accepted" {
        t.Errorf("post-activation scan = %v, want accepted", vr["result"])
    }

    rec = ts.do(t, http.MethodPost, "/v1/tickets/TKT-500/revoke", admin, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("revoke: status = %d, body %s", rec.Code, rec.Body.String())
    }
    if decode(t, rec)["status"] != "REVOKED" {
        t.Error("revoke did not yield REVOKED")
    }

    vr = decode(t, ts.do(t, http.MethodPost, "/v1/validate", gate, `{"code":"TKT-500","nonce":"n3"}`))
    if vr["result"] != "rejected_revoked" {
        t.Errorf("post-revoke scan = %v, want rejected_revoked", vr["result"])
    }
}

func TestAdminEndpointsRequireCapability(t *testing.T) {
    ts := newTestServer(t)
    gate := ts.token(t, "gate-1", 7)

    for _, c := range []struct{ method, path, body string }{
        {http.MethodPost, "/v1/tickets", `{"code":"TKT-1"}`},
        {http.MethodPost, "/v1/tickets/TKT-1/activate", ""},
        {http.MethodPost, "/v1/tickets/TKT-1/revoke", ""},
    } {
        rec := ts.do(t, c.method, c.path, gate, c.body)
        if rec.Code != http.StatusForbidden {
            t.Errorf("%s %s: status = %d, want 403", c.method, c.path, rec.Code)
        }
    }
}

func TestAdminTransitionConflicts(t *testing.T) {
    ts := newTestServer(t)
    admin := ts.token(t, "office-1", 7, model.CapabilityAdmin)
    ts.seedTicket(t, "TKT-1", 7, model.TicketValid)

    // Activating a ticket that is already valid is a conflict, as is a
    // duplicate code and a double revoke.
    if rec := ts.do(t, http.MethodPost, "/v1/tickets/TKT-1/activate", admin, ""); rec.Code != http.StatusConflict {
        t.Errorf("activate valid: status = %d, want 409", rec.Code)
    }
    if rec := ts.do(t, http.MethodPost, "/v1/tickets", admin, `{"code":"TKT-1"}`); rec.Code != http.StatusConflict {
        t.Errorf("duplicate create: status = %d, want 409", rec.Code)
    }
    if rec := ts.do(t, http.MethodPost, "/v1/tickets/TKT-1/revoke", admin, ""); rec.Code != http.StatusOK {
        t.Errorf("revoke: status = %d, want 200", rec.Code)
    }
    if rec := ts.do(t, http.MethodPost, "/v1/tickets/TKT-1/revoke", admin, ""); rec.Code != http.StatusConflict {
        t.Errorf("double revoke: status = %d, want 409", rec.Code)
    }
    if rec := ts.do(t, http.MethodPost, "/v1/tickets/GHOST/activate", admin, ""); rec.Code != http.StatusNotFound {
        t.Errorf("activate unknown: status = %d, want 404", rec.Code)
    }
}

func TestAdminScopedToSessionEvent(t *testing.T) {
    ts := newTestServer(t)
    ts.seedTicket(t, "TKT-1", 9, model.TicketIssued)

    admin7 := ts.token(t, "office-1", 7, model.CapabilityAdmin)
    if rec := ts.do(t, http.MethodPost, "/v1/tickets/TKT-1/activate", admin7, ""); rec.Code != http.StatusForbidden {
        t.Errorf("cross-event activate: status = %d, want 403", rec.Code)
    }
}
