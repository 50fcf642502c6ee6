package engine

import (
    "context"
    "sort"

    "github.com/gatewise/checkin-engine/internal/model"
)

// BatchResult pairs one replayed attempt with its outcome.  Err is set
// only for infrastructure failures; every state-level outcome, including
// post-hoc duplicates, arrives as a normal Verdict.
type BatchResult struct {
    Attempt Attempt
    Verdict *Verdict
    Err     error
}

// ReplayBatch merges the attempts a device recorded while disconnected.
// Within the batch, attempts replay in the device's own recorded order
// (client timestamp, ties kept in submission order); across devices,
// ordering is decided purely by which batch reaches the server first,
// with the registry's compare-and-swap staying authoritative.  Every
// attempt passes through the exact same Validate logic as a live scan, so
// the offline path cannot drift from the live rule set.
//
// A device that locally "accepted" a ticket another device already
// admitted receives duplicate_of here; that post-hoc duplicate is
// surfaced honestly in the result rather than dropped.
//
// Results are returned parallel to the submitted slice.
func (e *Engine) ReplayBatch(ctx context.Context, sess *model.DeviceSession, attempts []Attempt) ([]BatchResult, error) {
    if err := e.checkSession(sess); err != nil {
        return nil, err
    }

    order := make([]int, len(attempts))
    for i := range order {
        order[i] = i
    }
    sort.SliceStable(order, func(a, b int) bool {
        return attempts[order[a]].ClientTS.Before(attempts[order[b]].ClientTS)
    })

    results := make([]BatchResult, len(attempts))
    for _, idx := range order {
        att := attempts[idx]
        v, err := e.Validate(ctx, sess, att)
        results[idx] = BatchResult{Attempt: att, Verdict: v, Err: err}
    }
    return results, nil
}
