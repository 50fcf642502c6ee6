package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/gatewise/checkin-engine/internal/engine"
    "github.com/gatewise/checkin-engine/internal/middleware"
)

type syncBatchReq struct {
    Attempts []attemptReq `json:"attempts"`
}

// maxBatchSize caps one offline submission; devices are expected to chunk
// longer backlogs across requests.
const maxBatchSize = 500

// SyncBatch handles POST /v1/sync-batch.  The body is the ordered list of
// attempts a device recorded while offline; the response is a parallel
// array of verdicts.  Attempts that hit an infrastructure failure are
// reported per-item as retryable so the device can resubmit just those
// with their original nonces.
func (h *ValidateHandler) SyncBatch(c echo.Context) error {
    sess, ok := middleware.SessionFrom(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req syncBatchReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if len(req.Attempts) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "attempts is required"})
    }
    if len(req.Attempts) > maxBatchSize {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "batch too large"})
    }

    attempts := make([]engine.Attempt, 0, len(req.Attempts))
    for _, a := range req.Attempts {
        att, err := a.toAttempt()
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
        attempts = append(attempts, att)
    }

    results, err := h.Engine.ReplayBatch(c.Request().Context(), sess, attempts)
    if err != nil {
        return sessionOrInfraError(c, err)
    }

    out := make([]echo.Map, 0, len(results))
    for _, res := range results {
        if res.Err != nil {
            out = append(out, echo.Map{
                "nonce":     res.Attempt.Nonce,
                "error":     "validation backend unavailable",
                "retryable": true,
            })
            continue
        }
        h.publishAccepted(res.Verdict)
        item := verdictBody(res.Verdict)
        item["nonce"] = res.Attempt.Nonce
        out = append(out, item)
    }
    return c.JSON(http.StatusOK, echo.Map{"results": out})
}
