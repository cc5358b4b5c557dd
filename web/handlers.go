package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatewaylabs/creditmeter/app"
	"github.com/gatewaylabs/creditmeter/domain/decision"
	"github.com/gatewaylabs/creditmeter/domain/usage"
)

type evaluateRequest struct {
	UserID          string            `json:"user_id"`
	Anonymous       bool              `json:"anonymous"`
	ModelID         string            `json:"model_id"`
	APIKeys         map[string]string `json:"api_keys,omitempty"`
	EstimatedTokens int64             `json:"estimated_tokens,omitempty"`
}

type evaluateResponse struct {
	Allowed   bool     `json:"allowed"`
	Reason    string   `json:"reason"`
	Exceeded  []string `json:"exceeded,omitempty"`
	Remaining int64    `json:"remaining"`
}

// Evaluate decides whether a chat request may proceed. Denials map to 402
// for credit rejections and 429 for cap and usage-limit rejections, so
// callers can pass the status through to the client unchanged.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ModelID == "" {
		h.respondError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	if req.UserID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	d := h.meter.Evaluate(r.Context(), app.Request{
		UserID:          req.UserID,
		Anonymous:       req.Anonymous,
		ModelID:         req.ModelID,
		APIKeys:         req.APIKeys,
		EstimatedTokens: req.EstimatedTokens,
	})

	h.respondJSON(w, decisionStatus(d), evaluateResponse{
		Allowed:   d.Allowed,
		Reason:    string(d.Reason),
		Exceeded:  d.Exceeded,
		Remaining: d.Remaining,
	})
}

func decisionStatus(d decision.Decision) int {
	if d.Allowed {
		return http.StatusOK
	}
	if d.Reason == decision.ReasonSufficientCredits {
		return http.StatusPaymentRequired
	}
	return http.StatusTooManyRequests
}

type estimateRequest struct {
	ModelID string `json:"model_id"`
	Text    string `json:"text"`
}

// Estimate returns the estimated token count for prompt text.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens := h.estimator.Estimate(req.ModelID, req.Text)
	h.respondJSON(w, http.StatusOK, map[string]int{"tokens": tokens})
}

type recordUsageRequest struct {
	UserID        string  `json:"user_id"`
	ModelID       string  `json:"model_id"`
	Provider      string  `json:"provider"`
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// RecordUsage appends a completed model call and invalidates the caller's
// cached snapshot.
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req recordUsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	e := usage.NewEvent(h.ids.New(), req.UserID, req.ModelID, req.Provider,
		req.InputTokens, req.OutputTokens, req.EstimatedCost, h.clock.Now())

	if err := h.meter.RecordUsage(r.Context(), e); err != nil {
		h.logger.Error().Err(err).Str("user_id", req.UserID).Msg("record usage failed")
		h.respondError(w, http.StatusInternalServerError, "failed to record usage")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{"id": e.ID})
}

type usageResponse struct {
	DailyTokens   int64    `json:"daily_tokens"`
	MonthlyTokens int64    `json:"monthly_tokens"`
	DailyCost     float64  `json:"daily_cost"`
	MonthlyCost   float64  `json:"monthly_cost"`
	DailyLimit    int64    `json:"daily_limit"`
	MonthlyLimit  int64    `json:"monthly_limit"`
	OverLimit     bool     `json:"over_limit"`
	Exceeded      []string `json:"exceeded,omitempty"`
}

// UserUsage returns the principal's aggregated usage and effective limits.
func (h *Handler) UserUsage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	snap := h.meter.Snapshot(r.Context(), userID)
	h.respondJSON(w, http.StatusOK, usageResponse{
		DailyTokens:   snap.Totals.DailyTokens,
		MonthlyTokens: snap.Totals.MonthlyTokens,
		DailyCost:     snap.Totals.DailyCost,
		MonthlyCost:   snap.Totals.MonthlyCost,
		DailyLimit:    snap.Limit.DailyTokens,
		MonthlyLimit:  snap.Limit.MonthlyTokens,
		OverLimit:     snap.OverLimit,
		Exceeded:      snap.Exceeded,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response failed")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}
