package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/clock"
	"github.com/gatewaylabs/creditmeter/adapters/idgen"
	"github.com/gatewaylabs/creditmeter/adapters/ledger"
	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/app"
	"github.com/gatewaylabs/creditmeter/domain/model"
	"github.com/gatewaylabs/creditmeter/web"
)

// fixedEstimator sidesteps real encodings in handler tests.
type fixedEstimator struct{}

func (fixedEstimator) Estimate(modelID, text string) int { return len(text) / 4 }

type apiHarness struct {
	srv    *httptest.Server
	ledger *ledger.Static
	usage  *memory.UsageStore
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	h := &apiHarness{
		ledger: ledger.NewStatic(),
		usage:  memory.NewUsageStore(),
	}
	fake := clock.NewFake(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	users := memory.NewUserStore()
	logger := zerolog.Nop()
	catalog := memory.NewCatalog(model.Info{
		ID:             "anthropic/claude-x",
		Provider:       "anthropic",
		Premium:        true,
		InputPerToken:  120.0 / 1e6,
		OutputPerToken: 40.0 / 1e6,
	})

	credits := app.NewCreditService(app.CreditServiceDeps{
		Ledger: h.ledger, Users: users, Logger: logger,
	})
	messages := app.NewMessageLimitService(app.MessageLimitDeps{
		Ledger: h.ledger, Users: users, Chats: memory.NewChatStore(),
		Clock: fake, Logger: logger,
	}, 0)
	usageLimits := app.NewUsageLimitsService(app.UsageLimitsDeps{
		Usage: h.usage, Limits: memory.NewLimitStore(),
		Clock: fake, Logger: logger,
	}, 0)
	meter := app.NewMeter(app.MeterDeps{
		Credits: credits, Messages: messages, UsageLimits: usageLimits,
		Usage: h.usage, Ledger: h.ledger, Catalog: catalog,
		Clock: fake, Logger: logger,
	})

	handler := web.NewHandler(web.Deps{
		Meter:     meter,
		Usage:     h.usage,
		Estimator: fixedEstimator{},
		Clock:     fake,
		IDs:       idgen.NewSequential("evt"),
		Logger:    logger,
	})
	h.srv = httptest.NewServer(handler.Router())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *apiHarness) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(h.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return resp, decoded
}

func TestEvaluateEndpoint_Allowed(t *testing.T) {
	h := newAPIHarness(t)
	h.ledger.SetExternal("u1", 50)

	resp, body := h.post(t, "/v1/evaluate",
		`{"user_id": "u1", "model_id": "anthropic/claude-x"}`)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["allowed"] != true || body["reason"] != "sufficient_credits" {
		t.Errorf("body = %v", body)
	}
	if body["remaining"] != float64(50) {
		t.Errorf("remaining = %v, want 50", body["remaining"])
	}
}

func TestEvaluateEndpoint_CreditRejectionIs402(t *testing.T) {
	h := newAPIHarness(t)
	h.ledger.SetExternal("u1", -10)

	resp, body := h.post(t, "/v1/evaluate",
		`{"user_id": "u1", "model_id": "anthropic/claude-x"}`)

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", resp.StatusCode)
	}
	if body["allowed"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestEvaluateEndpoint_UsageLimitIs429(t *testing.T) {
	h := newAPIHarness(t)
	h.ledger.SetExternal("u1", 50)

	// Blow the daily token cap, then evaluate.
	h.post(t, "/v1/usage",
		`{"user_id": "u1", "model_id": "anthropic/claude-x", "input_tokens": 52000}`)

	resp, body := h.post(t, "/v1/evaluate",
		`{"user_id": "u1", "model_id": "anthropic/claude-x"}`)

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", resp.StatusCode)
	}
	if body["reason"] != "usage_limit_exceeded" {
		t.Errorf("reason = %v", body["reason"])
	}
	exceeded, _ := body["exceeded"].([]any)
	if len(exceeded) != 1 || exceeded[0] != "daily_tokens" {
		t.Errorf("exceeded = %v, want [daily_tokens]", body["exceeded"])
	}
}

func TestEvaluateEndpoint_BadRequests(t *testing.T) {
	h := newAPIHarness(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing model", `{"user_id": "u1"}`},
		{"missing user", `{"model_id": "anthropic/claude-x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := h.post(t, "/v1/evaluate", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRecordUsageEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.post(t, "/v1/usage",
		`{"user_id": "u1", "model_id": "anthropic/claude-x", "provider": "anthropic",
		  "input_tokens": 120, "output_tokens": 80, "estimated_cost": 0.25}`)

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if body["id"] != "evt-1" {
		t.Errorf("id = %v, want evt-1", body["id"])
	}

	events := h.usage.All()
	if len(events) != 1 || events[0].TotalTokens != 200 {
		t.Errorf("stored events = %+v", events)
	}
}

func TestUserUsageEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	h.post(t, "/v1/usage",
		`{"user_id": "u1", "model_id": "m", "input_tokens": 1000, "estimated_cost": 0.5}`)

	resp, err := http.Get(h.srv.URL + "/v1/users/u1/usage")
	if err != nil {
		t.Fatalf("GET usage: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["daily_tokens"] != float64(1000) || body["daily_cost"] != 0.5 {
		t.Errorf("body = %v", body)
	}
	if body["daily_limit"] != float64(50_000) {
		t.Errorf("daily_limit = %v, want the built-in 50000", body["daily_limit"])
	}
	if body["over_limit"] != false {
		t.Errorf("over_limit = %v", body["over_limit"])
	}
}

func TestEstimateEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.post(t, "/v1/estimate",
		`{"model_id": "anthropic/claude-x", "text": "twelve chars"}`)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["tokens"] != float64(3) {
		t.Errorf("tokens = %v, want 3", body["tokens"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	resp, err := http.Get(h.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
