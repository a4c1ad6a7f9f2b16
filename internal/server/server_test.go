package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/internal/store"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/iwvelando/debt-snowball/pkg/optimization"
	"go.uber.org/zap"
)

const planBody = `{
  "debts": [
    {"id": "card", "name": "Card", "balance": 2500, "rate": 22, "minimumPayment": 90},
    {"id": "loan", "name": "Loan", "balance": 6000, "rate": 8, "minimumPayment": 150}
  ],
  "extraPayment": 100,
  "horizonMonths": 240
}`

const uploadConfig = `plan:
  extraPayment: 100
  strategies: [minimum, snowball]
output:
  currencySymbol: "$"
debts:
  - name: Card
    balance: 2500
    rate: 22
    minimumPayment: 90
  - name: Store Card
    balance: 600
    minimumPayment: 30
`

func newTestHandler(t *testing.T, repo store.Repository) http.Handler {
	t.Helper()
	return NewHandler(zap.NewNop(), Options{
		Store:   repo,
		Version: "1.2.3",
		Now:     func() time.Time { return time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC) },
		Seed:    func() uint64 { return 7 },
	})
}

func perform(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response: %v: %s", err, rr.Body.String())
	}
}

func TestHandlePlanSuccess(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := perform(t, handler, http.MethodPost, "/api/plan", planBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	decodeBody(t, rr, &resp)

	if resp.Report == nil || len(resp.Report.Scenarios) != 3 {
		t.Fatalf("expected three scenarios, got %+v", resp.Report)
	}
	if len(resp.Report.Comparisons) != 2 {
		t.Errorf("expected two comparisons, got %d", len(resp.Report.Comparisons))
	}
	if resp.Report.Summary.TotalBalance != 8500 {
		t.Errorf("total balance = %.2f, expected 8500", resp.Report.Summary.TotalBalance)
	}
	if len(resp.Outcomes) != 3 || !strings.HasPrefix(resp.Outcomes[2], "Snowball: Debt free after") {
		t.Errorf("unexpected outcomes %q", resp.Outcomes)
	}
	if !strings.HasPrefix(resp.CSV, "month,") {
		t.Errorf("expected CSV data in response, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Error("expected duration in response")
	}
	if resp.ConfigYAML != "" {
		t.Error("JSON plans must not echo a configuration")
	}
}

func TestHandlePlanSelectedStrategies(t *testing.T) {
	handler := newTestHandler(t, nil)
	body := strings.Replace(planBody, `"horizonMonths": 240`, `"horizonMonths": 240, "strategies": ["snowball", "min"], "cascade": "next"`, 1)

	rr := perform(t, handler, http.MethodPost, "/api/plan", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	decodeBody(t, rr, &resp)
	if len(resp.Report.Scenarios) != 2 {
		t.Fatalf("expected two scenarios, got %d", len(resp.Report.Scenarios))
	}
	if resp.Report.Scenarios[0].Result.Strategy != "snowball" {
		t.Errorf("scenarios must follow the requested order, got %s first", resp.Report.Scenarios[0].Result.Strategy)
	}
	if resp.Report.Scenarios[0].Result.Cascade != "next" {
		t.Errorf("cascade = %s, expected next", resp.Report.Scenarios[0].Result.Cascade)
	}
}

func TestHandlePlanRejectsBadRequests(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		name        string
		method      string
		body        string
		wantStatus  int
		wantDetails int
	}{
		{"Wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, 0},
		{"Malformed JSON", http.MethodPost, `{"debts": [`, http.StatusBadRequest, 0},
		{"Unknown field", http.MethodPost, `{"debts": [], "bonus": 1}`, http.StatusBadRequest, 0},
		{"Negative extra payment", http.MethodPost, `{"debts": [], "extraPayment": -5}`, http.StatusBadRequest, 0},
		{"Unknown strategy", http.MethodPost, `{"debts": [], "strategies": ["avalanche"]}`, http.StatusBadRequest, 0},
		{"Unknown cascade", http.MethodPost, `{"debts": [], "cascade": "sideways"}`, http.StatusBadRequest, 0},
		{
			"Two invalid debts",
			http.MethodPost,
			`{"debts": [{"name": "A", "balance": -1, "rate": 5, "minimumPayment": 10}, {"name": "", "balance": 10, "rate": 5, "minimumPayment": 10}]}`,
			http.StatusBadRequest,
			2,
		},
		{"Saved set without storage", http.MethodPost, `{"debtSet": "home"}`, http.StatusServiceUnavailable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, handler, tt.method, "/api/plan", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.method != http.MethodPost {
				return
			}
			var resp errorResponse
			decodeBody(t, rr, &resp)
			if resp.Error == "" {
				t.Error("expected an error message")
			}
			if len(resp.Details) != tt.wantDetails {
				t.Errorf("expected %d details, got %q", tt.wantDetails, resp.Details)
			}
		})
	}
}

func uploadRequest(t *testing.T, contents string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "config.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(contents)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/plan/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandlePlanUpload(t *testing.T) {
	handler := newTestHandler(t, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, uploadRequest(t, uploadConfig))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp planResponse
	decodeBody(t, rr, &resp)

	if len(resp.Report.Scenarios) != 2 {
		t.Fatalf("expected the two configured strategies, got %d", len(resp.Report.Scenarios))
	}
	if resp.ConfigYAML != uploadConfig {
		t.Error("expected the uploaded configuration to be echoed")
	}
	found := false
	for _, w := range resp.Warnings {
		if strings.Contains(w, "Store Card") && strings.Contains(w, "no rate") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a missing-rate warning, got %q", resp.Warnings)
	}
	for _, outcome := range resp.Outcomes {
		if !strings.Contains(outcome, "$") {
			t.Errorf("outcome %q should use the configured currency symbol", outcome)
		}
	}
}

func TestHandlePlanUploadErrors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		handler := newTestHandler(t, nil)
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		if err := writer.WriteField("other", "x"); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
		_ = writer.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/plan/upload", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Invalid configuration", func(t *testing.T) {
		handler := newTestHandler(t, nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, uploadRequest(t, "plan:\n  strategies: [avalanche]\ndebts:\n  - name: A\n    balance: -5\n    rate: 3\n    minimumPayment: 1\n"))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp errorResponse
		decodeBody(t, rr, &resp)
		if len(resp.Details) != 2 {
			t.Errorf("expected both problems in details, got %q", resp.Details)
		}
	})

	for _, plan := range []string{"  cascade: upward\n", "  extraPayment: -10\n", "  strategies: [none, avalanche]\n"} {
		t.Run("Bad plan section "+strings.TrimSpace(plan), func(t *testing.T) {
			handler := newTestHandler(t, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, uploadRequest(t, "plan:\n"+plan+"debts:\n  - name: A\n    balance: 100\n    rate: 3\n    minimumPayment: 10\n"))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp errorResponse
			decodeBody(t, rr, &resp)
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}

	t.Run("Too large", func(t *testing.T) {
		handler := NewHandler(zap.NewNop(), Options{MaxUploadSize: 64})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, uploadRequest(t, uploadConfig))
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestHandleExport(t *testing.T) {
	handler := newTestHandler(t, nil)

	tests := []struct {
		format      string
		contentType string
		marker      string
	}{
		{"", "application/json", `"snowball_order"`},
		{"json", "application/json", `"debt_free_date"`},
		{"yaml", "application/yaml", "snowball_order:"},
		{"toml", "application/toml", "[financial_summary]"},
	}

	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			rr := perform(t, handler, http.MethodPost, "/api/export?format="+tt.format, planBody)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if got := rr.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, expected %q", got, tt.contentType)
			}
			if !strings.Contains(rr.Body.String(), tt.marker) {
				t.Errorf("export missing %q:\n%s", tt.marker, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), "2026-02-28") {
				t.Error("export should be dated with the injected clock")
			}
		})
	}

	rr := perform(t, handler, http.MethodPost, "/api/export?format=xml", planBody)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for unsupported format, got %d", rr.Code)
	}
}

func TestOmittedRateUsesDefault(t *testing.T) {
	repo, err := store.OpenSQLite(context.Background(), zap.NewNop(), filepath.Join(t.TempDir(), "debts.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = repo.Close() }()
	handler := newTestHandler(t, repo)

	body := `{"debts": [{"name": "Card", "balance": 1000, "minimumPayment": 50, "creditLimit": 2000}]}`
	rr := perform(t, handler, http.MethodPost, "/api/summary", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var summary summaryResponse
	decodeBody(t, rr, &summary)
	if summary.Debts[0].AnnualRatePercent != 20 || summary.Summary.WeightedAverageRate != 20 {
		t.Errorf("omitted rate should default to 20%%, got %+v", summary.Debts[0])
	}
	if summary.Debts[0].Notes == debt.NotePromotional {
		t.Error("a debt without a rate is not a 0% promotion")
	}

	rr = perform(t, handler, http.MethodPost, "/api/plan", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var plan planResponse
	decodeBody(t, rr, &plan)
	if len(plan.Warnings) == 0 || !strings.Contains(plan.Warnings[0], "has no rate; assuming 20.00%") {
		t.Errorf("expected a default rate warning, got %q", plan.Warnings)
	}
	if plan.Report.Scenarios[0].Result.TotalInterestPaid <= 0 {
		t.Error("a defaulted rate should accrue interest")
	}

	zero := `{"debts": [{"name": "Promo", "balance": 1000, "rate": 0, "minimumPayment": 50}]}`
	rr = perform(t, handler, http.MethodPost, "/api/summary", zero)
	var promo summaryResponse
	decodeBody(t, rr, &promo)
	if promo.Debts[0].AnnualRatePercent != 0 || promo.Debts[0].Notes != debt.NotePromotional {
		t.Errorf("an explicit 0%% rate must be kept, got %+v", promo.Debts[0])
	}

	rr = perform(t, handler, http.MethodPut, "/api/debtsets/card", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var saved store.DebtSet
	decodeBody(t, rr, &saved)
	if saved.Debts[0].AnnualRatePercent != 20 {
		t.Errorf("saved debt rate = %v, expected 20", saved.Debts[0].AnnualRatePercent)
	}
}

func TestHandleSummary(t *testing.T) {
	handler := newTestHandler(t, nil)

	body := `{"debts": [
	  {"name": "PayPal Credit", "balance": 875, "rate": 0, "minimumPayment": 50},
	  {"name": "Virgin", "balance": 1654, "rate": 20, "minimumPayment": 24.9, "creditLimit": 2000}
	]}`
	rr := perform(t, handler, http.MethodPost, "/api/summary", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp summaryResponse
	decodeBody(t, rr, &resp)

	if resp.Summary.Count != 2 || resp.Summary.TotalBalance != 2529 {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
	if len(resp.Debts) != 2 || resp.Debts[0].Notes != debt.NotePromotional || resp.Debts[1].Notes != debt.NoteHighUtilization {
		t.Errorf("unexpected annotated debts %+v", resp.Debts)
	}
	if resp.Debts[0].ID == "" {
		t.Error("missing IDs should be filled")
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected a negative amortization warning for Virgin")
	}
}

func TestHandleSolve(t *testing.T) {
	handler := newTestHandler(t, nil)

	body := strings.Replace(planBody, `"horizonMonths": 240`, `"horizonMonths": 240, "targetMonths": 24`, 1)
	rr := perform(t, handler, http.MethodPost, "/api/solve", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var summary optimization.Summary
	decodeBody(t, rr, &summary)
	if !summary.Converged || summary.Months > 24 || summary.Extra <= 0 {
		t.Errorf("unexpected solution %+v", summary)
	}
	if summary.OriginalExtra != 100 || summary.MaxExtra != 8500 {
		t.Errorf("unexpected inputs echoed %+v", summary)
	}

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"Wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"Missing target", http.MethodPost, planBody, http.StatusBadRequest},
		{"Invalid debts", http.MethodPost, `{"debts": [{"name": "X", "balance": -1}], "targetMonths": 12}`, http.StatusBadRequest},
		{"Unknown field", http.MethodPost, `{"debts": [], "targetMonths": 12, "deadline": "2027"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := perform(t, handler, tt.method, "/api/solve", tt.body)
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleDemo(t *testing.T) {
	handler := newTestHandler(t, nil)

	fetch := func(target string) []debt.Debt {
		rr := perform(t, handler, http.MethodGet, target, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			Seed  uint64      `json:"seed"`
			Debts []debt.Debt `json:"debts"`
		}
		decodeBody(t, rr, &resp)
		return resp.Debts
	}

	first := fetch("/api/demo?seed=42")
	second := fetch("/api/demo?seed=42")
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("same seed should give the same portfolio: %d vs %d debts", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Balance != second[i].Balance {
			t.Errorf("debt %d differs between identical seeds", i)
		}
	}

	injected := fetch("/api/demo")
	again := fetch("/api/demo?seed=7")
	if len(injected) != len(again) || injected[0].ID != again[0].ID {
		t.Error("requests without a seed should use the injected seed source")
	}

	rr := perform(t, handler, http.MethodGet, "/api/demo?seed=42&format=yaml", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	cfg, err := config.LoadConfigurationFromReader(strings.NewReader(rr.Body.String()))
	if err != nil {
		t.Fatalf("demo YAML should load as a configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("demo configuration should validate: %v", err)
	}
	if len(cfg.Debts) != len(first) {
		t.Errorf("demo YAML has %d debts, expected %d", len(cfg.Debts), len(first))
	}

	for _, target := range []string{"/api/demo?seed=abc", "/api/demo?format=csv"} {
		if rr := perform(t, handler, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", target, rr.Code)
		}
	}
}

func TestDebtSetEndpoints(t *testing.T) {
	repo, err := store.OpenSQLite(context.Background(), nil, filepath.Join(t.TempDir(), "debts.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer func() { _ = repo.Close() }()
	handler := newTestHandler(t, repo)

	setBody := `{"extraPayment": 75, "debts": [
	  {"name": "Card", "balance": 2500, "rate": 22, "minimumPayment": 90},
	  {"name": "Store Card", "balance": 600, "rate": 29, "minimumPayment": 30}
	]}`

	rr := perform(t, handler, http.MethodPut, "/api/debtsets/home", setBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var saved store.DebtSet
	decodeBody(t, rr, &saved)
	if saved.Name != "home" || len(saved.Debts) != 2 || saved.Debts[0].ID == "" {
		t.Errorf("unexpected saved set %+v", saved)
	}

	rr = perform(t, handler, http.MethodGet, "/api/debtsets", "")
	var list struct {
		DebtSets []store.SetInfo `json:"debtSets"`
	}
	decodeBody(t, rr, &list)
	if len(list.DebtSets) != 1 || list.DebtSets[0].TotalBalance != 3100 {
		t.Errorf("unexpected listing %+v", list.DebtSets)
	}

	rr = perform(t, handler, http.MethodPost, "/api/plan", `{"debtSet": "home", "strategies": ["snowball"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("plan from saved set expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var plan planResponse
	decodeBody(t, rr, &plan)
	if got := plan.Report.Scenarios[0].Result.ExtraPayment; got != 75 {
		t.Errorf("extra payment = %.2f, expected the saved 75", got)
	}

	rr = perform(t, handler, http.MethodPut, "/api/debtsets/bad", `{"debts": [{"name": "X", "balance": -1}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid set expected status 400, got %d", rr.Code)
	}

	rr = perform(t, handler, http.MethodDelete, "/api/debtsets/home", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE expected status 204, got %d", rr.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if rr := perform(t, handler, method, "/api/debtsets/home", ""); rr.Code != http.StatusNotFound {
			t.Errorf("%s after delete expected status 404, got %d", method, rr.Code)
		}
	}
	if rr := perform(t, handler, http.MethodPost, "/api/debtsets/home", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST expected status 405, got %d", rr.Code)
	}
}

func TestDebtSetEndpointsWithoutStore(t *testing.T) {
	handler := newTestHandler(t, nil)
	for _, target := range []string{"/api/debtsets", "/api/debtsets/home"} {
		if rr := perform(t, handler, http.MethodGet, target, ""); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected status 503, got %d", target, rr.Code)
		}
	}
}

func TestHandleVersion(t *testing.T) {
	rr := perform(t, newTestHandler(t, nil), http.MethodGet, "/api/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Errorf("version = %q, expected 1.2.3", resp["version"])
	}

	rr = perform(t, NewHandler(nil, Options{}), http.MethodGet, "/api/version", "")
	decodeBody(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Errorf("default version = %q, expected dev", resp["version"])
	}
	if rr := perform(t, newTestHandler(t, nil), http.MethodPost, "/api/version", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}
