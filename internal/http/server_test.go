package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"financeiro/internal/cashregister"
	"financeiro/internal/core"
	applog "financeiro/internal/log"
	"financeiro/internal/services"
	"financeiro/internal/storage"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	txSvc := services.NewTransactionService(repo, nil)
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 6000
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Output: io.Discard})
	}

	srv := NewServer(":0", Services{
		Transactions: txSvc,
		Suppliers:    services.NewSupplierService(repo),
		Dashboard:    services.NewDashboardService(repo, time.Minute),
		Recurring:    services.NewRecurringProcessor(repo, txSvc, 2),
		Registers:    cashregister.NewService(repo),
		Ready:        repo.Ping,
	}, opts)
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.10:5000"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, rr.Body.String())
	}
	return v
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func dueDates(txs []core.FinancialTransaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.DueDate.String()
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	if got := do(t, srv, http.MethodGet, "/healthz", "").Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("security headers missing, nosniff=%q", got)
	}

	srv.svc.Ready = func(context.Context) error { return errors.New("db down") }
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check status=%d", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions", `{
		"type": "expense",
		"description": "Studio rent",
		"amount_cents": 150000,
		"category": "rent",
		"payment_method": "transfer",
		"due_date": "2024-01-31",
		"recurrence_type": "monthly",
		"recurrence_count": 3
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[transactionsResponse](t, rr).Transactions
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	if got := dueDates(created); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("due dates = %v, want %v", got, want)
	}
	root := created[0]
	child := created[1]

	rr = do(t, srv, http.MethodGet, "/api/transactions/"+itoa(child.ID)+"/series", "")
	if series := decode[transactionsResponse](t, rr).Transactions; len(series) != 3 {
		t.Fatalf("series len=%d", len(series))
	}

	rr = do(t, srv, http.MethodPatch, "/api/transactions/"+itoa(child.ID), `{"amount_cents": 155000, "notes": "raised"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.FinancialTransaction](t, rr); got.Amount.Cents != 155000 || got.Version != 2 {
		t.Errorf("patched amount=%d version=%d", got.Amount.Cents, got.Version)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions/"+itoa(root.ID)+"/pay", `{"payment_date": "2024-01-30"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("pay status=%d body=%s", rr.Code, rr.Body.String())
	}
	if paid := decode[core.FinancialTransaction](t, rr); paid.Status != core.StatusPaid || paid.PaymentDate.String() != "2024-01-30" {
		t.Errorf("paid = %+v", paid)
	}
	if rr := do(t, srv, http.MethodPost, "/api/transactions/"+itoa(root.ID)+"/pay", ""); rr.Code != http.StatusConflict {
		t.Errorf("second pay status=%d, want 409", rr.Code)
	}

	if rr := do(t, srv, http.MethodPost, "/api/transactions/"+itoa(child.ID)+"/cancel", ""); rr.Code != http.StatusOK {
		t.Errorf("cancel status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+itoa(root.ID), ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions/"+itoa(root.ID), ""); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted status=%d, want 404", rr.Code)
	}
	// children survive their parent
	rr = do(t, srv, http.MethodGet, "/api/transactions?series_id="+itoa(root.ID), "")
	if rest := decode[transactionsResponse](t, rr).Transactions; len(rest) != 2 {
		t.Errorf("rows left in series = %d, want 2", len(rest))
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed", `{"type":`, http.StatusBadRequest},
		{"unknown field", `{"type":"expense","id":9}`, http.StatusBadRequest},
		{"bad date", `{"type":"expense","description":"x","amount_cents":1,"due_date":"2024-02-30"}`, http.StatusUnprocessableEntity},
		{"missing description", `{"type":"expense","amount_cents":100,"due_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"type":"income","description":"x","amount_cents":0,"due_date":"2024-01-01"}`, http.StatusUnprocessableEntity},
		{"auto with count", `{"type":"expense","description":"x","amount_cents":1,"due_date":"2024-01-01","recurrence_type":"weekly","recurrence_count":2,"is_auto_recurring":true}`, http.StatusUnprocessableEntity},
		{"count over limit", `{"type":"expense","description":"x","amount_cents":1,"due_date":"2024-01-01","recurrence_type":"weekly","recurrence_count":20000}`, http.StatusUnprocessableEntity},
		{"end before due", `{"type":"expense","description":"x","amount_cents":1,"due_date":"2024-03-01","recurrence_type":"weekly","recurrence_end_date":"2024-02-01"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions", "")
	if txs := decode[transactionsResponse](t, rr).Transactions; len(txs) != 0 {
		t.Errorf("failed creates left %d rows", len(txs))
	}
}

func TestListTransactionsBadQuery(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, q := range []string{"type=loan", "from=yesterday", "limit=0", "from=2024-02-01&to=2024-01-01"} {
		if rr := do(t, srv, http.MethodGet, "/api/transactions?"+q, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want 400", q, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status=%d", rr.Code)
	}
}

func TestRecurrencePreview(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/recurrence/preview?due_date=2024-01-31&recurrence_type=monthly&recurrence_count=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	prev := decode[previewResponse](t, rr)
	if len(prev.Dates) != 3 || prev.Dates[1].String() != "2024-02-29" {
		t.Errorf("dates = %v", prev.Dates)
	}
	if !strings.Contains(prev.RRule, "FREQ=MONTHLY") || !strings.Contains(prev.RRule, "COUNT=3") {
		t.Errorf("rrule = %q", prev.RRule)
	}

	rr = do(t, srv, http.MethodGet, "/api/recurrence/preview?due_date=2024-01-01&recurrence_type=weekly", "")
	if prev := decode[previewResponse](t, rr); len(prev.Dates) != 60 || !prev.Capped {
		t.Errorf("open-ended preview: %d dates, capped=%v", len(prev.Dates), prev.Capped)
	}

	rr = do(t, srv, http.MethodGet, "/api/recurrence/preview?due_date=2024-01-01&recurrence_type=weekly&recurrence_end_date=2025-02-17", "")
	if prev := decode[previewResponse](t, rr); len(prev.Dates) != 60 || prev.Capped || strings.Contains(prev.RRule, "COUNT=") {
		t.Errorf("end-dated preview: %d dates, capped=%v, rrule=%q", len(prev.Dates), prev.Capped, prev.RRule)
	}

	rr = do(t, srv, http.MethodGet, "/api/recurrence/preview?due_date=2024-01-01&recurrence_type=weekly&recurrence_count=20000", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("oversized count preview status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodGet, "/api/recurrence/preview?due_date=2024-01-01&recurrence_type=none", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("non recurring preview status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/recurrence/preview?recurrence_type=weekly", ""); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing due date status=%d", rr.Code)
	}
}

func TestRecurrenceSweepEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions", `{
		"type": "income",
		"description": "Monthly membership",
		"amount_cents": 8000,
		"payment_method": "card",
		"due_date": "2025-01-10",
		"recurrence_type": "monthly"
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[transactionsResponse](t, rr).Transactions
	if len(created) != 2 || !created[0].IsAutoRecurring {
		t.Fatalf("auto create returned %d rows, auto=%v", len(created), created[0].IsAutoRecurring)
	}

	rr = do(t, srv, http.MethodPost, "/api/recurrence/sweep?today=2025-01-15", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("sweep status=%d body=%s", rr.Code, rr.Body.String())
	}
	if res := decode[services.SweepResult](t, rr); res.Created != 1 || res.Series != 1 {
		t.Errorf("first sweep = %+v, want 1 created", res)
	}

	rr = do(t, srv, http.MethodPost, "/api/recurrence/sweep?today=2025-01-15", "")
	if res := decode[services.SweepResult](t, rr); res.Created != 0 {
		t.Errorf("second sweep created %d rows", res.Created)
	}

	if rr := do(t, srv, http.MethodPost, "/api/transactions/"+itoa(created[1].ID)+"/stop-recurrence", ""); rr.Code != http.StatusOK {
		t.Fatalf("stop status=%d", rr.Code)
	} else if root := decode[core.FinancialTransaction](t, rr); root.ID != created[0].ID || root.IsAutoRecurring {
		t.Errorf("stop returned %+v", root)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	do(t, srv, http.MethodPost, "/api/suppliers", `{"name":"Oils Ltd"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","description":"Oils","amount_cents":3000,"category":"supplies","due_date":"2025-06-03"}`)

	rr := do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode[dashboardResponse](t, rr)
	if body.ExpenseTotal.Cents != 3000 || body.Balance.Cents != -3000 || len(body.Transactions) != 1 || len(body.Suppliers) != 1 {
		t.Errorf("dashboard = %+v", body)
	}

	// a write must show up despite the cached month
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","description":"Facial","amount_cents":5000,"due_date":"2025-06-04"}`)
	rr = do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", "")
	if got := decode[dashboardResponse](t, rr); len(got.Transactions) != 2 || got.Balance.Cents != 2000 {
		t.Errorf("after write: %d rows, balance %d", len(got.Transactions), got.Balance.Cents)
	}

	// stopping a series must not leave a stale auto flag in the cached month
	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","description":"Rent","amount_cents":1000,"due_date":"2025-06-05","recurrence_type":"monthly"}`)
	series := decode[transactionsResponse](t, rr).Transactions
	do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", "")
	if rr := do(t, srv, http.MethodPost, "/api/transactions/"+itoa(series[0].ID)+"/stop-recurrence", ""); rr.Code != http.StatusOK {
		t.Fatalf("stop-recurrence status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=6", "")
	for _, tx := range decode[dashboardResponse](t, rr).Transactions {
		if tx.ID == series[0].ID && tx.IsAutoRecurring {
			t.Error("dashboard still shows the stopped series as auto-recurring")
		}
	}

	if rr := do(t, srv, http.MethodGet, "/api/dashboard?month=13", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("month=13 status=%d", rr.Code)
	}
}

func TestSuppliersEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodPost, "/api/suppliers", `{"name":"  Towels Inc ","email":"a@b.c"}`); rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	} else if sup := decode[core.Supplier](t, rr); sup.Name != "Towels Inc" {
		t.Errorf("name = %q", sup.Name)
	}
	if rr := do(t, srv, http.MethodPost, "/api/suppliers", `{"name":"Towels Inc"}`); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status=%d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/suppliers", `{"name":" "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status=%d, want 422", rr.Code)
	}

	rr := do(t, srv, http.MethodGet, "/api/suppliers", "")
	if got := decode[map[string][]core.Supplier](t, rr)["suppliers"]; len(got) != 1 {
		t.Errorf("suppliers = %v", got)
	}
}

func TestCashRegisterEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodGet, "/api/cash-register/2025-05-02", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status before open = %d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/cash-register/2025-05-02/open", `{"opening_cents":10000}`); rr.Code != http.StatusCreated {
		t.Fatalf("open status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPost, "/api/cash-register/2025-05-02/open", `{"opening_cents":10000}`); rr.Code != http.StatusConflict {
		t.Errorf("second open status=%d, want 409", rr.Code)
	}

	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","description":"Walk-in massage","amount_cents":2500,
		"payment_method":"cash","status":"paid","due_date":"2025-05-02","payment_date":"2025-05-02"}`)

	rr := do(t, srv, http.MethodGet, "/api/cash-register/2025-05-02", "")
	if reg := decode[core.CashRegister](t, rr); reg.Expected.Cents != 12500 {
		t.Errorf("expected = %d, want 12500", reg.Expected.Cents)
	}

	if rr := do(t, srv, http.MethodPost, "/api/cash-register/2025-05-02/close", `{"notes":"x"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("close without count status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/api/cash-register/2025-05-02/close", `{"counted_cents":12000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("close status=%d body=%s", rr.Code, rr.Body.String())
	}
	if reg := decode[core.CashRegister](t, rr); reg.Difference.Cents != -500 || reg.Status != core.RegisterClosed {
		t.Errorf("closed register = %+v", reg)
	}
	if rr := do(t, srv, http.MethodPost, "/api/cash-register/2025-05-02/close", `{"counted_cents":12000}`); rr.Code != http.StatusConflict {
		t.Errorf("second close status=%d, want 409", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/cash-register/not-a-date/open", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad date status=%d", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 4})

	if rr := do(t, srv, http.MethodPost, "/api/suppliers", `{"name":"A"}`); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/suppliers", `{"name":"B"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	for i := 0; i < 3; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/suppliers", ""); rr.Code != http.StatusOK {
			t.Errorf("read %d status=%d", i, rr.Code)
		}
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t, Options{})
	if rr := do(t, srv, http.MethodGet, "/.git/config", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rr.Code)
	}
}
