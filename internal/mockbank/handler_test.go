package mockbank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/loanbot/internal/backend"
	"github.com/ashureev/loanbot/internal/conversation"
	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/store"
)

const testKey = "bank-key"

func newBankServer(t *testing.T) (*httptest.Server, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "bank.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.SeedAccounts(context.Background(), FixtureAccounts(), FixtureDetails()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := chi.NewRouter()
	NewHandler(repo, testKey, []string{"1234", "5678", "7889", "1209"}, nil).RegisterRoutes(r)
	r.NotFound(NotFound)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, key, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, out
}

func TestRequiresAPIKey(t *testing.T) {
	srv, _ := newBankServer(t)

	for _, key := range []string{"", "wrong"} {
		resp, body := do(t, http.MethodGet, srv.URL+backend.PathLoanAccounts, key, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("key %q: status = %d", key, resp.StatusCode)
		}
		if body["error_code"] != backend.ErrorCodeAuthFault {
			t.Errorf("key %q: body = %v", key, body)
		}
	}
}

func TestTriggerOTPRotates(t *testing.T) {
	srv, repo := newBankServer(t)

	var codes []string
	for i := 0; i < 5; i++ {
		resp, body := do(t, http.MethodPost, srv.URL+backend.PathTriggerOTP, testKey,
			`{"phoneNumber":"9876543210","dob":"15/01/1990"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		codes = append(codes, body["otp"].(string))
	}
	if got := strings.Join(codes, ","); got != "1234,5678,7889,1209,1234" {
		t.Errorf("codes = %s", got)
	}

	n, err := repo.CountOTPIssuances(context.Background())
	if err != nil || n != 5 {
		t.Errorf("issuances = %d, %v", n, err)
	}
}

func TestTriggerOTPBadBody(t *testing.T) {
	srv, _ := newBankServer(t)
	resp, body := do(t, http.MethodPost, srv.URL+backend.PathTriggerOTP, testKey, `{not json`)
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Invalid request" {
		t.Errorf("status = %d body = %v", resp.StatusCode, body)
	}
}

func TestLoanAccountsCarriesAllFields(t *testing.T) {
	srv, _ := newBankServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+backend.PathLoanAccounts, testKey, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	accounts := body["accounts"].([]any)
	if len(accounts) != 3 {
		t.Fatalf("got %d accounts", len(accounts))
	}
	first := accounts[0].(map[string]any)
	if first["loan_account_id"] != "LA123456" || len(first) != 20 {
		t.Errorf("first record = %v (%d fields)", first["loan_account_id"], len(first))
	}
}

func TestLoanDetails(t *testing.T) {
	srv, _ := newBankServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+backend.PathLoanDetails+"?accountId=LA789012", testKey, "")
	if resp.StatusCode != http.StatusOK || body["nominee"] != "Jane Smith" || body["interest_rate"] != "12.0" {
		t.Errorf("status = %d body = %v", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, srv.URL+backend.PathLoanDetails, testKey, "")
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "accountId parameter is required" {
		t.Errorf("missing id: status = %d body = %v", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+backend.PathLoanDetails+"?accountId=LA000000", testKey, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status = %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newBankServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/nope", testKey, "")
	if resp.StatusCode != http.StatusNotFound || body["message"] != "Route not found" {
		t.Errorf("status = %d body = %v", resp.StatusCode, body)
	}
}

// TestConversationAgainstMockBank drives the engine through the HTTP client
// against the mock bank, as the chat server does in development.
func TestConversationAgainstMockBank(t *testing.T) {
	srv, _ := newBankServer(t)
	client := backend.NewClient(srv.URL, testKey, 2*time.Second)

	e := conversation.New(client, client, conversation.Options{
		ExposeOTP: true,
		Now:       func() time.Time { return time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC) },
	})
	ctx := context.Background()

	steps := []struct {
		msg  string
		want domain.Action
	}{
		{"I want to check my loan details", domain.ActionCollectPhone},
		{"9876543210", domain.ActionCollectDOB},
		{"15/01/1990", domain.ActionCollectOTP},
	}
	for _, s := range steps {
		if r := e.ProcessMessage(ctx, s.msg); r.Action != s.want {
			t.Fatalf("%q: action = %s, want %s (%s)", s.msg, r.Action, s.want, r.Message)
		}
	}

	otp := e.State().IssuedOTP
	if otp != "1234" {
		t.Fatalf("issued OTP = %q, want first code of the rotation", otp)
	}

	r := e.ProcessMessage(ctx, otp)
	if r.Action != domain.ActionShowAccounts || len(r.Accounts) != 3 {
		t.Fatalf("after OTP: %s with %d accounts", r.Action, len(r.Accounts))
	}
	if r.Accounts[0] != (domain.AccountSummary{AccountID: "LA123456", LoanType: "Home Loan", Tenure: "20 years"}) {
		t.Errorf("first summary = %+v", r.Accounts[0])
	}

	r = e.ProcessMessage(ctx, "3")
	if r.Action != domain.ActionShowDetails || r.Details == nil {
		t.Fatalf("after selection: %s", r.Action)
	}
	if r.Details.Nominee != "Robert Johnson" || r.Details.InterestRatePercent != "9.5" {
		t.Errorf("details = %+v", r.Details)
	}
}

func TestClientSeesUnauthorized(t *testing.T) {
	srv, _ := newBankServer(t)
	client := backend.NewClient(srv.URL, "wrong", time.Second)
	if _, err := client.ListAccounts(context.Background()); !errors.Is(err, backend.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
}

func TestPruneOnce(t *testing.T) {
	_, repo := newBankServer(t)
	ctx := context.Background()
	if _, err := repo.IssueOTP(ctx, "3210", []string{"1234"}, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	pruneOnce(ctx, repo, 24*time.Hour)

	deleted, err := repo.PruneOTPIssuances(ctx, 24*time.Hour)
	if err != nil || deleted != 0 {
		t.Errorf("second prune deleted %d, %v", deleted, err)
	}
}
