package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "bank", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return repo
}

func seed(t *testing.T, repo Repository) {
	t.Helper()
	accounts := []domain.LoanAccountRecord{
		{AccountID: "LA2", LoanType: "Home Loan", Tenure: "20 years", Attributes: map[string]string{"branch_code": "BR001"}},
		{AccountID: "LA1", LoanType: "Car Loan", Tenure: "7 years"},
	}
	details := []domain.LoanDetailRecord{
		{AccountID: "LA2", Tenure: "20 years", InterestRate: "8.5", PrincipalPending: "500000", InterestPending: "25000", Nominee: "John Doe"},
	}
	if err := repo.SeedAccounts(context.Background(), accounts, details); err != nil {
		t.Fatalf("SeedAccounts: %v", err)
	}
}

func TestSeedAndListKeepsOrder(t *testing.T) {
	repo := newTestStore(t)
	seed(t, repo)
	// Seeding twice is idempotent.
	seed(t, repo)

	accounts, err := repo.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
	if accounts[0].AccountID != "LA2" || accounts[1].AccountID != "LA1" {
		t.Errorf("order = %s, %s", accounts[0].AccountID, accounts[1].AccountID)
	}
	if accounts[0].Attributes["branch_code"] != "BR001" {
		t.Errorf("attributes = %v", accounts[0].Attributes)
	}
	if accounts[1].Attributes == nil {
		t.Error("empty attributes should decode to an empty map")
	}
}

func TestListAccountsEmpty(t *testing.T) {
	repo := newTestStore(t)
	accounts, err := repo.ListAccounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if accounts == nil || len(accounts) != 0 {
		t.Errorf("got %#v, want empty slice", accounts)
	}
}

func TestGetLoanDetail(t *testing.T) {
	repo := newTestStore(t)
	seed(t, repo)

	d, err := repo.GetLoanDetail(context.Background(), "LA2")
	if err != nil {
		t.Fatalf("GetLoanDetail: %v", err)
	}
	if d.Nominee != "John Doe" || d.InterestRate != "8.5" {
		t.Errorf("detail = %+v", d)
	}

	if _, err := repo.GetLoanDetail(context.Background(), "LA1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIssueOTPRotates(t *testing.T) {
	repo := newTestStore(t)
	codes := []string{"1234", "5678", "7889"}
	now := time.Now()

	var got []string
	for i := 0; i < 4; i++ {
		issue, err := repo.IssueOTP(context.Background(), "3210", codes, now)
		if err != nil {
			t.Fatalf("IssueOTP: %v", err)
		}
		if issue.Seq != int64(i+1) {
			t.Errorf("seq = %d, want %d", issue.Seq, i+1)
		}
		got = append(got, issue.Code)
	}
	want := []string{"1234", "5678", "7889", "1234"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("codes = %v, want %v", got, want)
		}
	}

	n, err := repo.CountOTPIssuances(context.Background())
	if err != nil || n != 4 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestPruneKeepsRotation(t *testing.T) {
	repo := newTestStore(t)
	codes := []string{"1234", "5678"}
	ctx := context.Background()

	if _, err := repo.IssueOTP(ctx, "0001", codes, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	deleted, err := repo.PruneOTPIssuances(ctx, time.Hour)
	if err != nil || deleted != 1 {
		t.Fatalf("prune = %d, %v", deleted, err)
	}

	issue, err := repo.IssueOTP(ctx, "0002", codes, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if issue.Code != "5678" {
		t.Errorf("code after prune = %s, want 5678", issue.Code)
	}
}

func TestIssueOTPNeedsCodes(t *testing.T) {
	repo := newTestStore(t)
	if _, err := repo.IssueOTP(context.Background(), "0001", nil, time.Now()); err == nil {
		t.Fatal("expected error with no codes")
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
