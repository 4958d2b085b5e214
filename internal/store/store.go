// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository persists the mock bank's fixtures and OTP log.
type Repository interface {
	// SeedAccounts inserts or replaces account rows and their details. Listing
	// order follows the order of accounts.
	SeedAccounts(ctx context.Context, accounts []domain.LoanAccountRecord, details []domain.LoanDetailRecord) error

	// ListAccounts returns every account in seeded order.
	ListAccounts(ctx context.Context) ([]domain.LoanAccountRecord, error)

	// GetLoanDetail returns the detail view of one account, or ErrNotFound.
	GetLoanDetail(ctx context.Context, accountID string) (*domain.LoanDetailRecord, error)

	// IssueOTP logs a new issuance and returns it. The code is picked from
	// codes by rotating on the issuance sequence number.
	IssueOTP(ctx context.Context, phoneSuffix string, codes []string, at time.Time) (*domain.OTPIssuance, error)

	// CountOTPIssuances returns how many codes were ever issued.
	CountOTPIssuances(ctx context.Context) (int64, error)

	// PruneOTPIssuances deletes issuances older than maxAge.
	PruneOTPIssuances(ctx context.Context, maxAge time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
