package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	otpMu sync.Mutex // serializes issuance so sequence numbers rotate without gaps
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database lives per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS loan_accounts (
		loan_account_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		type_of_loan TEXT NOT NULL DEFAULT '',
		tenure TEXT NOT NULL DEFAULT '',
		attributes_json TEXT NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_loan_accounts_position ON loan_accounts(position);

	CREATE TABLE IF NOT EXISTS loan_details (
		account_id TEXT PRIMARY KEY,
		tenure TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		principal_pending TEXT NOT NULL,
		interest_pending TEXT NOT NULL,
		nominee TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS otp_issuances (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_suffix TEXT NOT NULL,
		code TEXT NOT NULL,
		issued_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_otp_issued_at ON otp_issuances(issued_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// SeedAccounts replaces account and detail rows in one transaction.
func (s *SQLiteStore) SeedAccounts(ctx context.Context, accounts []domain.LoanAccountRecord, details []domain.LoanDetailRecord) error {
	return shared.RetryOnConflict(ctx, "seed accounts", retryAttempts, retryBaseDelay, func() error {
		return s.seedOnce(ctx, accounts, details)
	})
}

func (s *SQLiteStore) seedOnce(ctx context.Context, accounts []domain.LoanAccountRecord, details []domain.LoanDetailRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	accountQuery := `
	INSERT INTO loan_accounts (loan_account_id, position, type_of_loan, tenure, attributes_json)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(loan_account_id) DO UPDATE SET
		position = excluded.position,
		type_of_loan = excluded.type_of_loan,
		tenure = excluded.tenure,
		attributes_json = excluded.attributes_json`

	for i, a := range accounts {
		attrs := a.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrJSON, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encode attributes of %s: %w", a.AccountID, err)
		}
		if _, err := tx.ExecContext(ctx, accountQuery, a.AccountID, i, a.LoanType, a.Tenure, string(attrJSON)); err != nil {
			return fmt.Errorf("upsert account %s: %w", a.AccountID, err)
		}
	}

	detailQuery := `
	INSERT INTO loan_details (account_id, tenure, interest_rate, principal_pending, interest_pending, nominee)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(account_id) DO UPDATE SET
		tenure = excluded.tenure,
		interest_rate = excluded.interest_rate,
		principal_pending = excluded.principal_pending,
		interest_pending = excluded.interest_pending,
		nominee = excluded.nominee`

	for _, d := range details {
		if _, err := tx.ExecContext(ctx, detailQuery,
			d.AccountID, d.Tenure, d.InterestRate, d.PrincipalPending, d.InterestPending, d.Nominee,
		); err != nil {
			return fmt.Errorf("upsert detail %s: %w", d.AccountID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// ListAccounts returns every account in seeded order.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]domain.LoanAccountRecord, error) {
	query := `
		SELECT loan_account_id, type_of_loan, tenure, attributes_json
		FROM loan_accounts ORDER BY position, loan_account_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close account rows", "error", closeErr)
		}
	}()

	accounts := []domain.LoanAccountRecord{}
	for rows.Next() {
		var a domain.LoanAccountRecord
		var attrJSON string
		if err := rows.Scan(&a.AccountID, &a.LoanType, &a.Tenure, &attrJSON); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		if err := json.Unmarshal([]byte(attrJSON), &a.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", a.AccountID, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// GetLoanDetail returns the detail view of one account.
func (s *SQLiteStore) GetLoanDetail(ctx context.Context, accountID string) (*domain.LoanDetailRecord, error) {
	query := `
		SELECT account_id, tenure, interest_rate, principal_pending, interest_pending, nominee
		FROM loan_details WHERE account_id = ?`

	var d domain.LoanDetailRecord
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&d.AccountID, &d.Tenure, &d.InterestRate, &d.PrincipalPending, &d.InterestPending, &d.Nominee,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan detail row: %w", err)
	}
	return &d, nil
}

// IssueOTP records an issuance and picks its code by rotating through codes.
func (s *SQLiteStore) IssueOTP(ctx context.Context, phoneSuffix string, codes []string, at time.Time) (*domain.OTPIssuance, error) {
	if len(codes) == 0 {
		return nil, errors.New("issue otp: no codes configured")
	}

	s.otpMu.Lock()
	defer s.otpMu.Unlock()

	var out *domain.OTPIssuance
	err := shared.RetryOnConflict(ctx, "issue otp", retryAttempts, retryBaseDelay, func() error {
		var err error
		out, err = s.issueOnce(ctx, phoneSuffix, codes, at)
		return err
	})
	return out, err
}

func (s *SQLiteStore) issueOnce(ctx context.Context, phoneSuffix string, codes []string, at time.Time) (*domain.OTPIssuance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin issuance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The rotation follows the total ever issued, so pruning does not reset it.
	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'otp_issuances'), 0)`,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("read issuance sequence: %w", err)
	}
	code := codes[next%int64(len(codes))]

	res, err := tx.ExecContext(ctx,
		`INSERT INTO otp_issuances (phone_suffix, code, issued_at) VALUES (?, ?, ?)`,
		phoneSuffix, code, at.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert issuance: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("issuance id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit issuance: %w", err)
	}

	return &domain.OTPIssuance{
		Seq:         seq,
		PhoneSuffix: phoneSuffix,
		Code:        code,
		IssuedAt:    time.Unix(at.Unix(), 0),
	}, nil
}

// CountOTPIssuances returns how many codes were ever issued.
func (s *SQLiteStore) CountOTPIssuances(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'otp_issuances'), 0)`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count issuances: %w", err)
	}
	return n, nil
}

// PruneOTPIssuances deletes issuances older than maxAge.
func (s *SQLiteStore) PruneOTPIssuances(ctx context.Context, maxAge time.Duration) (int64, error) {
	threshold := time.Now().Add(-maxAge).Unix()
	var deleted int64
	err := shared.RetryOnConflict(ctx, "prune issuances", retryAttempts, retryBaseDelay, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM otp_issuances WHERE issued_at < ?`, threshold)
		if err != nil {
			return fmt.Errorf("prune issuances: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
