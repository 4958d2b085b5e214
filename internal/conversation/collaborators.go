package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/loanbot/internal/domain"
)

// ErrCollaboratorMissing is reported when the engine was built without a collaborator.
var ErrCollaboratorMissing = errors.New("collaborator not configured")

// OTPIssue is a successfully issued one-time code.
type OTPIssue struct {
	Code string
}

// IssueError is returned by an IdentityVerifier that answered but refused to issue a code.
type IssueError struct {
	Reason string
}

func (e *IssueError) Error() string {
	return fmt.Sprintf("otp issuance refused: %s", e.Reason)
}

// IdentityVerifier issues one-time codes tied to a phone number and date of birth.
type IdentityVerifier interface {
	IssueOTP(ctx context.Context, phoneNumber, dob string) (OTPIssue, error)
}

// AccountDirectory looks up the loan accounts of the verified user.
//
// ListAccounts returns the directory payload untouched, shaped as
// {"accounts": [ {...}, ... ]}. The engine projects it before caching.
type AccountDirectory interface {
	ListAccounts(ctx context.Context) (map[string]any, error)
	GetDetail(ctx context.Context, accountID string) (domain.AccountDetail, error)
}
