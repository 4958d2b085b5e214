// Package domain contains core domain types for the loan assistant.
package domain

import "slices"

// Step is the position of a conversation in the authentication and browsing flow.
type Step string

const (
	StepIdle            Step = "idle"
	StepCollectingPhone Step = "collecting_phone"
	StepCollectingDOB   Step = "collecting_dob"
	StepVerifyingOTP    Step = "verifying_otp"
	StepShowingAccounts Step = "showing_accounts"
	StepShowingDetails  Step = "showing_details"
)

// Intent is the classified goal of the user.
type Intent string

// IntentViewLoanDetails is currently the only recognized goal.
const IntentViewLoanDetails Intent = "view_loan_details"

// Session holds the state of one conversation. It is owned by exactly one
// engine and must not be shared between conversations.
type Session struct {
	Step              Step             `json:"step"`
	Intent            Intent           `json:"intent,omitempty"`
	PhoneNumber       string           `json:"phoneNumber,omitempty"`
	DateOfBirth       string           `json:"dateOfBirth,omitempty"`
	IssuedOTP         string           `json:"issuedOtp,omitempty"`
	OTPVerified       bool             `json:"otpVerified"`
	OTPRetryCount     int              `json:"otpRetryCount"`
	SelectedAccountID string           `json:"selectedAccountId,omitempty"`
	Accounts          []AccountSummary `json:"accounts"`
	AccountDetail     *AccountDetail   `json:"accountDetail,omitempty"`
}

// NewSession returns a session in its construction-time state.
func NewSession() Session {
	return Session{Step: StepIdle, Accounts: []AccountSummary{}}
}

// Clone returns a deep copy that shares no memory with s.
func (s Session) Clone() Session {
	out := s
	out.Accounts = slices.Clone(s.Accounts)
	if out.Accounts == nil {
		out.Accounts = []AccountSummary{}
	}
	if s.AccountDetail != nil {
		d := *s.AccountDetail
		out.AccountDetail = &d
	}
	return out
}

// ClearAuthentication drops every identity slot and everything that was
// unlocked by it. The intent is left alone.
func (s *Session) ClearAuthentication() {
	s.PhoneNumber = ""
	s.DateOfBirth = ""
	s.IssuedOTP = ""
	s.OTPVerified = false
	s.OTPRetryCount = 0
	s.SelectedAccountID = ""
	s.Accounts = []AccountSummary{}
	s.AccountDetail = nil
}
