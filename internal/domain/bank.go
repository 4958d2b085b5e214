package domain

import "time"

// LoanAccountRecord is a full account row as the bank stores it. Only a few
// fields matter to the conversation; the rest travel in Attributes.
type LoanAccountRecord struct {
	AccountID  string
	LoanType   string
	Tenure     string
	Attributes map[string]string
}

// LoanDetailRecord is the bank's detail view of one account.
type LoanDetailRecord struct {
	AccountID        string
	Tenure           string
	InterestRate     string
	PrincipalPending string
	InterestPending  string
	Nominee          string
}

// OTPIssuance records a code handed out by the bank.
type OTPIssuance struct {
	Seq         int64
	PhoneSuffix string
	Code        string
	IssuedAt    time.Time
}
