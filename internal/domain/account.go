package domain

// NotAvailable is substituted for optional summary fields the directory omitted.
const NotAvailable = "N/A"

// AccountSummary is the projection of a directory record exposed to callers.
type AccountSummary struct {
	AccountID string `json:"accountId"`
	LoanType  string `json:"loanType"`
	Tenure    string `json:"tenure"`
}

// AccountDetail is the full view of a single loan account.
type AccountDetail struct {
	AccountID           string `json:"accountId"`
	Tenure              string `json:"tenure"`
	InterestRatePercent string `json:"interestRatePercent"`
	PrincipalPending    string `json:"principalPending"`
	InterestPending     string `json:"interestPending"`
	Nominee             string `json:"nominee"`
}
