package mockbank

import "github.com/ashureev/loanbot/internal/domain"

// FixtureAccounts are the demo loan accounts served by the mock bank. Each
// row carries the same wide set of bank-internal columns a real core banking
// API returns.
func FixtureAccounts() []domain.LoanAccountRecord {
	return []domain.LoanAccountRecord{
		{
			AccountID: "LA123456",
			LoanType:  "Home Loan",
			Tenure:    "20 years",
			Attributes: map[string]string{
				"internal_bank_code": "HB-INT-789",
				"audit_date":         "2024-01-15T10:30:00Z",
				"branch_code":        "BR001",
				"branch_name":        "Main Branch",
				"account_status":     "ACTIVE",
				"created_date":       "2020-05-10",
				"last_modified":      "2024-01-15T10:30:00Z",
				"currency":           "INR",
				"loan_amount":        "5000000",
				"disbursement_date":  "2020-05-15",
				"maturity_date":      "2040-05-15",
				"interest_type":      "FIXED",
				"processing_fee":     "50000",
				"insurance_premium":  "25000",
				"tax_id":             "TAX-789456",
				"compliance_flag":    "Y",
				"risk_category":      "LOW",
			},
		},
		{
			AccountID: "LA789012",
			LoanType:  "Personal Loan",
			Tenure:    "5 years",
			Attributes: map[string]string{
				"internal_bank_code": "HB-INT-456",
				"audit_date":         "2024-01-15T10:30:00Z",
				"branch_code":        "BR002",
				"branch_name":        "City Branch",
				"account_status":     "ACTIVE",
				"created_date":       "2022-03-20",
				"last_modified":      "2024-01-15T10:30:00Z",
				"currency":           "INR",
				"loan_amount":        "1000000",
				"disbursement_date":  "2022-03-25",
				"maturity_date":      "2027-03-25",
				"interest_type":      "FLOATING",
				"processing_fee":     "10000",
				"insurance_premium":  "5000",
				"tax_id":             "TAX-456123",
				"compliance_flag":    "Y",
				"risk_category":      "MEDIUM",
			},
		},
		{
			AccountID: "LA345678",
			LoanType:  "Car Loan",
			Tenure:    "7 years",
			Attributes: map[string]string{
				"internal_bank_code": "HB-INT-123",
				"audit_date":         "2024-01-15T10:30:00Z",
				"branch_code":        "BR003",
				"branch_name":        "Suburban Branch",
				"account_status":     "ACTIVE",
				"created_date":       "2021-08-10",
				"last_modified":      "2024-01-15T10:30:00Z",
				"currency":           "INR",
				"loan_amount":        "800000",
				"disbursement_date":  "2021-08-15",
				"maturity_date":      "2028-08-15",
				"interest_type":      "FIXED",
				"processing_fee":     "8000",
				"insurance_premium":  "15000",
				"tax_id":             "TAX-123789",
				"compliance_flag":    "Y",
				"risk_category":      "LOW",
			},
		},
	}
}

// FixtureDetails are the detail views of FixtureAccounts.
func FixtureDetails() []domain.LoanDetailRecord {
	return []domain.LoanDetailRecord{
		{AccountID: "LA123456", Tenure: "20 years", InterestRate: "8.5", PrincipalPending: "500000", InterestPending: "25000", Nominee: "John Doe"},
		{AccountID: "LA789012", Tenure: "5 years", InterestRate: "12.0", PrincipalPending: "200000", InterestPending: "15000", Nominee: "Jane Smith"},
		{AccountID: "LA345678", Tenure: "7 years", InterestRate: "9.5", PrincipalPending: "300000", InterestPending: "18000", Nominee: "Robert Johnson"},
	}
}
