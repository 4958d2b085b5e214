package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Bank API paths.
const (
	PathTriggerOTP     = "/trigger-otp"
	PathLoanAccounts   = "/get-loan-accounts"
	PathLoanDetails    = "/get-loan-details"
	PathHealth         = "/healthz"
	QueryAccountID     = "accountId"
	StatusSuccess      = "success"
	StatusFailed       = "error"
	ErrorCodeAuthFault = "AUTH_001"
)

// OTPRequest is the body of POST /trigger-otp.
type OTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	DOB         string `json:"dob"`
}

// OTPResponse is returned by POST /trigger-otp.
type OTPResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	OTP     string `json:"otp,omitempty"`
}

// DetailResponse is returned by GET /get-loan-details.
type DetailResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	AccountID        string `json:"account_id,omitempty"`
	Tenure           Scalar `json:"tenure,omitempty"`
	InterestRate     Scalar `json:"interest_rate,omitempty"`
	PrincipalPending Scalar `json:"principal_pending,omitempty"`
	InterestPending  Scalar `json:"interest_pending,omitempty"`
	Nominee          string `json:"nominee,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Scalar is a text field that some backends send as a JSON number.
type Scalar string

// UnmarshalJSON accepts a string, a number or null.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Scalar(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*s = Scalar(n.String())
	return nil
}
