package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ashureev/loanbot/internal/domain"
)

// ErrMalformedDirectoryResponse is returned when the payload has no accounts array.
var ErrMalformedDirectoryResponse = errors.New("directory response has no accounts array")

// Wire names of the directory record fields kept by the projection.
const (
	fieldAccountID = "loan_account_id"
	fieldLoanType  = "type_of_loan"
	fieldTenure    = "tenure"
)

// ProjectAccounts reduces a directory payload of the form {"accounts": [...]}
// to account summaries. Records without an account id are dropped; a missing
// loan type or tenure becomes "N/A". Order is preserved and resp is not
// modified. A payload without an accounts array yields an empty list and
// ErrMalformedDirectoryResponse.
func ProjectAccounts(resp map[string]any) ([]domain.AccountSummary, error) {
	out := []domain.AccountSummary{}

	raw, ok := resp["accounts"]
	if !ok {
		return out, ErrMalformedDirectoryResponse
	}
	records, ok := raw.([]any)
	if !ok {
		return out, fmt.Errorf("%w: accounts is %T", ErrMalformedDirectoryResponse, raw)
	}

	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id := scalarField(rec, fieldAccountID)
		if id == "" {
			continue
		}
		out = append(out, domain.AccountSummary{
			AccountID: id,
			LoanType:  orNotAvailable(scalarField(rec, fieldLoanType)),
			Tenure:    orNotAvailable(scalarField(rec, fieldTenure)),
		})
	}
	return out, nil
}

// scalarField renders a string, number or true boolean as text. Anything
// else, including the zero values, reads as absent.
func scalarField(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	case bool:
		if !v {
			return ""
		}
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func orNotAvailable(s string) string {
	if s == "" {
		return domain.NotAvailable
	}
	return s
}
