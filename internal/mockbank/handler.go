// Package mockbank serves a local stand-in for the bank API: OTP issuance,
// account listing and account details behind a static bearer key.
package mockbank

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/loanbot/internal/api"
	"github.com/ashureev/loanbot/internal/backend"
	"github.com/ashureev/loanbot/internal/observability"
	"github.com/ashureev/loanbot/internal/store"
)

// Handler serves the bank API routes.
type Handler struct {
	repo   store.Repository
	apiKey string
	codes  []string
	now    func() time.Time
	log    *slog.Logger
}

// NewHandler creates a Handler. codes is the OTP rotation.
func NewHandler(repo store.Repository, apiKey string, codes []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:   repo,
		apiKey: apiKey,
		codes:  codes,
		now:    time.Now,
		log:    logger,
	}
}

// RegisterRoutes registers the authenticated bank routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAPIKey)
		r.Post(backend.PathTriggerOTP, h.TriggerOTP)
		r.Get(backend.PathLoanAccounts, h.LoanAccounts)
		r.Get(backend.PathLoanDetails, h.LoanDetails)
	})
}

func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) != 1 {
			api.JSON(w, http.StatusUnauthorized, backend.ErrorResponse{
				Status:    backend.StatusFailed,
				Message:   "Unauthorized. Invalid or missing API key.",
				ErrorCode: backend.ErrorCodeAuthFault,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TriggerOTP handles POST /trigger-otp.
func (h *Handler) TriggerOTP(w http.ResponseWriter, r *http.Request) {
	var req backend.OTPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		bankError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	issue, err := h.repo.IssueOTP(r.Context(), phoneSuffix(req.PhoneNumber), h.codes, h.now())
	if err != nil {
		h.log.Error("Failed to issue OTP", "error", err)
		bankError(w, http.StatusInternalServerError, "OTP trigger failed")
		return
	}
	observability.OTPIssuedTotal.Inc()
	h.log.Info("OTP issued", "seq", issue.Seq, "phone_suffix", issue.PhoneSuffix)

	api.JSON(w, http.StatusOK, backend.OTPResponse{
		Status:  backend.StatusSuccess,
		Message: "OTP sent successfully",
		OTP:     issue.Code,
	})
}

// LoanAccounts handles GET /get-loan-accounts.
func (h *Handler) LoanAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.ListAccounts(r.Context())
	if err != nil {
		h.log.Error("Failed to list accounts", "error", err)
		bankError(w, http.StatusInternalServerError, "Failed to load accounts")
		return
	}

	records := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		rec := make(map[string]any, len(a.Attributes)+3)
		for k, v := range a.Attributes {
			rec[k] = v
		}
		rec["loan_account_id"] = a.AccountID
		rec["type_of_loan"] = a.LoanType
		rec["tenure"] = a.Tenure
		records = append(records, rec)
	}

	api.JSON(w, http.StatusOK, map[string]any{
		"status":   backend.StatusSuccess,
		"accounts": records,
	})
}

// LoanDetails handles GET /get-loan-details?accountId=.
func (h *Handler) LoanDetails(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get(backend.QueryAccountID)
	if accountID == "" {
		bankError(w, http.StatusBadRequest, "accountId parameter is required")
		return
	}

	d, err := h.repo.GetLoanDetail(r.Context(), accountID)
	if errors.Is(err, store.ErrNotFound) {
		bankError(w, http.StatusNotFound, "Loan account not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load loan detail", "account_id", accountID, "error", err)
		bankError(w, http.StatusInternalServerError, "Failed to load loan details")
		return
	}

	api.JSON(w, http.StatusOK, backend.DetailResponse{
		Status:           backend.StatusSuccess,
		AccountID:        d.AccountID,
		Tenure:           backend.Scalar(d.Tenure),
		InterestRate:     backend.Scalar(d.InterestRate),
		PrincipalPending: backend.Scalar(d.PrincipalPending),
		InterestPending:  backend.Scalar(d.InterestPending),
		Nominee:          d.Nominee,
	})
}

// NotFound answers unknown routes in the bank's error format.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	bankError(w, http.StatusNotFound, "Route not found")
}

func bankError(w http.ResponseWriter, status int, message string) {
	api.JSON(w, status, backend.ErrorResponse{Status: backend.StatusFailed, Message: message})
}

// phoneSuffix keeps the last four digits; the OTP log never stores full numbers.
func phoneSuffix(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
