// Package backend talks to the bank API that issues OTPs and serves loan
// account data.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/loanbot/internal/conversation"
	"github.com/ashureev/loanbot/internal/domain"
	"github.com/ashureev/loanbot/internal/observability"
)

// Sentinel errors for classified bank responses.
var (
	ErrUnauthorized = errors.New("bank api rejected credentials")
	ErrNotFound     = errors.New("bank api resource not found")
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Operation labels for metrics.
const (
	opIssueOTP     = "issue_otp"
	opListAccounts = "list_accounts"
	opGetDetail    = "get_detail"
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bank api returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("bank api returned HTTP %d: %s", e.Code, e.Message)
}

// Client implements conversation.IdentityVerifier and
// conversation.AccountDirectory over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the bank API at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var (
	_ conversation.IdentityVerifier = (*Client)(nil)
	_ conversation.AccountDirectory = (*Client)(nil)
)

// IssueOTP asks the bank to send a one-time code for the given identity.
func (c *Client) IssueOTP(ctx context.Context, phoneNumber, dob string) (_ conversation.OTPIssue, err error) {
	defer observe(opIssueOTP, time.Now(), &err)

	var resp OTPResponse
	if err = c.do(ctx, http.MethodPost, PathTriggerOTP, OTPRequest{PhoneNumber: phoneNumber, DOB: dob}, &resp); err != nil {
		return conversation.OTPIssue{}, err
	}
	if resp.Status != StatusSuccess || resp.OTP == "" {
		reason := resp.Message
		if reason == "" {
			reason = "OTP trigger failed"
		}
		err = &conversation.IssueError{Reason: reason}
		return conversation.OTPIssue{}, err
	}
	return conversation.OTPIssue{Code: resp.OTP}, nil
}

// ListAccounts returns the raw account listing. Projection is left to the caller.
func (c *Client) ListAccounts(ctx context.Context) (_ map[string]any, err error) {
	defer observe(opListAccounts, time.Now(), &err)

	var resp map[string]any
	if err = c.do(ctx, http.MethodGet, PathLoanAccounts, nil, &resp); err != nil {
		return nil, err
	}
	if status, _ := resp["status"].(string); status != "" && status != StatusSuccess {
		err = fmt.Errorf("list accounts: status %q", status)
		return nil, err
	}
	return resp, nil
}

// GetDetail fetches the detail record of one account.
func (c *Client) GetDetail(ctx context.Context, accountID string) (_ domain.AccountDetail, err error) {
	defer observe(opGetDetail, time.Now(), &err)

	path := PathLoanDetails + "?" + url.Values{QueryAccountID: {accountID}}.Encode()
	var resp DetailResponse
	if err = c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return domain.AccountDetail{}, err
	}
	if resp.Status != StatusSuccess {
		err = fmt.Errorf("get detail %s: status %q: %s", accountID, resp.Status, resp.Message)
		return domain.AccountDetail{}, err
	}
	return domain.AccountDetail{
		AccountID:           resp.AccountID,
		Tenure:              string(resp.Tenure),
		InterestRatePercent: string(resp.InterestRate),
		PrincipalPending:    string(resp.PrincipalPending),
		InterestPending:     string(resp.InterestPending),
		Nominee:             resp.Nominee,
	}, nil
}

// Ping checks that the bank API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PathHealth, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping bank api: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	observability.ObserveCollaborator(op, start, *err)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		_ = json.Unmarshal(respBody, &e)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
		}
		return &StatusError{Code: resp.StatusCode, Message: e.Message}
	}

	// Numbers stay json.Number so large numeric ids survive untouched.
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
