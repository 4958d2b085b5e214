// Package conversation implements the loan assistant's turn-by-turn state machine.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
)

const (
	// DefaultMaxOTPRetries is the number of wrong codes that forces re-authentication.
	DefaultMaxOTPRetries = 2
	// DefaultCSATURL is where satisfaction survey redirects point.
	DefaultCSATURL = "https://csat-agent.yellow.ai"
)

// Options tune an Engine. The zero value is usable.
type Options struct {
	MaxOTPRetries int
	CSATURL       string
	// ExposeOTP echoes issued codes in replies. Test and demo transports only.
	ExposeOTP bool
	// OTPAllowList, when non-empty, is an extra control: a code must be both
	// the issued one and listed here.
	OTPAllowList []string
	Now          func() time.Time
	Logger       *slog.Logger
}

// Engine drives one conversation. It is not safe for concurrent use; hosts
// serving many conversations give each its own Engine.
type Engine struct {
	session   domain.Session
	verifier  IdentityVerifier
	directory AccountDirectory
	opts      Options
	log       *slog.Logger
}

// New creates an engine with a fresh session.
func New(verifier IdentityVerifier, directory AccountDirectory, opts Options) *Engine {
	if opts.MaxOTPRetries <= 0 {
		opts.MaxOTPRetries = DefaultMaxOTPRetries
	}
	if opts.CSATURL == "" {
		opts.CSATURL = DefaultCSATURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		session:   domain.NewSession(),
		verifier:  verifier,
		directory: directory,
		opts:      opts,
		log:       log,
	}
}

// State returns a copy of the session.
func (e *Engine) State() domain.Session {
	return e.session.Clone()
}

// Reset returns the session to its construction-time state.
func (e *Engine) Reset() {
	e.session = domain.NewSession()
}

// ProcessMessage handles one utterance and advances the session.
func (e *Engine) ProcessMessage(ctx context.Context, utterance string) domain.Reply {
	msg := Normalize(utterance)

	if !IsEnglish(msg) {
		return e.reply(msgEnglishOnly, domain.ActionWaitForInput)
	}

	switch Classify(GlobalRules, msg) {
	case ClassPhoneCorrection:
		return e.handlePhoneCorrection()
	case ClassLoanDetails:
		e.session.Intent = domain.IntentViewLoanDetails
		e.session.Step = domain.StepCollectingPhone
		return e.reply(msgAskPhone, domain.ActionCollectPhone)
	}

	switch e.session.Step {
	case domain.StepCollectingPhone:
		return e.handlePhone(msg)
	case domain.StepCollectingDOB:
		return e.handleDOB(ctx, msg)
	case domain.StepVerifyingOTP:
		return e.handleOTP(ctx, msg)
	case domain.StepShowingAccounts:
		return e.handleSelection(ctx, msg)
	case domain.StepShowingDetails:
		return e.handleDetailsView(msg)
	default:
		if Classify(IdleRules, msg) == ClassHelp {
			return e.reply(msgHelp, domain.ActionWaitForInput)
		}
		return e.reply(msgSuggestion, domain.ActionWaitForInput)
	}
}

func (e *Engine) handlePhoneCorrection() domain.Reply {
	e.session.ClearAuthentication()
	e.session.Intent = domain.IntentViewLoanDetails
	e.session.Step = domain.StepCollectingPhone
	return e.reply(msgPhoneCorrection, domain.ActionCollectPhone)
}

func (e *Engine) handlePhone(msg string) domain.Reply {
	phone, ok := ParsePhoneNumber(msg)
	if !ok {
		return e.reply(msgRetryPhone, domain.ActionRetryPhone)
	}
	e.session.PhoneNumber = phone
	e.session.Step = domain.StepCollectingDOB
	return e.reply(msgAskDOB, domain.ActionCollectDOB)
}

func (e *Engine) handleDOB(ctx context.Context, msg string) domain.Reply {
	dob, err := ParseDateOfBirth(msg, e.opts.Now())
	if err != nil {
		return e.reply(dobMessages[err], domain.ActionRetryDOB)
	}

	issue, err := e.issueOTP(ctx, e.session.PhoneNumber, dob)
	if err != nil {
		e.log.Warn("OTP issuance failed",
			"phone", maskPhone(e.session.PhoneNumber),
			"error", err,
		)
		return e.reply(msgTechnicalIssue, domain.ActionError)
	}

	e.session.DateOfBirth = dob
	e.session.IssuedOTP = issue.Code
	e.session.Step = domain.StepVerifyingOTP

	r := e.reply(msgOTPSent, domain.ActionCollectOTP)
	if e.opts.ExposeOTP {
		r.OTPValue = issue.Code
	}
	return r
}

func (e *Engine) handleOTP(ctx context.Context, msg string) domain.Reply {
	code, ok := ParseOTP(msg)
	if !ok {
		return e.reply(msgOTPFormat, domain.ActionRetryOTP)
	}

	if !e.otpMatches(code) {
		e.session.OTPRetryCount++
		if e.session.OTPRetryCount >= e.opts.MaxOTPRetries {
			e.log.Info("OTP retries exhausted, restarting authentication",
				"phone", maskPhone(e.session.PhoneNumber),
			)
			e.session.ClearAuthentication()
			e.session.Step = domain.StepCollectingPhone
			return e.reply(msgOTPLockout, domain.ActionRestartAuth)
		}
		return e.reply(wrongOTPMessage(e.session.OTPRetryCount, e.opts.MaxOTPRetries), domain.ActionRetryOTP)
	}

	e.session.OTPVerified = true
	e.session.OTPRetryCount = 0

	accounts, err := e.listAccounts(ctx)
	if err != nil {
		e.log.Warn("Account listing failed", "error", err)
		e.session.Step = domain.StepIdle
		return e.reply(msgNoAccounts, domain.ActionError)
	}

	e.session.Accounts = accounts
	e.session.Step = domain.StepShowingAccounts
	r := e.reply(msgAccounts, domain.ActionShowAccounts)
	r.Accounts = slices.Clone(accounts)
	return r
}

func (e *Engine) otpMatches(code string) bool {
	if e.session.IssuedOTP == "" || code != e.session.IssuedOTP {
		return false
	}
	if len(e.opts.OTPAllowList) > 0 && !slices.Contains(e.opts.OTPAllowList, code) {
		return false
	}
	return true
}

func (e *Engine) handleSelection(ctx context.Context, msg string) domain.Reply {
	sel := parseSelection(msg, e.session.Accounts)
	if sel.accountID == "" {
		text := msgSelectAny
		if sel.matched {
			text = msgSelectValid
		}
		r := e.reply(text, domain.ActionRetrySelection)
		r.Accounts = slices.Clone(e.session.Accounts)
		return r
	}

	detail, err := e.getDetail(ctx, sel.accountID)
	if err != nil {
		e.log.Warn("Account detail lookup failed", "account_id", sel.accountID, "error", err)
		return e.reply(msgNoDetails, domain.ActionError)
	}

	e.session.SelectedAccountID = sel.accountID
	e.session.AccountDetail = &detail
	e.session.Step = domain.StepShowingDetails

	r := e.reply(msgDetails, domain.ActionShowDetails)
	d := detail
	r.Details = &d
	r.CSATURL = e.opts.CSATURL
	return r
}

func (e *Engine) handleDetailsView(msg string) domain.Reply {
	if Classify(DetailRules, msg) == ClassFeedback {
		r := e.reply(msgCSAT, domain.ActionRedirectToCSAT)
		r.CSATURL = e.opts.CSATURL
		return r
	}
	return e.reply(msgAnythingElse, domain.ActionWaitForInput)
}

func (e *Engine) issueOTP(ctx context.Context, phone, dob string) (OTPIssue, error) {
	if e.verifier == nil {
		return OTPIssue{}, ErrCollaboratorMissing
	}
	issue, err := e.verifier.IssueOTP(ctx, phone, dob)
	if err != nil {
		return OTPIssue{}, err
	}
	if issue.Code == "" {
		return OTPIssue{}, &IssueError{Reason: "empty code"}
	}
	return issue, nil
}

func (e *Engine) listAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	if e.directory == nil {
		return nil, ErrCollaboratorMissing
	}
	resp, err := e.directory.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return ProjectAccounts(resp)
}

func (e *Engine) getDetail(ctx context.Context, accountID string) (domain.AccountDetail, error) {
	if e.directory == nil {
		return domain.AccountDetail{}, ErrCollaboratorMissing
	}
	detail, err := e.directory.GetDetail(ctx, accountID)
	if err != nil {
		return domain.AccountDetail{}, err
	}
	if detail.AccountID == "" {
		return domain.AccountDetail{}, errors.New("detail without account id")
	}
	return detail, nil
}

func (e *Engine) reply(message string, action domain.Action) domain.Reply {
	return domain.Reply{
		Message:  message,
		Action:   action,
		NextStep: e.session.Step,
	}
}

// maskPhone keeps the last four digits for log correlation.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(phone)-4:], phone[len(phone)-4:])
	return string(masked)
}
