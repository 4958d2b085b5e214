package domain

// Action tells the caller what the assistant expects next.
type Action string

const (
	ActionCollectPhone   Action = "collect_phone"
	ActionRetryPhone     Action = "retry_phone"
	ActionCollectDOB     Action = "collect_dob"
	ActionRetryDOB       Action = "retry_dob"
	ActionCollectOTP     Action = "collect_otp"
	ActionRetryOTP       Action = "retry_otp"
	ActionRestartAuth    Action = "restart_auth"
	ActionShowAccounts   Action = "show_accounts"
	ActionRetrySelection Action = "retry_selection"
	ActionShowDetails    Action = "show_details"
	ActionRedirectToCSAT Action = "redirect_to_csat"
	ActionError          Action = "error"
	ActionWaitForInput   Action = "wait_for_input"
)

// Reply is the outcome of one conversational turn.
type Reply struct {
	Message  string           `json:"message"`
	Action   Action           `json:"action"`
	NextStep Step             `json:"nextStep,omitempty"`
	OTPValue string           `json:"otpValue,omitempty"`
	Accounts []AccountSummary `json:"accounts,omitempty"`
	Details  *AccountDetail   `json:"details,omitempty"`
	CSATURL  string           `json:"csatUrl,omitempty"`
}
