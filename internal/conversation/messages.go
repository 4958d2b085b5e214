package conversation

import "fmt"

// Canned replies. User-facing text never includes internal error details.
const (
	msgEnglishOnly     = "I apologize, but I'm restricted to operating in English only. Please continue our conversation in English."
	msgAskPhone        = "To access your loan details, I'll need to verify your identity. Please provide your registered phone number."
	msgPhoneCorrection = "No problem! Let me update your information. Please provide your current registered phone number."
	msgRetryPhone      = "The phone number format appears incorrect. Please provide a valid 10-digit phone number."
	msgAskDOB          = "Thank you. Now, please provide your date of birth (format: DD/MM/YYYY or DD-MM-YYYY)."
	msgOTPSent         = "An OTP has been sent to your registered phone number. Please provide the OTP you received."
	msgTechnicalIssue  = "I'm experiencing a technical issue. Please try again in a moment, or contact our support team."
	msgOTPFormat       = "Please provide a valid 4-digit OTP."
	msgOTPLockout      = "Maximum OTP retry attempts reached. Please start over. To access your loan details, please provide your registered phone number."
	msgAccounts        = "Here are your loan accounts. Please select one to view details:"
	msgNoAccounts      = "Unable to retrieve your loan accounts at this time. Please try again later or contact support."
	msgSelectValid     = "Please select a valid account from the list above."
	msgSelectAny       = "Please select an account from the list above."
	msgDetails         = "Your Loan Account Details:"
	msgNoDetails       = "Unable to retrieve loan details. Please try again or contact support."
	msgCSAT            = "Redirecting to CSAT survey..."
	msgAnythingElse    = "Is there anything else I can help you with?"
	msgHelp            = "I can help you check your loan account details. Would you like to view your loan information?"
	msgSuggestion      = "Try saying: 'I want to check my bank details'"
)

var dobMessages = map[error]string{
	ErrDOBFormat:   "Please provide your date of birth in DD/MM/YYYY or DD-MM-YYYY format.",
	ErrDOBMonth:    "Invalid date. Month must be between 01 and 12. Please provide your date of birth in DD/MM/YYYY or DD-MM-YYYY format.",
	ErrDOBDay:      "Invalid date. Day must be between 01 and 31. Please provide your date of birth in DD/MM/YYYY or DD-MM-YYYY format.",
	ErrDOBCalendar: "Invalid date. Please provide a valid date of birth in DD/MM/YYYY or DD-MM-YYYY format (e.g., 15/01/1990).",
	ErrDOBFuture:   "Invalid date. Date of birth cannot be in the future. Please provide a valid date of birth.",
	ErrDOBTooOld:   "Invalid date. Please provide a valid date of birth.",
	ErrDOBUnderage: "You must be at least 18 years old to access banking services. Please provide a valid date of birth.",
}

func wrongOTPMessage(attempt, limit int) string {
	return fmt.Sprintf("The OTP you entered is incorrect. Please try again. (Attempt %d/%d)", attempt, limit)
}
