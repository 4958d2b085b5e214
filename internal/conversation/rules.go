package conversation

import "strings"

// Class is the outcome of phrase classification.
type Class int

const (
	ClassNone Class = iota
	ClassPhoneCorrection
	ClassLoanDetails
	ClassFeedback
	ClassHelp
)

func (c Class) String() string {
	switch c {
	case ClassPhoneCorrection:
		return "phone_correction"
	case ClassLoanDetails:
		return "loan_details"
	case ClassFeedback:
		return "feedback"
	case ClassHelp:
		return "help"
	default:
		return "none"
	}
}

// Rule maps a substring of a normalized message to a classification.
type Rule struct {
	Phrase string
	Class  Class
}

// GlobalRules apply in every step. Corrections are listed first and therefore
// win over the loan-details intent.
var GlobalRules = []Rule{
	{"that's my old number", ClassPhoneCorrection},
	{"that's not my current number", ClassPhoneCorrection},
	{"wrong number", ClassPhoneCorrection},
	{"different number", ClassPhoneCorrection},
	{"change my phone number", ClassPhoneCorrection},
	{"update my phone number", ClassPhoneCorrection},

	{"loan details", ClassLoanDetails},
	{"check loan", ClassLoanDetails},
	{"view loan", ClassLoanDetails},
	{"show loan", ClassLoanDetails},
	{"loan information", ClassLoanDetails},
	{"loan account", ClassLoanDetails},
	{"bank details", ClassLoanDetails},
	{"check bank", ClassLoanDetails},
	{"view bank", ClassLoanDetails},
	{"show bank", ClassLoanDetails},
	{"bank information", ClassLoanDetails},
	{"account details", ClassLoanDetails},
	{"check account", ClassLoanDetails},
	{"view account", ClassLoanDetails},
	{"show account", ClassLoanDetails},
	{"my details", ClassLoanDetails},
	{"account information", ClassLoanDetails},
}

// DetailRules apply while account details are on screen.
var DetailRules = []Rule{
	{"rate", ClassFeedback},
	{"feedback", ClassFeedback},
	{"csat", ClassFeedback},
}

// IdleRules apply when no flow is in progress.
var IdleRules = []Rule{
	{"help", ClassHelp},
	{"what can you do", ClassHelp},
}

// Classify returns the class of the first rule whose phrase occurs in msg.
func Classify(rules []Rule, msg string) Class {
	for _, r := range rules {
		if strings.Contains(msg, r.Phrase) {
			return r.Class
		}
	}
	return ClassNone
}
