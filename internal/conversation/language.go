package conversation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	datePattern      = regexp.MustCompile(`^\d{2}[/-]\d{2}[/-]\d{4}$`)
	phonePattern     = regexp.MustCompile(`^\d{10}$`)
	otpPattern       = regexp.MustCompile(`^\d{4}$`)
	accountIDOnly    = regexp.MustCompile(`^la\d{6}$`)
	numberPattern    = regexp.MustCompile(`^\d+$`)
	// Whitespace also covers \v, Unicode space separators and the BOM.
	plainTextPattern = regexp.MustCompile(`^[a-z0-9\s\v\p{Z}\x{feff}.,!?'-]+$`)
)

// acceptedShapes are checked in order; the first match admits the message.
var acceptedShapes = []*regexp.Regexp{
	datePattern,
	phonePattern,
	otpPattern,
	accountIDOnly,
	numberPattern,
	plainTextPattern,
}

// Normalize trims and lowercases an utterance.
func Normalize(utterance string) string {
	// A Caser carries state, so one is built per call.
	return cases.Lower(language.English).String(strings.TrimSpace(utterance))
}

// IsEnglish reports whether a normalized message passes the language gate.
func IsEnglish(msg string) bool {
	for _, re := range acceptedShapes {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}
