package conversation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
)

const (
	phoneDigits = 10
	otpDigits   = 4

	maxAgeYears = 150
	minAgeYears = 18
)

// Date of birth validation failures, in pipeline order.
var (
	ErrDOBFormat   = errors.New("date of birth is not DD/MM/YYYY or DD-MM-YYYY")
	ErrDOBMonth    = errors.New("month out of range")
	ErrDOBDay      = errors.New("day out of range")
	ErrDOBCalendar = errors.New("not a calendar date")
	ErrDOBFuture   = errors.New("date of birth is in the future")
	ErrDOBTooOld   = errors.New("date of birth is implausibly old")
	ErrDOBUnderage = errors.New("younger than the minimum age")
)

var (
	dobPattern       = regexp.MustCompile(`(\d{2})[/-](\d{2})[/-](\d{4})`)
	nonDigits        = regexp.MustCompile(`\D`)
	accountIDPattern = regexp.MustCompile(`(?i)la\d{6}`)
	ordinalPattern   = regexp.MustCompile(`\d+`)
)

func digitsOnly(msg string) string {
	return nonDigits.ReplaceAllString(msg, "")
}

// ParsePhoneNumber extracts a 10-digit phone number, ignoring any separators.
func ParsePhoneNumber(msg string) (string, bool) {
	phone := digitsOnly(msg)
	return phone, len(phone) == phoneDigits
}

// ParseOTP extracts a 4-digit code, ignoring any separators.
func ParseOTP(msg string) (string, bool) {
	code := digitsOnly(msg)
	return code, len(code) == otpDigits
}

// ParseDateOfBirth finds a DD/MM/YYYY or DD-MM-YYYY date in msg and checks it
// is a real date of someone between 18 and 150 years old on the day of today.
// It returns the matched date text.
func ParseDateOfBirth(msg string, today time.Time) (string, error) {
	m := dobPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", ErrDOBFormat
	}
	// The groups are exactly two and four digits, so Atoi cannot fail.
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if month < 1 || month > 12 {
		return "", ErrDOBMonth
	}
	if day < 1 || day > 31 {
		return "", ErrDOBDay
	}

	loc := today.Location()
	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if dob.Year() != year || int(dob.Month()) != month || dob.Day() != day {
		return "", ErrDOBCalendar
	}

	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if dob.After(midnight) {
		return "", ErrDOBFuture
	}
	if year < midnight.Year()-maxAgeYears {
		return "", ErrDOBTooOld
	}
	if ageOn(dob, midnight) < minAgeYears {
		return "", ErrDOBUnderage
	}
	return m[0], nil
}

// ageOn returns completed years between birth and day.
func ageOn(birth, day time.Time) int {
	age := day.Year() - birth.Year()
	if day.Month() < birth.Month() || (day.Month() == birth.Month() && day.Day() < birth.Day()) {
		age--
	}
	return age
}

// selection is the result of parsing an account choice.
type selection struct {
	accountID string
	// matched is false when the message named no account at all.
	matched bool
}

// parseSelection resolves an account id or a 1-based position against the
// cached list. An id that is not cached or a position out of range yields an
// empty accountID with matched set.
func parseSelection(msg string, accounts []domain.AccountSummary) selection {
	if id := accountIDPattern.FindString(msg); id != "" {
		id = strings.ToUpper(id)
		for _, a := range accounts {
			if strings.EqualFold(a.AccountID, id) {
				return selection{accountID: a.AccountID, matched: true}
			}
		}
		return selection{matched: true}
	}

	n := ordinalPattern.FindString(msg)
	if n == "" {
		return selection{}
	}
	pos, err := strconv.Atoi(n)
	if err != nil || pos < 1 || pos > len(accounts) {
		return selection{matched: true}
	}
	return selection{accountID: accounts[pos-1].AccountID, matched: true}
}
