package conversation

import (
	"testing"
	"time"

	"github.com/ashureev/loanbot/internal/domain"
)

func TestParseDateOfBirth(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"29/02/2004", nil},
		{"15/01/1990", nil},
		{"15-01-1990", nil},
		{"15/01-1990", nil},
		{"29/02/2003", ErrDOBCalendar},
		{"31/02/2004", ErrDOBCalendar},
		{"31/04/1990", ErrDOBCalendar},
		{"32/13/2004", ErrDOBMonth},
		{"32/12/2004", ErrDOBDay},
		{"00/12/2004", ErrDOBDay},
		{"15/00/1990", ErrDOBMonth},
		{"16/10/2026", ErrDOBFuture},
		{"01/01/1870", ErrDOBTooOld},
		{"16/10/2008", ErrDOBUnderage},
		{"15/10/2008", nil},
		{"1990/01/15", ErrDOBFormat},
		{"15.01.1990", ErrDOBFormat},
		{"", ErrDOBFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateOfBirth(tt.in, fixedNow)
			if err != tt.wantErr {
				t.Fatalf("ParseDateOfBirth(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.in {
				t.Errorf("ParseDateOfBirth(%q) = %q, want the matched text", tt.in, got)
			}
		})
	}
}

func TestParseDateOfBirthEighteenthBirthday(t *testing.T) {
	// An 18th birthday falling on the current day counts, even late in the day.
	late := time.Date(2008, time.October, 15, 23, 59, 0, 0, time.UTC)
	if _, err := ParseDateOfBirth("15/10/1990", late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAgeOn(t *testing.T) {
	birth := time.Date(1990, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := ageOn(birth, fixedNow); got != 36 {
		t.Errorf("ageOn = %d, want 36", got)
	}
	day := time.Date(2026, time.January, 14, 0, 0, 0, 0, time.UTC)
	if got := ageOn(birth, day); got != 35 {
		t.Errorf("ageOn before birthday = %d, want 35", got)
	}
}

func TestParseOTP(t *testing.T) {
	if code, ok := ParseOTP("12 34"); !ok || code != "1234" {
		t.Errorf("ParseOTP = %q, %v", code, ok)
	}
	if _, ok := ParseOTP("123"); ok {
		t.Error("three digits accepted")
	}
}

func TestParseSelection(t *testing.T) {
	accounts := []domain.AccountSummary{
		{AccountID: "LA123456"},
		{AccountID: "LA789012"},
	}
	tests := []struct {
		in   string
		want selection
	}{
		{"la789012", selection{accountID: "LA789012", matched: true}},
		{"i pick la123456 please", selection{accountID: "LA123456", matched: true}},
		{"la555555", selection{matched: true}},
		{"2", selection{accountID: "LA789012", matched: true}},
		{"number 1", selection{accountID: "LA123456", matched: true}},
		{"3", selection{matched: true}},
		{"99999999999999999999999", selection{matched: true}},
		{"none of them", selection{}},
	}
	for _, tt := range tests {
		if got := parseSelection(tt.in, accounts); got != tt.want {
			t.Errorf("parseSelection(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
