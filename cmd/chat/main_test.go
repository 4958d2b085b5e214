package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/loanbot/internal/domain"
)

type scriptedConv struct {
	seen   []string
	resets int
}

func (c *scriptedConv) ProcessMessage(_ context.Context, utterance string) domain.Reply {
	c.seen = append(c.seen, utterance)
	switch utterance {
	case "accounts":
		return domain.Reply{
			Message: "Here are your loan accounts.",
			Action:  domain.ActionShowAccounts,
			Accounts: []domain.AccountSummary{
				{AccountID: "LA123456", LoanType: "Personal Loan", Tenure: "60 months"},
			},
		}
	case "details":
		return domain.Reply{
			Message: "Your Loan Account Details:",
			Action:  domain.ActionShowDetails,
			Details: &domain.AccountDetail{AccountID: "LA123456", InterestRatePercent: "10.5", Nominee: "Jane Doe"},
		}
	default:
		return domain.Reply{Message: "echo " + utterance, Action: domain.ActionWaitForInput, OTPValue: "1234"}
	}
}

func (c *scriptedConv) State() domain.Session { return domain.NewSession() }

func (c *scriptedConv) Reset() { c.resets++ }

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestRunCommands(t *testing.T) {
	conv := &scriptedConv{}
	in := strings.NewReader("hello\n\nreset\nstate\naccounts\ndetails\nexit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), conv, in, &out, newStyles()))

	assert.Equal(t, []string{"hello", "accounts", "details"}, conv.seen)
	assert.Equal(t, 1, conv.resets)

	text := out.String()
	assert.Contains(t, text, "echo hello")
	assert.Contains(t, text, "test mode OTP: 1234")
	assert.Contains(t, text, `"step": "idle"`)
	assert.Contains(t, text, "1. LA123456")
	assert.Contains(t, text, "10.5%")
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Goodbye.")
}

func TestRunEndOfInput(t *testing.T) {
	conv := &scriptedConv{}
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), conv, strings.NewReader("hi"), &out, newStyles()))
	assert.Equal(t, []string{"hi"}, conv.seen)
}

func TestRunReturnsOnCancelWhileReading(t *testing.T) {
	conv := &scriptedConv{}
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, conv, pr, io.Discard, newStyles()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.Empty(t, conv.seen)
}

func TestRenderCSATRedirect(t *testing.T) {
	var out bytes.Buffer
	newStyles().renderReply(&out, domain.Reply{
		Message: "Redirecting to CSAT survey...",
		Action:  domain.ActionRedirectToCSAT,
		CSATURL: "https://csat.example",
	})
	assert.Contains(t, out.String(), "Survey: https://csat.example")
}
