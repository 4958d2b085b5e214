package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/loanbot/internal/domain"
)

type styles struct {
	bot     lipgloss.Style
	prompt  lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	errText lipgloss.Style
	box     lipgloss.Style
}

func newStyles() styles {
	return styles{
		bot:     lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		label:   lipgloss.NewStyle().Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
		errText: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		box:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (s styles) renderReply(w io.Writer, r domain.Reply) {
	text := r.Message
	if r.Action == domain.ActionError {
		text = s.errText.Render(text)
	}
	fmt.Fprintf(w, "%s %s\n", s.bot.Render("Assistant:"), text)

	if r.OTPValue != "" {
		fmt.Fprintln(w, s.muted.Render("(test mode OTP: "+r.OTPValue+")"))
	}

	if len(r.Accounts) > 0 {
		var b strings.Builder
		for i, a := range r.Accounts {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d. %s  %s  %s", i+1, s.label.Render(a.AccountID), a.LoanType, s.muted.Render(a.Tenure))
		}
		fmt.Fprintln(w, s.box.Render(b.String()))
	}

	if d := r.Details; d != nil {
		rows := [][2]string{
			{"Account", d.AccountID},
			{"Tenure", d.Tenure},
			{"Interest rate", d.InterestRatePercent + "%"},
			{"Principal pending", d.PrincipalPending},
			{"Interest pending", d.InterestPending},
			{"Nominee", d.Nominee},
		}
		lines := make([]string, len(rows))
		for i, row := range rows {
			lines[i] = s.label.Width(18).Render(row[0]) + row[1]
		}
		fmt.Fprintln(w, s.box.Render(strings.Join(lines, "\n")))
	}

	if r.Action == domain.ActionRedirectToCSAT && r.CSATURL != "" {
		fmt.Fprintln(w, s.muted.Render("Survey: "+r.CSATURL))
	}
}

func (s styles) renderState(w io.Writer, state domain.Session) error {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintln(w, s.muted.Render(string(b)))
	return nil
}
