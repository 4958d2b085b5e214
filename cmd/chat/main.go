// Interactive terminal client for the loan assistant. It talks to the bank
// backend directly, without the chat server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ashureev/loanbot/internal/backend"
	"github.com/ashureev/loanbot/internal/config"
	"github.com/ashureev/loanbot/internal/conversation"
	"github.com/ashureev/loanbot/internal/domain"
)

// Conversation is the engine surface the REPL drives.
type Conversation interface {
	ProcessMessage(ctx context.Context, utterance string) domain.Reply
	State() domain.Session
	Reset()
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	verbose := flag.Bool("v", false, "log engine activity to stderr")
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	bank := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	engine := conversation.New(bank, bank, conversation.Options{
		MaxOTPRetries: cfg.Conversation.MaxOTPRetries,
		CSATURL:       cfg.Conversation.CSATURL,
		// The terminal client always shows the code; it is a test harness.
		ExposeOTP:    true,
		OTPAllowList: cfg.Conversation.OTPAllowList,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, engine, os.Stdin, os.Stdout, newStyles()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conv Conversation, in io.Reader, out io.Writer, s styles) error {
	fmt.Fprintln(out, s.bot.Render("Loan assistant")+s.muted.Render("  (commands: reset, state, exit)"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, scanErr := readLines(ctx, in)
	for {
		fmt.Fprint(out, s.prompt.Render("You: "))
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case raw, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-scanErr
			}
			line = strings.TrimSpace(raw)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, s.muted.Render("Goodbye."))
			return nil
		case "reset":
			conv.Reset()
			fmt.Fprintln(out, s.muted.Render("Conversation reset."))
			continue
		case "state":
			if err := s.renderState(out, conv.State()); err != nil {
				return err
			}
			continue
		}

		s.renderReply(out, conv.ProcessMessage(ctx, line))
		if ctx.Err() != nil {
			return nil
		}
	}
}

// readLines scans in on its own goroutine so a blocked read never holds up
// cancellation. The error channel carries the scanner error once lines closes.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
