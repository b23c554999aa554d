package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"loan-assistant/internal/bootstrap"
	"loan-assistant/internal/chat"
	"loan-assistant/internal/common/logger"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive chat session.

Commands:
  /model <id>   switch the model used for general questions
  /onboard      fill in the new-customer form
  /history      print the conversation so far
  /quit         leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Logs go to stderr so they do not interleave with the chat.
		log := logger.NewZapAdapter(logger.NewWithOutput(cfg.Logging.Level, "console", "stderr"))
		deps, err := bootstrap.Build(ctx, cfg, log, cfg.App.Name)
		if err != nil {
			return err
		}
		defer deps.Close()

		return runREPL(ctx, deps.Engine(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// onboardingFields are asked in order by /onboard. Numeric answers are sent
// as numbers. Blank answers are left out of the form.
var onboardingFields = []struct {
	key     string
	prompt  string
	numeric bool
}{
	{"name", "Full name", false},
	{"age", "Age", true},
	{"city", "City", false},
	{"employment", "Employment (Salaried/Self-Employed)", false},
	{"salary", "Monthly salary", true},
	{"emi", "Existing monthly EMI", true},
	{"kycDocument", "KYC document file (optional)", false},
	{"salarySlip", "Salary slip file (optional)", false},
}

func runREPL(ctx context.Context, engine *chat.Engine, in io.Reader, out io.Writer) error {
	session := engine.NewSession()
	defer func() { _ = engine.EndSession(session.ID) }()

	for _, m := range session.Messages() {
		fmt.Fprintf(out, "assistant> %s\n", m.Text)
	}

	scanner := bufio.NewScanner(in)
	prompt := func() bool {
		fmt.Fprint(out, "you> ")
		return scanner.Scan()
	}

	for prompt() {
		if ctx.Err() != nil {
			return nil
		}
		// Only commands are matched trimmed. Utterances go to the engine as typed.
		text := scanner.Text()
		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case line == "/history":
			for _, m := range session.Messages() {
				fmt.Fprintf(out, "[%s] %s: %s\n", m.At.Format("15:04:05"), m.Sender, m.Text)
			}

		case strings.HasPrefix(line, "/model"):
			model := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
			if model == "" {
				fmt.Fprintf(out, "current model: %s\navailable: %s\n", session.Model(), strings.Join(engine.Models(), ", "))
				continue
			}
			if err := engine.SetModel(session.ID, model); err != nil {
				fmt.Fprintf(out, "cannot use %q. Available: %s\n", model, strings.Join(engine.Models(), ", "))
				continue
			}
			fmt.Fprintf(out, "model set to %s\n", model)

		case line == "/onboard":
			form, ok := readForm(scanner, out, session.PendingCustomerID())
			if !ok {
				return scanner.Err()
			}
			reply, err := engine.SubmitOnboarding(ctx, session.ID, form)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "assistant> %s\n", reply.Text)

		default:
			reply, err := engine.HandleMessage(ctx, session.ID, text)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "assistant> %s\n", reply.Text)
			if reply.NeedsOnboarding {
				fmt.Fprintln(out, "(type /onboard to fill in the form)")
			}
			if reply.Letter != nil {
				fmt.Fprintf(out, "(letter saved to %s)\n", reply.Letter.Path)
			}
		}
	}
	return scanner.Err()
}

func readForm(scanner *bufio.Scanner, out io.Writer, pendingID string) (map[string]interface{}, bool) {
	form := map[string]interface{}{}

	if pendingID == "" {
		fmt.Fprint(out, "Customer ID: ")
		if !scanner.Scan() {
			return nil, false
		}
		form["customerId"] = strings.TrimSpace(scanner.Text())
	}

	for _, f := range onboardingFields {
		fmt.Fprintf(out, "%s: ", f.prompt)
		if !scanner.Scan() {
			return nil, false
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}
		if f.numeric {
			if n, err := strconv.ParseFloat(strings.ReplaceAll(answer, ",", ""), 64); err == nil {
				form[f.key] = n
				continue
			}
		}
		form[f.key] = answer
	}
	return form, true
}
