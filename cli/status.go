// ABOUTME: Status CLI command
// ABOUTME: Shows mailbox state, import counters and CRM reachability, or opens the TUI
package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/kontakt/assistant"
	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/tui"
)

// StatusCommand prints a status report or, with --tui, opens the browser UI.
func StatusCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	interactive := fs.Bool("tui", false, "Open the interactive browser")
	_ = fs.Parse(args)

	if *interactive {
		return runTUI(app)
	}

	states, err := db.ListMailboxStates(app.DB)
	if err != nil {
		return fmt.Errorf("failed to get mailbox states: %w", err)
	}

	fmt.Fprintln(app.Out, "Mailbox:")
	if len(states) == 0 {
		fmt.Fprintln(app.Out, "  never polled")
	}
	for _, s := range states {
		if s.LastPoll == nil {
			fmt.Fprintf(app.Out, "  %s: %s (last poll never)\n", s.Mailbox, s.Status)
		} else {
			fmt.Fprintf(app.Out, "  %s: %s (last poll %s: %s)\n", s.Mailbox, s.Status,
				s.LastPoll.Local().Format("2006-01-02 15:04:05"),
				PollSummary(assistant.PollStats{Fetched: s.Fetched, Processed: s.Processed, Skipped: s.Skipped, Failed: s.Failed}))
		}
		if s.Error != "" {
			fmt.Fprintf(app.Out, "    ✗ %s\n", s.Error)
		}
	}

	stats, err := db.GetImportStats(app.DB)
	if err != nil {
		return fmt.Errorf("failed to get import stats: %w", err)
	}

	fmt.Fprintln(app.Out, "\nImports:")
	outcomes := make([]string, 0, len(stats))
	for outcome := range stats {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(app.Out, "  %-10s %d\n", outcome, stats[outcome])
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(app.Out, "  none")
	}

	fmt.Fprintf(app.Out, "\nCRM: %s\n", app.Config.CRM.Backend)
	if app.Config.CRM.Backend == "odoo" {
		checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		st := crmStatus(checkCtx, app.Config.CRM.Odoo.URL)
		fmt.Fprintf(app.Out, "  %s\n", st)
	}
	return nil
}

func runTUI(app *App) error {
	var poll tui.PollFunc
	if _, err := app.gmailMailbox(context.Background()); err == nil {
		poll = func(ctx context.Context) (string, error) {
			pipeline, err := app.NewPipeline(ctx, true)
			if err != nil {
				return "", err
			}
			defer func() { _ = pipeline.Close() }()

			stats, err := pipeline.Assistant.PollOnce(ctx)
			if err != nil {
				return "", err
			}
			return PollSummary(stats), nil
		}
	}

	p := tea.NewProgram(tui.NewModel(app.DB, poll), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func crmStatus(ctx context.Context, url string) string {
	return formatStatus(crm.CheckStatus(ctx, nil, url))
}

func formatStatus(st crm.Status) string {
	switch {
	case st.Available:
		return fmt.Sprintf("✓ reachable (%d ms)", st.ResponseTime.Milliseconds())
	case st.Maintenance && st.Window != "":
		return fmt.Sprintf("⚠️  maintenance %s: %s", st.Window, st.Message)
	case st.Maintenance:
		return fmt.Sprintf("⚠️  maintenance: %s", st.Message)
	default:
		return fmt.Sprintf("✗ unavailable: %s", st.Message)
	}
}
