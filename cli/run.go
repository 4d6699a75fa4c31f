// ABOUTME: Mailbox processing CLI commands
// ABOUTME: Runs the polling daemon or a single poll
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/kontakt/assistant"
)

// RunCommand polls the mailbox until ctx is cancelled.
func RunCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	once := fs.Bool("once", false, "Poll once and exit")
	_ = fs.Parse(args)

	if *once {
		return PollCommand(ctx, app, nil)
	}

	pipeline, err := app.NewPipeline(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	fmt.Fprintf(app.Out, "✓ Watching %s every %s (Ctrl+C to stop)\n", mailboxName(app), app.Config.Mail.CheckInterval)
	return pipeline.Assistant.Run(ctx)
}

// PollCommand processes every unread message once.
func PollCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	_ = fs.Parse(args)

	pipeline, err := app.NewPipeline(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	stats, err := pipeline.Assistant.PollOnce(ctx)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ %s\n", PollSummary(stats))
	return nil
}

// PollSummary renders poll counters for humans.
func PollSummary(stats assistant.PollStats) string {
	return fmt.Sprintf("%d fetched, %d processed, %d skipped, %d failed",
		stats.Fetched, stats.Processed, stats.Skipped, stats.Failed)
}

func mailboxName(app *App) string {
	if app.Config.Mail.Address != "" {
		return app.Config.Mail.Address
	}
	return app.Config.Mail.User
}
