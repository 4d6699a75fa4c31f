// ABOUTME: Requeue CLI command
// ABOUTME: Removes message keys from the processed store so unread mail is polled again
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/store"
)

const requeueScanLimit = 500

// RequeueCommand forgets the given message keys, or with --failed every
// rejected mail import in the recent log. The mails must still be unread.
func RequeueCommand(_ context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("requeue", flag.ExitOnError)
	failed := fs.Bool("failed", false, "Requeue every rejected mail in the recent import log")
	_ = fs.Parse(args)

	keys := fs.Args()
	if *failed {
		more, err := failedMailKeys(app)
		if err != nil {
			return err
		}
		keys = append(keys, more...)
	}
	if len(keys) == 0 {
		return errors.New("usage: kontakt requeue <message-key>... | --failed")
	}

	processed, err := store.Open(app.Config.Assistant.StorePath, app.Config.Assistant.ProcessedTTL)
	if err != nil {
		return fmt.Errorf("failed to open processed store (is 'kontakt run' active?): %w", err)
	}
	defer func() { _ = processed.Close() }()

	n, err := requeue(processed, keys, app)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "\n%d message(s) requeued\n", n)
	return nil
}

func requeue(processed *store.Processed, keys []string, app *App) (int, error) {
	n := 0
	for _, key := range keys {
		seen, err := processed.Seen(key)
		if err != nil {
			return n, err
		}
		if !seen {
			fmt.Fprintf(app.Out, "→ %s was not marked as processed\n", key)
			continue
		}
		if err := processed.Forget(key); err != nil {
			return n, err
		}
		fmt.Fprintf(app.Out, "✓ %s\n", key)
		n++
	}
	return n, nil
}

func failedMailKeys(app *App) ([]string, error) {
	logs, err := db.ListImportLogs(app.DB, requeueScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read import log: %w", err)
	}
	var keys []string
	seen := map[string]bool{}
	for _, entry := range logs {
		if entry.Source != models.SourceMail || !entry.Failed() || seen[entry.SourceKey] {
			continue
		}
		seen[entry.SourceKey] = true
		keys = append(keys, entry.SourceKey)
	}
	return keys, nil
}
