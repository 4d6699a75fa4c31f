// ABOUTME: Polling loop for the contact assistant
// ABOUTME: Processes unread mail on a ticker and periodically reloads categories
package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
)

// MailboxService is the mailbox_state key for the mailbox poller.
const MailboxService = "mailbox"

// PollStats counts the results of one poll.
type PollStats struct {
	Fetched   int
	Processed int
	Skipped   int
	Failed    int
}

// PollOnce processes every unread message once. Per-message failures are
// counted, not returned.
func (a *Assistant) PollOnce(ctx context.Context) (PollStats, error) {
	var stats PollStats
	if a.mailbox == nil {
		return stats, ErrNoMailbox
	}

	a.setStatus(db.MailboxPolling, "")
	messages, err := a.mailbox.Unread(ctx)
	if err != nil {
		a.setStatus(db.MailboxError, err.Error())
		return stats, err
	}
	stats.Fetched = len(messages)

	// Unread lists newest first, so the first processed message is the newest.
	newest := ""
	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		report, err := a.ProcessMessage(ctx, msg)
		switch {
		case err != nil:
			stats.Failed++
			if ctx.Err() == nil {
				a.log.Error("message failed", zap.String("message", msg.ID), zap.Error(err))
			}
		case report.Outcome == models.OutcomeSkipped:
			stats.Skipped++
		default:
			stats.Processed++
			if newest == "" {
				newest = msg.ID
			}
		}
	}

	if a.db != nil {
		result := db.PollResult{
			NewestID:  newest,
			Fetched:   stats.Fetched,
			Processed: stats.Processed,
			Skipped:   stats.Skipped,
			Failed:    stats.Failed,
		}
		if err := db.RecordPoll(a.db, MailboxService, result); err != nil {
			a.log.Warn("failed to record poll", zap.Error(err))
		}
	}

	if stats.Fetched > 0 {
		a.log.Info("poll finished",
			zap.Int("fetched", stats.Fetched),
			zap.Int("processed", stats.Processed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
	}
	return stats, ctx.Err()
}

// Run loads categories and polls at the configured interval until ctx is
// cancelled. Categories are reloaded every ReloadEvery iterations.
func (a *Assistant) Run(ctx context.Context) error {
	if err := a.ReloadCategories(ctx); err != nil {
		return err
	}
	a.log.Info("assistant running", zap.Duration("interval", a.opts.CheckInterval))

	ticker := time.NewTicker(a.opts.CheckInterval)
	defer ticker.Stop()

	for iteration := 1; ; iteration++ {
		if _, err := a.PollOnce(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("poll failed", zap.Int("iteration", iteration), zap.Error(err))
		}

		if a.opts.ReloadEvery > 0 && iteration%a.opts.ReloadEvery == 0 {
			if err := a.ReloadCategories(ctx); err != nil && ctx.Err() == nil {
				a.log.Warn("category reload failed, keeping previous snapshot", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			a.log.Info("assistant stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Assistant) setStatus(status, errMsg string) {
	if a.db == nil {
		return
	}
	if err := db.SetMailboxStatus(a.db, MailboxService, status, errMsg); err != nil {
		a.log.Warn("failed to update mailbox status", zap.String("status", status), zap.Error(err))
	}
}
