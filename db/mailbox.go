// ABOUTME: Poll bookkeeping for watched mailboxes
// ABOUTME: Stores status, last error and the counters of the most recent poll
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Mailbox poll states.
const (
	MailboxIdle    = "idle"
	MailboxPolling = "polling"
	MailboxError   = "error"
)

// MailboxState is the stored view of one mailbox. Counters describe the most
// recent completed poll.
type MailboxState struct {
	Mailbox       string
	Status        string
	LastPoll      *time.Time
	LastMessageID string
	Error         string
	Fetched       int
	Processed     int
	Skipped       int
	Failed        int
	UpdatedAt     time.Time
}

// PollResult is what a finished poll reports back.
type PollResult struct {
	NewestID  string
	Fetched   int
	Processed int
	Skipped   int
	Failed    int
}

const mailboxColumns = `mailbox, status, last_poll, last_message_id, error_message,
	fetched, processed, skipped, failed, updated_at`

func scanMailboxState(row rowScanner) (*MailboxState, error) {
	var s MailboxState
	var lastPoll sql.NullTime
	var lastID, errMsg sql.NullString
	if err := row.Scan(&s.Mailbox, &s.Status, &lastPoll, &lastID, &errMsg,
		&s.Fetched, &s.Processed, &s.Skipped, &s.Failed, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if lastPoll.Valid {
		s.LastPoll = &lastPoll.Time
	}
	s.LastMessageID = lastID.String
	s.Error = errMsg.String
	return &s, nil
}

// GetMailboxState returns nil when the mailbox was never polled.
func GetMailboxState(db *sql.DB, mailbox string) (*MailboxState, error) {
	row := db.QueryRow(`SELECT `+mailboxColumns+` FROM mailbox_state WHERE mailbox = ?`, mailbox)
	state, err := scanMailboxState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mailbox state: %w", err)
	}
	return state, nil
}

// SetMailboxStatus changes the status. An empty errMsg clears any stored error.
func SetMailboxStatus(db *sql.DB, mailbox, status, errMsg string) error {
	var msg sql.NullString
	if errMsg != "" {
		msg = sql.NullString{String: errMsg, Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO mailbox_state (mailbox, status, error_message, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(mailbox) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, mailbox, status, msg)
	if err != nil {
		return fmt.Errorf("failed to set mailbox status: %w", err)
	}
	return nil
}

// RecordPoll marks a poll as finished and stores its counters. The last
// message id is kept when the poll processed nothing new.
func RecordPoll(db *sql.DB, mailbox string, r PollResult) error {
	var newest sql.NullString
	if r.NewestID != "" {
		newest = sql.NullString{String: r.NewestID, Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO mailbox_state (mailbox, status, last_poll, last_message_id,
			fetched, processed, skipped, failed, updated_at)
		VALUES (?, 'idle', CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(mailbox) DO UPDATE SET
			status = 'idle',
			last_poll = CURRENT_TIMESTAMP,
			last_message_id = COALESCE(excluded.last_message_id, mailbox_state.last_message_id),
			error_message = NULL,
			fetched = excluded.fetched,
			processed = excluded.processed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			updated_at = CURRENT_TIMESTAMP
	`, mailbox, newest, r.Fetched, r.Processed, r.Skipped, r.Failed)
	if err != nil {
		return fmt.Errorf("failed to record poll: %w", err)
	}
	return nil
}

// ListMailboxStates returns every known mailbox ordered by name.
func ListMailboxStates(db *sql.DB) ([]MailboxState, error) {
	rows, err := db.Query(`SELECT ` + mailboxColumns + ` FROM mailbox_state ORDER BY mailbox`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mailbox states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []MailboxState
	for rows.Next() {
		state, err := scanMailboxState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mailbox state: %w", err)
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}
