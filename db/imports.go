// ABOUTME: Import log database operations
// ABOUTME: Records one row per processed message and summarizes outcomes
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/kontakt/models"
	"github.com/oklog/ulid/v2"
)

func CreateImportLog(db *sql.DB, entry *models.ImportLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.ID = ulid.MustNew(ulid.Timestamp(entry.CreatedAt), ulid.DefaultEntropy())

	var unmatched sql.NullString
	if len(entry.Unmatched) > 0 {
		data, err := json.Marshal(entry.Unmatched)
		if err != nil {
			return fmt.Errorf("failed to encode unmatched categories: %w", err)
		}
		unmatched = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO import_log (id, source, source_key, contact_id, contact_email, contact_name,
			outcome, confidence, unmatched, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID.String(), entry.Source, entry.SourceKey, entry.ContactID, entry.ContactEmail,
		entry.ContactName, entry.Outcome, entry.Confidence, unmatched, entry.Error, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create import log: %w", err)
	}

	return nil
}

// MarkImportNotified stamps the time a follow-up message went out for an import.
func MarkImportNotified(db *sql.DB, id ulid.ULID, at time.Time) error {
	_, err := db.Exec(`UPDATE import_log SET notified_at = ? WHERE id = ?`, at, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark import notified: %w", err)
	}
	return nil
}

// ListImportLogs returns the most recent entries first.
func ListImportLogs(db *sql.DB, limit int) ([]models.ImportLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, source, source_key, contact_id, contact_email, contact_name, outcome,
			confidence, unmatched, error_message, created_at, notified_at
		FROM import_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []models.ImportLog
	for rows.Next() {
		var e models.ImportLog
		var id string
		var contactID, email, name, confidence, unmatched, errMsg sql.NullString
		var notifiedAt sql.NullTime

		err := rows.Scan(&id, &e.Source, &e.SourceKey, &contactID, &email, &name, &e.Outcome,
			&confidence, &unmatched, &errMsg, &e.CreatedAt, &notifiedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}

		e.ID, err = ulid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid import log id %q: %w", id, err)
		}
		e.ContactID = contactID.String
		e.ContactEmail = email.String
		e.ContactName = name.String
		e.Confidence = confidence.String
		e.Error = errMsg.String
		if unmatched.Valid && unmatched.String != "" {
			if err := json.Unmarshal([]byte(unmatched.String), &e.Unmatched); err != nil {
				return nil, fmt.Errorf("failed to decode unmatched categories: %w", err)
			}
		}
		if notifiedAt.Valid {
			e.NotifiedAt = &notifiedAt.Time
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetImportStats counts import log rows per outcome.
func GetImportStats(db *sql.DB) (map[string]int, error) {
	rows, err := db.Query(`SELECT outcome, COUNT(*) FROM import_log GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to query import stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan import stats: %w", err)
		}
		stats[outcome] = count
	}

	return stats, rows.Err()
}
