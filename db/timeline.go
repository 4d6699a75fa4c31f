// ABOUTME: Timeline note database operations
// ABOUTME: Append-only narrative entries attached to contacts
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/models"
	"github.com/oklog/ulid/v2"
)

// CreateTimelineNote appends a note; existing notes are never modified.
func CreateTimelineNote(db *sql.DB, note *models.TimelineNote) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}
	note.ID = ulid.MustNew(ulid.Timestamp(note.CreatedAt), ulid.DefaultEntropy())

	_, err := db.Exec(`
		INSERT INTO timeline_notes (id, contact_id, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID.String(), note.ContactID.String(), note.Subject, note.Body, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create timeline note: %w", err)
	}

	return nil
}

func ListTimelineNotes(db *sql.DB, contactID uuid.UUID) ([]models.TimelineNote, error) {
	rows, err := db.Query(`
		SELECT id, contact_id, subject, body, created_at
		FROM timeline_notes
		WHERE contact_id = ?
		ORDER BY id ASC
	`, contactID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notes []models.TimelineNote
	for rows.Next() {
		var n models.TimelineNote
		var id string
		var subject sql.NullString
		if err := rows.Scan(&id, &n.ContactID, &subject, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline note: %w", err)
		}
		n.ID, err = ulid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid timeline note id %q: %w", id, err)
		}
		n.Subject = subject.String
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

func CountTimelineNotes(db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM timeline_notes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count timeline notes: %w", err)
	}
	return count, nil
}
