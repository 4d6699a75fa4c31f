// ABOUTME: Data models for the local contact store
// ABOUTME: Defines Contact, Category, TimelineNote and ImportLog structs
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type Contact struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Street      string      `json:"street,omitempty"`
	Street2     string      `json:"street2,omitempty"`
	City        string      `json:"city,omitempty"`
	Zip         string      `json:"zip,omitempty"`
	State       string      `json:"state,omitempty"`
	CountryCode string      `json:"country_code,omitempty"`
	Website     string      `json:"website,omitempty"`
	Function    string      `json:"function,omitempty"`
	Lang        string      `json:"lang,omitempty"`
	Comment     string      `json:"comment,omitempty"`
	IsCompany   bool        `json:"is_company"`
	CategoryIDs []uuid.UUID `json:"category_ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineNote is an append-only narrative entry attached to a contact.
type TimelineNote struct {
	ID        ulid.ULID `json:"id"`
	ContactID uuid.UUID `json:"contact_id"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportLog records the outcome of processing one inbound message or paste.
type ImportLog struct {
	ID           ulid.ULID  `json:"id"`
	Source       string     `json:"source"`
	SourceKey    string     `json:"source_key"`
	ContactID    string     `json:"contact_id,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactName  string     `json:"contact_name,omitempty"`
	Outcome      string     `json:"outcome"`
	Confidence   string     `json:"confidence,omitempty"`
	Unmatched    []string   `json:"unmatched,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	NotifiedAt   *time.Time `json:"notified_at,omitempty"`
}

// Import sources.
const (
	SourceMail          = "mail"
	SourceManual        = "manual"
	SourceClarification = "clarification"
)

// Import outcomes beyond the reconciliation outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeRejected  = "rejected"
	OutcomeSkipped   = "skipped"
)

// HasAddress reports whether any postal field is filled.
func (c *Contact) HasAddress() bool {
	return c.Street != "" || c.City != "" || c.Zip != ""
}

// Failed reports whether the import ended without touching the CRM.
func (l *ImportLog) Failed() bool {
	return l.Outcome == OutcomeRejected
}
