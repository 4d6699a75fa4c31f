// ABOUTME: Full reconciliation pipeline for one extraction record
// ABOUTME: Runs normalize, category and identity resolution, then merge
package reconcile

import "time"

// Outcome is the terminal state of a reconciled record.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// Options configures a reconciliation run.
type Options struct {
	Exclusions        Exclusions
	DefaultCategories []string
	Now               time.Time
}

// Result is everything the caller needs to write a record and report on it.
type Result struct {
	Contact      NormalizedContact
	DisplayName  string
	IsCompany    bool
	CategoryIDs  []string
	Unmatched    []string
	Payload      MergePayload
	Outcome      Outcome
	TimelineNote string
}

// Reconcile runs the pipeline for record against the existing CRM contact,
// which may be nil. It performs no I/O and is safe to repeat.
func Reconcile(record ExtractionRecord, senderEmail string, existing *ExistingContact, catalog *CategoryMap, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	contact := Normalize(record, senderEmail, opts.Exclusions)
	categoryIDs, unmatched := ResolveCategories(contact.Categories, catalog, opts.DefaultCategories)
	name, isCompany := ResolveIdentity(contact, senderEmail)
	payload, isCreate, note := Merge(existing, contact, categoryIDs, name, isCompany, now)

	outcome := OutcomeUnchanged
	switch {
	case isCreate:
		outcome = OutcomeCreated
	case !payload.IsEmpty():
		outcome = OutcomeUpdated
	}

	return Result{
		Contact:      contact,
		DisplayName:  name,
		IsCompany:    isCompany,
		CategoryIDs:  categoryIDs,
		Unmatched:    unmatched,
		Payload:      payload,
		Outcome:      outcome,
		TimelineNote: note,
	}
}
