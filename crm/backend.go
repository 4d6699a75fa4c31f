// ABOUTME: CRM backend abstraction used by the contact assistant
// ABOUTME: Defines the Backend interface and builds category snapshots from it
package crm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/harperreed/kontakt/reconcile"
)

// NoteSubjectPrefix starts the subject of every biography timeline note.
const NoteSubjectPrefix = "📝 KI-Biographie: "

// Backend is a CRM that stores contacts, categories and timeline notes.
// Implementations return nil, nil from FindByEmail and Get when nothing matches.
type Backend interface {
	FindByEmail(ctx context.Context, email string) (*reconcile.ExistingContact, error)
	Get(ctx context.Context, id string) (*reconcile.ExistingContact, error)
	Create(ctx context.Context, payload reconcile.MergePayload) (string, error)
	Update(ctx context.Context, id string, payload reconcile.MergePayload) error
	PostNote(ctx context.Context, id, subject, body string) error
	Categories(ctx context.Context) ([]reconcile.CategoryEntry, error)
	CategoryNames(ctx context.Context, ids []string) ([]string, error)
	Link(id string) string
}

// CatalogFromBackend loads every category into a fresh snapshot.
func CatalogFromBackend(ctx context.Context, backend Backend) (*reconcile.CategoryMap, error) {
	entries, err := backend.Categories(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load categories")
	}
	return reconcile.NewCategoryMap(entries), nil
}

// NoteSubject returns the timeline note subject for a contact.
func NoteSubject(name string) string {
	if name == "" {
		name = "Kontakt"
	}
	return NoteSubjectPrefix + name
}
