// ABOUTME: Tests for the sqlite CRM backend
// ABOUTME: Exercises create, complement update, notes and category lookups end to end
package crm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/reconcile"
)

func newSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewSQLiteBackend(database)
}

func strp(s string) *string { return &s }

func TestSQLiteBackendReconcileRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	created, err := b.SeedCategories(ctx, []string{"Kunde", "Neuer-KI-Eintrag"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	catalog, err := CatalogFromBackend(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	opts := reconcile.Options{DefaultCategories: []string{"Neuer-KI-Eintrag"}, Now: now}
	record := reconcile.ExtractionRecord{
		FullName:   strp("Anna Keller"),
		Categories: []string{"kunde"},
		Biography:  strp("Getroffen an der Messe"),
		Address:    &reconcile.Address{City: strp("Zug"), Country: strp("Schweiz")},
	}

	res := reconcile.Reconcile(record, "anna@example.ch", nil, catalog, opts)
	require.Equal(t, reconcile.OutcomeCreated, res.Outcome)

	id, err := b.Create(ctx, res.Payload)
	require.NoError(t, err)
	require.NoError(t, b.PostNote(ctx, id, NoteSubject(res.DisplayName), res.TimelineNote))

	existing, err := b.FindByEmail(ctx, "ANNA@example.ch")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, id, existing.ID)
	assert.Equal(t, "Anna Keller", existing.Name)
	assert.Equal(t, "CH", existing.CountryCode)
	assert.Len(t, existing.CategoryIDs, 2)

	names, err := b.CategoryNames(ctx, existing.CategoryIDs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Kunde", "Neuer-KI-Eintrag"}, names)

	// The same record again changes nothing.
	again := reconcile.Reconcile(record, "anna@example.ch", existing, catalog, opts)
	assert.Equal(t, reconcile.OutcomeUnchanged, again.Outcome)

	// New data only fills gaps.
	record.Phones = []string{"+41 41 123 45 67"}
	record.Address.City = strp("Luzern")
	update := reconcile.Reconcile(record, "anna@example.ch", existing, catalog, opts)
	require.Equal(t, reconcile.OutcomeUpdated, update.Outcome)
	require.NoError(t, b.Update(ctx, id, update.Payload))

	reloaded, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "+41 41 123 45 67", reloaded.Phone)
	assert.Equal(t, "Zug", reloaded.City)

	notes, err := db.ListTimelineNotes(b.db, uuid.MustParse(id))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "📝 KI-Biographie: Anna Keller", notes[0].Subject)
	assert.Equal(t, "Getroffen an der Messe", notes[0].Body)
}

func TestSQLiteBackendNotFound(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	c, err := b.FindByEmail(ctx, "nobody@example.ch")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = b.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, c)

	err = b.Update(ctx, uuid.NewString(), reconcile.MergePayload{Phone: strp("041")})
	assert.Error(t, err)
}

func TestSQLiteBackendRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	_, err := b.Create(ctx, reconcile.MergePayload{})
	assert.Error(t, err)

	_, err = b.Create(ctx, reconcile.MergePayload{Name: strp("X"), CategoryIDs: []string{"not-a-uuid"}})
	assert.Error(t, err)

	_, err = b.Get(ctx, "42")
	assert.Error(t, err)

	assert.Equal(t, "", b.Link("42"))
}
