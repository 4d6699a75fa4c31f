// ABOUTME: Tests for the category graph and the terminal dashboard
// ABOUTME: Seeds a temporary store with contacts, categories and import rows
package viz

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
)

func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "viz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	kunde, err := db.EnsureCategory(database, "Kunde")
	require.NoError(t, err)
	edv, err := db.EnsureCategory(database, "EDV")
	require.NoError(t, err)
	_, err = db.EnsureCategory(database, "Golf")
	require.NoError(t, err)

	contacts := []*models.Contact{
		{Name: "Anna Keller", Email: "anna@keller.ch", CategoryIDs: []uuid.UUID{kunde.ID, edv.ID}},
		{Name: "Keller GmbH", Email: "info@keller.ch", IsCompany: true, CategoryIDs: []uuid.UUID{kunde.ID}},
	}
	for _, c := range contacts {
		require.NoError(t, db.CreateContact(database, c))
	}

	require.NoError(t, db.CreateTimelineNote(database, &models.TimelineNote{
		ContactID: contacts[0].ID, Subject: "📝 KI-Biographie: Anna Keller", Body: "Messe",
	}))

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	logs := []*models.ImportLog{
		{ID: ulid.Make(), Source: models.SourceMail, SourceKey: "a", ContactName: "Anna Keller", Outcome: models.OutcomeCreated, Unmatched: []string{"golfclub"}, CreatedAt: now},
		{ID: ulid.Make(), Source: models.SourceMail, SourceKey: "b", Outcome: models.OutcomeRejected, CreatedAt: now.Add(time.Minute)},
	}
	for _, l := range logs {
		require.NoError(t, db.CreateImportLog(database, l))
	}
	return database
}

func TestGenerateDashboardStats(t *testing.T) {
	database := seededDB(t)

	stats, err := GenerateDashboardStats(database)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalContacts)
	assert.Equal(t, 1, stats.TotalCompanies)
	assert.Equal(t, 1, stats.TotalNotes)
	assert.Equal(t, 1, stats.ImportsByOutcome[models.OutcomeCreated])
	assert.Equal(t, 1, stats.ImportsByOutcome[models.OutcomeRejected])
	require.Len(t, stats.TopCategories, 2)
	assert.Equal(t, "Kunde", stats.TopCategories[0].Category.Name)
	assert.Equal(t, 2, stats.TopCategories[0].Contacts)
	assert.Equal(t, map[string]int{"golfclub": 1}, stats.UnmatchedLabels)
	assert.Len(t, stats.RecentImports, 2)
}

func TestRenderDashboard(t *testing.T) {
	stats, err := GenerateDashboardStats(seededDB(t))
	require.NoError(t, err)

	out := RenderDashboard(stats)
	for _, want := range []string{
		"KONTAKT DASHBOARD",
		"📇 2 contacts  🏢 1 companies  📝 1 notes",
		"TOP CATEGORIES",
		"Kunde",
		"Anna Keller",
		"1 unknown category labels suggested",
		"1 rejected imports",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDashboardEmpty(t *testing.T) {
	out := RenderDashboard(&DashboardStats{})
	assert.Contains(t, out, "no imports yet")
	assert.NotContains(t, out, "NEEDS ATTENTION")
}

func TestGenerateCategoryGraph(t *testing.T) {
	generator := NewGraphGenerator(seededDB(t))

	dot, err := generator.GenerateCategoryGraph(graphviz.XDOT)
	require.NoError(t, err)

	assert.Contains(t, dot, "Kunde")
	assert.Contains(t, dot, "EDV")
	assert.Contains(t, dot, "Golf")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(dot), "graph"), "expected undirected graph")
}
