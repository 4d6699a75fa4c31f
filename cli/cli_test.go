// ABOUTME: Tests for CLI commands
// ABOUTME: Runs local commands against a temporary store and checks their output
package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/assistant"
	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/store"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "kontakt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	out := &bytes.Buffer{}
	return &App{Config: config.Default(), DB: database, Log: zap.NewNop(), Out: out}, out
}

func seedContact(t *testing.T, app *App) *models.Contact {
	t.Helper()
	kunde, err := db.EnsureCategory(app.DB, "Kunde")
	require.NoError(t, err)

	contact := &models.Contact{
		Name:        "Anna Keller",
		Email:       "anna@keller.ch",
		City:        "Zug",
		Zip:         "6300",
		CategoryIDs: []uuid.UUID{kunde.ID},
	}
	require.NoError(t, db.CreateContact(app.DB, contact))
	return contact
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "contact.txt")
	require.NoError(t, os.WriteFile(file, []byte("Anna Keller anna@keller.ch"), 0644))

	tests := []struct {
		name     string
		file     string
		args     []string
		stdin    string
		terminal bool
		expected string
		wantErr  bool
	}{
		{"file wins", file, []string{"ignored"}, "ignored", false, "Anna Keller anna@keller.ch", false},
		{"args joined", "", []string{"Anna", "Keller"}, "", true, "Anna Keller", false},
		{"piped stdin", "", nil, "from pipe", false, "from pipe", false},
		{"terminal stdin is ignored", "", nil, "typed", true, "", true},
		{"blank text", "", []string{"  "}, "", true, "", true},
		{"missing file", filepath.Join(dir, "nope.txt"), nil, "", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(tt.file, tt.args, strings.NewReader(tt.stdin), tt.terminal)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPollSummary(t *testing.T) {
	got := PollSummary(assistant.PollStats{Fetched: 3, Processed: 1, Skipped: 1, Failed: 1})
	assert.Equal(t, "3 fetched, 1 processed, 1 skipped, 1 failed", got)
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   crm.Status
		expected string
	}{
		{"available", crm.Status{Available: true, ResponseTime: 120 * time.Millisecond}, "✓ reachable (120 ms)"},
		{"maintenance window", crm.Status{Maintenance: true, Window: "02:00-04:00", Message: "Wartung"}, "⚠️  maintenance 02:00-04:00: Wartung"},
		{"maintenance", crm.Status{Maintenance: true, Message: "HTTP 503"}, "⚠️  maintenance: HTTP 503"},
		{"down", crm.Status{Message: "connection refused"}, "✗ unavailable: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatStatus(tt.status); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGraphFormat(t *testing.T) {
	f, err := graphFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, graphviz.SVG, f)

	f, err = graphFormat("")
	require.NoError(t, err)
	assert.Equal(t, graphviz.XDOT, f)

	_, err = graphFormat("png")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Kunde", "EDV"}, splitList(" Kunde, ,EDV "))
	assert.Nil(t, splitList(""))
}

func TestContactsCommand(t *testing.T) {
	app, out := newTestApp(t)
	seedContact(t, app)

	require.NoError(t, ContactsCommand(context.Background(), app, []string{"--query", "anna"}))
	assert.Contains(t, out.String(), "Anna Keller")
	assert.Contains(t, out.String(), "Found 1 contact(s)")

	out.Reset()
	require.NoError(t, ContactsCommand(context.Background(), app, []string{"--query", "nobody"}))
	assert.Contains(t, out.String(), "No contacts found")
}

func TestContactCommand(t *testing.T) {
	app, out := newTestApp(t)
	seedContact(t, app)

	require.NoError(t, ContactCommand(context.Background(), app, []string{"anna@keller.ch"}))
	assert.Contains(t, out.String(), "Anna Keller")
	assert.Contains(t, out.String(), "6300 Zug")
	assert.Contains(t, out.String(), "Kunde")

	out.Reset()
	require.NoError(t, ContactCommand(context.Background(), app, []string{"ghost@example.com"}))
	assert.Contains(t, out.String(), "No contact with email ghost@example.com")

	assert.Error(t, ContactCommand(context.Background(), app, nil))
}

func TestNotesCommand(t *testing.T) {
	app, out := newTestApp(t)
	contact := seedContact(t, app)

	require.NoError(t, NotesCommand(context.Background(), app, []string{"anna@keller.ch"}))
	assert.Contains(t, out.String(), "No timeline notes for Anna Keller")

	require.NoError(t, db.CreateTimelineNote(app.DB, &models.TimelineNote{
		ContactID: contact.ID,
		Subject:   crm.NoteSubject("Anna Keller"),
		Body:      "Kennengelernt an der Messe.",
	}))

	out.Reset()
	require.NoError(t, NotesCommand(context.Background(), app, []string{"anna@keller.ch"}))
	assert.Contains(t, out.String(), "KI-Biographie: Anna Keller")
	assert.Contains(t, out.String(), "Kennengelernt an der Messe.")

	assert.Error(t, NotesCommand(context.Background(), app, []string{"ghost@example.com"}))
}

func TestCategoriesCommand(t *testing.T) {
	app, out := newTestApp(t)

	require.NoError(t, CategoriesCommand(context.Background(), app, []string{"--seed", "Kunde, EDV"}))
	assert.Contains(t, out.String(), "Added 2 categories")

	out.Reset()
	require.NoError(t, CategoriesCommand(context.Background(), app, []string{"--seed", "kunde"}))
	assert.Contains(t, out.String(), "Added 0 categories")

	out.Reset()
	require.NoError(t, CategoriesCommand(context.Background(), app, nil))
	listing := out.String()
	assert.Contains(t, listing, "2 categories")
	assert.Less(t, strings.Index(listing, "EDV"), strings.Index(listing, "Kunde"))
}

func TestCategoriesSeedRequiresSQLite(t *testing.T) {
	app, _ := newTestApp(t)
	app.Config.CRM.Backend = "odoo"
	app.Config.CRM.Odoo.URL = "http://127.0.0.1:1"

	err := CategoriesCommand(context.Background(), app, []string{"--seed", "Kunde"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite backend")
}

func TestStatusCommand(t *testing.T) {
	app, out := newTestApp(t)

	require.NoError(t, StatusCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "never polled")
	assert.Contains(t, out.String(), "CRM: sqlite")

	require.NoError(t, db.RecordPoll(app.DB, assistant.MailboxService, db.PollResult{Fetched: 2, Processed: 1, Skipped: 1}))
	require.NoError(t, db.CreateImportLog(app.DB, &models.ImportLog{
		Source:    models.SourceManual,
		SourceKey: "manual-1",
		Outcome:   models.OutcomeCreated,
	}))

	out.Reset()
	require.NoError(t, StatusCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "mailbox: idle")
	assert.Contains(t, out.String(), "2 fetched, 1 processed, 1 skipped, 0 failed")
	assert.Contains(t, out.String(), "created")
}

func TestVizCommands(t *testing.T) {
	app, out := newTestApp(t)
	seedContact(t, app)

	require.NoError(t, VizDashboardCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "KONTAKT DASHBOARD")

	target := filepath.Join(t.TempDir(), "categories.dot")
	require.NoError(t, VizCategoriesCommand(context.Background(), app, []string{"--output", target}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Kunde")
}

func TestOpenAppWithoutValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "crm:\n  backend: sqlite\n  sqlite_path: " + filepath.Join(dir, "kontakt.db") + "\nlogging:\n  level: error\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	app, err := OpenApp(path, false)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	_, ok := app.Backend().(*crm.SQLiteBackend)
	assert.True(t, ok)

	_, err = OpenApp(path, true)
	assert.Error(t, err)
}

func TestRequeueCommand(t *testing.T) {
	app, out := newTestApp(t)
	app.Config.Assistant.StorePath = filepath.Join(t.TempDir(), "processed")

	const kept, manual, rejected = "aaaa", "bbbb", "cccc"
	processed, err := store.Open(app.Config.Assistant.StorePath, time.Hour)
	require.NoError(t, err)
	for _, key := range []string{kept, manual, rejected} {
		require.NoError(t, processed.Mark(key, time.Now()))
	}
	require.NoError(t, processed.Close())

	require.NoError(t, db.CreateImportLog(app.DB, &models.ImportLog{
		Source:    models.SourceMail,
		SourceKey: rejected,
		Outcome:   models.OutcomeRejected,
	}))
	require.NoError(t, db.CreateImportLog(app.DB, &models.ImportLog{
		Source:    models.SourceMail,
		SourceKey: kept,
		Outcome:   models.OutcomeCreated,
	}))

	require.NoError(t, RequeueCommand(context.Background(), app, []string{"--failed", manual, "dddd"}))
	assert.Contains(t, out.String(), "→ dddd was not marked")
	assert.Contains(t, out.String(), "2 message(s) requeued")

	processed, err = store.Open(app.Config.Assistant.StorePath, time.Hour)
	require.NoError(t, err)
	defer func() { _ = processed.Close() }()

	for key, want := range map[string]bool{kept: true, manual: false, rejected: false} {
		seen, err := processed.Seen(key)
		require.NoError(t, err)
		assert.Equal(t, want, seen, key)
	}
}

func TestRequeueCommandNeedsKeys(t *testing.T) {
	app, _ := newTestApp(t)
	assert.Error(t, RequeueCommand(context.Background(), app, nil))
}
