// ABOUTME: Test fixtures for the assistant package
// ABOUTME: Wires a real sqlite CRM and badger store to fake extractor, mailbox and sender
package assistant

import (
	"context"
	"database/sql"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/extract"
	"github.com/harperreed/kontakt/notify"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/harperreed/kontakt/store"
	"github.com/harperreed/kontakt/sync"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func strp(s string) *string { return &s }

type fakeExtractor struct {
	record reconcile.ExtractionRecord
	err    error
	inputs []extract.Input
}

func (f *fakeExtractor) Extract(_ context.Context, in extract.Input) (extract.Output, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return extract.Output{}, f.err
	}
	return extract.Output{Record: f.record}, nil
}

type fakeMailbox struct {
	mu       stdsync.Mutex
	messages []*sync.Message
	read     []string
	onUnread func()
	err      error
}

func (f *fakeMailbox) Unread(context.Context) ([]*sync.Message, error) {
	if f.onUnread != nil {
		f.onUnread()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.messages, nil
}

func (f *fakeMailbox) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, id)
	return nil
}

type mail struct {
	To, Subject, Body string
}

type recordingSender struct {
	sent []mail
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.sent = append(r.sent, mail{to, subject, body})
	return nil
}

type fixture struct {
	assistant *Assistant
	backend   *crm.SQLiteBackend
	db        *sql.DB
	extractor *fakeExtractor
	mailbox   *fakeMailbox
	sender    *recordingSender
	seen      *store.Processed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "kontakt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	backend := crm.NewSQLiteBackend(database)
	_, err = backend.SeedCategories(ctx, []string{"Kunde", "EDV", "Neuer-KI-Eintrag"})
	require.NoError(t, err)

	seen, err := store.OpenInMemory(store.DefaultRetention)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seen.Close() })

	f := &fixture{
		backend:   backend,
		db:        database,
		extractor: &fakeExtractor{},
		mailbox:   &fakeMailbox{},
		sender:    &recordingSender{},
		seen:      seen,
	}

	f.assistant = New(Deps{
		Backend:   backend,
		Extractor: f.extractor,
		Mailbox:   f.mailbox,
		Notifier:  notify.NewNotifier(f.sender, nil, nil, nil),
		Seen:      seen,
		DB:        database,
	}, Options{
		AdminEmail:        "admin@example.org",
		MailboxTokens:     []string{"ki-adress-admin"},
		Exclusions:        reconcile.DefaultExclusions(),
		DefaultCategories: []string{"Neuer-KI-Eintrag"},
		AskSender:         true,
		SendConfirmation:  true,
		CheckInterval:     10 * time.Millisecond,
		ReloadEvery:       1,
		Now:               func() time.Time { return fixedNow },
	})
	require.NoError(t, f.assistant.ReloadCategories(ctx))
	return f
}

func forwardedMail(id string) *sync.Message {
	return &sync.Message{
		ID:        id,
		MessageID: "<" + id + "@example.ch>",
		From:      "Boss <boss@example.ch>",
		Subject:   "WG: Anfrage",
		Body: "Kennengelernt an der Messe in Basel #kunde\n\n" +
			"-------- Weitergeleitete Nachricht --------\n" +
			"Von: Hans Muster <hans@muster.ch>\n" +
			"Betreff: Anfrage\n\n" +
			"Grüsse\nHans",
	}
}
