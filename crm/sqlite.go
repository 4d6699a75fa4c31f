// ABOUTME: Local sqlite CRM backend built on the db package
// ABOUTME: Converts between stored contacts and reconciliation records
package crm

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/reconcile"
)

// SQLiteBackend stores contacts in the local database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend wraps an open database with schema applied.
func NewSQLiteBackend(database *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: database}
}

func (b *SQLiteBackend) FindByEmail(_ context.Context, email string) (*reconcile.ExistingContact, error) {
	contact, err := db.FindContactByEmail(b.db, email)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to look up %s", email)
	}
	if contact == nil {
		return nil, nil
	}
	return toExisting(contact), nil
}

func (b *SQLiteBackend) Get(_ context.Context, id string) (*reconcile.ExistingContact, error) {
	contactID, err := uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid contact id %q", id)
	}
	contact, err := db.GetContact(b.db, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load contact %s", id)
	}
	if contact == nil {
		return nil, nil
	}
	return toExisting(contact), nil
}

func (b *SQLiteBackend) Create(_ context.Context, payload reconcile.MergePayload) (string, error) {
	if payload.Name == nil || strings.TrimSpace(*payload.Name) == "" {
		return "", eris.New("contact name is required")
	}

	contact := &models.Contact{}
	if err := applyPayload(contact, payload); err != nil {
		return "", err
	}
	if err := db.CreateContact(b.db, contact); err != nil {
		return "", eris.Wrap(err, "failed to create contact")
	}
	return contact.ID.String(), nil
}

func (b *SQLiteBackend) Update(_ context.Context, id string, payload reconcile.MergePayload) error {
	if payload.IsEmpty() {
		return nil
	}
	contactID, err := uuid.Parse(id)
	if err != nil {
		return eris.Wrapf(err, "invalid contact id %q", id)
	}
	contact, err := db.GetContact(b.db, contactID)
	if err != nil {
		return eris.Wrapf(err, "failed to load contact %s", id)
	}
	if contact == nil {
		return eris.Errorf("contact %s not found", id)
	}

	if err := applyPayload(contact, payload); err != nil {
		return err
	}
	if err := db.UpdateContact(b.db, contact); err != nil {
		return eris.Wrapf(err, "failed to update contact %s", id)
	}
	return nil
}

func (b *SQLiteBackend) PostNote(_ context.Context, id, subject, body string) error {
	contactID, err := uuid.Parse(id)
	if err != nil {
		return eris.Wrapf(err, "invalid contact id %q", id)
	}
	note := &models.TimelineNote{
		ContactID: contactID,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := db.CreateTimelineNote(b.db, note); err != nil {
		return eris.Wrapf(err, "failed to post note for %s", id)
	}
	return nil
}

func (b *SQLiteBackend) Categories(_ context.Context) ([]reconcile.CategoryEntry, error) {
	categories, err := db.ListCategories(b.db)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list categories")
	}
	entries := make([]reconcile.CategoryEntry, 0, len(categories))
	for _, c := range categories {
		entries = append(entries, reconcile.CategoryEntry{ID: c.ID.String(), Name: c.Name})
	}
	return entries, nil
}

func (b *SQLiteBackend) CategoryNames(ctx context.Context, ids []string) ([]string, error) {
	entries, err := b.Categories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(entries))
	for _, e := range entries {
		byID[e.ID] = e.Name
	}

	var names []string
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Link returns "" because the local store has no web view.
func (b *SQLiteBackend) Link(string) string {
	return ""
}

// SeedCategories makes sure every named category exists.
func (b *SQLiteBackend) SeedCategories(_ context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		existing, err := db.GetCategoryByName(b.db, name)
		if err != nil {
			return created, eris.Wrapf(err, "failed to look up category %s", name)
		}
		if existing != nil {
			continue
		}
		if _, err := db.EnsureCategory(b.db, name); err != nil {
			return created, eris.Wrapf(err, "failed to create category %s", name)
		}
		created++
	}
	return created, nil
}

func toExisting(c *models.Contact) *reconcile.ExistingContact {
	ids := make([]string, 0, len(c.CategoryIDs))
	for _, id := range c.CategoryIDs {
		ids = append(ids, id.String())
	}
	return &reconcile.ExistingContact{
		ID:          c.ID.String(),
		Name:        c.Name,
		Email:       c.Email,
		Phone:       c.Phone,
		Street:      c.Street,
		Street2:     c.Street2,
		City:        c.City,
		Zip:         c.Zip,
		State:       c.State,
		CountryCode: c.CountryCode,
		Website:     c.Website,
		Function:    c.Function,
		Lang:        c.Lang,
		Comment:     c.Comment,
		CategoryIDs: ids,
		IsCompany:   c.IsCompany,
	}
}

func applyPayload(c *models.Contact, p reconcile.MergePayload) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Email, p.Email)
	set(&c.Lang, p.Lang)
	set(&c.Comment, p.Comment)
	set(&c.Street, p.Street)
	set(&c.Street2, p.Street2)
	set(&c.City, p.City)
	set(&c.Zip, p.Zip)
	set(&c.State, p.State)
	set(&c.CountryCode, p.CountryCode)
	set(&c.Phone, p.Phone)
	set(&c.Website, p.Website)
	set(&c.Function, p.Function)
	if p.IsCompany != nil {
		c.IsCompany = *p.IsCompany
	}

	if p.CategoryIDs != nil {
		ids := make([]uuid.UUID, 0, len(p.CategoryIDs))
		for _, raw := range p.CategoryIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return eris.Wrapf(err, "invalid category id %q", raw)
			}
			ids = append(ids, id)
		}
		c.CategoryIDs = ids
	}
	return nil
}
