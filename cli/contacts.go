// ABOUTME: Contact and category CLI commands
// ABOUTME: Lists local contacts, looks up CRM contacts and manages categories
package cli

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
)

// ContactsCommand lists contacts from the local store.
func ContactsCommand(_ context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	query := fs.String("query", "", "Search by name or email")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	contacts, err := db.FindContacts(app.DB, *query, *limit)
	if err != nil {
		return fmt.Errorf("failed to find contacts: %w", err)
	}

	if len(contacts) == 0 {
		fmt.Fprintln(app.Out, "No contacts found")
		return nil
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCITY\tKIND")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t----\t----")
	for _, c := range contacts {
		kind := "person"
		if c.IsCompany {
			kind = "company"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID.String()[:8], c.Name, c.Email, c.City, kind)
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\nFound %d contact(s)\n", len(contacts))
	return nil
}

// ContactCommand shows one CRM contact by email through the configured backend.
func ContactCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("contact", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: kontakt contact <email>")
	}
	email := fs.Arg(0)

	backend := app.Backend()
	contact, err := backend.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", email, err)
	}
	if contact == nil {
		fmt.Fprintf(app.Out, "No contact with email %s\n", email)
		return nil
	}

	names, err := backend.CategoryNames(ctx, contact.CategoryIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve categories: %w", err)
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(w, "%s:\t%s\n", label, value)
		}
	}
	row("ID", contact.ID)
	row("Name", contact.Name)
	row("Email", contact.Email)
	row("Phone", contact.Phone)
	row("Function", contact.Function)
	row("Street", contact.Street)
	row("City", strings.TrimSpace(contact.Zip+" "+contact.City))
	row("Country", contact.CountryCode)
	row("Website", contact.Website)
	row("Language", contact.Lang)
	row("Categories", strings.Join(names, ", "))
	row("Link", backend.Link(contact.ID))
	_ = w.Flush()

	if contact.Comment != "" {
		fmt.Fprintf(app.Out, "\n%s\n", contact.Comment)
	}
	return nil
}

// NotesCommand prints the timeline notes of a local contact.
func NotesCommand(_ context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("notes", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: kontakt notes <email>")
	}

	contact, err := db.FindContactByEmail(app.DB, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to look up contact: %w", err)
	}
	if contact == nil {
		return fmt.Errorf("no local contact with email %s", fs.Arg(0))
	}

	notes, err := db.ListTimelineNotes(app.DB, contact.ID)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	if len(notes) == 0 {
		fmt.Fprintf(app.Out, "No timeline notes for %s\n", contact.Name)
		return nil
	}

	for _, n := range notes {
		fmt.Fprintf(app.Out, "%s  %s\n%s\n\n", n.CreatedAt.Format("2006-01-02 15:04"), n.Subject, n.Body)
	}
	return nil
}

// CategoriesCommand lists CRM categories, or seeds the local catalog.
func CategoriesCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	seed := fs.String("seed", "", "Comma-separated category names to add (sqlite backend only)")
	_ = fs.Parse(args)

	backend := app.Backend()

	if *seed != "" {
		local, ok := backend.(*crm.SQLiteBackend)
		if !ok {
			return fmt.Errorf("--seed only works with the sqlite backend; manage Odoo tags in Odoo")
		}
		added, err := local.SeedCategories(ctx, splitList(*seed))
		if err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		fmt.Fprintf(app.Out, "✓ Added %d categories\n", added)
		return nil
	}

	entries, err := backend.Categories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", e.ID, e.Name)
	}
	_ = w.Flush()

	fmt.Fprintf(app.Out, "\n%d categories\n", len(entries))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
