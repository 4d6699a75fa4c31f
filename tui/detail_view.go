// ABOUTME: Detail view for a single import entry or contact
// ABOUTME: Shows contact fields, category names and the timeline notes
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	noteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)
)

func (m Model) renderDetailView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DETAIL VIEW"))
	s.WriteString("\n\n")

	switch m.entityType {
	case EntityImports:
		s.WriteString(m.renderImportDetail())
	case EntityContacts:
		s.WriteString(m.renderContactDetail())
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Esc: Back • q: Quit"))

	return s.String()
}

func (m Model) renderImportDetail() string {
	var entry *models.ImportLog
	for i := range m.imports {
		if m.imports[i].ID.String() == m.selectedID {
			entry = &m.imports[i]
			break
		}
	}
	if entry == nil {
		return "Import not found"
	}

	var s strings.Builder
	s.WriteString(m.renderField("When", entry.CreatedAt.Format("2006-01-02 15:04:05")))
	s.WriteString(m.renderField("Source", entry.Source))
	s.WriteString(m.renderField("Outcome", entry.Outcome))
	s.WriteString(m.renderField("Contact", entry.ContactName))
	s.WriteString(m.renderField("Email", entry.ContactEmail))
	s.WriteString(m.renderField("CRM ID", entry.ContactID))
	s.WriteString(m.renderField("Confidence", entry.Confidence))
	s.WriteString(m.renderField("Unmatched", strings.Join(entry.Unmatched, ", ")))
	s.WriteString(m.renderField("Error", entry.Error))
	if entry.NotifiedAt != nil {
		s.WriteString(m.renderField("Notified", entry.NotifiedAt.Format("2006-01-02 15:04:05")))
	}

	if id, err := uuid.Parse(entry.ContactID); err == nil {
		if contact, err := db.GetContact(m.db, id); err == nil && contact != nil {
			s.WriteString("\n")
			s.WriteString(m.renderContact(contact))
		}
	}

	return s.String()
}

func (m Model) renderContactDetail() string {
	id, err := uuid.Parse(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: invalid ID: %v", err)
	}

	contact, err := db.GetContact(m.db, id)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if contact == nil {
		return "Contact not found"
	}

	return m.renderContact(contact)
}

func (m Model) renderContact(contact *models.Contact) string {
	var s strings.Builder

	s.WriteString(m.renderField("Name", contact.Name))
	s.WriteString(m.renderField("Email", contact.Email))
	s.WriteString(m.renderField("Phone", contact.Phone))
	s.WriteString(m.renderField("Function", contact.Function))
	if contact.HasAddress() {
		s.WriteString(m.renderField("Address", strings.TrimSpace(
			fmt.Sprintf("%s, %s %s %s", contact.Street, contact.Zip, contact.City, contact.CountryCode))))
	}
	s.WriteString(m.renderField("Website", contact.Website))
	s.WriteString(m.renderField("Language", contact.Lang))
	s.WriteString(m.renderField("Categories", strings.Join(m.categoryNames(contact.CategoryIDs), ", ")))
	s.WriteString(m.renderField("Comment", contact.Comment))

	notes, err := db.ListTimelineNotes(m.db, contact.ID)
	if err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error loading notes: %v", err)))
		return s.String()
	}
	if len(notes) > 0 {
		s.WriteString("\n")
		s.WriteString(fieldLabelStyle.Render("Timeline"))
		s.WriteString("\n")
		for _, note := range notes {
			body := fmt.Sprintf("%s  %s\n%s", note.CreatedAt.Format("2006-01-02"), note.Subject, note.Body)
			s.WriteString(noteStyle.Render(body))
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m Model) categoryNames(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	categories, err := db.ListCategories(m.db)
	if err != nil {
		return nil
	}
	byID := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Name
	}
	var names []string
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (m Model) renderField(label, value string) string {
	if value == "" {
		return ""
	}
	return fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n"
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.selectedID = ""
	}
	return m, nil
}
