// ABOUTME: List view with import log and contact tables
// ABOUTME: Handles row selection, tab switching and contact search
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/kontakt/db"
)

const listLimit = 100

func (m Model) renderListView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("KONTAKT"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	} else if m.searchQuery != "" && m.entityType == EntityContacts {
		s.WriteString(helpStyle.Render(fmt.Sprintf("Filter: %q", m.searchQuery)))
		s.WriteString("\n\n")
	}

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderTable())
	s.WriteString("\n\n")

	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Imports", "Contacts"}
	var rendered []string

	for i, tab := range tabs {
		if EntityType(i) == m.entityType {
			rendered = append(rendered, tabActiveStyle.Render(tab))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTable() string {
	var columns []table.Column
	var rows []table.Row

	switch m.entityType {
	case EntityImports:
		columns = []table.Column{
			{Title: "When", Width: 16},
			{Title: "Source", Width: 13},
			{Title: "Outcome", Width: 10},
			{Title: "Contact", Width: 30},
			{Title: "Unmatched", Width: 20},
		}
		for _, entry := range m.imports {
			who := entry.ContactName
			if who == "" {
				who = entry.ContactEmail
			}
			rows = append(rows, table.Row{
				entry.CreatedAt.Format("2006-01-02 15:04"),
				entry.Source,
				entry.Outcome,
				who,
				strings.Join(entry.Unmatched, ", "),
			})
		}
	case EntityContacts:
		columns = []table.Column{
			{Title: "Name", Width: 30},
			{Title: "Email", Width: 30},
			{Title: "Phone", Width: 18},
			{Title: "Kind", Width: 8},
		}
		for _, contact := range m.contacts {
			kind := "Person"
			if contact.IsCompany {
				kind = "Firma"
			}
			rows = append(rows, table.Row{contact.Name, contact.Email, contact.Phone, kind})
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)

	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch list",
		"Enter: Details",
		"/: Search contacts",
		"s: Mailbox",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
	case "tab":
		m.entityType = (m.entityType + 1) % 2
		m.selectedRow = 0
	case "enter":
		if id := m.selectedRowID(); id != "" {
			m.selectedID = id
			m.viewMode = ViewDetail
		}
	case "/":
		m.entityType = EntityContacts
		m.searching = true
		m.search.SetValue(m.searchQuery)
		return m, m.search.Focus()
	case "s":
		m.viewMode = ViewMailbox
		m.loadMailboxes()
	case "r":
		m.loadRows()
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searchQuery = strings.TrimSpace(m.search.Value())
		m.searching = false
		m.search.Blur()
		m.selectedRow = 0
		m.loadRows()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) rowCount() int {
	if m.entityType == EntityImports {
		return len(m.imports)
	}
	return len(m.contacts)
}

func (m Model) selectedRowID() string {
	switch m.entityType {
	case EntityImports:
		if m.selectedRow < len(m.imports) {
			return m.imports[m.selectedRow].ID.String()
		}
	case EntityContacts:
		if m.selectedRow < len(m.contacts) {
			return m.contacts[m.selectedRow].ID.String()
		}
	}
	return ""
}

func (m *Model) loadRows() {
	m.err = nil

	imports, err := db.ListImportLogs(m.db, listLimit)
	if err != nil {
		m.err = err
		return
	}
	m.imports = imports

	contacts, err := db.FindContacts(m.db, m.searchQuery, listLimit)
	if err != nil {
		m.err = err
		return
	}
	m.contacts = contacts
}
