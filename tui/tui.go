// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Browses the import log and stored contacts and triggers mailbox polls
package tui

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewMailbox
)

// EntityType represents the list shown in the list view
type EntityType int

const (
	EntityImports EntityType = iota
	EntityContacts
)

// PollFunc runs one mailbox poll and returns a short summary.
type PollFunc func(ctx context.Context) (string, error)

// Model is the main bubbletea model
type Model struct {
	db         *sql.DB
	poll       PollFunc
	viewMode   ViewMode
	entityType EntityType

	// List view state
	imports     []models.ImportLog
	contacts    []models.Contact
	selectedRow int
	searchQuery string
	searching   bool
	search      textinput.Model

	// Detail view state
	selectedID string

	// Mailbox view state
	mailboxes []db.MailboxState
	polling   bool
	activity  []string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model. poll may be nil when no mailbox is
// configured.
func NewModel(database *sql.DB, poll PollFunc) Model {
	search := textinput.New()
	search.Placeholder = "name or email"
	search.CharLimit = 64

	m := Model{
		db:         database,
		poll:       poll,
		viewMode:   ViewList,
		entityType: EntityImports,
		search:     search,
		width:      100,
		height:     24,
	}
	m.loadRows()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case PollCompleteMsg:
		cmd := m.handlePollComplete(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewMailbox:
		return m.renderMailboxView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewMailbox:
		return m.handleMailboxKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
