// ABOUTME: TUI view for the watched mailbox
// ABOUTME: Shows the last poll counters and lets the user trigger a poll
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/kontakt/db"
)

const (
	pollTimeout  = 5 * time.Minute
	activityRows = 5
)

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	nameCellStyle = lipgloss.NewStyle().Bold(true).Width(12)
	countStyle    = lipgloss.NewStyle().Width(11).Align(lipgloss.Right)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)

	statusStyles = map[string]lipgloss.Style{
		db.MailboxIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		db.MailboxPolling: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		db.MailboxError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
)

// PollCompleteMsg is sent when a triggered poll finishes.
type PollCompleteMsg struct {
	Summary string
	Error   error
}

func (m Model) renderMailboxView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mailbox"))
	b.WriteString("\n\n")

	if len(m.mailboxes) == 0 {
		b.WriteString(mutedStyle.Render("No poll recorded yet."))
		b.WriteString("\n\n")
	} else {
		header := lipgloss.JoinHorizontal(lipgloss.Top,
			nameCellStyle.Render("Mailbox"),
			countStyle.Render("fetched"),
			countStyle.Render("processed"),
			countStyle.Render("skipped"),
			countStyle.Render("failed"),
		)
		b.WriteString(sectionStyle.Render(header))
		b.WriteString("\n")
		for _, mb := range m.mailboxes {
			b.WriteString(m.renderMailboxRow(mb))
		}
		b.WriteString("\n")
	}

	if len(m.activity) > 0 {
		b.WriteString(sectionStyle.Render("Recent Activity"))
		b.WriteString("\n")
		start := max(0, len(m.activity)-activityRows)
		for _, line := range m.activity[start:] {
			b.WriteString(mutedStyle.Render("  " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	help := "r: Refresh • Esc: Back • q: Quit"
	if m.poll != nil {
		help = "p: Poll now • " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) renderMailboxRow(mb db.MailboxState) string {
	counts := lipgloss.JoinHorizontal(lipgloss.Top,
		nameCellStyle.Render(mb.Mailbox),
		countStyle.Render(fmt.Sprint(mb.Fetched)),
		countStyle.Render(fmt.Sprint(mb.Processed)),
		countStyle.Render(fmt.Sprint(mb.Skipped)),
		countStyle.Render(fmt.Sprint(mb.Failed)),
	)

	status := mb.Status
	if m.polling {
		status = db.MailboxPolling
	}
	line := statusStyles[status].Render("  " + statusLabel(status))
	switch {
	case status == db.MailboxError && mb.Error != "":
		line += statusStyles[status].Render(": " + mb.Error)
	case mb.LastPoll != nil:
		line += mutedStyle.Render(" • last poll " + formatTimeSince(*mb.LastPoll))
	}
	return counts + "\n" + line + "\n"
}

func statusLabel(status string) string {
	switch status {
	case db.MailboxPolling:
		return "⟳ polling"
	case db.MailboxError:
		return "✗ error"
	default:
		return "✓ idle"
	}
}

func (m *Model) loadMailboxes() {
	states, err := db.ListMailboxStates(m.db)
	if err != nil {
		m.err = err
		return
	}
	m.mailboxes = states
}

func (m Model) handleMailboxKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "p":
		switch {
		case m.poll == nil:
			m.logActivity("No mailbox configured")
		case !m.polling:
			m.polling = true
			m.logActivity("Polling mailbox...")
			return m, runPoll(m.poll)
		}
	case "r":
		m.loadMailboxes()
	case "esc":
		m.viewMode = ViewList
	}
	return m, nil
}

func runPoll(poll PollFunc) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()
		summary, err := poll(ctx)
		return PollCompleteMsg{Summary: summary, Error: err}
	}
}

func (m *Model) logActivity(line string) {
	m.activity = append(m.activity, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line))
}

func (m *Model) handlePollComplete(msg PollCompleteMsg) tea.Cmd {
	m.polling = false
	if msg.Error != nil {
		m.logActivity(fmt.Sprintf("✗ poll failed: %v", msg.Error))
	} else {
		m.logActivity("✓ " + msg.Summary)
	}
	m.loadMailboxes()
	m.loadRows()
	return nil
}

// formatTimeSince renders a coarse relative age.
func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	unit := func(n int, name string) string {
		if n == 1 {
			return "1 " + name + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, name)
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return unit(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return unit(int(d.Hours()), "hour")
	default:
		return unit(int(d.Hours()/24), "day")
	}
}
