// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Summarizes stored contacts, top categories and recent import outcomes
package viz

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
)

type DashboardStats struct {
	// Store overview
	TotalContacts  int
	TotalCompanies int
	TotalNotes     int

	// Import outcomes across the whole log
	ImportsByOutcome map[string]int

	TopCategories []db.CategoryUsage

	// Recent imports, newest first
	RecentImports []models.ImportLog

	// Categories the extractor suggested but the catalog lacks
	UnmatchedLabels map[string]int
}

const (
	topCategoryLimit  = 8
	recentImportLimit = 5
	dashboardScanSize = 10000
)

func GenerateDashboardStats(database *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{UnmatchedLabels: make(map[string]int)}

	contacts, err := db.FindContacts(database, "", dashboardScanSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	stats.TotalContacts = len(contacts)
	for _, c := range contacts {
		if c.IsCompany {
			stats.TotalCompanies++
		}
	}

	stats.TotalNotes, err = db.CountTimelineNotes(database)
	if err != nil {
		return nil, fmt.Errorf("failed to count notes: %w", err)
	}

	stats.ImportsByOutcome, err = db.GetImportStats(database)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch import stats: %w", err)
	}

	usage, err := db.GetCategoryUsage(database)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category usage: %w", err)
	}
	for _, u := range usage {
		if u.Contacts == 0 || len(stats.TopCategories) == topCategoryLimit {
			break
		}
		stats.TopCategories = append(stats.TopCategories, u)
	}

	logs, err := db.ListImportLogs(database, dashboardScanSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch imports: %w", err)
	}
	for i, entry := range logs {
		if i < recentImportLimit {
			stats.RecentImports = append(stats.RecentImports, entry)
		}
		for _, label := range entry.Unmatched {
			stats.UnmatchedLabels[strings.ToLower(label)]++
		}
	}

	return stats, nil
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  KONTAKT DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  🏢 %d companies  📝 %d notes\n\n",
		stats.TotalContacts, stats.TotalCompanies, stats.TotalNotes))

	out.WriteString("IMPORTS\n")
	renderOutcomes(&out, stats.ImportsByOutcome)
	out.WriteString("\n")

	if len(stats.TopCategories) > 0 {
		out.WriteString("TOP CATEGORIES\n")
		renderCategories(&out, stats.TopCategories)
		out.WriteString("\n")
	}

	if len(stats.RecentImports) > 0 {
		out.WriteString("RECENT\n")
		for _, entry := range stats.RecentImports {
			who := entry.ContactName
			if who == "" {
				who = entry.ContactEmail
			}
			if who == "" {
				who = "-"
			}
			out.WriteString(fmt.Sprintf("  %s  %-9s %s\n",
				entry.CreatedAt.Format("2006-01-02 15:04"), entry.Outcome, who))
		}
		out.WriteString("\n")
	}

	rejected := stats.ImportsByOutcome[models.OutcomeRejected]
	if len(stats.UnmatchedLabels) > 0 || rejected > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if len(stats.UnmatchedLabels) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d unknown category labels suggested\n", len(stats.UnmatchedLabels)))
		}
		if rejected > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d rejected imports\n", rejected))
		}
	}

	return out.String()
}

func renderOutcomes(out *strings.Builder, outcomes map[string]int) {
	order := []string{
		models.OutcomeCreated,
		models.OutcomeUpdated,
		models.OutcomeUnchanged,
		models.OutcomeRejected,
	}

	maxCount := 0
	for _, n := range outcomes {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		out.WriteString("  no imports yet\n")
		return
	}

	for _, outcome := range order {
		n, ok := outcomes[outcome]
		if !ok {
			continue
		}
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-10s %s  %3d\n", outcome, bar, n))
	}
}

func renderCategories(out *strings.Builder, usage []db.CategoryUsage) {
	maxCount := usage[0].Contacts
	for _, u := range usage {
		barLength := (u.Contacts * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-20s %s  %3d\n", u.Category.Name, bar, u.Contacts))
	}
}
