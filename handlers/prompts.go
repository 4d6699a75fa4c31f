// ABOUTME: MCP prompt handlers for reusable contact workflow templates
// ABOUTME: Provides contact-summary and categorize-unmatched prompts
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	db *sql.DB
}

func NewPromptHandlers(database *sql.DB) *PromptHandlers {
	return &PromptHandlers{db: database}
}

// Prompts lists the prompt templates for registration.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a stored contact with its timeline notes",
			Arguments: []*mcp.PromptArgument{
				{Name: "contact_id", Description: "Contact UUID", Required: true},
			},
		},
		{
			Name:        "categorize-unmatched",
			Description: "Map category labels the extractor suggested to existing categories",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "contact-summary":
		return h.getContactSummaryPrompt(arguments)
	case "categorize-unmatched":
		return h.getCategorizeUnmatchedPrompt()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getContactSummaryPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	contactIDStr, ok := args["contact_id"]
	if !ok {
		return nil, fmt.Errorf("contact_id is required")
	}

	contactID, err := uuid.Parse(contactIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid contact_id: %w", err)
	}

	contact, err := db.GetContact(h.db, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	if contact == nil {
		return nil, fmt.Errorf("contact not found: %s", contactIDStr)
	}

	notes, err := db.ListTimelineNotes(h.db, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timeline notes: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Please provide a short summary of this contact:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", contact.Name))
	if contact.IsCompany {
		promptText.WriteString("Type: company\n")
	}
	if contact.Email != "" {
		promptText.WriteString(fmt.Sprintf("Email: %s\n", contact.Email))
	}
	if contact.Phone != "" {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", contact.Phone))
	}
	if contact.Function != "" {
		promptText.WriteString(fmt.Sprintf("Function: %s\n", contact.Function))
	}
	if contact.City != "" {
		promptText.WriteString(fmt.Sprintf("City: %s\n", contact.City))
	}
	if contact.Comment != "" {
		promptText.WriteString(fmt.Sprintf("\nComment:\n%s\n", contact.Comment))
	}
	if len(notes) > 0 {
		promptText.WriteString("\nTimeline:\n")
		for _, note := range notes {
			promptText.WriteString(fmt.Sprintf("- %s: %s\n", note.CreatedAt.Format("2006-01-02"), note.Body))
		}
	}

	promptText.WriteString("\nPlease describe who this is, how we know them and which data is still missing.")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Summary for contact: %s", contact.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getCategorizeUnmatchedPrompt() (*mcp.GetPromptResult, error) {
	logs, err := db.ListImportLogs(h.db, resourceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch imports: %w", err)
	}

	counts := make(map[string]int)
	for _, entry := range logs {
		for _, label := range entry.Unmatched {
			counts[strings.ToLower(label)]++
		}
	}

	categories, err := db.ListCategories(h.db)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	var promptText strings.Builder
	if len(labels) == 0 {
		promptText.WriteString("No unknown category labels were suggested in recent imports.\n")
	} else {
		promptText.WriteString("These category labels were suggested for contacts but do not exist in the CRM:\n\n")
		for _, label := range labels {
			promptText.WriteString(fmt.Sprintf("- %s (%dx)", label, counts[label]))
			if similar := reconcile.SuggestSimilar(label, names, 3); len(similar) > 0 {
				promptText.WriteString(fmt.Sprintf(" similar: %s", strings.Join(similar, ", ")))
			}
			promptText.WriteString("\n")
		}
	}

	promptText.WriteString(fmt.Sprintf("\nExisting categories: %s\n", strings.Join(names, ", ")))
	promptText.WriteString("\nFor each label, suggest an existing category or whether a new one should be created.")

	return &mcp.GetPromptResult{
		Description: "Map unknown category labels",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
