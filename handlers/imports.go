// ABOUTME: Import MCP tool handlers
// ABOUTME: Implements import_contact_text, preview_contact_text and recent_imports tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/kontakt/assistant"
	"github.com/harperreed/kontakt/db"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Importer runs pasted text through the contact pipeline.
type Importer interface {
	ImportText(ctx context.Context, text string) (*assistant.Report, error)
	PreviewText(ctx context.Context, text string) (*assistant.Preview, error)
}

type ImportHandlers struct {
	importer Importer
	db       *sql.DB
}

func NewImportHandlers(importer Importer, database *sql.DB) *ImportHandlers {
	return &ImportHandlers{importer: importer, db: database}
}

type ContactTextInput struct {
	Text string `json:"text" jsonschema:"Contact text: a signature, a forwarded mail or free notes. #tags become categories"`
}

type ImportOutput struct {
	ContactID    string   `json:"contact_id,omitempty"`
	ContactEmail string   `json:"contact_email"`
	DisplayName  string   `json:"display_name,omitempty"`
	Outcome      string   `json:"outcome"`
	Confidence   string   `json:"confidence,omitempty"`
	Fallback     bool     `json:"fallback"`
	Unmatched    []string `json:"unmatched_categories,omitempty"`
	Fields       []string `json:"changed_fields,omitempty"`
	NotePosted   bool     `json:"note_posted"`
	Notified     bool     `json:"notified"`
}

func (h *ImportHandlers) ImportContactText(ctx context.Context, request *mcp.CallToolRequest, input ContactTextInput) (*mcp.CallToolResult, ImportOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ImportOutput{}, fmt.Errorf("text is required")
	}

	report, err := h.importer.ImportText(ctx, input.Text)
	if err != nil {
		return nil, ImportOutput{}, fmt.Errorf("import failed: %w", err)
	}

	return nil, ImportOutput{
		ContactID:    report.ContactID,
		ContactEmail: report.ContactEmail,
		DisplayName:  report.DisplayName,
		Outcome:      report.Outcome,
		Confidence:   string(report.Confidence),
		Fallback:     report.Fallback,
		Unmatched:    report.Unmatched,
		Fields:       report.Fields,
		NotePosted:   report.NotePosted,
		Notified:     report.Notified,
	}, nil
}

type PreviewOutput struct {
	ContactEmail string   `json:"contact_email"`
	Manual       bool     `json:"manual"`
	ExistingID   string   `json:"existing_id,omitempty"`
	DisplayName  string   `json:"display_name"`
	IsCompany    bool     `json:"is_company"`
	Outcome      string   `json:"outcome"`
	Fields       []string `json:"changed_fields,omitempty"`
	CategoryIDs  []string `json:"category_ids,omitempty"`
	Unmatched    []string `json:"unmatched_categories,omitempty"`
	TimelineNote string   `json:"timeline_note,omitempty"`
	Fallback     bool     `json:"fallback"`
}

func (h *ImportHandlers) PreviewContactText(ctx context.Context, request *mcp.CallToolRequest, input ContactTextInput) (*mcp.CallToolResult, PreviewOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, PreviewOutput{}, fmt.Errorf("text is required")
	}

	preview, err := h.importer.PreviewText(ctx, input.Text)
	if err != nil {
		return nil, PreviewOutput{}, fmt.Errorf("preview failed: %w", err)
	}

	res := preview.Result
	output := PreviewOutput{
		ContactEmail: preview.ContactEmail,
		Manual:       preview.Manual,
		DisplayName:  res.DisplayName,
		IsCompany:    res.IsCompany,
		Outcome:      string(res.Outcome),
		Fields:       res.Payload.Fields(),
		CategoryIDs:  res.CategoryIDs,
		Unmatched:    res.Unmatched,
		TimelineNote: res.TimelineNote,
		Fallback:     preview.Fallback,
	}
	if preview.Existing != nil {
		output.ExistingID = preview.Existing.ID
	}

	return nil, output, nil
}

type RecentImportsInput struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 20)"`
	Outcome string `json:"outcome,omitempty" jsonschema:"Only entries with this outcome: created, updated, unchanged, rejected"`
}

type ImportLogOutput struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	ContactID    string   `json:"contact_id,omitempty"`
	ContactEmail string   `json:"contact_email,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	Outcome      string   `json:"outcome"`
	Confidence   string   `json:"confidence,omitempty"`
	Unmatched    []string `json:"unmatched_categories,omitempty"`
	Error        string   `json:"error,omitempty"`
	CreatedAt    string   `json:"created_at"`
	NotifiedAt   *string  `json:"notified_at,omitempty"`
}

type RecentImportsOutput struct {
	Imports []ImportLogOutput `json:"imports"`
}

func (h *ImportHandlers) RecentImports(_ context.Context, request *mcp.CallToolRequest, input RecentImportsInput) (*mcp.CallToolResult, RecentImportsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	logs, err := db.ListImportLogs(h.db, limit)
	if err != nil {
		return nil, RecentImportsOutput{}, fmt.Errorf("failed to list imports: %w", err)
	}

	result := make([]ImportLogOutput, 0, len(logs))
	for _, entry := range logs {
		if input.Outcome != "" && entry.Outcome != input.Outcome {
			continue
		}
		out := ImportLogOutput{
			ID:           entry.ID.String(),
			Source:       entry.Source,
			ContactID:    entry.ContactID,
			ContactEmail: entry.ContactEmail,
			ContactName:  entry.ContactName,
			Outcome:      entry.Outcome,
			Confidence:   entry.Confidence,
			Unmatched:    entry.Unmatched,
			Error:        entry.Error,
			CreatedAt:    entry.CreatedAt.Format(time.RFC3339),
		}
		if entry.NotifiedAt != nil {
			notified := entry.NotifiedAt.Format(time.RFC3339)
			out.NotifiedAt = &notified
		}
		result = append(result, out)
	}

	return nil, RecentImportsOutput{Imports: result}, nil
}
