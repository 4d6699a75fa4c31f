// ABOUTME: MCP resource handlers for exposing local store data
// ABOUTME: Provides read-only access to contacts, timeline notes, categories and the import log via URI
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ResourceScheme prefixes every resource URI.
const ResourceScheme = "kontakt://"

const resourceLimit = 1000

type ResourceHandlers struct {
	db *sql.DB
}

func NewResourceHandlers(database *sql.DB) *ResourceHandlers {
	return &ResourceHandlers{db: database}
}

// Resources lists the static resources for registration.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: ResourceScheme + "contacts", Name: "contacts", Description: "Contacts in the local store", MIMEType: "application/json"},
		{URI: ResourceScheme + "categories", Name: "categories", Description: "Categories with contact counts", MIMEType: "application/json"},
		{URI: ResourceScheme + "imports", Name: "imports", Description: "Recent import log entries", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, ResourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", ResourceScheme)
	}

	path := strings.TrimPrefix(uri, ResourceScheme)
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "contacts":
		if len(parts) == 1 || parts[1] == "" {
			return h.readAllContacts(uri)
		}
		return h.readContact(uri, parts[1])
	case "categories":
		return h.readCategories(uri)
	case "imports":
		return h.readImports(uri)
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readAllContacts(uri string) (*mcp.ReadResourceResult, error) {
	contacts, err := db.FindContacts(h.db, "", resourceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	return jsonResource(uri, contacts)
}

type contactResource struct {
	models.Contact
	Notes []models.TimelineNote `json:"timeline_notes"`
}

func (h *ResourceHandlers) readContact(uri, idStr string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid contact ID: %w", err)
	}

	contact, err := db.GetContact(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	if contact == nil {
		return nil, fmt.Errorf("contact not found: %s", idStr)
	}

	notes, err := db.ListTimelineNotes(h.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timeline notes: %w", err)
	}

	return jsonResource(uri, contactResource{Contact: *contact, Notes: notes})
}

func (h *ResourceHandlers) readCategories(uri string) (*mcp.ReadResourceResult, error) {
	usage, err := db.GetCategoryUsage(h.db)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	type categoryCount struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Contacts int    `json:"contacts"`
	}
	out := make([]categoryCount, 0, len(usage))
	for _, u := range usage {
		out = append(out, categoryCount{ID: u.Category.ID.String(), Name: u.Category.Name, Contacts: u.Contacts})
	}
	return jsonResource(uri, out)
}

func (h *ResourceHandlers) readImports(uri string) (*mcp.ReadResourceResult, error) {
	logs, err := db.ListImportLogs(h.db, resourceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch imports: %w", err)
	}
	return jsonResource(uri, logs)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
