// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements find_contact and list_categories against the configured CRM backend
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/kontakt/crm"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ContactHandlers struct {
	backend crm.Backend
}

func NewContactHandlers(backend crm.Backend) *ContactHandlers {
	return &ContactHandlers{backend: backend}
}

type FindContactInput struct {
	Email string `json:"email" jsonschema:"Email address of the contact (case-insensitive)"`
}

type ContactOutput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Street      string   `json:"street,omitempty"`
	Zip         string   `json:"zip,omitempty"`
	City        string   `json:"city,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	Website     string   `json:"website,omitempty"`
	Function    string   `json:"function,omitempty"`
	Lang        string   `json:"lang,omitempty"`
	IsCompany   bool     `json:"is_company"`
	Comment     string   `json:"comment,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Link        string   `json:"link,omitempty"`
}

type FindContactOutput struct {
	Found   bool           `json:"found"`
	Contact *ContactOutput `json:"contact,omitempty"`
}

func (h *ContactHandlers) FindContact(ctx context.Context, request *mcp.CallToolRequest, input FindContactInput) (*mcp.CallToolResult, FindContactOutput, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, FindContactOutput{}, fmt.Errorf("email is required")
	}

	contact, err := h.backend.FindByEmail(ctx, email)
	if err != nil {
		return nil, FindContactOutput{}, fmt.Errorf("failed to look up contact: %w", err)
	}
	if contact == nil {
		return nil, FindContactOutput{Found: false}, nil
	}

	names, err := h.backend.CategoryNames(ctx, contact.CategoryIDs)
	if err != nil {
		return nil, FindContactOutput{}, fmt.Errorf("failed to resolve categories: %w", err)
	}

	return nil, FindContactOutput{
		Found: true,
		Contact: &ContactOutput{
			ID:          contact.ID,
			Name:        contact.Name,
			Email:       contact.Email,
			Phone:       contact.Phone,
			Street:      contact.Street,
			Zip:         contact.Zip,
			City:        contact.City,
			CountryCode: contact.CountryCode,
			Website:     contact.Website,
			Function:    contact.Function,
			Lang:        contact.Lang,
			IsCompany:   contact.IsCompany,
			Comment:     contact.Comment,
			Categories:  names,
			Link:        h.backend.Link(contact.ID),
		},
	}, nil
}

type ListCategoriesInput struct {
	Query string `json:"query,omitempty" jsonschema:"Only categories whose name contains this text"`
}

type CategoryOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListCategoriesOutput struct {
	Categories []CategoryOutput `json:"categories"`
}

func (h *ContactHandlers) ListCategories(ctx context.Context, request *mcp.CallToolRequest, input ListCategoriesInput) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	entries, err := h.backend.Categories(ctx)
	if err != nil {
		return nil, ListCategoriesOutput{}, fmt.Errorf("failed to list categories: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(input.Query))
	result := make([]CategoryOutput, 0, len(entries))
	for _, e := range entries {
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		result = append(result, CategoryOutput{ID: e.ID, Name: e.Name})
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})

	return nil, ListCategoriesOutput{Categories: result}, nil
}
