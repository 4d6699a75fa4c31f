// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides category_graph and dashboard tools for agents
package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/viz"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type VizHandlers struct {
	db *sql.DB
}

func NewVizHandlers(database *sql.DB) *VizHandlers {
	return &VizHandlers{db: database}
}

type CategoryGraphInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: dot (default) or svg"`
}

type CategoryGraphOutput struct {
	Format    string `json:"format"`
	Source    string `json:"source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) CategoryGraph(_ context.Context, request *mcp.CallToolRequest, input CategoryGraphInput) (*mcp.CallToolResult, CategoryGraphOutput, error) {
	format := input.Format
	if format == "" {
		format = "dot"
	}

	var gvFormat graphviz.Format
	switch format {
	case "dot":
		gvFormat = graphviz.XDOT
	case "svg":
		gvFormat = graphviz.SVG
	default:
		return nil, CategoryGraphOutput{}, fmt.Errorf("unknown format: %s (valid formats: dot, svg)", format)
	}

	source, err := viz.NewGraphGenerator(h.db).GenerateCategoryGraph(gvFormat)
	if err != nil {
		return nil, CategoryGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	usage, err := db.GetCategoryUsage(h.db)
	if err != nil {
		return nil, CategoryGraphOutput{}, fmt.Errorf("failed to count categories: %w", err)
	}
	pairs, err := db.GetCategoryPairs(h.db)
	if err != nil {
		return nil, CategoryGraphOutput{}, fmt.Errorf("failed to count category pairs: %w", err)
	}

	return nil, CategoryGraphOutput{
		Format:    format,
		Source:    source,
		NodeCount: len(usage),
		EdgeCount: len(pairs),
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text             string         `json:"text"`
	TotalContacts    int            `json:"total_contacts"`
	TotalCompanies   int            `json:"total_companies"`
	TotalNotes       int            `json:"total_notes"`
	ImportsByOutcome map[string]int `json:"imports_by_outcome"`
	UnmatchedLabels  map[string]int `json:"unmatched_labels,omitempty"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats, err := viz.GenerateDashboardStats(h.db)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	return nil, DashboardOutput{
		Text:             viz.RenderDashboard(stats),
		TotalContacts:    stats.TotalContacts,
		TotalCompanies:   stats.TotalCompanies,
		TotalNotes:       stats.TotalNotes,
		ImportsByOutcome: stats.ImportsByOutcome,
		UnmatchedLabels:  stats.UnmatchedLabels,
	}, nil
}
