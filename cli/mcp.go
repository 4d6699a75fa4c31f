// ABOUTME: MCP server subcommand
// ABOUTME: Exposes import, lookup and visualization tools plus resources and prompts on stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/handlers"
)

// MCPCommand starts the MCP server on stdio. Import tools are only offered
// when the extraction pipeline can be built from the config.
func MCPCommand(ctx context.Context, app *App, version string) error {
	app.Log.Info("starting MCP server")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kontakt",
		Version: version,
	}, nil)

	contactHandlers := handlers.NewContactHandlers(app.Backend())
	vizHandlers := handlers.NewVizHandlers(app.DB)
	resourceHandlers := handlers.NewResourceHandlers(app.DB)
	promptHandlers := handlers.NewPromptHandlers(app.DB)

	pipeline, err := importPipeline(ctx, app)
	if err != nil {
		app.Log.Warn("import tools disabled", zap.Error(err))
	} else {
		defer func() { _ = pipeline.Close() }()
		importHandlers := handlers.NewImportHandlers(pipeline.Assistant, app.DB)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "import_contact_text",
			Description: "Extract a contact from free text and merge it into the CRM without overwriting existing fields",
		}, importHandlers.ImportContactText)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "preview_contact_text",
			Description: "Show what import_contact_text would change without writing anything",
		}, importHandlers.PreviewContactText)

		mcp.AddTool(server, &mcp.Tool{
			Name:        "recent_imports",
			Description: "List recent mail and manual imports, optionally filtered by outcome",
		}, importHandlers.RecentImports)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_contact",
		Description: "Look up a CRM contact by email address",
	}, contactHandlers.FindContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List CRM categories, optionally filtered by name",
	}, contactHandlers.ListCategories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "category_graph",
		Description: "Render category co-occurrence as a GraphViz graph (dot or svg)",
	}, vizHandlers.CategoryGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Summarize contacts, imports and category usage",
	}, vizHandlers.Dashboard)

	for _, resource := range resourceHandlers.Resources() {
		server.AddResource(resource, resourceHandlers.ReadResource)
	}

	for _, prompt := range promptHandlers.Prompts() {
		server.AddPrompt(prompt, promptHandlers.GetPrompt)
	}

	return server.Run(ctx, &mcp.StdioTransport{})
}

func importPipeline(ctx context.Context, app *App) (*Pipeline, error) {
	if err := config.Validate(app.Config); err != nil {
		return nil, err
	}
	return app.NewPipeline(ctx, false)
}
