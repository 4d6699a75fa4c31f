// ABOUTME: Visualization CLI commands
// ABOUTME: Renders the category co-occurrence graph and the terminal dashboard
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"

	"github.com/harperreed/kontakt/viz"
)

// VizCategoriesCommand writes the category graph as DOT or SVG.
func VizCategoriesCommand(_ context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("viz categories", flag.ExitOnError)
	format := fs.String("format", "dot", "Output format: dot or svg")
	output := fs.String("output", "", "Output file (default: stdout)")
	_ = fs.Parse(args)

	gvFormat, err := graphFormat(*format)
	if err != nil {
		return err
	}

	source, err := viz.NewGraphGenerator(app.DB).GenerateCategoryGraph(gvFormat)
	if err != nil {
		return fmt.Errorf("failed to generate graph: %w", err)
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(source), 0644)
	}

	fmt.Fprintln(app.Out, source)
	return nil
}

// VizDashboardCommand prints the terminal dashboard.
func VizDashboardCommand(_ context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ExitOnError)
	_ = fs.Parse(args)

	stats, err := viz.GenerateDashboardStats(app.DB)
	if err != nil {
		return fmt.Errorf("failed to generate stats: %w", err)
	}

	fmt.Fprint(app.Out, viz.RenderDashboard(stats))
	return nil
}

func graphFormat(name string) (graphviz.Format, error) {
	switch name {
	case "dot", "":
		return graphviz.XDOT, nil
	case "svg":
		return graphviz.SVG, nil
	default:
		return "", fmt.Errorf("unknown format %q (use dot or svg)", name)
	}
}
