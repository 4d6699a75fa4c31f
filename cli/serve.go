// ABOUTME: Web view CLI command
// ABOUTME: Serves the read-only dashboard and health check over HTTP
package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/harperreed/kontakt/web"
)

// ServeCommand starts the web view on the given port.
func ServeCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8081, "HTTP port")
	_ = fs.Parse(args)

	server, err := web.NewServer(app.DB, app.Log)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Serving http://localhost:%d (Ctrl+C to stop)\n", *port)
	return server.Start(ctx, *port)
}
