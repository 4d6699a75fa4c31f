// ABOUTME: Entry point for the kontakt contact assistant
// ABOUTME: Routes to the mailbox daemon, manual import, MCP server or local CLI commands
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/kontakt/cli"
	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/crm"
)

const version = "0.2.0"

type command struct {
	strict bool
	run    func(ctx context.Context, app *cli.App, args []string) error
}

var commands = map[string]command{
	"run":        {strict: true, run: cli.RunCommand},
	"poll":       {strict: true, run: cli.PollCommand},
	"requeue":    {run: cli.RequeueCommand},
	"import":     {strict: true, run: cli.ImportCommand},
	"preview":    {strict: true, run: cli.PreviewCommand},
	"auth":       {run: cli.AuthCommand},
	"contacts":   {run: cli.ContactsCommand},
	"contact":    {run: cli.ContactCommand},
	"notes":      {run: cli.NotesCommand},
	"categories": {run: cli.CategoriesCommand},
	"status":     {run: cli.StatusCommand},
	"serve":      {run: cli.ServeCommand},
	"mcp": {run: func(ctx context.Context, app *cli.App, _ []string) error {
		return cli.MCPCommand(ctx, app, version)
	}},
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file (default: ~/.config/kontakt/config.yml)")
	initOnly := flag.Bool("init", false, "Write a starter config, seed categories and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("kontakt version %s\n", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *initOnly {
		if err := initialize(ctx, *configPath); err != nil {
			log.Fatalf("Init failed: %v", err)
		}
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	if err := dispatch(ctx, *configPath, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, configPath, name string, args []string) error {
	if name == "viz" {
		return dispatchViz(ctx, configPath, args)
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Printf("Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	app, err := cli.OpenApp(configPath, cmd.strict)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	return cmd.run(ctx, app, args)
}

func dispatchViz(ctx context.Context, configPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("viz requires a subcommand (categories, dashboard)")
	}

	var run func(context.Context, *cli.App, []string) error
	switch args[0] {
	case "categories":
		run = cli.VizCategoriesCommand
	case "dashboard":
		run = cli.VizDashboardCommand
	default:
		return fmt.Errorf("unknown viz command: %s", args[0])
	}

	app, err := cli.OpenApp(configPath, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	return run(ctx, app, args[1:])
}

// initialize writes the starter config when none exists and seeds the local
// category catalog with the preferred and default categories.
func initialize(ctx context.Context, configPath string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote starter config to %s\n", path)
	} else {
		fmt.Printf("✓ Keeping existing config at %s\n", path)
	}

	app, err := cli.OpenApp(path, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	local, ok := app.Backend().(*crm.SQLiteBackend)
	if !ok {
		fmt.Println("✓ Odoo backend configured; categories are managed in Odoo")
		return nil
	}

	names := append(append([]string{}, app.Config.Assistant.PreferredCategories...), app.Config.Assistant.DefaultCategories...)
	added, err := local.SeedCategories(ctx, names)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Database ready at %s (%d categories added)\n", app.Config.CRM.SQLitePath, added)
	fmt.Println("\nNext: fill in llm.api_key and assistant.admin_email, then run 'kontakt auth'.")
	return nil
}

func printUsage() {
	fmt.Printf(`kontakt v%s - AI contact assistant for your CRM

USAGE:
  kontakt [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --config <path>        Config file (default: ~/.config/kontakt/config.yml)
  --init                 Write a starter config, seed categories and exit

MAILBOX:
  kontakt auth           Authorize Gmail access
    --manual                Paste the authorization code instead of a local callback
  kontakt run            Poll the mailbox until interrupted
    --once                  Poll once and exit
  kontakt poll           Process every unread message once
  kontakt requeue <key>  Forget processed message keys so the next poll retries them
    --failed                Requeue every rejected mail in the recent import log

MANUAL IMPORT:
  kontakt import [text]  Extract a contact from text and merge it into the CRM
    --file <path>           Read text from file (or pipe it on stdin)
  kontakt preview [text] Show what import would change without writing
    --file <path>           Read text from file

CONTACTS:
  kontakt contacts       List local contacts
    --query <text>          Search by name or email
    --limit <n>             Max results (default: 50)
  kontakt contact <email>   Show a CRM contact
  kontakt notes <email>     Show timeline notes of a local contact
  kontakt categories        List CRM categories
    --seed <a,b,c>          Add categories (sqlite backend only)

STATUS:
  kontakt status         Mailbox state, import counts and CRM reachability
    --tui                   Open the interactive browser
  kontakt serve          Read-only web view with /healthz
    --port <n>              HTTP port (default: 8081)

VIZ:
  kontakt viz categories Category co-occurrence graph
    --format <dot|svg>      Output format (default: dot)
    --output <file>         Output file (default: stdout)
  kontakt viz dashboard  Terminal dashboard

MCP SERVER:
  kontakt mcp            Start MCP server on stdio

EXAMPLES:
  kontakt --init
  kontakt auth
  kontakt run
  echo "Anna Keller, Keller GmbH, anna@keller.ch #kunde" | kontakt import
  kontakt viz categories --format svg --output categories.svg

`, version)
}
