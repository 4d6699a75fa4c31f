// ABOUTME: Manual import CLI commands
// ABOUTME: Imports or previews pasted contact text from a file, arguments or stdin
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/harperreed/kontakt/assistant"
)

// ImportCommand runs text through the pipeline and writes to the CRM.
func ImportCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Read contact text from file")
	_ = fs.Parse(args)

	text, err := readInput(*file, fs.Args(), os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	pipeline, err := app.NewPipeline(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	report, err := pipeline.Assistant.ImportText(ctx, text)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printReport(app.Out, report)
	return nil
}

// PreviewCommand shows what an import would change without writing.
func PreviewCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	file := fs.String("file", "", "Read contact text from file")
	_ = fs.Parse(args)

	text, err := readInput(*file, fs.Args(), os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	pipeline, err := app.NewPipeline(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	preview, err := pipeline.Assistant.PreviewText(ctx, text)
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	printPreview(app.Out, preview)
	return nil
}

// readInput prefers --file, then positional arguments, then piped stdin.
func readInput(file string, args []string, stdin io.Reader, stdinIsTerminal bool) (string, error) {
	var text string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		text = string(data)
	case len(args) > 0:
		text = strings.Join(args, " ")
	case !stdinIsTerminal:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.New("no contact text given (use --file, arguments or stdin)")
	}
	return text, nil
}

func printReport(w io.Writer, r *assistant.Report) {
	fmt.Fprintf(w, "✓ Contact %s: %s <%s>\n", r.Outcome, r.DisplayName, r.ContactEmail)
	if r.ContactID != "" {
		fmt.Fprintf(w, "  ID: %s\n", r.ContactID)
	}
	if len(r.Fields) > 0 {
		fmt.Fprintf(w, "  Fields: %s\n", strings.Join(r.Fields, ", "))
	}
	if r.Confidence != "" {
		fmt.Fprintf(w, "  Confidence: %s\n", r.Confidence)
	}
	if r.Fallback {
		fmt.Fprintln(w, "  ⚠️  Model reply unusable, fallback record used")
	}
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(w, "  ✗ Unknown categories: %s\n", strings.Join(r.Unmatched, ", "))
	}
	if r.NotePosted {
		fmt.Fprintln(w, "  → Biography added to timeline")
	}
	if r.Notified {
		fmt.Fprintln(w, "  → Confirmation sent")
	}
}

func printPreview(w io.Writer, p *assistant.Preview) {
	res := p.Result
	kind := "person"
	if res.IsCompany {
		kind = "company"
	}

	fmt.Fprintf(w, "Preview for %s (%s)\n", p.ContactEmail, kind)
	fmt.Fprintf(w, "  Name: %s\n", res.DisplayName)
	if p.Existing != nil {
		fmt.Fprintf(w, "  Existing contact: %s\n", p.Existing.ID)
	}
	fmt.Fprintf(w, "  Outcome: %s\n", res.Outcome)
	if fields := res.Payload.Fields(); len(fields) > 0 {
		fmt.Fprintf(w, "  Would change: %s\n", strings.Join(fields, ", "))
	}
	if len(res.Unmatched) > 0 {
		fmt.Fprintf(w, "  ✗ Unknown categories: %s\n", strings.Join(res.Unmatched, ", "))
	}
	if p.Fallback {
		fmt.Fprintln(w, "  ⚠️  Model reply unusable, fallback record used")
	}
	if res.TimelineNote != "" {
		fmt.Fprintf(w, "\nTimeline note:\n%s\n", res.TimelineNote)
	}
}
