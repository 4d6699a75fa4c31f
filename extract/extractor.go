// ABOUTME: Extractor turns message text into an extraction record via the language model
// ABOUTME: Rate-limits calls and degrades to deterministic fallback records on any failure
package extract

import (
	"bytes"
	"context"
	"text/template"
	"time"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Input is one piece of text to extract a contact from.
type Input struct {
	Text        string
	Biography   string
	SenderEmail string
	Manual      bool
}

// Output carries the record and whether it came from a fallback builder.
type Output struct {
	Record   reconcile.ExtractionRecord
	Fallback bool
	Reply    string
}

type Extractor struct {
	client   Client
	prompts  *config.Prompts
	strategy config.StrategyConfig
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewExtractor wires a client to the prompt templates. requestsPerMinute
// of zero disables rate limiting.
func NewExtractor(client Client, prompts *config.Prompts, strategy config.StrategyConfig, requestsPerMinute int, log *zap.Logger) *Extractor {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}

	return &Extractor{
		client:   client,
		prompts:  prompts,
		strategy: strategy,
		limiter:  limiter,
		log:      log.With(zap.String("component", "extract")),
	}
}

type promptData struct {
	SenderEmail string
	Biography   string
	EmailText   string
}

// Extract never fails on model trouble; it only returns an error when ctx
// is done.
func (e *Extractor) Extract(ctx context.Context, in Input) (Output, error) {
	optimized := SmartTruncate(in.Text, e.strategy)
	e.log.Debug("prepared extraction input",
		zap.Int("input_chars", len([]rune(in.Text))),
		zap.Int("prompt_chars", len([]rune(optimized))),
		zap.Bool("manual", in.Manual))

	tmpl := e.prompts.EmailExtraction
	if in.Manual {
		tmpl = e.prompts.ManualExtraction
	}

	user, err := render(tmpl.UserTemplate, promptData{
		SenderEmail: in.SenderEmail,
		Biography:   in.Biography,
		EmailText:   optimized,
	})
	if err != nil {
		e.log.Error("failed to render prompt", zap.Error(err))
		return e.fallback(in, ""), nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return Output{}, eris.Wrap(err, "rate limiter wait aborted")
	}

	reply, err := e.client.Complete(ctx, tmpl.System, user)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, eris.Wrap(ctx.Err(), "extraction cancelled")
		}
		e.log.Error("language model call failed", zap.Error(err))
		return e.fallback(in, ""), nil
	}
	if reply == "" {
		e.log.Error("empty language model reply")
		return e.fallback(in, ""), nil
	}
	e.log.Debug("language model reply", zap.String("reply", reply))

	record, err := ParseResponse(reply)
	if err != nil {
		e.log.Error("failed to parse language model reply", zap.Error(err), zap.String("reply", reply))
		return e.fallback(in, reply), nil
	}

	e.log.Info("contact data extracted", zap.String("confidence", string(record.Confidence)))
	return Output{Record: record, Reply: reply}, nil
}

func (e *Extractor) fallback(in Input, reply string) Output {
	var record reconcile.ExtractionRecord
	if in.Manual {
		record = reconcile.FallbackManual(in.SenderEmail, in.Text)
	} else {
		record = reconcile.FallbackFromEmail(in.SenderEmail, in.Biography)
	}
	e.log.Warn("using fallback record", zap.String("sender", in.SenderEmail), zap.Bool("manual", in.Manual))
	return Output{Record: record, Fallback: true, Reply: reply}
}

func render(text string, data any) (string, error) {
	tmpl, err := template.New("prompt").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", eris.Wrap(err, "invalid prompt template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", eris.Wrap(err, "failed to render prompt template")
	}
	return buf.String(), nil
}
