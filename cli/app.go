// ABOUTME: Shared wiring for CLI commands
// ABOUTME: Opens the local store and builds backend, extractor, mailbox and assistant from config
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/kontakt/assistant"
	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/extract"
	"github.com/harperreed/kontakt/notify"
	"github.com/harperreed/kontakt/store"
	"github.com/harperreed/kontakt/sync"
)

const odooTimeout = 30 * time.Second

// App holds what every command needs: config, local store and logger.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Log    *zap.Logger
	Out    io.Writer
}

// OpenApp loads the config and opens the local store. strict validates the
// config; commands that never call the LLM or the mailbox pass false.
func OpenApp(configPath string, strict bool) (*App, error) {
	var cfg *config.Config
	var err error
	if strict {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.Read(configPath)
	}
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	database, err := db.OpenDatabase(cfg.CRM.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &App{Config: cfg, DB: database, Log: logger, Out: os.Stdout}, nil
}

func (a *App) Close() error {
	_ = a.Log.Sync()
	return a.DB.Close()
}

// Backend returns the configured CRM backend.
func (a *App) Backend() crm.Backend {
	if a.Config.CRM.Backend == "odoo" {
		o := a.Config.CRM.Odoo
		return crm.NewOdooBackend(crm.OdooOptions{
			URL:      o.URL,
			Database: o.Database,
			Username: o.Username,
			Password: o.Password,
			Timeout:  odooTimeout,
		}, nil, a.Log)
	}
	return crm.NewSQLiteBackend(a.DB)
}

// Pipeline is an assistant plus the resources it holds open.
type Pipeline struct {
	Assistant *assistant.Assistant
	closers   []func() error
}

func (p *Pipeline) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewPipeline builds an assistant with a loaded category catalog. With
// withMailbox the Gmail token is required; without it Gmail is only used to
// send notifications when a token happens to exist.
func (a *App) NewPipeline(ctx context.Context, withMailbox bool) (*Pipeline, error) {
	cfg := a.Config
	p := &Pipeline{}

	prompts, err := config.LoadPrompts(cfg.Prompts)
	if err != nil {
		return nil, err
	}

	client, err := extract.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	p.closers = append(p.closers, client.Close)

	seen, err := store.Open(cfg.Assistant.StorePath, cfg.Assistant.ProcessedTTL)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to open processed store: %w", err)
	}
	p.closers = append(p.closers, seen.Close)

	deps := assistant.Deps{
		Backend:   a.Backend(),
		Extractor: extract.NewExtractor(client, prompts, cfg.SmartStrategy, cfg.LLM.RequestsPerMinute, a.Log),
		Seen:      seen,
		DB:        a.DB,
		Log:       a.Log,
	}

	mailbox, err := a.gmailMailbox(ctx)
	switch {
	case err != nil && withMailbox:
		_ = p.Close()
		return nil, err
	case err != nil:
		a.Log.Debug("gmail unavailable, notifications disabled", zap.Error(err))
	default:
		if withMailbox {
			deps.Mailbox = mailbox
		}
		deps.Notifier = notify.NewNotifier(mailbox, prompts, cfg.Assistant.PreferredCategories, a.Log)
	}

	p.Assistant = assistant.New(deps, assistant.OptionsFromConfig(cfg))
	if err := p.Assistant.ReloadCategories(ctx); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	return p, nil
}

func (a *App) gmailMailbox(ctx context.Context) (*sync.GmailMailbox, error) {
	oauthCfg, err := sync.OAuthConfig()
	if err != nil {
		return nil, err
	}
	service, err := sync.NewGmailService(ctx, oauthCfg, sync.DefaultTokenStore(), a.Log)
	if err != nil {
		return nil, fmt.Errorf("gmail unavailable, run 'kontakt auth' first: %w", err)
	}

	m := a.Config.Mail
	return sync.NewGmailMailbox(service, sync.MailboxOptions{
		User:  m.User,
		From:  m.Address,
		Label: m.Label,
		Query: m.Query,
	}, a.Log), nil
}
