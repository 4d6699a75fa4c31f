// ABOUTME: Orchestrates mail polling, extraction, reconciliation and CRM writes
// ABOUTME: Holds the shared category snapshot and records every import outcome
package assistant

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/extract"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/notify"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/harperreed/kontakt/sync"
)

// Sentinel errors reported to callers of the import paths.
var (
	ErrNoContactEmail  = eris.New("no contact email found")
	ErrNoForwarder     = eris.New("no forwarder email found")
	ErrContactNotFound = eris.New("contact not found")
	ErrNoMailbox       = eris.New("no mailbox configured")
)

// Mailbox is the inbound side of the mail transport.
type Mailbox interface {
	Unread(ctx context.Context) ([]*sync.Message, error)
	MarkRead(ctx context.Context, id string) error
}

// Extractor turns text into an extraction record.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (extract.Output, error)
}

// SeenStore remembers processed message keys.
type SeenStore interface {
	Seen(key string) (bool, error)
	Mark(key string, at time.Time) error
}

// Options tunes processing; see OptionsFromConfig.
type Options struct {
	AdminEmail         string
	MailboxTokens      []string
	Exclusions         reconcile.Exclusions
	DefaultCategories  []string
	AskSender          bool
	SendConfirmation   bool
	MaxBiographyLength int
	MaxEmailLength     int
	CheckInterval      time.Duration
	ReloadEvery        int
	Now                func() time.Time
}

// OptionsFromConfig derives processing options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	tokens := []string{"ki-adress-admin"}
	if cfg.Mail.Address != "" {
		tokens = append(tokens, cfg.Mail.Address)
	}
	return Options{
		AdminEmail:         cfg.Assistant.AdminEmail,
		MailboxTokens:      tokens,
		Exclusions:         cfg.Exclusions,
		DefaultCategories:  cfg.Assistant.DefaultCategories,
		AskSender:          cfg.AskSender(),
		SendConfirmation:   cfg.Assistant.SendConfirmationEmail,
		MaxBiographyLength: cfg.Assistant.MaxBiographyLength,
		MaxEmailLength:     cfg.SmartStrategy.MaxEmailLength,
		CheckInterval:      cfg.Mail.CheckInterval,
		ReloadEvery:        cfg.Assistant.CategoryReloadEvery,
	}
}

// Deps are the collaborators of an Assistant. Mailbox, Notifier, Seen and DB
// are optional.
type Deps struct {
	Backend   crm.Backend
	Extractor Extractor
	Mailbox   Mailbox
	Notifier  *notify.Notifier
	Seen      SeenStore
	DB        *sql.DB
	Log       *zap.Logger
}

// Assistant processes one input at a time; only the catalog is shared.
type Assistant struct {
	backend   crm.Backend
	extractor Extractor
	mailbox   Mailbox
	notifier  *notify.Notifier
	seen      SeenStore
	db        *sql.DB
	opts      Options
	log       *zap.Logger

	catalog atomic.Pointer[reconcile.CategoryMap]
}

// New creates an assistant with an empty catalog; call ReloadCategories
// before processing.
func New(deps Deps, opts Options) *Assistant {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = time.Minute
	}
	if opts.MaxEmailLength <= 0 {
		opts.MaxEmailLength = 3000
	}
	if opts.MaxBiographyLength <= 0 {
		opts.MaxBiographyLength = 1000
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assistant{
		backend:   deps.Backend,
		extractor: deps.Extractor,
		mailbox:   deps.Mailbox,
		notifier:  deps.Notifier,
		seen:      deps.Seen,
		db:        deps.DB,
		opts:      opts,
		log:       log.With(zap.String("component", "assistant")),
	}
	a.catalog.Store(reconcile.NewCategoryMap(nil))
	return a
}

// Catalog returns the current category snapshot.
func (a *Assistant) Catalog() *reconcile.CategoryMap {
	return a.catalog.Load()
}

// ReloadCategories swaps in a fresh snapshot. On failure the old one stays.
func (a *Assistant) ReloadCategories(ctx context.Context) error {
	catalog, err := crm.CatalogFromBackend(ctx, a.backend)
	if err != nil {
		return err
	}
	a.catalog.Store(catalog)
	a.log.Info("loaded categories", zap.Int("count", catalog.Len()))
	return nil
}

func (a *Assistant) reconcileOptions() reconcile.Options {
	return reconcile.Options{
		Exclusions:        a.opts.Exclusions,
		DefaultCategories: a.opts.DefaultCategories,
		Now:               a.opts.Now(),
	}
}

func (a *Assistant) recordImport(entry *models.ImportLog) {
	if a.db == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.opts.Now()
	}
	if err := db.CreateImportLog(a.db, entry); err != nil {
		a.log.Warn("failed to record import", zap.String("source_key", entry.SourceKey), zap.Error(err))
	}
}
