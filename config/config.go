// ABOUTME: Application configuration loaded from YAML with .env and environment overrides
// ABOUTME: Resolves XDG paths and fills defaults for every section
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG directories.
const AppName = "kontakt"

type Config struct {
	LLM           LLMConfig            `yaml:"llm"`
	CRM           CRMConfig            `yaml:"crm"`
	Mail          MailConfig           `yaml:"mail"`
	Assistant     AssistantConfig      `yaml:"assistant"`
	SmartStrategy StrategyConfig       `yaml:"smart_strategy"`
	Exclusions    reconcile.Exclusions `yaml:"exclusions"`
	Logging       LoggingConfig        `yaml:"logging"`
	Prompts       string               `yaml:"prompts"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider" validate:"oneof=anthropic gemini"`
	APIKey            string        `yaml:"api_key" validate:"required,noplaceholder"`
	Model             string        `yaml:"model" validate:"required"`
	MaxTokens         int           `yaml:"max_tokens" validate:"min=1"`
	Temperature       float64       `yaml:"temperature" validate:"min=0,max=2"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"min=0"`
	Timeout           time.Duration `yaml:"timeout"`
}

type CRMConfig struct {
	Backend    string     `yaml:"backend" validate:"oneof=sqlite odoo"`
	SQLitePath string     `yaml:"sqlite_path"`
	Odoo       OdooConfig `yaml:"odoo"`
}

type OdooConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type MailConfig struct {
	User          string        `yaml:"user"`
	Address       string        `yaml:"address" validate:"omitempty,email"`
	Label         string        `yaml:"label"`
	Query         string        `yaml:"query"`
	CheckInterval time.Duration `yaml:"check_interval" validate:"min=1s"`
}

type AssistantConfig struct {
	AdminEmail            string        `yaml:"admin_email" validate:"required,email,noplaceholder"`
	DefaultCategories     []string      `yaml:"default_categories"`
	PreferredCategories   []string      `yaml:"preferred_categories"`
	UnknownCategoryAction string        `yaml:"unknown_category_action" validate:"oneof=ask_sender ignore"`
	SendConfirmationEmail bool          `yaml:"send_confirmation_email"`
	MaxBiographyLength    int           `yaml:"max_biography_length" validate:"min=1"`
	CategoryReloadEvery   int           `yaml:"category_reload_every" validate:"min=1"`
	ProcessedTTL          time.Duration `yaml:"processed_ttl"`
	StorePath             string        `yaml:"store_path"`
}

// StrategyConfig controls how much of a long message reaches the model.
type StrategyConfig struct {
	Enabled        bool `yaml:"enabled"`
	HeadChars      int  `yaml:"head_chars" validate:"min=0"`
	FooterChars    int  `yaml:"footer_chars" validate:"min=0"`
	MaxTotalChars  int  `yaml:"max_total_chars" validate:"min=1"`
	MaxEmailLength int  `yaml:"max_email_length" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	File   string `yaml:"file"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// DataDir returns the XDG data directory for the application.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultPath returns the XDG location of the config file.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yml")
}

// Default returns a config with every default applied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "anthropic",
			Model:             "claude-sonnet-4-5",
			MaxTokens:         1500,
			Temperature:       0.1,
			RequestsPerMinute: 20,
			Timeout:           60 * time.Second,
		},
		CRM: CRMConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(DataDir(), "kontakt.db"),
		},
		Mail: MailConfig{
			User:          "me",
			Label:         "INBOX",
			Query:         "is:unread",
			CheckInterval: 60 * time.Second,
		},
		Assistant: AssistantConfig{
			DefaultCategories:     []string{"Neuer-KI-Eintrag"},
			PreferredCategories:   []string{"Kunde", "Lieferant", "Techniker", "Arzt", "EDV", "english"},
			UnknownCategoryAction: "ask_sender",
			SendConfirmationEmail: true,
			MaxBiographyLength:    1000,
			CategoryReloadEvery:   50,
			ProcessedTTL:          90 * 24 * time.Hour,
			StorePath:             filepath.Join(DataDir(), "processed"),
		},
		SmartStrategy: StrategyConfig{
			Enabled:        true,
			HeadChars:      2000,
			FooterChars:    1000,
			MaxTotalChars:  3000,
			MaxEmailLength: 3000,
		},
		Exclusions: reconcile.DefaultExclusions(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path (DefaultPath when empty), applies
// .env and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only touch the local
// store.
func Read(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	// A missing .env is fine; secrets may come from the real environment.
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides lets secrets live outside the config file:
// - ANTHROPIC_API_KEY / GEMINI_API_KEY
// - ODOO_PASSWORD
// - KONTAKT_ADMIN_EMAIL
// - KONTAKT_LOG_LEVEL.
func applyEnvOverrides(cfg *Config) {
	switch cfg.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	default:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.APIKey = key
		}
	}
	if pw := os.Getenv("ODOO_PASSWORD"); pw != "" {
		cfg.CRM.Odoo.Password = pw
	}
	if admin := os.Getenv("KONTAKT_ADMIN_EMAIL"); admin != "" {
		cfg.Assistant.AdminEmail = admin
	}
	if level := os.Getenv("KONTAKT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// applyDefaults restores defaults for values a partial file zeroed out.
func (c *Config) applyDefaults() {
	def := Default()
	if c.CRM.SQLitePath == "" {
		c.CRM.SQLitePath = def.CRM.SQLitePath
	}
	if c.Mail.User == "" {
		c.Mail.User = def.Mail.User
	}
	if c.Mail.Query == "" {
		c.Mail.Query = def.Mail.Query
	}
	if c.Assistant.StorePath == "" {
		c.Assistant.StorePath = def.Assistant.StorePath
	}
	if c.Assistant.ProcessedTTL <= 0 {
		c.Assistant.ProcessedTTL = def.Assistant.ProcessedTTL
	}
	if len(c.Assistant.DefaultCategories) == 0 {
		c.Assistant.DefaultCategories = def.Assistant.DefaultCategories
	}
	if len(c.Assistant.PreferredCategories) == 0 {
		c.Assistant.PreferredCategories = def.Assistant.PreferredCategories
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}
}

// AskSender reports whether unknown categories trigger an inquiry mail.
func (c *Config) AskSender() bool {
	return c.Assistant.UnknownCategoryAction == "ask_sender"
}

// WriteDefault writes a starter config file, refusing to overwrite one.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	cfg := Default()
	cfg.LLM.APIKey = "YOUR_API_KEY"
	cfg.Assistant.AdminEmail = "admin@example.com"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
