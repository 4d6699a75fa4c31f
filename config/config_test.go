// ABOUTME: Tests for configuration loading, validation, and prompts
// ABOUTME: Uses temp directories and environment overrides
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadAppliesFileAndDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeConfig(t, `
llm:
  api_key: sk-test
mail:
  check_interval: 30s
assistant:
  admin_email: ki-kontakt-admin@example.ch
  unknown_category_action: ignore
smart_strategy:
  head_chars: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Mail.CheckInterval)
	assert.Equal(t, 100, cfg.SmartStrategy.HeadChars)
	assert.Equal(t, 1000, cfg.SmartStrategy.FooterChars)
	assert.Equal(t, []string{"Neuer-KI-Eintrag"}, cfg.Assistant.DefaultCategories)
	assert.Equal(t, 50, cfg.Assistant.CategoryReloadEvery)
	assert.False(t, cfg.AskSender())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("KONTAKT_ADMIN_EMAIL", "boss@example.ch")
	path := writeConfig(t, `
llm:
  provider: gemini
  model: gemini-1.5-flash
  api_key: YOUR_KEY
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	assert.Equal(t, "boss@example.ch", cfg.Assistant.AdminEmail)
}

func TestLoadRejectsPlaceholders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("KONTAKT_ADMIN_EMAIL", "")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "api key placeholder",
			body:  "llm:\n  api_key: YOUR_API_KEY\nassistant:\n  admin_email: a@example.ch\n",
			field: "APIKey",
		},
		{
			name:  "admin email without at sign",
			body:  "llm:\n  api_key: sk\nassistant:\n  admin_email: admin\n",
			field: "AdminEmail",
		},
		{
			name:  "odoo username placeholder",
			body:  "llm:\n  api_key: sk\nassistant:\n  admin_email: a@example.ch\ncrm:\n  backend: odoo\n  odoo:\n    url: https://odoo.example.ch\n    database: db\n    username: IHR_USER\n    password: pw\n",
			field: "Username",
		},
		{
			name:  "odoo missing url",
			body:  "llm:\n  api_key: sk\nassistant:\n  admin_email: a@example.ch\ncrm:\n  backend: odoo\n  odoo:\n    database: db\n    username: user@example.ch\n    password: pw\n",
			field: "URL",
		},
		{
			name:  "unknown provider",
			body:  "llm:\n  provider: openai\n  api_key: sk\nassistant:\n  admin_email: a@example.ch\n",
			field: "Provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestHasPlaceholder(t *testing.T) {
	assert.True(t, HasPlaceholder("your_key_here"))
	assert.True(t, HasPlaceholder("HIER_EINTRAGEN"))
	assert.True(t, HasPlaceholder("admin@domain.ch"))
	assert.False(t, HasPlaceholder("admin@example.ch"))
}

func TestWriteDefault(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "kontakt", "config.yml")

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "must not overwrite")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "smart_strategy:"))

	_, err = Load(path)
	assert.Error(t, err, "starter config still carries placeholders")

	cfg, err := Read(path)
	require.NoError(t, err, "Read skips validation")
	assert.Equal(t, "YOUR_API_KEY", cfg.LLM.APIKey)
	assert.Equal(t, "sqlite", cfg.CRM.Backend)
}

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "kontakt.log")

	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", File: logFile})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestPrompts(t *testing.T) {
	p := DefaultPrompts()
	assert.Contains(t, p.EmailExtraction.UserTemplate, "{{.EmailText}}")
	assert.Contains(t, p.CategoryInquiry.BodyTemplate, "konnte ich folgende Kategorien nicht zuordnen")
	assert.Equal(t, p.ConfirmationCreated.BodyTemplate, p.ConfirmationUpdated.BodyTemplate)

	path := filepath.Join(t.TempDir(), "prompts.yml")
	require.NoError(t, os.WriteFile(path, []byte("email_extraction:\n  system: Kurz.\n"), 0600))

	loaded, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Kurz.", loaded.EmailExtraction.System)
	assert.NotEmpty(t, loaded.ManualExtraction.System)
	assert.Equal(t, loaded.ConfirmationUpdated, loaded.Confirmation("updated"))
	assert.Equal(t, loaded.ConfirmationCreated, loaded.Confirmation("anything"))
}
