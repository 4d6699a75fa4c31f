// ABOUTME: Prompt and message templates loaded from YAML
// ABOUTME: Built-in defaults are embedded and overridden per key by a prompts file
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_prompts.yml
var defaultPromptsYAML []byte

// PromptTemplate is a system prompt plus a text/template user message.
type PromptTemplate struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
}

// MessageTemplate renders an outbound mail subject and body.
type MessageTemplate struct {
	SubjectTemplate string `yaml:"subject_template"`
	BodyTemplate    string `yaml:"body_template"`
}

type Prompts struct {
	EmailExtraction             PromptTemplate  `yaml:"email_extraction"`
	ManualExtraction            PromptTemplate  `yaml:"manual_extraction"`
	CategoryInquiry             MessageTemplate `yaml:"category_inquiry"`
	ConfirmationCreated         MessageTemplate `yaml:"confirmation_created"`
	ConfirmationUpdated         MessageTemplate `yaml:"confirmation_updated"`
	ConfirmationCategoryUpdated MessageTemplate `yaml:"confirmation_category_updated"`
}

// DefaultPrompts returns the embedded templates.
func DefaultPrompts() *Prompts {
	var p Prompts
	if err := yaml.Unmarshal(defaultPromptsYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded prompts are invalid: %v", err))
	}
	return &p
}

// LoadPrompts overlays the file at path onto the defaults. An empty path
// returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}
	return p, nil
}

// Confirmation picks the template for a confirmation action
// (created, updated, category_updated).
func (p *Prompts) Confirmation(action string) MessageTemplate {
	switch action {
	case "updated":
		return p.ConfirmationUpdated
	case "category_updated":
		return p.ConfirmationCategoryUpdated
	default:
		return p.ConfirmationCreated
	}
}
