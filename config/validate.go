// ABOUTME: Struct-tag validation for the application configuration
// ABOUTME: Rejects unfilled placeholder values and incomplete Odoo settings
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var placeholderTokens = []string{"YOUR_", "HIER_", "IHR_", "@DOMAIN"}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("noplaceholder", func(fl validator.FieldLevel) bool {
		return !HasPlaceholder(fl.Field().String())
	})
	v.RegisterStructValidation(validateCRM, CRMConfig{})
	return v
}

// HasPlaceholder reports whether s still contains a template placeholder.
func HasPlaceholder(s string) bool {
	upper := strings.ToUpper(s)
	for _, token := range placeholderTokens {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

func validateCRM(sl validator.StructLevel) {
	crm := sl.Current().Interface().(CRMConfig)
	switch crm.Backend {
	case "odoo":
		if crm.Odoo.URL == "" {
			sl.ReportError(crm.Odoo.URL, "Odoo.URL", "url", "required", "")
		}
		if crm.Odoo.Database == "" {
			sl.ReportError(crm.Odoo.Database, "Odoo.Database", "database", "required", "")
		}
		if crm.Odoo.Username == "" || HasPlaceholder(crm.Odoo.Username) {
			sl.ReportError(crm.Odoo.Username, "Odoo.Username", "username", "noplaceholder", "")
		}
		if crm.Odoo.Password == "" {
			sl.ReportError(crm.Odoo.Password, "Odoo.Password", "password", "required", "")
		}
	case "sqlite":
		if crm.SQLitePath == "" {
			sl.ReportError(crm.SQLitePath, "SQLitePath", "sqlite_path", "required", "")
		}
	}
}

// Validate checks every section and joins all failures into one error.
func Validate(cfg *Config) error {
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration:\n  • %s", strings.Join(msgs, "\n  • "))
}
