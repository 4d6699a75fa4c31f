// ABOUTME: Outbound mails for category inquiries and import confirmations
// ABOUTME: Renders configured templates and hands them to a mail sender
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/reconcile"
)

// Sender delivers a plain-text mail.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Confirmation actions.
const (
	ActionCreated         = "created"
	ActionUpdated         = "updated"
	ActionCategoryUpdated = "category_updated"
)

var fallbackPreferred = []string{"Kunde", "Lieferant", "Techniker", "Arzt", "EDV", "english"}

// Notifier renders and sends assistant mails.
type Notifier struct {
	sender    Sender
	prompts   *config.Prompts
	preferred []string
	log       *zap.Logger
}

// NewNotifier creates a notifier. Nil prompts fall back to the built-in templates.
func NewNotifier(sender Sender, prompts *config.Prompts, preferred []string, log *zap.Logger) *Notifier {
	if prompts == nil {
		prompts = config.DefaultPrompts()
	}
	if len(preferred) == 0 {
		preferred = fallbackPreferred
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sender: sender, prompts: prompts, preferred: preferred, log: log.With(zap.String("component", "notify"))}
}

// InquiryData fills the category inquiry template.
type InquiryData struct {
	ContactEmail        string
	InvalidCategories   string
	SimilarSuggestions  string
	ContactName         string
	ContactCompany      string
	ContactPhones       string
	PreferredCategories string
}

// ConfirmationData fills the confirmation templates.
type ConfirmationData struct {
	Action       string
	ContactEmail string
	Name         string
	Type         string
	Phone        string
	Address      string
	Website      string
	Position     string
	Language     string
	Categories   string
	MissingData  string
	Link         string
}

// CategoryInquiry asks the forwarder about labels that matched no CRM category.
func (n *Notifier) CategoryInquiry(ctx context.Context, to, contactEmail string, unmatched []string, contact reconcile.NormalizedContact, catalogNames []string) error {
	subject, body, err := RenderInquiry(n.prompts.CategoryInquiry, NewInquiryData(contactEmail, unmatched, contact, catalogNames, n.preferred))
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		return eris.Wrapf(err, "failed to send category inquiry to %s", to)
	}
	n.log.Info("sent category inquiry", zap.String("to", to), zap.Strings("unmatched", unmatched))
	return nil
}

// Confirmation reports the stored state of a contact after an import.
func (n *Notifier) Confirmation(ctx context.Context, to, action, contactEmail string, contact reconcile.ExistingContact, categoryNames []string, link string) error {
	data := NewConfirmationData(action, contactEmail, contact, categoryNames, link)
	subject, body, err := RenderMessage(n.prompts.Confirmation(action), data)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, to, subject, body); err != nil {
		return eris.Wrapf(err, "failed to send confirmation to %s", to)
	}
	n.log.Info("sent confirmation", zap.String("to", to), zap.String("action", action), zap.String("contact", contactEmail))
	return nil
}

// NewInquiryData builds the inquiry fields with up to three suggestions per label.
func NewInquiryData(contactEmail string, unmatched []string, contact reconcile.NormalizedContact, catalogNames, preferred []string) InquiryData {
	suggestions := make([]string, 0, len(unmatched))
	for _, label := range unmatched {
		similar := reconcile.SuggestSimilar(label, catalogNames, 3)
		if len(similar) > 0 {
			suggestions = append(suggestions, fmt.Sprintf("'%s' → Vorschlag: %s", label, strings.Join(similar, ", ")))
		} else {
			suggestions = append(suggestions, fmt.Sprintf("'%s' → Keine ähnlichen Kategorien gefunden", label))
		}
	}

	if len(preferred) == 0 {
		preferred = fallbackPreferred
	}
	bullets := make([]string, 0, len(preferred))
	for _, p := range preferred {
		bullets = append(bullets, "• "+p)
	}

	phones := "N/A"
	if len(contact.Phones) > 0 {
		phones = strings.Join(contact.Phones, ", ")
	}

	return InquiryData{
		ContactEmail:        contactEmail,
		InvalidCategories:   strings.Join(unmatched, ", "),
		SimilarSuggestions:  strings.Join(suggestions, "\n"),
		ContactName:         orDefault(contact.FullName, "N/A"),
		ContactCompany:      orDefault(contact.Company, "N/A"),
		ContactPhones:       phones,
		PreferredCategories: strings.Join(bullets, "\n"),
	}
}

// NewConfirmationData describes the stored contact, listing what is still missing.
func NewConfirmationData(action, contactEmail string, c reconcile.ExistingContact, categoryNames []string, link string) ConfirmationData {
	actionText := "aktualisiert"
	if action == ActionCreated {
		actionText = "erstellt"
	}

	kind := "Privatperson"
	if c.IsCompany {
		kind = "Firma"
	}

	var missing []string
	if c.Phone == "" {
		missing = append(missing, "📞 Telefonnummer")
	}
	if c.Street == "" {
		missing = append(missing, "🏠 Adresse")
	}
	if c.Website == "" {
		missing = append(missing, "🌐 Website")
	}
	if c.Function == "" {
		missing = append(missing, "💼 Position/Funktion")
	}
	if len(categoryNames) == 0 {
		missing = append(missing, "🏷️ Kategorien")
	}
	missingText := "✅ Alle wichtigen Daten erfasst!"
	if len(missing) > 0 {
		missingText = strings.Join(missing, "\n")
	}

	return ConfirmationData{
		Action:       actionText,
		ContactEmail: contactEmail,
		Name:         orDefault(c.Name, "❌ Kein Name"),
		Type:         kind,
		Phone:        orDefault(c.Phone, "❌ Keine Telefonnummer"),
		Address:      orDefault(formatAddress(c), "❌ Keine Adresse"),
		Website:      orDefault(c.Website, "❌ Keine Website"),
		Position:     orDefault(c.Function, "❌ Keine Position"),
		Language:     orDefault(c.Lang, "❌ Keine Sprache"),
		Categories:   orDefault(strings.Join(categoryNames, ", "), "❌ Keine Kategorien"),
		MissingData:  missingText,
		Link:         link,
	}
}

// RenderInquiry renders the category inquiry template.
func RenderInquiry(tmpl config.MessageTemplate, data InquiryData) (string, string, error) {
	return RenderMessage(tmpl, data)
}

// RenderMessage executes a subject and body template against data.
func RenderMessage(tmpl config.MessageTemplate, data any) (subject, body string, err error) {
	subject, err = render("subject", tmpl.SubjectTemplate, data)
	if err != nil {
		return "", "", err
	}
	body, err = render("body", tmpl.BodyTemplate, data)
	if err != nil {
		return "", "", err
	}
	return strings.Join(strings.Fields(subject), " "), strings.TrimSpace(body) + "\n", nil
}

func render(name, text string, data any) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", eris.Wrapf(err, "invalid %s template", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", eris.Wrapf(err, "failed to render %s template", name)
	}
	return buf.String(), nil
}

// formatAddress renders "street, zip city, country" from the filled parts.
func formatAddress(c reconcile.ExistingContact) string {
	var parts []string
	if c.Street != "" {
		parts = append(parts, c.Street)
	}
	if cityZip := strings.TrimSpace(c.Zip + " " + c.City); cityZip != "" {
		parts = append(parts, cityZip)
	}
	if name := countryName(c.CountryCode); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

func countryName(code string) string {
	if code == "" {
		return ""
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.German.Regions().Name(region); name != "" {
		return name
	}
	return code
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
