// ABOUTME: Tests for inquiry and confirmation mails
// ABOUTME: Uses a recording sender and the built-in templates
package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/reconcile"
)

type sentMail struct {
	To, Subject, Body string
}

type recordingSender struct {
	sent []sentMail
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{to, subject, body})
	return nil
}

func TestCategoryInquiry(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, nil, []string{"Kunde", "EDV"}, nil)

	contact := reconcile.NormalizedContact{FullName: "Anna Keller", Phones: []string{"041 123 45 67"}}
	err := n.CategoryInquiry(context.Background(), "boss@example.ch", "anna@example.ch",
		[]string{"kunden", "xyz"}, contact, []string{"EDV", "Kunde", "Lieferant"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	assert.Equal(t, "boss@example.ch", mail.To)
	assert.Equal(t, "KI-Rückfrage: Unbekannte Kategorien für anna@example.ch", mail.Subject)
	assert.Contains(t, mail.Body, "bei der Verarbeitung der E-Mail von anna@example.ch konnte ich folgende Kategorien nicht zuordnen")
	assert.Contains(t, mail.Body, "kunden, xyz")
	assert.Contains(t, mail.Body, "'kunden' → Vorschlag: Kunde")
	assert.Contains(t, mail.Body, "'xyz' → Keine ähnlichen Kategorien gefunden")
	assert.Contains(t, mail.Body, "👤 Name: Anna Keller")
	assert.Contains(t, mail.Body, "🏢 Firma: N/A")
	assert.Contains(t, mail.Body, "• Kunde\n• EDV")
}

func TestInquiryDefaults(t *testing.T) {
	data := NewInquiryData("anna@example.ch", []string{"x"}, reconcile.NormalizedContact{}, nil, nil)
	_, body, err := RenderInquiry(config.DefaultPrompts().CategoryInquiry, data)
	require.NoError(t, err)

	assert.Contains(t, body, "• Lieferant")
	assert.Contains(t, body, "📞 Telefon: N/A")
}

func TestConfirmation(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier(sender, config.DefaultPrompts(), nil, nil)

	contact := reconcile.ExistingContact{
		ID:          "42",
		Name:        "Keller GmbH",
		IsCompany:   true,
		Street:      "Seestrasse 1",
		Zip:         "6300",
		City:        "Zug",
		CountryCode: "CH",
		Lang:        "de_DE",
	}
	err := n.Confirmation(context.Background(), "boss@example.ch", ActionCreated, "info@keller.ch",
		contact, []string{"Kunde"}, "https://crm.example.ch/web#id=42&model=res.partner&view_type=form")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	assert.Equal(t, "✅ Kontakt erstellt: info@keller.ch", mail.Subject)
	assert.Contains(t, mail.Body, "🏢 Typ: Firma")
	assert.Contains(t, mail.Body, "🏠 Adresse: Seestrasse 1, 6300 Zug, Schweiz")
	assert.Contains(t, mail.Body, "📞 Telefon: ❌ Keine Telefonnummer")
	assert.Contains(t, mail.Body, "🏷️ Kategorien: Kunde")
	assert.Contains(t, mail.Body, "📞 Telefonnummer\n🌐 Website\n💼 Position/Funktion")
	assert.NotContains(t, mail.Body, "🏠 Adresse\n")
	assert.Contains(t, mail.Body, "🔗 Direktlink: https://crm.example.ch/web#id=42")
}

func TestConfirmationData(t *testing.T) {
	t.Run("updated person without data", func(t *testing.T) {
		d := NewConfirmationData(ActionUpdated, "a@b.ch", reconcile.ExistingContact{}, nil, "")
		assert.Equal(t, "aktualisiert", d.Action)
		assert.Equal(t, "Privatperson", d.Type)
		assert.Equal(t, "❌ Kein Name", d.Name)
		assert.Equal(t, "❌ Keine Adresse", d.Address)
		assert.Equal(t, "❌ Keine Kategorien", d.Categories)
		assert.Equal(t, 5, strings.Count(d.MissingData, "\n")+1)
	})

	t.Run("complete contact", func(t *testing.T) {
		c := reconcile.ExistingContact{Phone: "041", Street: "Weg 1", Website: "https://x.ch", Function: "CEO"}
		d := NewConfirmationData(ActionCategoryUpdated, "a@b.ch", c, []string{"Kunde"}, "")
		assert.Equal(t, "✅ Alle wichtigen Daten erfasst!", d.MissingData)
		assert.Equal(t, "aktualisiert", d.Action)
		assert.Equal(t, "Weg 1", d.Address)
	})
}

func TestConfirmationWithoutLinkOmitsLinkLine(t *testing.T) {
	subject, body, err := RenderMessage(config.DefaultPrompts().ConfirmationUpdated,
		NewConfirmationData(ActionUpdated, "a@b.ch", reconcile.ExistingContact{Name: "A"}, nil, ""))
	require.NoError(t, err)

	assert.Equal(t, "✅ Kontakt aktualisiert: a@b.ch", subject)
	assert.NotContains(t, body, "Direktlink")
}

func TestSendFailureIsReturned(t *testing.T) {
	n := NewNotifier(&recordingSender{err: errors.New("smtp down")}, nil, nil, nil)

	err := n.Confirmation(context.Background(), "boss@example.ch", ActionCreated, "a@b.ch", reconcile.ExistingContact{}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestRenderMessageRejectsBadTemplate(t *testing.T) {
	_, _, err := RenderMessage(config.MessageTemplate{SubjectTemplate: "{{.Nope", BodyTemplate: ""}, InquiryData{})
	assert.Error(t, err)
}
