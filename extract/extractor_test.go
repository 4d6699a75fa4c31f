// ABOUTME: Tests for the extractor with a fake language model client
// ABOUTME: Verifies prompt rendering and every fallback path
package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/harperreed/kontakt/config"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (f *fakeClient) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

func (f *fakeClient) Close() error { return nil }

func newTestExtractor(client Client) *Extractor {
	strategy := config.Default().SmartStrategy
	return NewExtractor(client, config.DefaultPrompts(), strategy, 0, nil)
}

func TestExtractUsesModelReply(t *testing.T) {
	client := &fakeClient{reply: `{"full_name": "Anna Keller", "confidence": "high"}`}
	e := newTestExtractor(client)

	out, err := e.Extract(context.Background(), Input{
		Text:        "Bitte Anna erfassen",
		Biography:   "Anna von der Messe",
		SenderEmail: "anna@keller.ch",
	})
	require.NoError(t, err)

	assert.False(t, out.Fallback)
	assert.Equal(t, "Anna Keller", *out.Record.FullName)
	assert.Contains(t, client.user, "ABSENDER-EMAIL: anna@keller.ch")
	assert.Contains(t, client.user, "BIOGRAPHIE: Anna von der Messe")
	assert.Contains(t, client.user, "Bitte Anna erfassen")
	assert.Contains(t, client.system, "weitergeleiteten E-Mails")
}

func TestExtractManualPrompt(t *testing.T) {
	client := &fakeClient{reply: `{"full_name": "Maria Muster"}`}
	e := newTestExtractor(client)

	_, err := e.Extract(context.Background(), Input{Text: "Maria Muster", SenderEmail: "manual-1@manual-contact.local", Manual: true})
	require.NoError(t, err)
	assert.Contains(t, client.user, "GENERIERTE EMAIL: manual-1@manual-contact.local")
}

func TestExtractFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"api error", &fakeClient{err: errors.New("boom")}},
		{"empty reply", &fakeClient{reply: ""}},
		{"unparseable reply", &fakeClient{reply: "Keine Ahnung"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(tt.client)
			out, err := e.Extract(context.Background(), Input{
				Text:        "Hallo",
				Biography:   "Neuer Kontakt #kunde",
				SenderEmail: "anna.keller@example.com",
			})
			require.NoError(t, err)
			assert.True(t, out.Fallback)
			assert.Equal(t, reconcile.ConfidenceFallback, out.Record.Confidence)
			assert.Equal(t, "Anna Keller", *out.Record.FullName)
			assert.Equal(t, []string{"kunde"}, out.Record.Categories)
		})
	}
}

func TestExtractManualFallback(t *testing.T) {
	e := newTestExtractor(&fakeClient{err: errors.New("boom")})

	out, err := e.Extract(context.Background(), Input{
		Text:        "Maria Muster\n#arzt",
		SenderEmail: "manual-1@manual-contact.local",
		Manual:      true,
	})
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, reconcile.ConfidenceFallbackManual, out.Record.Confidence)
	assert.Equal(t, "Maria Muster", *out.Record.FullName)
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{err: context.Canceled}
	e := newTestExtractor(client)

	_, err := e.Extract(ctx, Input{Text: "Hallo", SenderEmail: "a@b.ch"})
	assert.Error(t, err)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLMConfig{Provider: "openai", APIKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.LLMConfig{Provider: "anthropic"})
	assert.Error(t, err)
}
