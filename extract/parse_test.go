// ABOUTME: Tests for parsing model replies into extraction records
// ABOUTME: Covers raw JSON, fenced blocks, embedded objects, coercion, and rejects
package extract

import (
	"testing"

	"github.com/harperreed/kontakt/reconcile"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseFormats(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"raw json", `{"full_name": "Anna Keller", "confidence": "high"}`},
		{"fenced", "Hier die Daten:\n```json\n{\"full_name\": \"Anna Keller\", \"confidence\": \"high\"}\n```\nGruss"},
		{"embedded", `Ergebnis: {"full_name": "Anna Keller", "confidence": "high"} Ende`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := ParseResponse(tt.reply)
			require.NoError(t, err)
			require.NotNil(t, record.FullName)
			assert.Equal(t, "Anna Keller", *record.FullName)
			assert.Equal(t, reconcile.ConfidenceHigh, record.Confidence)
		})
	}
}

func TestParseResponseFullRecord(t *testing.T) {
	reply := `{
		"first_name": "Anna", "last_name": "Keller", "full_name": null,
		"company": "Keller GmbH", "is_company": false,
		"emails": ["anna@keller.ch"], "phones": ["+41 41 123 45 67"],
		"address": {"street": "Seestrasse 1", "city": "Zug", "zip": "6300", "country": "Schweiz"},
		"website": "keller.ch", "position": "CEO", "language": "deutsch",
		"categories": ["kunde"], "biography": "Kennengelernt an der Messe.", "confidence": "medium"
	}`

	record, err := ParseResponse(reply)
	require.NoError(t, err)

	assert.Nil(t, record.FullName)
	require.NotNil(t, record.IsCompany)
	assert.False(t, *record.IsCompany)
	require.NotNil(t, record.Address)
	assert.Equal(t, "Zug", *record.Address.City)
	assert.Equal(t, []string{"kunde"}, record.Categories)
}

func TestParseResponseCoercesTypeSlips(t *testing.T) {
	reply := `{"phones": "041 123 45 67", "is_company": "true", "address": {"zip": 6300}, "emails": [], "categories": "kunde"}`

	record, err := ParseResponse(reply)
	require.NoError(t, err)

	assert.Equal(t, []string{"041 123 45 67"}, record.Phones)
	require.NotNil(t, record.IsCompany)
	assert.True(t, *record.IsCompany)
	assert.Equal(t, "6300", *record.Address.Zip)
	assert.Equal(t, []string{"kunde"}, record.Categories)
}

func TestParseResponseRejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "Ich konnte keine Daten finden."},
		{"array", `["a", "b"]`},
		{"wrong nested type", `{"emails": [{"address": "a@b.ch"}]}`},
		{"broken", `{"full_name": "Anna"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.reply)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrParse))
		})
	}
}
