// ABOUTME: Tests for contact store data models
// ABOUTME: Validates address detection and import log helpers
package models

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestContactHasAddress(t *testing.T) {
	tests := []struct {
		name     string
		contact  Contact
		expected bool
	}{
		{"empty", Contact{Name: "Anna"}, false},
		{"street only", Contact{Street: "Seestrasse 1"}, true},
		{"zip only", Contact{Zip: "6300"}, true},
		{"country is not an address", Contact{CountryCode: "CH"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contact.HasAddress(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestImportLogFailed(t *testing.T) {
	entry := &ImportLog{
		ID:        ulid.Make(),
		Source:    SourceMail,
		SourceKey: "abc",
		Outcome:   OutcomeRejected,
		CreatedAt: time.Now(),
	}
	if !entry.Failed() {
		t.Error("expected rejected import to be failed")
	}

	entry.Outcome = OutcomeUnchanged
	if entry.Failed() {
		t.Error("expected unchanged import not to be failed")
	}
}
