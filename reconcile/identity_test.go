// ABOUTME: Tests for name and entity kind resolution
// ABOUTME: Walks every row of the identity decision table
package reconcile

import "testing"

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name        string
		contact     NormalizedContact
		sender      string
		wantName    string
		wantCompany bool
	}{
		{
			name:        "company with company field",
			contact:     NormalizedContact{IsCompany: true, Company: "Firma AG", FullName: "Hans Muster"},
			sender:      "info@firma.ch",
			wantName:    "Firma AG",
			wantCompany: true,
		},
		{
			name:        "company with only full name",
			contact:     NormalizedContact{IsCompany: true, FullName: "Muster Holding"},
			sender:      "info@muster.ch",
			wantName:    "Muster Holding",
			wantCompany: true,
		},
		{
			name:        "company without names",
			contact:     NormalizedContact{IsCompany: true},
			sender:      "sales.team@firma.ch",
			wantName:    "Sales Team",
			wantCompany: true,
		},
		{
			name:     "person with full name ignores company",
			contact:  NormalizedContact{FullName: "Anna Keller", Company: "Keller GmbH"},
			sender:   "anna@keller.ch",
			wantName: "Anna Keller",
		},
		{
			name:     "person from parts",
			contact:  NormalizedContact{FirstName: "Anna", LastName: " Keller "},
			sender:   "anna@keller.ch",
			wantName: "Anna Keller",
		},
		{
			name:     "person with last name only",
			contact:  NormalizedContact{LastName: "Keller"},
			sender:   "anna@keller.ch",
			wantName: "Keller",
		},
		{
			name:     "person from sender",
			contact:  NormalizedContact{},
			sender:   "hans.peter.muster@example.com",
			wantName: "Hans Peter Muster",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotName, gotCompany := ResolveIdentity(tt.contact, tt.sender)
			if gotName != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, gotName)
			}
			if gotCompany != tt.wantCompany {
				t.Errorf("expected isCompany %v, got %v", tt.wantCompany, gotCompany)
			}
		})
	}
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"anna.keller@example.com", "Anna Keller"},
		{"INFO@example.com", "Info"},
		{"max", "Max"},
		{"", ""},
		{"@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NameFromEmail(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
