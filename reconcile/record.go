// ABOUTME: Record types flowing through contact reconciliation
// ABOUTME: Pointer fields keep absent values distinguishable from empty ones
package reconcile

import "strings"

// Confidence is the extraction quality tag reported by the language model
// or assigned by the fallback builders.
type Confidence string

const (
	ConfidenceHigh           Confidence = "high"
	ConfidenceMedium         Confidence = "medium"
	ConfidenceLow            Confidence = "low"
	ConfidenceFallback       Confidence = "fallback"
	ConfidenceFallbackManual Confidence = "fallback_manual"
)

// ParseConfidence maps a model-reported tag onto the known levels. Anything
// unknown or missing counts as medium.
func ParseConfidence(raw string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceFallback, ConfidenceFallbackManual:
		return c
	default:
		return ConfidenceMedium
	}
}

// Address is the untrusted postal address of an extraction record.
type Address struct {
	Street  *string `json:"street,omitempty"`
	Street2 *string `json:"street2,omitempty"`
	City    *string `json:"city,omitempty"`
	Zip     *string `json:"zip,omitempty"`
	State   *string `json:"state,omitempty"`
	Country *string `json:"country,omitempty"`
}

// ExtractionRecord is the raw structure returned by the extractor. Any field
// may be nil; nil never means "clear the existing value".
type ExtractionRecord struct {
	FirstName  *string    `json:"first_name,omitempty"`
	LastName   *string    `json:"last_name,omitempty"`
	FullName   *string    `json:"full_name,omitempty"`
	Company    *string    `json:"company,omitempty"`
	IsCompany  *bool      `json:"is_company,omitempty"`
	Emails     []string   `json:"emails,omitempty"`
	Phones     []string   `json:"phones,omitempty"`
	Address    *Address   `json:"address,omitempty"`
	Website    *string    `json:"website,omitempty"`
	Position   *string    `json:"position,omitempty"`
	Language   *string    `json:"language,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Biography  *string    `json:"biography,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// NormalizedAddress has every sub-field defaulted to the empty string.
type NormalizedAddress struct {
	Street  string `json:"street"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// IsEmpty reports whether no address sub-field carries a value.
func (a NormalizedAddress) IsEmpty() bool {
	return a == NormalizedAddress{}
}

// NormalizedContact is an ExtractionRecord after validation. Biography has
// its hashtag and at-tag markers removed; RawBiography keeps the text as
// the extractor returned it.
type NormalizedContact struct {
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	FullName     string            `json:"full_name"`
	Company      string            `json:"company"`
	IsCompany    bool              `json:"is_company"`
	Emails       []string          `json:"emails"`
	Phones       []string          `json:"phones"`
	Address      NormalizedAddress `json:"address"`
	Website      string            `json:"website"`
	Position     string            `json:"position"`
	Language     string            `json:"language"`
	Categories   []string          `json:"categories"`
	Biography    string            `json:"biography"`
	RawBiography string            `json:"raw_biography"`
	Confidence   Confidence        `json:"confidence"`
}

// PrimaryEmail returns the first retained email, or "".
func (c NormalizedContact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0]
}

// ExistingContact is a CRM record as read fresh from the backend.
type ExistingContact struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Street      string   `json:"street"`
	Street2     string   `json:"street2"`
	City        string   `json:"city"`
	Zip         string   `json:"zip"`
	State       string   `json:"state"`
	CountryCode string   `json:"country_code"`
	Website     string   `json:"website"`
	Function    string   `json:"function"`
	Lang        string   `json:"lang"`
	Comment     string   `json:"comment"`
	CategoryIDs []string `json:"category_ids"`
	IsCompany   bool     `json:"is_company"`
}

// MergePayload lists the CRM fields that should change. A nil field is left
// untouched; a nil CategoryIDs leaves the category set untouched.
type MergePayload struct {
	Name        *string  `json:"name,omitempty"`
	Email       *string  `json:"email,omitempty"`
	Lang        *string  `json:"lang,omitempty"`
	IsCompany   *bool    `json:"is_company,omitempty"`
	Comment     *string  `json:"comment,omitempty"`
	Street      *string  `json:"street,omitempty"`
	Street2     *string  `json:"street2,omitempty"`
	City        *string  `json:"city,omitempty"`
	Zip         *string  `json:"zip,omitempty"`
	State       *string  `json:"state,omitempty"`
	CountryCode *string  `json:"country_code,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Website     *string  `json:"website,omitempty"`
	Function    *string  `json:"function,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
}

// IsEmpty reports whether the payload would change nothing.
func (p MergePayload) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the CRM field names present in the payload, in a stable order.
func (p MergePayload) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.Email != nil, "email")
	add(p.Lang != nil, "lang")
	add(p.IsCompany != nil, "is_company")
	add(p.Comment != nil, "comment")
	add(p.Street != nil, "street")
	add(p.Street2 != nil, "street2")
	add(p.City != nil, "city")
	add(p.Zip != nil, "zip")
	add(p.State != nil, "state")
	add(p.CountryCode != nil, "country_id")
	add(p.Phone != nil, "phone")
	add(p.Website != nil, "website")
	add(p.Function != nil, "function")
	add(p.CategoryIDs != nil, "category_id")
	return fields
}

// ApplyTo returns a copy of c with the payload written over it.
func (p MergePayload) ApplyTo(c ExistingContact) ExistingContact {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Email, p.Email)
	set(&c.Lang, p.Lang)
	set(&c.Comment, p.Comment)
	set(&c.Street, p.Street)
	set(&c.Street2, p.Street2)
	set(&c.City, p.City)
	set(&c.Zip, p.Zip)
	set(&c.State, p.State)
	set(&c.CountryCode, p.CountryCode)
	set(&c.Phone, p.Phone)
	set(&c.Website, p.Website)
	set(&c.Function, p.Function)
	if p.IsCompany != nil {
		c.IsCompany = *p.IsCompany
	}
	if p.CategoryIDs != nil {
		c.CategoryIDs = append([]string(nil), p.CategoryIDs...)
	}
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func ptr[T any](v T) *T {
	return &v
}
