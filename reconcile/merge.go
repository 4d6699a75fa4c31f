// ABOUTME: Merge engine computing create payloads and complement-only updates
// ABOUTME: Never overwrites non-empty CRM fields except name, company flag, comment and categories
package reconcile

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CommentSeparator joins an appended comment block to the existing comment.
const CommentSeparator = "\n--- Ergänzung ---\n"

var namePlaceholders = []string{"unknown", "contact", "@"}

// Merge computes the payload for c against existing. With no existing record
// the payload is a full creation request and isCreate is true. Otherwise it
// holds only the fields that change; an empty payload is a no-op.
func Merge(existing *ExistingContact, c NormalizedContact, categoryIDs []string, displayName string, isCompany bool, now time.Time) (MergePayload, bool, string) {
	comment, timeline := Split(c, c.Confidence, c.Company, isCompany, now)
	if len(c.Phones) > 1 {
		comment += "\nWeitere Telefonnummern: " + strings.Join(c.Phones[1:], ", ")
	}

	create := createPayload(c, categoryIDs, displayName, isCompany, comment)
	if existing == nil {
		return create, true, timeline
	}

	return updatePayload(*existing, create), false, timeline
}

func createPayload(c NormalizedContact, categoryIDs []string, displayName string, isCompany bool, comment string) MergePayload {
	p := MergePayload{
		Name:      ptr(displayName),
		Lang:      ptr(LanguageCode(c.Language)),
		IsCompany: ptr(isCompany),
		Comment:   ptr(comment),
	}
	if email := c.PrimaryEmail(); email != "" {
		p.Email = ptr(email)
	}

	a := c.Address
	p.Street = optional(a.Street)
	p.Street2 = optional(a.Street2)
	p.City = optional(a.City)
	p.Zip = optional(a.Zip)
	p.State = optional(a.State)
	if code, ok := CountryCode(a.Country); ok {
		p.CountryCode = ptr(code)
	}

	if len(c.Phones) > 0 {
		p.Phone = ptr(c.Phones[0])
	}
	p.Website = optional(c.Website)
	p.Function = optional(c.Position)

	if len(categoryIDs) > 0 {
		p.CategoryIDs = append([]string(nil), categoryIDs...)
	}
	return p
}

func updatePayload(existing ExistingContact, create MergePayload) MergePayload {
	var p MergePayload

	newName := strings.TrimSpace(value(create.Name))
	newIsCompany := create.IsCompany != nil && *create.IsCompany
	if newName != "" && shouldRename(existing, newName, newIsCompany) {
		p.Name = ptr(newName)
	}

	if newIsCompany && !existing.IsCompany {
		p.IsCompany = ptr(true)
	}

	p.Phone = complement(existing.Phone, create.Phone)
	p.Street = complement(existing.Street, create.Street)
	p.City = complement(existing.City, create.City)
	p.Zip = complement(existing.Zip, create.Zip)
	p.Website = complement(existing.Website, create.Website)
	p.Function = complement(existing.Function, create.Function)
	p.Lang = complement(existing.Lang, create.Lang)
	p.CountryCode = complement(existing.CountryCode, create.CountryCode)

	p.Comment = MergeComment(existing.Comment, value(create.Comment))
	p.CategoryIDs = UnionCategories(existing.CategoryIDs, create.CategoryIDs)

	return p
}

func shouldRename(existing ExistingContact, newName string, newIsCompany bool) bool {
	current := strings.TrimSpace(existing.Name)
	if current == "" {
		return true
	}
	if current == newName {
		return false
	}
	if nameTokens(newName) > nameTokens(current) {
		return true
	}
	lower := strings.ToLower(current)
	for _, marker := range namePlaceholders {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return newIsCompany && !existing.IsCompany
}

// nameTokens counts space-separated name parts, ignoring bare initials such
// as "J" or "J." so that "J Smith" counts as one token.
func nameTokens(name string) int {
	n := 0
	for _, f := range strings.Fields(name) {
		if utf8.RuneCountInString(strings.Trim(f, ".")) > 1 {
			n++
		}
	}
	return n
}

// MergeComment appends block to existing under CommentSeparator unless the
// block is already contained. It returns nil when nothing changes.
func MergeComment(existing, block string) *string {
	block = strings.TrimSpace(block)
	existing = strings.TrimSpace(existing)
	if block == "" {
		return nil
	}
	if existing == "" {
		return ptr(block)
	}
	if strings.Contains(existing, block) {
		return nil
	}
	return ptr(existing + CommentSeparator + block)
}

// UnionCategories returns existing plus unseen additions, or nil when the
// set would not change.
func UnionCategories(existing, additions []string) []string {
	union := append([]string(nil), existing...)
	changed := false
	for _, id := range additions {
		if !containsString(union, id) {
			union = append(union, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return union
}

func complement(existing string, candidate *string) *string {
	if candidate == nil || strings.TrimSpace(*candidate) == "" {
		return nil
	}
	if strings.TrimSpace(existing) != "" {
		return nil
	}
	return candidate
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return ptr(s)
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
