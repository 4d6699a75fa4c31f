// ABOUTME: Name and entity kind resolution for normalized contacts
// ABOUTME: Picks the display name from company, full name, parts or sender email
package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResolveIdentity returns the display name and whether the record is a
// company. The company field only names the record when it is flagged as a
// company; for persons it stays auxiliary metadata.
func ResolveIdentity(c NormalizedContact, senderEmail string) (string, bool) {
	if c.IsCompany {
		switch {
		case c.Company != "":
			return c.Company, true
		case c.FullName != "":
			return c.FullName, true
		default:
			return NameFromEmail(senderEmail), true
		}
	}

	if c.FullName != "" {
		return c.FullName, false
	}
	if joined := strings.TrimSpace(c.FirstName + " " + c.LastName); joined != "" {
		return strings.Join(strings.Fields(joined), " "), false
	}
	return NameFromEmail(senderEmail), false
}

// NameFromEmail title-cases the local part of an address with dots replaced
// by spaces: "anna.keller@example.com" becomes "Anna Keller".
func NameFromEmail(email string) string {
	local := strings.TrimSpace(email)
	if i := strings.Index(local, "@"); i >= 0 {
		local = local[:i]
	}
	local = strings.TrimSpace(strings.ReplaceAll(local, ".", " "))
	if local == "" {
		return ""
	}
	return cases.Title(language.Und).String(local)
}
