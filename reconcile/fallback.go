// ABOUTME: Deterministic fallback records for failed extractions
// ABOUTME: Derives a usable record from the sender address or manual text
package reconcile

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ManualContactName names manual imports that carry no usable name line.
const ManualContactName = "Manueller Kontakt"

var (
	letterHashtag = regexp.MustCompile(`#(\p{L}+)`)
	digitRun      = regexp.MustCompile(`\d{3,}`)
)

// FallbackFromEmail builds a record from the sender address when the
// extractor produced nothing usable.
func FallbackFromEmail(senderEmail, biography string) ExtractionRecord {
	local := strings.TrimSpace(senderEmail)
	if i := strings.Index(local, "@"); i >= 0 {
		local = local[:i]
	}
	if local == "" {
		local = "Unknown"
	}

	var first, last, full string
	parts := strings.Split(local, ".")
	switch {
	case len(parts) == 2:
		first = capitalize(parts[0])
		last = capitalize(parts[1])
		full = strings.TrimSpace(first + " " + last)
	case len(parts) > 2:
		full = cases.Title(language.Und).String(strings.Join(parts, " "))
	default:
		full = capitalize(local)
	}

	var emails []string
	if senderEmail != "" {
		emails = []string{senderEmail}
	}

	var categories []string
	for _, m := range letterHashtag.FindAllStringSubmatch(biography, -1) {
		categories = append(categories, strings.ToLower(m[1]))
	}

	return ExtractionRecord{
		FirstName:  ptr(first),
		LastName:   ptr(last),
		FullName:   ptr(full),
		Company:    ptr(""),
		IsCompany:  ptr(false),
		Emails:     emails,
		Language:   ptr("deutsch"),
		Categories: categories,
		Biography:  ptr(biography),
		Confidence: ConfidenceFallback,
	}
}

// FallbackManual builds a record from pasted text. The first line of two to
// four words without an address, long digit run or leading '#' becomes the
// name.
func FallbackManual(senderEmail, text string) ExtractionRecord {
	name := ManualContactName
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		words := len(strings.Fields(line))
		if words < 2 || words > 4 {
			continue
		}
		if strings.Contains(line, "@") || digitRun.MatchString(line) || strings.HasPrefix(line, "#") {
			continue
		}
		name = line
		break
	}

	var emails []string
	if senderEmail != "" {
		emails = []string{senderEmail}
	}

	return ExtractionRecord{
		FirstName:  ptr(""),
		LastName:   ptr(""),
		FullName:   ptr(name),
		Company:    ptr(""),
		IsCompany:  ptr(false),
		Emails:     emails,
		Language:   ptr("deutsch"),
		Categories: BiographyTags(text),
		Biography:  ptr(text),
		Confidence: ConfidenceFallbackManual,
	}
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
