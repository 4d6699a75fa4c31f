// ABOUTME: Field normalizer for untrusted extraction records
// ABOUTME: Cleans emails, phones, tags, address and website, degrading to empty values
package reconcile

import (
	"regexp"
	"strings"
)

const maxEmails = 3

var (
	phoneStrip = regexp.MustCompile(`[^0-9+\-()\s]`)
	hashtagRe  = regexp.MustCompile(`(^|[^\p{L}\p{N}_])#(\p{L}[\p{L}\p{N}_-]*)`)
	atTagRe    = regexp.MustCompile(`(^|\s)@(\p{L}[\p{L}\p{N}_-]*)`)
	spaceRun   = regexp.MustCompile(`\s+`)
	websiteRe  = regexp.MustCompile(`(?i)^https?://(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(?::\d+)?(?:/?|[/?]\S+)$`)
)

// Exclusions holds the self-referential data the normalizer removes.
// EmailTokens apply to every address including the sender; PlaceholderTokens
// only drop addresses the extractor found, so a generated placeholder sender
// survives as the reconciliation key.
type Exclusions struct {
	EmailTokens       []string `yaml:"email_tokens"`
	PlaceholderTokens []string `yaml:"placeholder_tokens"`
	AddressTokens     []string `yaml:"address_tokens"`
	WebsiteDomains    []string `yaml:"website_domains"`
}

// DefaultExclusions returns the operator's own addresses and domains.
func DefaultExclusions() Exclusions {
	return Exclusions{
		EmailTokens:       []string{"ki-kontakt-admin", "ki-adress-admin", "@5gfrei.ch", "@andreas-gross.ch"},
		PlaceholderTokens: []string{"manual-contact.local", "placeholder.local"},
		AddressTokens:     []string{"althusweg 12", "morgarten", "6315", "andreas groß", "andreas gross", "5gfrei"},
		WebsiteDomains:    []string{"5gfrei.ch", "inggross.de", "standortdatenblatt.ch", "swiss-ecommerce.ch"},
	}
}

// Normalize validates an extraction record. It never fails: unusable values
// become empty.
func Normalize(record ExtractionRecord, senderEmail string, ex Exclusions) NormalizedContact {
	rawBio := deref(record.Biography)

	c := NormalizedContact{
		FirstName:    deref(record.FirstName),
		LastName:     deref(record.LastName),
		FullName:     deref(record.FullName),
		Company:      deref(record.Company),
		IsCompany:    record.IsCompany != nil && *record.IsCompany,
		Emails:       normalizeEmails(record.Emails, senderEmail, ex),
		Phones:       normalizePhones(record.Phones),
		Address:      normalizeAddress(record.Address, ex.AddressTokens),
		Website:      normalizeWebsite(deref(record.Website), ex.WebsiteDomains),
		Position:     deref(record.Position),
		Language:     deref(record.Language),
		RawBiography: rawBio,
		Confidence:   ParseConfidence(string(record.Confidence)),
	}

	c.Categories = normalizeLabels(record.Categories)
	for _, tag := range BiographyTags(rawBio) {
		if !containsString(c.Categories, tag) {
			c.Categories = append(c.Categories, tag)
		}
	}
	c.Biography = StripTags(rawBio)

	return c
}

// CanonicalLabel lowercases a category label and trims whitespace and '#'.
func CanonicalLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.Trim(label, "#")
	return strings.ToLower(strings.TrimSpace(label))
}

// BiographyTags returns the lowercase #hashtag and @tag words of text in
// order of appearance, without duplicates.
func BiographyTags(text string) []string {
	var tags []string
	for _, re := range []*regexp.Regexp{hashtagRe, atTagRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			tag := strings.ToLower(strings.TrimRight(m[2], "-_"))
			if tag != "" && !containsString(tags, tag) {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// StripTags removes #hashtag and @tag tokens and collapses whitespace.
func StripTags(text string) string {
	text = hashtagRe.ReplaceAllString(text, "$1")
	text = atTagRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}

func normalizeEmails(raw []string, sender string, ex Exclusions) []string {
	sender = strings.TrimSpace(sender)

	var candidates []string
	if sender != "" {
		candidates = append(candidates, sender)
	}
	for _, e := range raw {
		e = strings.TrimSpace(e)
		if e == "" || containsAnyFold(e, ex.PlaceholderTokens) {
			continue
		}
		candidates = append(candidates, e)
	}

	var out []string
	for _, e := range candidates {
		if !strings.Contains(e, "@") || containsAnyFold(e, ex.EmailTokens) {
			continue
		}
		if containsFold(out, e) {
			continue
		}
		out = append(out, e)
	}

	if len(out) > maxEmails {
		out = out[:maxEmails]
	}
	return out
}

func normalizePhones(raw []string) []string {
	var out []string
	for _, p := range raw {
		clean := strings.TrimSpace(phoneStrip.ReplaceAllString(strings.TrimSpace(p), ""))
		if len(clean) >= 6 {
			out = append(out, clean)
		}
	}
	return out
}

func normalizeLabels(raw []string) []string {
	var out []string
	for _, l := range raw {
		l = CanonicalLabel(l)
		if l != "" && !containsString(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func normalizeAddress(a *Address, ownTokens []string) NormalizedAddress {
	if a == nil {
		return NormalizedAddress{}
	}
	addr := NormalizedAddress{
		Street:  deref(a.Street),
		Street2: deref(a.Street2),
		City:    deref(a.City),
		Zip:     deref(a.Zip),
		State:   deref(a.State),
		Country: deref(a.Country),
	}

	fingerprint := strings.ToLower(addr.Street + " " + addr.City + " " + addr.Zip)
	for _, token := range ownTokens {
		if token != "" && strings.Contains(fingerprint, strings.ToLower(token)) {
			return NormalizedAddress{}
		}
	}
	return addr
}

func normalizeWebsite(website string, ownDomains []string) string {
	if website == "" {
		return ""
	}
	if containsAnyFold(website, ownDomains) {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	if !websiteRe.MatchString(website) {
		return ""
	}
	return website
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, tokens []string) bool {
	lower := strings.ToLower(s)
	for _, t := range tokens {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
