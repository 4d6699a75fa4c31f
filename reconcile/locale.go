// ABOUTME: Language and country name lookups for CRM fields
// ABOUTME: Converts extractor language names and country names to CRM codes
package reconcile

import "strings"

// DefaultLanguage is used when the extractor names no known language.
const DefaultLanguage = "de_DE"

var languageCodes = map[string]string{
	"deutsch":  "de_DE",
	"german":   "de_DE",
	"english":  "en_US",
	"englisch": "en_US",
	"français": "fr_FR",
	"french":   "fr_FR",
	"italiano": "it_IT",
	"italian":  "it_IT",
	"español":  "es_ES",
	"spanish":  "es_ES",
	"русский":  "ru_RU",
	"russian":  "ru_RU",
}

var countryCodes = map[string]string{
	"russia":        "RU",
	"deutschland":   "DE",
	"germany":       "DE",
	"schweiz":       "CH",
	"switzerland":   "CH",
	"österreich":    "AT",
	"austria":       "AT",
	"usa":           "US",
	"united states": "US",
}

// LanguageCode maps a language name to a CRM language code.
func LanguageCode(name string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return DefaultLanguage
}

// CountryCode maps a country name to its ISO code. Two-letter input that
// is already a known code is accepted as is.
func CountryCode(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if code, ok := countryCodes[key]; ok {
		return code, true
	}
	upper := strings.ToUpper(key)
	for _, code := range countryCodes {
		if code == upper {
			return code, true
		}
	}
	return "", false
}
