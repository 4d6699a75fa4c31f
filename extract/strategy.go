// ABOUTME: Cost-bounded truncation of long message bodies before extraction
// ABOUTME: Keeps the head and the footer where signatures usually live
package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/harperreed/kontakt/config"
)

// SmartTruncate shortens text to the configured head and footer. Lengths
// count runes.
func SmartTruncate(text string, cfg config.StrategyConfig) string {
	runes := []rune(text)

	if !cfg.Enabled {
		if cfg.MaxEmailLength > 0 && len(runes) > cfg.MaxEmailLength {
			return string(runes[:cfg.MaxEmailLength])
		}
		return text
	}

	if len(runes) <= cfg.MaxTotalChars || cfg.HeadChars+cfg.FooterChars >= len(runes) {
		return text
	}

	head := strings.TrimRightFunc(string(runes[:cfg.HeadChars]), unicode.IsSpace)
	footer := strings.TrimLeftFunc(string(runes[len(runes)-cfg.FooterChars:]), unicode.IsSpace)
	skipped := len(runes) - cfg.HeadChars - cfg.FooterChars

	return head + fmt.Sprintf("\n\n[...%d Zeichen übersprungen für Kostenoptimierung...]\n\n", skipped) + footer
}

