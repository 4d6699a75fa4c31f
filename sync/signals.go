// ABOUTME: Heuristics that read contact signals out of an inbound mail
// ABOUTME: Finds forwarder, primary contact address, biography, dedupe key and clarification replies
package sync

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// ManualPlaceholder is returned by PrimaryEmail for pasted text without any address.
const ManualPlaceholder = "manual-contact@placeholder.local"

var (
	addressPattern       = regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`)
	genericEmailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	forwardedFromPattern = []*regexp.Regexp{
		regexp.MustCompile(`(?is)Von:\s*</th>\s*<td><a[^>]*href="mailto:([^"]+)"`),
		regexp.MustCompile(`(?is)From:\s*</th>\s*<td><a[^>]*href="mailto:([^"]+)"`),
		regexp.MustCompile(`(?i)Von:\s*([^<\n\r\s]+@[^>\n\r\s]+)`),
		regexp.MustCompile(`(?i)From:\s*([^<\n\r\s]+@[^>\n\r\s]+)`),
		regexp.MustCompile(`(?is)Von:\s*.*?<([^>\n\r]+@[^>\n\r]+)>`),
		regexp.MustCompile(`(?is)From:\s*.*?<([^>\n\r]+@[^>\n\r]+)>`),
		regexp.MustCompile(`(?i)Von:[^>]*>([^<\s]+@[^<\s]+)<`),
		regexp.MustCompile(`(?i)From:[^>]*>([^<\s]+@[^<\s]+)<`),
		regexp.MustCompile(`(?i)Absender:\s*([^<\n\r\s]+@[^>\n\r\s]+)`),
		regexp.MustCompile(`(?i)E-Mail:\s*([^<\n\r\s]+@[^>\n\r\s]+)`),
		regexp.MustCompile(`([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})`),
	}
	clarificationTarget  = regexp.MustCompile(`bei der Verarbeitung der E-Mail\s+(?:von\s+)?([^@\s]+@[^@\s]+)`)
	clarificationSubject = regexp.MustCompile(`für\s+([^@\s]+@[^@\s]+)`)
	replyHashTag         = regexp.MustCompile(`#([a-zA-ZäöüÄÖÜß0-9]+)`)
	replyAtTag           = regexp.MustCompile(`(?:^|\s)@([a-zA-ZäöüÄÖÜß0-9]+)`)
)

// emailContextMarkers indicate a forwarded mail rather than pasted free text.
var emailContextMarkers = []string{
	"von:", "from:", "forwarded message", "weitergeleitete nachricht",
	"original message", "subject:", "betreff:", "sent:", "gesendet:",
}

// forwardStopMarkers end the forwarder's own note at the top of a body.
var forwardStopMarkers = []string{
	"-------- weitergeleitete nachricht", "forwarded message", "original message",
	"von:", "from:", "sent:", "gesendet:", "subject:", "betreff:", "date:", "datum:",
}

// ForwarderEmail returns the address in the From header, or admin when it is
// missing or belongs to the mailbox itself.
func ForwarderEmail(from string, mailboxTokens []string, admin string) string {
	addr := addressPattern.FindString(from)
	if addr == "" || containsAnyFold(addr, mailboxTokens) {
		return admin
	}
	return addr
}

// IsManualInput reports whether body lacks any forwarded-mail header context.
func IsManualInput(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range emailContextMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// PrimaryEmail finds the contact address a forwarded body is about. Pasted
// text without a usable address yields ManualPlaceholder; a forwarded body
// without one yields "".
func PrimaryEmail(body string, maxLen int, excluded []string) string {
	search := headRunes(body, 2*maxLen)

	if IsManualInput(search) {
		for _, addr := range genericEmailPattern.FindAllString(search, -1) {
			addr = trimAddress(addr)
			if addr != "" && !containsAnyFold(addr, excluded) {
				return addr
			}
		}
		return ManualPlaceholder
	}

	best, bestPos := "", -1
	for _, pattern := range forwardedFromPattern {
		for _, m := range pattern.FindAllStringSubmatch(search, -1) {
			addr := trimAddress(m[1])
			if len(addr) <= 5 || !strings.Contains(addr, "@") || containsAnyFold(addr, excluded) {
				continue
			}
			// Signatures sit at the end, so the last occurrence wins.
			pos := strings.LastIndex(search, addr)
			if pos > bestPos || (pos == bestPos && addr > best) {
				best, bestPos = addr, pos
			}
		}
	}
	return best
}

// IsManualPlaceholder reports whether addr is the PrimaryEmail placeholder.
func IsManualPlaceholder(addr string) bool {
	return addr == ManualPlaceholder
}

// ManualEmail derives a stable synthetic address for pasted contact text.
func ManualEmail(body string) string {
	sum := md5.Sum([]byte(body))
	return fmt.Sprintf("manual-%s@manual-contact.local", hex.EncodeToString(sum[:])[:8])
}

// ExtractBiography collects the forwarder's note above the forwarded header.
func ExtractBiography(body string, maxLen int) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	var bio []string
	for i, line := range lines {
		if i >= 15 || hasMarker(line, forwardStopMarkers) {
			break
		}
		substantial := len([]rune(line)) > 10 &&
			!strings.HasPrefix(line, ">") &&
			!strings.HasPrefix(line, "--") &&
			!strings.Contains(line, "@")
		if substantial || strings.Contains(line, "#") {
			bio = append(bio, line)
		}
	}

	biography := lines[0]
	if len(bio) > 0 {
		biography = strings.Join(bio, " ")
	}
	if maxLen > 0 && len([]rune(biography)) > maxLen {
		biography = string([]rune(biography)[:maxLen]) + "..."
	}
	return biography
}

// MessageKey returns the dedupe key for a message.
func MessageKey(msg *Message) string {
	if msg.MessageID != "" {
		sum := md5.Sum([]byte(msg.MessageID))
		return hex.EncodeToString(sum[:])
	}
	content := msg.From + msg.Subject + msg.RawDate + headRunes(msg.Body, 200)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ClarificationReply is an answer to a category inquiry.
type ClarificationReply struct {
	TargetEmail string
	Categories  []string
	Biography   string
}

// IsClarificationReply reports whether a message answers a category inquiry.
func IsClarificationReply(subject, body, adminEmail string) bool {
	if strings.Contains(subject, "KI-Rückfrage") {
		return true
	}
	if adminEmail != "" && strings.Contains(body, adminEmail) {
		return true
	}
	return strings.Contains(body, "bei der Verarbeitung der E-Mail") &&
		strings.Contains(body, "konnte ich folgende Kategorien nicht zuordnen")
}

// ParseClarificationReply reads the target contact, the category tags from
// the first line and any biography text the admin wrote above the tags.
// ok is false when either the target or the tags are missing.
func ParseClarificationReply(subject, body string) (reply ClarificationReply, ok bool) {
	if m := clarificationTarget.FindStringSubmatch(body); m != nil {
		reply.TargetEmail = trimAddress(m[1])
	} else if m := clarificationSubject.FindStringSubmatch(subject); m != nil {
		reply.TargetEmail = trimAddress(m[1])
	}

	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	first := lines[0]
	for _, m := range replyHashTag.FindAllStringSubmatch(first, -1) {
		reply.Categories = append(reply.Categories, m[1])
	}
	for _, m := range replyAtTag.FindAllStringSubmatch(first, -1) {
		reply.Categories = append(reply.Categories, m[1])
	}

	var bio []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@") || strings.HasPrefix(line, ">") {
			break
		}
		if line != "" {
			bio = append(bio, line)
		}
	}
	reply.Biography = strings.Join(bio, " ")

	return reply, reply.TargetEmail != "" && len(reply.Categories) > 0
}

func trimAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.TrimPrefix(addr, "mailto:")
	return strings.TrimRight(addr, ".,;:!?)]}>\"'")
}

func headRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func hasMarker(line string, markers []string) bool {
	lower := strings.ToLower(line)
	for _, m := range markers {
		if strings.Contains(lower, m) {
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
