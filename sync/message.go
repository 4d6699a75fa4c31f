// ABOUTME: RFC 2822 message parsing for inbound contact mail
// ABOUTME: Decodes headers, walks MIME parts, converts HTML and strips embedded binaries
package sync

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/htmlindex"
)

// Message is a parsed inbound mail reduced to what contact processing needs.
type Message struct {
	ID        string
	MessageID string
	From      string
	To        string
	Subject   string
	Date      time.Time
	RawDate   string
	Body      string
}

// maxPartDepth bounds recursion into nested multipart bodies.
const maxPartDepth = 8

var (
	dataImagePattern = regexp.MustCompile(`data:image/[^;\s]+;base64,[A-Za-z0-9+/=]+`)
	base64RunPattern = regexp.MustCompile(`[A-Za-z0-9+/]{100,}={0,2}`)
	cidPattern       = regexp.MustCompile(`cid:[A-Za-z0-9@.\-]+`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern  = regexp.MustCompile(`[ \t\f\v]+`)
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// ParseMessage parses a raw RFC 2822 message. The first text/plain part wins;
// an HTML part is converted to text only when no plain part exists.
func ParseMessage(raw []byte) (*Message, error) {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	msg := &Message{
		MessageID: strings.TrimSpace(m.Header.Get("Message-ID")),
		From:      decodeHeader(m.Header.Get("From")),
		To:        decodeHeader(m.Header.Get("To")),
		Subject:   decodeHeader(m.Header.Get("Subject")),
		RawDate:   m.Header.Get("Date"),
	}
	msg.Date, _ = parseEmailDate(msg.RawDate)

	plain, html, err := readPart(m.Header.Get, m.Body, 0)
	if err != nil {
		return nil, err
	}

	body := plain
	if strings.TrimSpace(body) == "" && html != "" {
		body = HTMLToText(html)
	}
	msg.Body = CleanBody(body)

	return msg, nil
}

func readPart(header func(string) string, r io.Reader, depth int) (plain, html string, err error) {
	mediaType, params, perr := mime.ParseMediaType(header("Content-Type"))
	if perr != nil || mediaType == "" {
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxPartDepth || params["boundary"] == "" {
			return "", "", nil
		}
		mr := multipart.NewReader(r, params["boundary"])
		for {
			part, nerr := mr.NextPart()
			if nerr == io.EOF {
				break
			}
			if nerr != nil {
				// Truncated multipart bodies still yield what was read so far.
				break
			}
			p, h, rerr := readPart(part.Header.Get, part, depth+1)
			_ = part.Close()
			if rerr != nil {
				return "", "", rerr
			}
			if p != "" {
				return p, html, nil
			}
			if html == "" {
				html = h
			}
		}
		return "", html, nil
	}

	if isAttachment(header("Content-Disposition"), mediaType) {
		return "", "", nil
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", "", nil
	}

	text, err := decodeText(r, header("Content-Transfer-Encoding"), params["charset"])
	if err != nil {
		return "", "", err
	}
	if mediaType == "text/html" {
		return "", text, nil
	}
	return text, "", nil
}

func isAttachment(disposition, mediaType string) bool {
	if strings.Contains(strings.ToLower(disposition), "attachment") {
		return true
	}
	for _, prefix := range []string{"image/", "application/", "audio/", "video/"} {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

func decodeText(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	if cr, err := charsetReader(charset, r); err == nil {
		r = cr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message part: %w", err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" || charset == "utf8" {
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

// HTMLToText renders an HTML body as plain text with one block element per line.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, tr, li, h1, h2, h3, h4, h5, h6, blockquote, table").AppendHtml("\n")

	text := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunPattern.ReplaceAllString(text, "\n\n"))
}

// CleanBody replaces inline images, long base64 runs and cid references with markers.
func CleanBody(body string) string {
	body = dataImagePattern.ReplaceAllString(body, "[BILD_ENTFERNT]")
	body = base64RunPattern.ReplaceAllString(body, "[BASE64_ENTFERNT]")
	body = cidPattern.ReplaceAllString(body, "[CID_ENTFERNT]")
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.TrimSpace(body)
}

// parseEmailDate parses RFC 2822 email date
func parseEmailDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Now(), nil
	}

	if t, err := mail.ParseDate(dateStr); err == nil {
		return t, nil
	}

	// Strip trailing timezone name like "(UTC)" or "(PST)"
	if idx := strings.Index(dateStr, " ("); idx > 0 {
		dateStr = dateStr[:idx]
	}

	formats := []string{
		time.RFC1123Z,                    // "Mon, 02 Jan 2006 15:04:05 -0700"
		"Mon, 2 Jan 2006 15:04:05 -0700", // Single digit day with timezone
		time.RFC1123,                     // "Mon, 02 Jan 2006 15:04:05 MST"
		"Mon, 2 Jan 2006 15:04:05 MST",   // Single digit day without numeric timezone
		time.RFC822Z,                     // "02 Jan 06 15:04 -0700"
		time.RFC822,                      // "02 Jan 06 15:04 MST"
		time.RFC3339,                     // "2006-01-02T15:04:05Z07:00"
	}

	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
	}

	return time.Now(), fmt.Errorf("failed to parse date: %s", dateStr)
}
