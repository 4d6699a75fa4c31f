// ABOUTME: Tests for inbound message parsing
// ABOUTME: Covers multipart selection, charsets, HTML fallback and body cleaning
package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multipartMail = "From: =?UTF-8?Q?J=C3=BCrg_M=C3=BCller?= <juerg@example.ch>\r\n" +
	"To: ki-adress-admin@example.org\r\n" +
	"Subject: =?UTF-8?B?V2c6IEFuZnJhZ2Ugw7xiZXIgS3Vyc2U=?=\r\n" +
	"Message-ID: <abc123@example.ch>\r\n" +
	"Date: Fri, 14 Mar 2025 09:30:00 +0100\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=\"inner\"\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Gr=FCezi, neuer Kunde #kunde\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML version</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"offer.pdf\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0xLjQK\r\n" +
	"--outer--\r\n"

func TestParseMessageMultipart(t *testing.T) {
	msg, err := ParseMessage([]byte(multipartMail))
	require.NoError(t, err)

	assert.Equal(t, "Jürg Müller <juerg@example.ch>", msg.From)
	assert.Equal(t, "Wg: Anfrage über Kurse", msg.Subject)
	assert.Equal(t, "<abc123@example.ch>", msg.MessageID)
	assert.Equal(t, 2025, msg.Date.Year())
	assert.Equal(t, "Grüezi, neuer Kunde #kunde", msg.Body)
}

func TestParseMessageHTMLFallback(t *testing.T) {
	raw := "From: anna@example.ch\r\n" +
		"Subject: Kontakt\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{color:red}</style></head><body>" +
		"<p>Anna Keller</p><div>Tel&nbsp;041 123 45 67<br>Zug</div><script>x()</script></body></html>"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Anna Keller\nTel 041 123 45 67\nZug", msg.Body)
}

func TestParseMessageBase64Plain(t *testing.T) {
	raw := "From: anna@example.ch\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"SGFsbG8gV2VsdA==\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Hallo Welt", msg.Body)
}

func TestParseMessageWithoutContentType(t *testing.T) {
	msg, err := ParseMessage([]byte("From: a@b.ch\r\n\r\nnur Text\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "nur Text", msg.Body)
}

func TestCleanBody(t *testing.T) {
	long := strings.Repeat("QUJD", 30)
	body := "Bild: data:image/png;base64,iVBORw0KGgo= Ende\n" +
		"Blob " + long + "\n" +
		"Logo <cid:image001.png@01D9>"

	got := CleanBody(body)

	assert.Contains(t, got, "Bild: [BILD_ENTFERNT] Ende")
	assert.Contains(t, got, "Blob [BASE64_ENTFERNT]")
	assert.Contains(t, got, "Logo <[CID_ENTFERNT]>")
	assert.NotContains(t, got, long)
}

func TestParseEmailDate(t *testing.T) {
	tests := []struct {
		input string
		year  int
		ok    bool
	}{
		{"Fri, 14 Mar 2025 09:30:00 +0100", 2025, true},
		{"Fri, 7 Mar 2025 09:30:00 +0100 (CET)", 2025, true},
		{"2024-02-01T10:00:00Z", 2024, true},
		{"gestern", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseEmailDate(tt.input)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.year, got.Year())
			} else {
				assert.Error(t, err)
			}
		})
	}
}
