// ABOUTME: Tests for the Gmail mailbox against a fake Gmail API server
// ABOUTME: Verifies paging, raw message decoding, label removal and sending
package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type fakeGmail struct {
	mu       stdsync.Mutex
	modified []string
	sent     []string
}

func (f *fakeGmail) handler(t *testing.T) http.Handler {
	raw := base64.URLEncoding.EncodeToString([]byte(
		"From: Anna <anna@example.ch>\r\nSubject: Hallo\r\nMessage-ID: <m1@example.ch>\r\n\r\nNeuer Kontakt\r\n"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "is:unread", r.URL.Query().Get("q"))
		assert.Equal(t, "INBOX", r.URL.Query().Get("labelIds"))
		if r.URL.Query().Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages":      []map[string]string{{"id": "m1"}},
				"nextPageToken": "p2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "missing"}},
		})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "raw", r.URL.Query().Get("format"))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "m1", "raw": raw})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/{id}/modify", func(w http.ResponseWriter, r *http.Request) {
		var req gmail.ModifyMessageRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"UNREAD"}, req.RemoveLabelIds)
		f.mu.Lock()
		f.modified = append(f.modified, r.PathValue("id"))
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"id": r.PathValue("id")})
	})
	mux.HandleFunc("POST /gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg gmail.Message
		assert.NoError(t, json.Unmarshal(body, &msg))
		decoded, err := base64.URLEncoding.DecodeString(msg.Raw)
		assert.NoError(t, err)
		f.mu.Lock()
		f.sent = append(f.sent, string(decoded))
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "s1"})
	})
	return mux
}

func newTestMailbox(t *testing.T) (*GmailMailbox, *fakeGmail) {
	t.Helper()
	fake := &fakeGmail{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	service, err := gmail.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	mb := NewGmailMailbox(service, MailboxOptions{
		From:  "ki-adress-admin@example.org",
		Label: "INBOX",
		Query: "is:unread",
	}, nil)
	return mb, fake
}

func TestMailboxUnreadSkipsBrokenMessages(t *testing.T) {
	mb, _ := newTestMailbox(t)

	msgs, err := mb.Unread(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "<m1@example.ch>", msgs[0].MessageID)
	assert.Equal(t, "Neuer Kontakt", msgs[0].Body)
}

func TestMailboxMarkRead(t *testing.T) {
	mb, fake := newTestMailbox(t)

	require.NoError(t, mb.MarkRead(context.Background(), "m1"))
	assert.Equal(t, []string{"m1"}, fake.modified)
}

func TestMailboxSend(t *testing.T) {
	mb, fake := newTestMailbox(t)

	err := mb.Send(context.Background(), "admin@example.org", "✅ Kontakt erstellt", "Grüezi\nalles erfasst")
	require.NoError(t, err)
	require.Len(t, fake.sent, 1)

	sent := fake.sent[0]
	assert.Contains(t, sent, "From: ki-adress-admin@example.org\r\n")
	assert.Contains(t, sent, "To: admin@example.org\r\n")
	assert.Contains(t, sent, "Subject: =?utf-8?q?")

	parsed, err := ParseMessage([]byte(sent))
	require.NoError(t, err)
	assert.Equal(t, "✅ Kontakt erstellt", parsed.Subject)
	assert.Equal(t, "Grüezi\nalles erfasst", parsed.Body)
}

func TestBuildMessageRequiresRecipient(t *testing.T) {
	_, err := BuildMessage("a@b.ch", " ", "s", "b")
	assert.Error(t, err)
}
