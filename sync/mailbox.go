// ABOUTME: Gmail-backed mailbox for the contact assistant
// ABOUTME: Lists unread mail, marks messages read and sends plain-text replies
package sync

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
)

// GmailMailbox reads and sends mail through the Gmail API.
type GmailMailbox struct {
	service *gmail.Service
	user    string
	from    string
	label   string
	query   string
	log     *zap.Logger
}

// MailboxOptions selects which messages are polled and who replies are sent as.
type MailboxOptions struct {
	User  string
	From  string
	Label string
	Query string
}

// NewGmailMailbox wraps an authenticated Gmail service.
func NewGmailMailbox(service *gmail.Service, opts MailboxOptions, log *zap.Logger) *GmailMailbox {
	if opts.User == "" {
		opts.User = "me"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GmailMailbox{
		service: service,
		user:    opts.User,
		from:    opts.From,
		label:   opts.Label,
		query:   opts.Query,
		log:     log.With(zap.String("component", "mailbox")),
	}
}

// Unread returns every message matching the configured query and label,
// newest first as Gmail lists them.
// Messages that fail to download or parse are logged and skipped.
func (m *GmailMailbox) Unread(ctx context.Context) ([]*Message, error) {
	var ids []string
	pageToken := ""
	for {
		call := m.service.Users.Messages.List(m.user).Q(m.query).MaxResults(100).Context(ctx)
		if m.label != "" {
			call = call.LabelIds(m.label)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	messages := make([]*Message, 0, len(ids))
	for _, id := range ids {
		msg, err := m.fetch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return messages, ctx.Err()
			}
			m.log.Warn("skipping unreadable message", zap.String("id", id), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (m *GmailMailbox) fetch(ctx context.Context, id string) (*Message, error) {
	full, err := m.service.Users.Messages.Get(m.user, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	raw, err := base64.URLEncoding.DecodeString(full.Raw)
	if err != nil {
		// Gmail sometimes omits padding.
		raw, err = base64.RawURLEncoding.DecodeString(full.Raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		return nil, err
	}
	msg.ID = id
	if msg.RawDate == "" && full.InternalDate > 0 {
		msg.Date = time.UnixMilli(full.InternalDate)
	}
	return msg, nil
}

// MarkRead removes the UNREAD label from a message.
func (m *GmailMailbox) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := m.service.Users.Messages.Modify(m.user, id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", id, err)
	}
	return nil
}

// Send delivers a UTF-8 plain-text message.
func (m *GmailMailbox) Send(ctx context.Context, to, subject, body string) error {
	raw, err := BuildMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}
	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := m.service.Users.Messages.Send(m.user, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	return nil
}

// BuildMessage renders an RFC 2822 text/plain message with quoted-printable body.
func BuildMessage(from, to, subject, body string) ([]byte, error) {
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("recipient cannot be empty")
	}

	var buf bytes.Buffer
	if from != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", from)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}
	return buf.Bytes(), nil
}
