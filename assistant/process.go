// ABOUTME: Per-input processing paths: forwarded mail, clarification replies and pasted text
// ABOUTME: Reconciles each record against a fresh CRM read and writes the result
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/harperreed/kontakt/crm"
	"github.com/harperreed/kontakt/db"
	"github.com/harperreed/kontakt/extract"
	"github.com/harperreed/kontakt/models"
	"github.com/harperreed/kontakt/notify"
	"github.com/harperreed/kontakt/reconcile"
	"github.com/harperreed/kontakt/sync"
)

// Report summarizes what happened to one input.
type Report struct {
	ContactID    string
	ContactEmail string
	DisplayName  string
	Outcome      string
	Confidence   reconcile.Confidence
	Fallback     bool
	Unmatched    []string
	Fields       []string
	NotePosted   bool
	Notified     bool
}

// Preview is the dry-run result of reconciling text against the CRM.
type Preview struct {
	ContactEmail string
	Manual       bool
	Existing     *reconcile.ExistingContact
	Result       reconcile.Result
	Fallback     bool
}

// ProcessMessage handles one inbound mail. Errors leave the message unread so
// the next poll retries it.
func (a *Assistant) ProcessMessage(ctx context.Context, msg *sync.Message) (*Report, error) {
	log := a.log.With(zap.String("message", msg.ID), zap.String("subject", msg.Subject))
	forwarder := sync.ForwarderEmail(msg.From, a.opts.MailboxTokens, a.opts.AdminEmail)

	if sync.IsClarificationReply(msg.Subject, msg.Body, a.opts.AdminEmail) {
		if reply, ok := sync.ParseClarificationReply(msg.Subject, msg.Body); ok {
			report, err := a.ApplyClarification(ctx, reply, forwarder)
			if err == nil {
				a.markRead(ctx, msg.ID)
				a.recordReport(models.SourceClarification, sync.MessageKey(msg), report, nil)
				return report, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("clarification reply not applied, processing as contact mail", zap.Error(err))
		} else {
			log.Info("clarification reply without target or tags, processing as contact mail")
		}
	}

	key := sync.MessageKey(msg)
	if a.seen != nil {
		seen, err := a.seen.Seen(key)
		if err != nil {
			return nil, eris.Wrap(err, "failed to check processed messages")
		}
		if seen {
			log.Debug("already processed")
			return &Report{Outcome: models.OutcomeSkipped}, nil
		}
	}

	if forwarder == "" {
		return nil, a.reject(models.SourceMail, key, "", ErrNoForwarder)
	}

	primary := sync.PrimaryEmail(msg.Body, a.opts.MaxEmailLength, a.opts.Exclusions.EmailTokens)
	if primary == "" {
		return nil, a.reject(models.SourceMail, key, "", ErrNoContactEmail)
	}
	manual := sync.IsManualPlaceholder(primary)
	if manual {
		primary = sync.ManualEmail(msg.Body)
	}

	log.Info("processing contact mail",
		zap.String("contact", primary),
		zap.String("forwarder", forwarder),
		zap.Bool("manual", manual))

	out, err := a.extractor.Extract(ctx, extract.Input{
		Text:        msg.Body,
		Biography:   sync.ExtractBiography(msg.Body, a.opts.MaxBiographyLength),
		SenderEmail: primary,
		Manual:      manual,
	})
	if err != nil {
		return nil, err
	}

	report, err := a.ProcessRecord(ctx, out.Record, primary, forwarder)
	if err != nil {
		a.recordReport(models.SourceMail, key, &Report{ContactEmail: primary, Outcome: models.OutcomeRejected}, err)
		return nil, err
	}
	report.Fallback = out.Fallback

	a.markRead(ctx, msg.ID)
	if a.seen != nil {
		if err := a.seen.Mark(key, a.opts.Now()); err != nil {
			log.Warn("failed to remember processed message", zap.Error(err))
		}
	}
	a.recordReport(models.SourceMail, key, report, nil)
	return report, nil
}

// ProcessRecord reconciles an extraction record for primaryEmail and writes
// the outcome. Notification failures are logged, never returned.
func (a *Assistant) ProcessRecord(ctx context.Context, record reconcile.ExtractionRecord, primaryEmail, forwarder string) (*Report, error) {
	existing, err := a.backend.FindByEmail(ctx, primaryEmail)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to look up %s", primaryEmail)
	}

	catalog := a.Catalog()
	res := reconcile.Reconcile(record, primaryEmail, existing, catalog, a.reconcileOptions())
	log := a.log.With(zap.String("contact", primaryEmail), zap.String("outcome", string(res.Outcome)))

	if len(res.Unmatched) > 0 {
		log.Warn("unknown categories", zap.Strings("unmatched", res.Unmatched))
		if a.opts.AskSender && a.notifier != nil && forwarder != "" {
			if err := a.notifier.CategoryInquiry(ctx, forwarder, primaryEmail, res.Unmatched, res.Contact, catalog.Names()); err != nil {
				log.Warn("category inquiry not sent", zap.Error(err))
			}
		}
	}

	var id string
	switch res.Outcome {
	case reconcile.OutcomeCreated:
		id, err = a.backend.Create(ctx, res.Payload)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to create %s", primaryEmail)
		}
		log.Info("contact created", zap.String("id", id))
	case reconcile.OutcomeUpdated:
		id = existing.ID
		if err := a.backend.Update(ctx, id, res.Payload); err != nil {
			return nil, eris.Wrapf(err, "failed to update %s", primaryEmail)
		}
		log.Info("contact updated", zap.String("id", id), zap.Strings("fields", res.Payload.Fields()))
	default:
		id = existing.ID
		log.Info("contact already complete", zap.String("id", id))
	}

	report := &Report{
		ContactID:    id,
		ContactEmail: primaryEmail,
		DisplayName:  res.DisplayName,
		Outcome:      string(res.Outcome),
		Confidence:   res.Contact.Confidence,
		Unmatched:    res.Unmatched,
		Fields:       res.Payload.Fields(),
	}

	if strings.TrimSpace(res.TimelineNote) != "" {
		if err := a.backend.PostNote(ctx, id, crm.NoteSubject(res.DisplayName), res.TimelineNote); err != nil {
			log.Warn("timeline note not posted", zap.Error(err))
		} else {
			report.NotePosted = true
		}
	}

	if res.Outcome != reconcile.OutcomeUnchanged {
		report.Notified = a.confirm(ctx, forwarder, string(res.Outcome), primaryEmail, id)
	}
	return report, nil
}

// ApplyClarification adds the categories and biography from an inquiry reply
// to an existing contact. Unknown labels are logged and ignored.
func (a *Assistant) ApplyClarification(ctx context.Context, reply sync.ClarificationReply, forwarder string) (*Report, error) {
	existing, err := a.backend.FindByEmail(ctx, reply.TargetEmail)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to look up %s", reply.TargetEmail)
	}
	if existing == nil {
		return nil, eris.Wrapf(ErrContactNotFound, "clarification target %s", reply.TargetEmail)
	}

	log := a.log.With(zap.String("contact", reply.TargetEmail))
	ids, unmatched := reconcile.ResolveCategories(reply.Categories, a.Catalog(), nil)
	if len(unmatched) > 0 {
		log.Warn("ignoring unknown categories in reply", zap.Strings("unmatched", unmatched))
	}

	var payload reconcile.MergePayload
	payload.CategoryIDs = reconcile.UnionCategories(existing.CategoryIDs, ids)
	payload.Comment = clarificationComment(existing.Comment, reply.Biography, a.opts.Now())

	report := &Report{
		ContactID:    existing.ID,
		ContactEmail: reply.TargetEmail,
		DisplayName:  existing.Name,
		Outcome:      models.OutcomeUnchanged,
		Unmatched:    unmatched,
		Fields:       payload.Fields(),
	}
	if payload.IsEmpty() {
		log.Info("clarification changes nothing")
		return report, nil
	}

	if err := a.backend.Update(ctx, existing.ID, payload); err != nil {
		return nil, eris.Wrapf(err, "failed to update %s", reply.TargetEmail)
	}
	report.Outcome = models.OutcomeUpdated
	log.Info("applied clarification", zap.Strings("fields", report.Fields))

	report.Notified = a.confirm(ctx, forwarder, notify.ActionCategoryUpdated, reply.TargetEmail, existing.ID)
	return report, nil
}

// ImportText processes pasted contact text outside the mailbox.
func (a *Assistant) ImportText(ctx context.Context, text string) (*Report, error) {
	key := sync.MessageKey(&sync.Message{Body: text})
	primary, manual, err := a.primaryForText(text)
	if err != nil {
		return nil, a.reject(models.SourceManual, key, "", err)
	}

	out, err := a.extractor.Extract(ctx, extract.Input{
		Text:        text,
		Biography:   sync.ExtractBiography(text, a.opts.MaxBiographyLength),
		SenderEmail: primary,
		Manual:      manual,
	})
	if err != nil {
		return nil, err
	}

	report, err := a.ProcessRecord(ctx, out.Record, primary, a.opts.AdminEmail)
	if err != nil {
		a.recordReport(models.SourceManual, key, &Report{ContactEmail: primary, Outcome: models.OutcomeRejected}, err)
		return nil, err
	}
	report.Fallback = out.Fallback
	a.recordReport(models.SourceManual, key, report, nil)
	return report, nil
}

// PreviewText extracts and reconciles text without writing anything.
func (a *Assistant) PreviewText(ctx context.Context, text string) (*Preview, error) {
	primary, manual, err := a.primaryForText(text)
	if err != nil {
		return nil, err
	}

	out, err := a.extractor.Extract(ctx, extract.Input{
		Text:        text,
		Biography:   sync.ExtractBiography(text, a.opts.MaxBiographyLength),
		SenderEmail: primary,
		Manual:      manual,
	})
	if err != nil {
		return nil, err
	}

	existing, err := a.backend.FindByEmail(ctx, primary)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to look up %s", primary)
	}

	return &Preview{
		ContactEmail: primary,
		Manual:       manual,
		Existing:     existing,
		Result:       reconcile.Reconcile(out.Record, primary, existing, a.Catalog(), a.reconcileOptions()),
		Fallback:     out.Fallback,
	}, nil
}

func (a *Assistant) primaryForText(text string) (string, bool, error) {
	if strings.TrimSpace(text) == "" {
		return "", false, eris.New("text is empty")
	}
	primary := sync.PrimaryEmail(text, a.opts.MaxEmailLength, a.opts.Exclusions.EmailTokens)
	if primary == "" {
		return "", false, ErrNoContactEmail
	}
	if sync.IsManualPlaceholder(primary) {
		return sync.ManualEmail(text), true, nil
	}
	return primary, false, nil
}

// confirm sends a confirmation built from the stored contact and reports
// whether it went out.
func (a *Assistant) confirm(ctx context.Context, to, action, contactEmail, id string) bool {
	if !a.opts.SendConfirmation || a.notifier == nil || to == "" || id == "" {
		return false
	}
	log := a.log.With(zap.String("contact", contactEmail), zap.String("action", action))

	stored, err := a.backend.Get(ctx, id)
	if err != nil || stored == nil {
		log.Warn("confirmation skipped, contact not readable", zap.Error(err))
		return false
	}
	names, err := a.backend.CategoryNames(ctx, stored.CategoryIDs)
	if err != nil {
		log.Warn("category names unavailable", zap.Error(err))
	}
	if err := a.notifier.Confirmation(ctx, to, action, contactEmail, *stored, names, a.backend.Link(id)); err != nil {
		log.Warn("confirmation not sent", zap.Error(err))
		return false
	}
	return true
}

func (a *Assistant) markRead(ctx context.Context, id string) {
	if a.mailbox == nil || id == "" {
		return
	}
	if err := a.mailbox.MarkRead(ctx, id); err != nil {
		a.log.Warn("failed to mark message read", zap.String("message", id), zap.Error(err))
	}
}

// reject records a message that cannot be processed and remembers it so the
// next poll does not pick it up again.
func (a *Assistant) reject(source, key, contactEmail string, cause error) error {
	a.log.Warn("input rejected", zap.String("source", source), zap.Error(cause))
	if a.seen != nil && source == models.SourceMail {
		if err := a.seen.Mark(key, a.opts.Now()); err != nil {
			a.log.Warn("failed to remember rejected message", zap.Error(err))
		}
	}
	a.recordReport(source, key, &Report{ContactEmail: contactEmail, Outcome: models.OutcomeRejected}, cause)
	return cause
}

func (a *Assistant) recordReport(source, key string, r *Report, cause error) {
	if a.db == nil {
		return
	}
	now := a.opts.Now()
	entry := &models.ImportLog{
		Source:       source,
		SourceKey:    key,
		ContactID:    r.ContactID,
		ContactEmail: r.ContactEmail,
		ContactName:  r.DisplayName,
		Outcome:      r.Outcome,
		Confidence:   string(r.Confidence),
		Unmatched:    r.Unmatched,
		CreatedAt:    now,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	a.recordImport(entry)

	if r.Notified {
		if err := db.MarkImportNotified(a.db, entry.ID, now); err != nil {
			a.log.Warn("failed to stamp notification", zap.Error(err))
		}
	}
}

// clarificationComment appends a timestamped biography block unless the
// biography text is already part of the comment.
func clarificationComment(existing, biography string, now time.Time) *string {
	biography = strings.TrimSpace(biography)
	if biography == "" {
		return nil
	}
	block := fmt.Sprintf("%s\n\n[KI-Update %s]", biography, now.Format("2006-01-02 15:04"))
	existing = strings.TrimSpace(existing)
	switch {
	case existing == "":
		return &block
	case strings.Contains(existing, biography):
		return nil
	default:
		combined := existing + "\n\n" + block
		return &combined
	}
}
