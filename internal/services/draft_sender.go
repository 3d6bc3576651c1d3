package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
	"github.com/yungbote/outreach-backend/internal/platform/sendgrid"
)

const sendEventAttempts = 3

type DraftSender interface {
	// Send delivers an approved, unsent draft and records EMAIL_SENT for its institution.
	Send(ctx context.Context, draftID uuid.UUID, toEmail, toName string) (*outreach.Draft, error)
}

type DraftSenderDeps struct {
	Log        *logger.Logger
	Drafts     repos.DraftRepo
	Mail       sendgrid.Client
	Engagement EngagementService
	Notifier   Notifier
	Metrics    *observability.Metrics
	Clock      func() time.Time

	// Locker holds "draft:<id>" for the whole delivery.
	Locker      KeyLocker
	LockTimeout time.Duration
}

type draftSender struct {
	deps DraftSenderDeps
	log  *logger.Logger
}

func NewDraftSender(deps DraftSenderDeps) DraftSender {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = 10 * time.Second
	}
	return &draftSender{deps: deps, log: deps.Log.With("service", "DraftSender")}
}

func (s *draftSender) Send(ctx context.Context, draftID uuid.UUID, toEmail, toName string) (*outreach.Draft, error) {
	const op = "DraftSender.Send"
	addr, err := mail.ParseAddress(strings.TrimSpace(toEmail))
	if err != nil {
		return nil, domainagg.Invalid(op, "invalid recipient email")
	}
	if s.deps.Mail == nil {
		s.deps.Metrics.IncDraftSend("not_configured")
		return nil, domainagg.NewError(domainagg.CodeProviderUnavailable, op, "email delivery not configured", sendgrid.ErrNotConfigured)
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.deps.LockTimeout)
	unlock, err := s.deps.Locker.Lock(lockCtx, draftLockKey(draftID))
	cancel()
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "draft is being sent", err)
	}
	defer unlock()

	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.deps.Drafts.GetByID(dbc, draftID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if d == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("draft not found: %s", draftID))
	}
	if !d.IsApproved() {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "draft is not approved", nil)
	}
	if d.SentAt != nil {
		return nil, domainagg.Conflict(op, "draft already sent")
	}

	name := strings.TrimSpace(toName)
	if name == "" {
		name = addr.Name
	}
	res, err := s.deps.Mail.Send(ctx, sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: addr.Address, Name: name}},
		Subject:    d.Subject,
		Text:       policy.PlainText(d.BodyHTML),
		HTML:       d.BodyHTML,
		Categories: []string{"outreach", strings.ToLower(string(d.StateAtGeneration))},
		CustomArgs: map[string]string{
			"draft_id":       d.ID.String(),
			"institution_id": d.InstitutionID.String(),
		},
	})
	if err != nil {
		s.deps.Metrics.IncDraftSend("provider_error")
		s.log.Warn("draft delivery failed", "draft_id", d.ID, "recipient", addr.Address, "error", err)
		return nil, domainagg.NewError(domainagg.CodeProviderUnavailable, op, "email delivery failed", err)
	}

	sentAt := s.deps.Clock().UTC()
	ok, err := s.deps.Drafts.MarkSent(dbc, d.ID, res.MessageID, sentAt)
	if err != nil {
		s.log.Error("draft delivered but not marked sent", "draft_id", d.ID, "message_id", res.MessageID, "error", err)
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		s.log.Error("draft delivered twice", "draft_id", d.ID, "message_id", res.MessageID)
		s.deps.Metrics.IncDraftSend("duplicate")
		return nil, domainagg.Conflict(op, "draft already sent")
	}
	s.deps.Metrics.IncDraftSend("sent")
	s.log.Info("draft sent", "draft_id", d.ID, "institution_id", d.InstitutionID, "recipient", addr.Address, "message_id", res.MessageID)

	if err := s.recordSent(ctx, d, res.MessageID); err != nil {
		s.log.Error("email sent event not recorded", "draft_id", d.ID, "institution_id", d.InstitutionID, "error", err)
		return nil, err
	}

	sent, err := s.deps.Drafts.GetByID(dbc, d.ID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	id := d.ID
	s.deps.Notifier.Notify(ctx, outreach.Notification{
		Kind:          outreach.NotifyDraftSent,
		InstitutionID: d.InstitutionID,
		DraftID:       &id,
		At:            sentAt,
	})
	return sent, nil
}

func draftLockKey(id uuid.UUID) string { return "draft:" + id.String() }

func (s *draftSender) recordSent(ctx context.Context, d *outreach.Draft, messageID string) error {
	if s.deps.Engagement == nil {
		return nil
	}
	in := ApplyEventInput{
		InstitutionID: d.InstitutionID,
		EventType:     outreach.EventEmailSent,
		TriggeredBy:   outreach.TriggeredBySystem,
		Metadata: map[string]any{
			"draft_id":            d.ID.String(),
			"provider_message_id": messageID,
		},
		Description: d.Subject,
	}
	var err error
	for attempt := 1; attempt <= sendEventAttempts; attempt++ {
		_, _, err = s.deps.Engagement.ApplyEvent(ctx, in)
		if err == nil {
			return nil
		}
		if !domainagg.Transient(err) {
			return err
		}
		s.deps.Metrics.IncAggregateRetry("DraftSender.recordSent")
	}
	return err
}
