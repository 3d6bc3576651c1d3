package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type DraftReviewService interface {
	// Approve records approval once. Drafts carrying lint flags need acknowledgeFlags.
	Approve(ctx context.Context, draftID uuid.UUID, reviewer string, acknowledgeFlags bool) (*outreach.Draft, error)
	// Reject is terminal; a rejected draft can never be approved or sent.
	Reject(ctx context.Context, draftID uuid.UUID, reviewer, reason string) (*outreach.Draft, error)
	Get(ctx context.Context, draftID uuid.UUID) (*outreach.Draft, error)
	ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit int) ([]*outreach.Draft, error)
	ListPending(ctx context.Context, limit int) ([]*outreach.Draft, error)
}

type draftReviewService struct {
	drafts   repos.DraftRepo
	notifier Notifier
	metrics  *observability.Metrics
	clock    func() time.Time
	log      *logger.Logger
}

func NewDraftReviewService(drafts repos.DraftRepo, notifier Notifier, metrics *observability.Metrics, baseLog *logger.Logger) DraftReviewService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &draftReviewService{
		drafts:   drafts,
		notifier: notifier,
		metrics:  metrics,
		clock:    time.Now,
		log:      baseLog.With("service", "DraftReviewService"),
	}
}

func (s *draftReviewService) Approve(ctx context.Context, draftID uuid.UUID, reviewer string, acknowledgeFlags bool) (*outreach.Draft, error) {
	const op = "DraftReviewService.Approve"
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, domainagg.Invalid(op, "reviewer is required")
	}
	d, err := s.load(ctx, op, draftID)
	if err != nil {
		return nil, err
	}
	if !d.Pending() {
		return nil, domainagg.Conflict(op, "draft already reviewed")
	}
	if flags := d.FlagList(); len(flags) > 0 && !acknowledgeFlags {
		return nil, domainagg.NewError(domainagg.CodePolicyViolation, op,
			fmt.Sprintf("draft has unacknowledged policy flags: %s", strings.Join(flags, ", ")), nil)
	}
	return s.review(ctx, op, d, repos.DraftReview{Approved: true, Reviewer: reviewer, At: s.clock().UTC()})
}

func (s *draftReviewService) Reject(ctx context.Context, draftID uuid.UUID, reviewer, reason string) (*outreach.Draft, error) {
	const op = "DraftReviewService.Reject"
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return nil, domainagg.Invalid(op, "reviewer is required")
	}
	d, err := s.load(ctx, op, draftID)
	if err != nil {
		return nil, err
	}
	if !d.Pending() {
		return nil, domainagg.Conflict(op, "draft already reviewed")
	}
	return s.review(ctx, op, d, repos.DraftReview{
		Approved:        false,
		Reviewer:        reviewer,
		RejectionReason: strings.TrimSpace(reason),
		At:              s.clock().UTC(),
	})
}

func (s *draftReviewService) review(ctx context.Context, op string, d *outreach.Draft, review repos.DraftReview) (*outreach.Draft, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.drafts.Review(dbc, d.ID, review)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		// another reviewer got there between the read and the write
		return nil, domainagg.Conflict(op, "draft already reviewed")
	}
	decision := "rejected"
	if review.Approved {
		decision = "approved"
	}
	s.metrics.IncDraftReview(decision)
	s.log.Info("draft reviewed", "draft_id", d.ID, "institution_id", d.InstitutionID, "decision", decision, "reviewer", review.Reviewer)

	updated, err := s.drafts.GetByID(dbc, d.ID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	draftID := d.ID
	s.notifier.Notify(ctx, outreach.Notification{
		Kind:          outreach.NotifyDraftReviewed,
		InstitutionID: d.InstitutionID,
		DraftID:       &draftID,
		At:            review.At,
	})
	return updated, nil
}

func (s *draftReviewService) load(ctx context.Context, op string, id uuid.UUID) (*outreach.Draft, error) {
	d, err := s.drafts.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if d == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("draft not found: %s", id))
	}
	return d, nil
}

func (s *draftReviewService) Get(ctx context.Context, draftID uuid.UUID) (*outreach.Draft, error) {
	return s.load(ctx, "DraftReviewService.Get", draftID)
}

func (s *draftReviewService) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit int) ([]*outreach.Draft, error) {
	rows, err := s.drafts.ListByInstitution(dbctx.Context{Ctx: ctx}, institutionID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "DraftReviewService.ListByInstitution", err)
	}
	return rows, nil
}

func (s *draftReviewService) ListPending(ctx context.Context, limit int) ([]*outreach.Draft, error) {
	rows, err := s.drafts.ListPending(dbctx.Context{Ctx: ctx}, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "DraftReviewService.ListPending", err)
	}
	return rows, nil
}
