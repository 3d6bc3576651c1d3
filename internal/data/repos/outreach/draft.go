package outreach

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

// DraftReview is a one-shot human disposition of a pending draft.
type DraftReview struct {
	Approved        bool
	Reviewer        string
	RejectionReason string
	At              time.Time
}

type DraftRepo interface {
	Create(dbc dbctx.Context, d *types.Draft) (*types.Draft, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Draft, error)
	ListByInstitution(dbc dbctx.Context, institutionID uuid.UUID, limit int) ([]*types.Draft, error)
	ListPending(dbc dbctx.Context, limit int) ([]*types.Draft, error)
	// Review applies a disposition only while the draft is still pending and reports
	// whether it did.
	Review(dbc dbctx.Context, id uuid.UUID, review DraftReview) (bool, error)
	// MarkSent records delivery of an approved, unsent draft and reports whether it did.
	MarkSent(dbc dbctx.Context, id uuid.UUID, providerMessageID string, at time.Time) (bool, error)
}

type draftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDraftRepo(db *gorm.DB, baseLog *logger.Logger) DraftRepo {
	repoLog := baseLog.With("repo", "DraftRepo")
	return &draftRepo{db: db, log: repoLog}
}

func (r *draftRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *draftRepo) Create(dbc dbctx.Context, d *types.Draft) (*types.Draft, error) {
	if d == nil {
		return nil, nil
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now().UTC()
	}
	if len(d.Flags) == 0 {
		d.Flags = types.EncodeFlags(nil)
	}
	// a stored draft is always pending
	d.Approved = nil
	d.ApprovedBy = ""
	d.ApprovedAt = nil
	d.SentAt = nil
	if err := r.tx(dbc).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *draftRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Draft, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.Draft
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *draftRepo) ListByInstitution(dbc dbctx.Context, institutionID uuid.UUID, limit int) ([]*types.Draft, error) {
	var out []*types.Draft
	if institutionID == uuid.Nil {
		return out, nil
	}
	q := r.tx(dbc).Where("institution_id = ?", institutionID).Order("generated_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListPending returns the review queue, oldest first.
func (r *draftRepo) ListPending(dbc dbctx.Context, limit int) ([]*types.Draft, error) {
	var out []*types.Draft
	q := r.tx(dbc).Where("approved IS NULL").Order("generated_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *draftRepo) Review(dbc dbctx.Context, id uuid.UUID, review DraftReview) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	at := review.At.UTC()
	if review.At.IsZero() {
		at = time.Now().UTC()
	}
	updates := map[string]interface{}{
		"approved":    review.Approved,
		"approved_by": strings.TrimSpace(review.Reviewer),
		"approved_at": at,
	}
	if !review.Approved {
		updates["rejection_reason"] = strings.TrimSpace(review.RejectionReason)
	}
	res := r.tx(dbc).Model(&types.Draft{}).
		Where("id = ? AND approved IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *draftRepo) MarkSent(dbc dbctx.Context, id uuid.UUID, providerMessageID string, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	res := r.tx(dbc).Model(&types.Draft{}).
		Where("id = ? AND approved = ? AND sent_at IS NULL", id, true).
		Updates(map[string]interface{}{
			"sent_at":             at.UTC(),
			"provider_message_id": strings.TrimSpace(providerMessageID),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
