package outreach

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

const (
	DefaultTimelineLimit = 50
	MaxTimelineLimit     = 500
)

// TimelineCursor pages the ledger newest-first. A zero cursor starts at the head.
type TimelineCursor struct {
	OccurredAt time.Time
	ID         uuid.UUID
}

func (c TimelineCursor) IsZero() bool { return c.ID == uuid.Nil }

type OutreachEventRepo interface {
	// Append inserts events in order. Missing ids are assigned time-ordered UUIDs and
	// missing timestamps the current time, so order within one append is preserved.
	Append(dbc dbctx.Context, events ...*types.OutreachEvent) error
	Timeline(dbc dbctx.Context, institutionID uuid.UUID, limit int, before TimelineCursor) ([]*types.OutreachEvent, error)
	CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error)
	CountByType(dbc dbctx.Context, institutionID uuid.UUID, eventType types.EventType) (int64, error)
}

type outreachEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutreachEventRepo(db *gorm.DB, baseLog *logger.Logger) OutreachEventRepo {
	repoLog := baseLog.With("repo", "OutreachEventRepo")
	return &outreachEventRepo{db: db, log: repoLog}
}

func (r *outreachEventRepo) Append(dbc dbctx.Context, events ...*types.OutreachEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	rows := make([]*types.OutreachEvent, 0, len(events))
	now := time.Now().UTC()
	for _, e := range events {
		if e == nil {
			continue
		}
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.OccurredAt.IsZero() {
			e.OccurredAt = now
		}
		e.OccurredAt = e.OccurredAt.UTC()
		if len(e.Metadata) == 0 {
			e.Metadata = types.EncodeMetadata(nil)
		}
		rows = append(rows, e)
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

// Timeline returns events for one institution, newest first. Events sharing a
// timestamp are ordered by id descending, which keeps causal order for ids minted
// by Append.
func (r *outreachEventRepo) Timeline(dbc dbctx.Context, institutionID uuid.UUID, limit int, before TimelineCursor) ([]*types.OutreachEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.OutreachEvent
	if institutionID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	if limit > MaxTimelineLimit {
		limit = MaxTimelineLimit
	}
	q := transaction.WithContext(dbc.Ctx).Where("institution_id = ?", institutionID)
	if !before.IsZero() {
		at := before.OccurredAt.UTC()
		q = q.Where("(occurred_at < ?) OR (occurred_at = ? AND id < ?)", at, at, before.ID)
	}
	if err := q.Order("occurred_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outreachEventRepo) CountByInstitution(dbc dbctx.Context, institutionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.OutreachEvent{}).
		Where("institution_id = ?", institutionID).
		Count(&n).Error
	return n, err
}

func (r *outreachEventRepo) CountByType(dbc dbctx.Context, institutionID uuid.UUID, eventType types.EventType) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.OutreachEvent{}).
		Where("institution_id = ? AND event_type = ?", institutionID, eventType).
		Count(&n).Error
	return n, err
}
