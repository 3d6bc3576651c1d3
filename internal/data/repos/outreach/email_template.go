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

type EmailTemplateRepo interface {
	Create(dbc dbctx.Context, t *types.EmailTemplate) (*types.EmailTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EmailTemplate, error)
	// Active returns the highest published version for stage, or nil.
	Active(dbc dbctx.Context, stage types.EngagementState) (*types.EmailTemplate, error)
	ActiveByStage(dbc dbctx.Context) (map[types.EngagementState]*types.EmailTemplate, error)
	// Versions lists published versions for stage, newest first.
	Versions(dbc dbctx.Context, stage types.EngagementState) ([]*types.EmailTemplate, error)
	MaxPublishedVersion(dbc dbctx.Context, stage types.EngagementState) (int, error)
	ListDrafts(dbc dbctx.Context, stage types.EngagementState, owner string) ([]*types.EmailTemplate, error)
	// UpdateDraft edits an unpublished draft owned by editor and reports whether it did.
	UpdateDraft(dbc dbctx.Context, id uuid.UUID, editor string, content types.TemplateContent, at time.Time) (bool, error)
	// MarkDraftPublished links a draft to the version it produced, once.
	MarkDraftPublished(dbc dbctx.Context, id uuid.UUID, version int, at time.Time) (bool, error)
}

type emailTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailTemplateRepo(db *gorm.DB, baseLog *logger.Logger) EmailTemplateRepo {
	repoLog := baseLog.With("repo", "EmailTemplateRepo")
	return &emailTemplateRepo{db: db, log: repoLog}
}

func (r *emailTemplateRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *emailTemplateRepo) Create(dbc dbctx.Context, t *types.EmailTemplate) (*types.EmailTemplate, error) {
	if t == nil {
		return nil, nil
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if len(t.AIInstructions) == 0 {
		t.AIInstructions = types.EncodeInstructions(types.AIInstructions{})
	}
	if err := r.tx(dbc).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *emailTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EmailTemplate, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.EmailTemplate
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *emailTemplateRepo) Active(dbc dbctx.Context, stage types.EngagementState) (*types.EmailTemplate, error) {
	var rows []*types.EmailTemplate
	if err := r.tx(dbc).
		Where("stage = ? AND status = ? AND version > 0", stage, types.TemplatePublished).
		Order("version DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *emailTemplateRepo) ActiveByStage(dbc dbctx.Context) (map[types.EngagementState]*types.EmailTemplate, error) {
	var rows []*types.EmailTemplate
	if err := r.tx(dbc).
		Where("status = ? AND version > 0", types.TemplatePublished).
		Order("stage ASC, version DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := map[types.EngagementState]*types.EmailTemplate{}
	for _, t := range rows {
		if _, seen := out[t.Stage]; !seen {
			out[t.Stage] = t
		}
	}
	return out, nil
}

func (r *emailTemplateRepo) Versions(dbc dbctx.Context, stage types.EngagementState) ([]*types.EmailTemplate, error) {
	var out []*types.EmailTemplate
	if err := r.tx(dbc).
		Where("stage = ? AND status = ? AND version > 0", stage, types.TemplatePublished).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *emailTemplateRepo) MaxPublishedVersion(dbc dbctx.Context, stage types.EngagementState) (int, error) {
	var max int
	if err := r.tx(dbc).Model(&types.EmailTemplate{}).
		Where("stage = ? AND version > 0", stage).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *emailTemplateRepo) ListDrafts(dbc dbctx.Context, stage types.EngagementState, owner string) ([]*types.EmailTemplate, error) {
	var out []*types.EmailTemplate
	q := r.tx(dbc).Where("status = ? AND version = 0", types.TemplateDraft)
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}
	if owner = strings.TrimSpace(owner); owner != "" {
		q = q.Where("created_by = ?", owner)
	}
	if err := q.Order("updated_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *emailTemplateRepo) UpdateDraft(dbc dbctx.Context, id uuid.UUID, editor string, content types.TemplateContent, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	res := r.tx(dbc).Model(&types.EmailTemplate{}).
		Where("id = ? AND status = ? AND version = 0 AND created_by = ? AND published_version IS NULL", id, types.TemplateDraft, strings.TrimSpace(editor)).
		Updates(map[string]interface{}{
			"subject":         content.Subject,
			"preview_text":    content.PreviewText,
			"body_html":       content.BodyHTML,
			"ai_instructions": types.EncodeInstructions(content.AIInstructions),
			"updated_at":      at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *emailTemplateRepo) MarkDraftPublished(dbc dbctx.Context, id uuid.UUID, version int, at time.Time) (bool, error) {
	if id == uuid.Nil || version <= 0 {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	res := r.tx(dbc).Model(&types.EmailTemplate{}).
		Where("id = ? AND version = 0 AND published_version IS NULL", id).
		Updates(map[string]interface{}{
			"published_version": version,
			"updated_at":        at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
