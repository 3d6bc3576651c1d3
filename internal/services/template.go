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

const publishAttempts = 3

type TemplateService interface {
	// Publish stores content as the next version for stage. Published versions are
	// immutable.
	Publish(ctx context.Context, stage outreach.EngagementState, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error)
	// Active returns the highest published version for stage.
	Active(ctx context.Context, stage outreach.EngagementState) (*outreach.EmailTemplate, error)
	// ActiveByStage returns the live version of every stage that has one.
	ActiveByStage(ctx context.Context) (map[outreach.EngagementState]*outreach.EmailTemplate, error)
	Versions(ctx context.Context, stage outreach.EngagementState) ([]*outreach.EmailTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*outreach.EmailTemplate, error)

	CreateDraft(ctx context.Context, stage outreach.EngagementState, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error)
	// UpdateDraft edits an unpublished draft. Only its creator may edit it.
	UpdateDraft(ctx context.Context, id uuid.UUID, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error)
	// PublishDraft publishes the draft's content as a new version and locks the draft.
	PublishDraft(ctx context.Context, id uuid.UUID, editor string) (*outreach.EmailTemplate, error)
	ListDrafts(ctx context.Context, stage outreach.EngagementState, owner string) ([]*outreach.EmailTemplate, error)
}

type TemplateServiceDeps struct {
	Log       *logger.Logger
	Templates repos.EmailTemplateRepo
	Aggregate domainagg.TemplateAggregate
	Locker    KeyLocker
	Notifier  Notifier
	Metrics   *observability.Metrics
	Clock     func() time.Time

	LockTimeout time.Duration
}

type templateService struct {
	deps TemplateServiceDeps
	log  *logger.Logger
}

func NewTemplateService(deps TemplateServiceDeps) TemplateService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = 10 * time.Second
	}
	return &templateService{deps: deps, log: deps.Log.With("service", "TemplateService")}
}

func (s *templateService) Publish(ctx context.Context, stage outreach.EngagementState, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error) {
	return s.publish(ctx, "TemplateService.Publish", stage, content, editor, nil)
}

func (s *templateService) PublishDraft(ctx context.Context, id uuid.UUID, editor string) (*outreach.EmailTemplate, error) {
	const op = "TemplateService.PublishDraft"
	draft, err := s.loadDraft(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if draft.CreatedBy != strings.TrimSpace(editor) {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "only the draft owner may publish it", nil)
	}
	if draft.PublishedVersion != nil {
		return nil, domainagg.Conflict(op, "draft already published")
	}
	return s.publish(ctx, op, draft.Stage, draft.Content(), editor, &draft.ID)
}

func (s *templateService) publish(ctx context.Context, op string, stage outreach.EngagementState, content outreach.TemplateContent, editor string, draftID *uuid.UUID) (*outreach.EmailTemplate, error) {
	if !stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(stage)))
	}
	if s.deps.Aggregate == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "template aggregate not configured", nil)
	}
	lockCtx, cancel := context.WithTimeout(ctx, s.deps.LockTimeout)
	unlock, err := s.deps.Locker.Lock(lockCtx, "template:"+string(stage))
	cancel()
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeRetryable, op, "stage is busy", err)
	}
	defer unlock()

	var created *outreach.EmailTemplate
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		created, err = s.deps.Aggregate.Publish(ctx, domainagg.PublishTemplateInput{
			Stage:   stage,
			Content: content,
			Editor:  editor,
			DraftID: draftID,
			At:      s.deps.Clock(),
		})
		if err == nil {
			break
		}
		if !domainagg.IsCode(err, domainagg.CodeConflict) || attempt == publishAttempts {
			return nil, err
		}
		// a concurrent publisher on another replica took the version
		s.deps.Metrics.IncAggregateRetry(op)
		s.log.Debug("template publish raced, retrying", "stage", stage, "attempt", attempt)
		if draftID != nil {
			if d, _ := s.deps.Templates.GetByID(dbctx.Context{Ctx: ctx}, *draftID); d != nil && d.PublishedVersion != nil {
				return nil, err
			}
		}
	}

	s.deps.Metrics.IncTemplatePublish(string(stage))
	s.log.Info("template published", "stage", stage, "version", created.Version, "template_id", created.ID, "editor", editor)
	id := created.ID
	s.deps.Notifier.Notify(ctx, outreach.Notification{
		Kind:       outreach.NotifyTemplateLive,
		TemplateID: &id,
		Stage:      stage,
		Version:    created.Version,
		At:         created.CreatedAt,
	})
	return created, nil
}

func (s *templateService) Active(ctx context.Context, stage outreach.EngagementState) (*outreach.EmailTemplate, error) {
	const op = "TemplateService.Active"
	if !stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(stage)))
	}
	t, err := s.deps.Templates.Active(dbctx.Context{Ctx: ctx}, stage)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if t == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("no published template for %s", stage))
	}
	return t, nil
}

func (s *templateService) ActiveByStage(ctx context.Context) (map[outreach.EngagementState]*outreach.EmailTemplate, error) {
	live, err := s.deps.Templates.ActiveByStage(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "TemplateService.ActiveByStage", err)
	}
	return live, nil
}

func (s *templateService) Versions(ctx context.Context, stage outreach.EngagementState) ([]*outreach.EmailTemplate, error) {
	const op = "TemplateService.Versions"
	if !stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(stage)))
	}
	rows, err := s.deps.Templates.Versions(dbctx.Context{Ctx: ctx}, stage)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *templateService) Get(ctx context.Context, id uuid.UUID) (*outreach.EmailTemplate, error) {
	const op = "TemplateService.Get"
	t, err := s.deps.Templates.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if t == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("template not found: %s", id))
	}
	return t, nil
}

func (s *templateService) CreateDraft(ctx context.Context, stage outreach.EngagementState, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error) {
	const op = "TemplateService.CreateDraft"
	if !stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(stage)))
	}
	editor = strings.TrimSpace(editor)
	if editor == "" {
		return nil, domainagg.Invalid(op, "editor is required")
	}
	now := s.deps.Clock().UTC()
	t, err := s.deps.Templates.Create(dbctx.Context{Ctx: ctx}, &outreach.EmailTemplate{
		ID:             uuid.New(),
		Stage:          stage,
		Version:        0,
		Status:         outreach.TemplateDraft,
		Subject:        strings.TrimSpace(content.Subject),
		PreviewText:    strings.TrimSpace(content.PreviewText),
		BodyHTML:       content.BodyHTML,
		AIInstructions: outreach.EncodeInstructions(content.AIInstructions),
		CreatedBy:      editor,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("template draft created", "template_id", t.ID, "stage", stage, "editor", editor)
	return t, nil
}

func (s *templateService) UpdateDraft(ctx context.Context, id uuid.UUID, content outreach.TemplateContent, editor string) (*outreach.EmailTemplate, error) {
	const op = "TemplateService.UpdateDraft"
	editor = strings.TrimSpace(editor)
	if editor == "" {
		return nil, domainagg.Invalid(op, "editor is required")
	}
	draft, err := s.loadDraft(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if draft.CreatedBy != editor {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "only the draft owner may edit it", nil)
	}
	if draft.PublishedVersion != nil {
		return nil, domainagg.Conflict(op, "draft already published")
	}
	dbc := dbctx.Context{Ctx: ctx}
	ok, err := s.deps.Templates.UpdateDraft(dbc, id, editor, content, s.deps.Clock().UTC())
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		return nil, domainagg.Conflict(op, "draft was published or changed owner")
	}
	updated, err := s.deps.Templates.GetByID(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return updated, nil
}

func (s *templateService) ListDrafts(ctx context.Context, stage outreach.EngagementState, owner string) ([]*outreach.EmailTemplate, error) {
	const op = "TemplateService.ListDrafts"
	if stage != "" && !stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(stage)))
	}
	rows, err := s.deps.Templates.ListDrafts(dbctx.Context{Ctx: ctx}, stage, strings.TrimSpace(owner))
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

func (s *templateService) loadDraft(ctx context.Context, op string, id uuid.UUID) (*outreach.EmailTemplate, error) {
	t, err := s.deps.Templates.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if t == nil || t.Status != outreach.TemplateDraft {
		return nil, domainagg.NotFound(op, fmt.Sprintf("template draft not found: %s", id))
	}
	return t, nil
}
