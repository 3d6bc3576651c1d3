package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

type TemplateAggregateDeps struct {
	Base BaseDeps

	Templates repos.EmailTemplateRepo
}

type templateAggregate struct {
	deps TemplateAggregateDeps
}

func NewTemplateAggregate(deps TemplateAggregateDeps) domainagg.TemplateAggregate {
	deps.Base = deps.Base.withDefaults()
	return &templateAggregate{deps: deps}
}

func (a *templateAggregate) Contract() domainagg.Contract {
	return domainagg.TemplateAggregateContract
}

func (a *templateAggregate) Publish(ctx context.Context, in domainagg.PublishTemplateInput) (*outreach.EmailTemplate, error) {
	const op = "Outreach.Template.Publish"
	if !in.Stage.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown stage %q", string(in.Stage)))
	}
	editor := strings.TrimSpace(in.Editor)
	if editor == "" {
		return nil, domainagg.Invalid(op, "editor is required")
	}
	if strings.TrimSpace(in.Content.Subject) == "" {
		return nil, domainagg.Invalid(op, "subject is required")
	}
	if a.deps.Templates == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "template repo not configured", nil)
	}
	at := in.At.UTC()
	if in.At.IsZero() {
		at = a.deps.Base.now()
	}

	var out *outreach.EmailTemplate
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if in.DraftID != nil {
			draft, err := a.deps.Templates.GetByID(dbc, *in.DraftID)
			if err != nil {
				return err
			}
			if draft == nil || draft.Status != outreach.TemplateDraft {
				return domainagg.NotFound(op, fmt.Sprintf("template draft not found: %s", *in.DraftID))
			}
			if draft.Stage != in.Stage {
				return domainagg.Invalid(op, "draft belongs to another stage")
			}
			if draft.PublishedVersion != nil {
				return domainagg.Conflict(op, "draft already published")
			}
		}

		current, err := a.deps.Templates.MaxPublishedVersion(dbc, in.Stage)
		if err != nil {
			return err
		}
		publishedAt := at
		row := &outreach.EmailTemplate{
			ID:             uuid.New(),
			Stage:          in.Stage,
			Version:        current + 1,
			Status:         outreach.TemplatePublished,
			Subject:        strings.TrimSpace(in.Content.Subject),
			PreviewText:    strings.TrimSpace(in.Content.PreviewText),
			BodyHTML:       in.Content.BodyHTML,
			AIInstructions: outreach.EncodeInstructions(in.Content.AIInstructions),
			CreatedBy:      editor,
			CreatedAt:      at,
			UpdatedAt:      at,
			PublishedAt:    &publishedAt,
		}
		created, err := a.deps.Templates.Create(dbc, row)
		if err != nil {
			return err
		}
		if in.DraftID != nil {
			ok, err := a.deps.Templates.MarkDraftPublished(dbc, *in.DraftID, created.Version, at)
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(ok, "draft already published"); err != nil {
				return err
			}
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
