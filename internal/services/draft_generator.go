package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/prompts"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/httpx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
	"github.com/yungbote/outreach-backend/internal/platform/openai"
)

type Recipient struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type GenerateInput struct {
	InstitutionID uuid.UUID
	Recipient     Recipient
	TriggerEvent  string
	Payload       map[string]any
	History       []string
	Instructions  string
}

type GenerateReason string

const (
	ReasonGenerated           GenerateReason = "generated"
	ReasonProviderUnavailable GenerateReason = "provider_unavailable"
	ReasonValidationFailed    GenerateReason = "validation_failed"
)

// GenerateOutcome is the result of one generation. Draft is nil unless Reason is
// ReasonGenerated.
type GenerateOutcome struct {
	Draft     *outreach.Draft `json:"draft,omitempty"`
	Reason    GenerateReason  `json:"reason"`
	Retryable bool            `json:"retryable"`
	Flags     []string        `json:"flags"`
	Detail    string          `json:"detail,omitempty"`
}

type BatchItem struct {
	Input   GenerateInput
	Outcome GenerateOutcome
	Err     error
}

type DraftGenerator interface {
	// Generate returns an error only when the institution cannot be read or the draft
	// cannot be stored. Provider and validation failures are reported in the outcome.
	Generate(ctx context.Context, in GenerateInput) (GenerateOutcome, error)
	// GenerateBatch runs Generate for each input with bounded concurrency. Per-item errors
	// are reported on the item; the call itself fails only when ctx ends.
	GenerateBatch(ctx context.Context, inputs []GenerateInput) ([]BatchItem, error)
}

type DraftGeneratorDeps struct {
	Log          *logger.Logger
	Institutions repos.InstitutionRepo
	Drafts       repos.DraftRepo
	Templates    repos.EmailTemplateRepo
	Provider     openai.Client
	Policy       policy.Policy
	Prompts      *prompts.Registry
	Validator    *policy.ResultValidator
	Notifier     Notifier
	Metrics      *observability.Metrics

	Timeout          time.Duration
	BatchConcurrency int
	Clock            func() time.Time
}

type draftGenerator struct {
	deps DraftGeneratorDeps
	log  *logger.Logger
}

func NewDraftGenerator(deps DraftGeneratorDeps) (DraftGenerator, error) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Institutions == nil || deps.Drafts == nil || deps.Templates == nil {
		return nil, fmt.Errorf("draft generator: missing repos")
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, err
	}
	if deps.Prompts == nil {
		reg, err := prompts.NewRegistry()
		if err != nil {
			return nil, err
		}
		deps.Prompts = reg
	}
	if deps.Validator == nil {
		v, err := policy.NewResultValidator()
		if err != nil {
			return nil, err
		}
		deps.Validator = v
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 45 * time.Second
	}
	if deps.BatchConcurrency <= 0 {
		deps.BatchConcurrency = 4
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &draftGenerator{deps: deps, log: deps.Log.With("service", "DraftGenerator")}, nil
}

func (g *draftGenerator) Generate(ctx context.Context, in GenerateInput) (GenerateOutcome, error) {
	const op = "DraftGenerator.Generate"
	start := time.Now()

	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("institution.id", in.InstitutionID.String()))

	dbc := dbctx.Context{Ctx: ctx}
	inst, err := g.deps.Institutions.GetByID(dbc, in.InstitutionID)
	if err != nil {
		span.SetStatus(codes.Error, "load institution")
		return GenerateOutcome{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if inst == nil {
		span.SetStatus(codes.Error, string(domainagg.CodeNotFound))
		return GenerateOutcome{}, domainagg.NotFound(op, fmt.Sprintf("institution not found: %s", in.InstitutionID))
	}
	state := inst.State
	span.SetAttributes(attribute.String("engagement.state", string(state)))

	finish := func(out GenerateOutcome) (GenerateOutcome, error) {
		if out.Flags == nil {
			out.Flags = []string{}
		}
		g.deps.Metrics.ObserveDraftGeneration(string(state), string(out.Reason), time.Since(start), out.Flags)
		span.SetAttributes(attribute.String("draft.reason", string(out.Reason)))
		if out.Reason != ReasonGenerated {
			span.SetStatus(codes.Error, string(out.Reason))
		}
		return out, nil
	}

	pin := prompts.Input{
		RecipientName:   strings.TrimSpace(in.Recipient.Name),
		RecipientRole:   strings.TrimSpace(in.Recipient.Role),
		InstitutionName: inst.Name,
		TriggerEvent:    strings.TrimSpace(in.TriggerEvent),
		PayloadJSON:     payloadJSON(in.Payload),
		History:         in.History,
		Instructions:    strings.TrimSpace(in.Instructions),
	}
	if err := pin.ApplyPolicy(g.deps.Policy, state); err != nil {
		return GenerateOutcome{}, domainagg.NewError(domainagg.CodeInternal, op, "resolve strategy", err)
	}
	tmpl, err := g.deps.Templates.Active(dbc, state)
	if err != nil {
		return GenerateOutcome{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	pin.ApplyTemplate(tmpl)

	prompt, err := g.deps.Prompts.Build(prompts.PromptOutreachDraft, pin)
	if err != nil {
		return GenerateOutcome{}, domainagg.NewError(domainagg.CodeInternal, op, "build prompt", err)
	}

	if g.deps.Provider == nil {
		g.log.Warn("draft generation skipped; provider not configured", "institution_id", inst.ID)
		return finish(GenerateOutcome{Reason: ReasonProviderUnavailable, Detail: openai.ErrNotConfigured.Error()})
	}

	pctx, cancel := context.WithTimeout(ctx, g.deps.Timeout)
	doc, err := g.deps.Provider.GenerateJSON(pctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema)
	cancel()
	if err != nil {
		if errors.Is(err, openai.ErrInvalidOutput) {
			g.log.Warn("draft generation returned unusable output", "institution_id", inst.ID, "prompt", prompt.Label(), "error", err)
			return finish(GenerateOutcome{Reason: ReasonValidationFailed, Detail: err.Error()})
		}
		retryable := httpx.IsRetryableError(err) || errors.Is(pctx.Err(), context.DeadlineExceeded)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			retryable = false
		}
		g.log.Warn("draft generation provider failure",
			"institution_id", inst.ID,
			"prompt", prompt.Label(),
			"retryable", retryable,
			"error", err,
		)
		return finish(GenerateOutcome{Reason: ReasonProviderUnavailable, Retryable: retryable, Detail: err.Error()})
	}

	var raw any
	if doc != nil {
		raw = doc
	}
	res, err := g.deps.Validator.DecodeValue(raw)
	if err != nil {
		g.log.Warn("draft generation result rejected", "institution_id", inst.ID, "prompt", prompt.Label(), "error", err)
		return finish(GenerateOutcome{Reason: ReasonValidationFailed, Detail: err.Error()})
	}

	lint := policy.LintInput{
		State:       state,
		Subject:     res.Subject,
		PreviewText: res.PreviewText,
		BodyHTML:    res.BodyHTML,
	}
	if tmpl != nil {
		lint.TemplateForbidden = tmpl.Instructions().ForbiddenPhrases
	}
	flags := g.deps.Policy.Lint(lint)

	d := &outreach.Draft{
		ID:                uuid.New(),
		InstitutionID:     inst.ID,
		StateAtGeneration: state,
		Strategy:          pin.StrategyKey,
		PromptVersion:     prompt.Version,
		PromptFingerprint: prompt.Fingerprint(),
		RecipientName:     pin.RecipientName,
		RecipientRole:     pin.RecipientRole,
		Subject:           res.Subject,
		PreviewText:       res.PreviewText,
		BodyHTML:          res.BodyHTML,
		SentimentAnalysis: res.SentimentAnalysis,
		Flags:             outreach.EncodeFlags(flags),
		GeneratedAt:       g.deps.Clock().UTC(),
	}
	if tmpl != nil {
		id := tmpl.ID
		d.TemplateID = &id
	}
	created, err := g.deps.Drafts.Create(dbc, d)
	if err != nil {
		return GenerateOutcome{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	g.log.Info("draft generated",
		"institution_id", inst.ID,
		"draft_id", created.ID,
		"state", state,
		"strategy", pin.StrategyKey,
		"prompt", prompt.Label(),
		"flags", flags,
	)
	draftID := created.ID
	g.deps.Notifier.Notify(ctx, outreach.Notification{
		Kind:          outreach.NotifyDraftCreated,
		InstitutionID: inst.ID,
		DraftID:       &draftID,
		ToState:       state,
		At:            created.GeneratedAt,
	})
	return finish(GenerateOutcome{Draft: created, Reason: ReasonGenerated, Flags: flags})
}

func (g *draftGenerator) GenerateBatch(ctx context.Context, inputs []GenerateInput) ([]BatchItem, error) {
	out := make([]BatchItem, len(inputs))
	var eg errgroup.Group
	eg.SetLimit(g.deps.BatchConcurrency)
	for i := range inputs {
		i := i
		out[i].Input = inputs[i]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Outcome, out[i].Err = g.Generate(ctx, inputs[i])
			return nil
		})
	}
	_ = eg.Wait()
	return out, ctx.Err()
}

func payloadJSON(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
