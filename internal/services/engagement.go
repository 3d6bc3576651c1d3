package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/observability"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

type ApplyEventInput struct {
	InstitutionID uuid.UUID
	EventType     outreach.EventType
	TriggeredBy   outreach.TriggeredBy
	Metadata      map[string]any
	Description   string
}

type CreateInstitutionInput struct {
	Name   string
	Domain string
}

// InstitutionView is the record as displayed: stored score plus the decayed score now.
type InstitutionView struct {
	*outreach.Institution
	EffectiveScore int `json:"effective_score"`
}

// AutoDrafter generates a draft when an institution enters a new state.
type AutoDrafter interface {
	Generate(ctx context.Context, in GenerateInput) (GenerateOutcome, error)
}

type EngagementService interface {
	// ApplyEvent is the only entry point that changes an institution's score or state.
	ApplyEvent(ctx context.Context, in ApplyEventInput) (outreach.EngagementState, *outreach.OutreachEvent, error)
	// Apply is ApplyEvent with the full scoring and transition detail.
	Apply(ctx context.Context, in ApplyEventInput) (domainagg.ApplyEngagementEventResult, error)
	// RecordSignal maps an inbound tracking signal to its canonical event and applies it.
	RecordSignal(ctx context.Context, institutionID uuid.UUID, signal engagement.TriggerSignal, metadata map[string]any) (domainagg.ApplyEngagementEventResult, error)

	CreateInstitution(ctx context.Context, in CreateInstitutionInput) (*InstitutionView, error)
	GetInstitution(ctx context.Context, id uuid.UUID) (*InstitutionView, error)
	ListInstitutions(ctx context.Context, filter repos.InstitutionListFilter) ([]*InstitutionView, error)
	Timeline(ctx context.Context, id uuid.UUID, limit int, before repos.TimelineCursor) ([]*outreach.OutreachEvent, error)

	// Drain waits for scheduled auto-drafts to finish or ctx to end.
	Drain(ctx context.Context) error
}

type EngagementServiceDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	Aggregate    domainagg.EngagementAggregate
	Institutions repos.InstitutionRepo
	Events       repos.OutreachEventRepo
	Scorer       engagement.Scorer

	Locker    KeyLocker
	Notifier  Notifier
	Metrics   *observability.Metrics
	AutoDraft AutoDrafter

	LockTimeout time.Duration
	Clock       func() time.Time
}

type engagementService struct {
	deps EngagementServiceDeps
	log  *logger.Logger

	drafts sync.WaitGroup
}

func NewEngagementService(deps EngagementServiceDeps) EngagementService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = 10 * time.Second
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Scorer.Config().MaxScore <= 0 {
		deps.Scorer = engagement.NewScorer(engagement.DefaultConfig())
	}
	return &engagementService{
		deps: deps,
		log:  deps.Log.With("service", "EngagementService"),
	}
}

func institutionLockKey(id uuid.UUID) string { return "institution:" + id.String() }

// applyLocked runs the aggregate write while holding the institution key.
func (s *engagementService) applyLocked(ctx context.Context, op string, in ApplyEventInput) (domainagg.ApplyEngagementEventResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.deps.LockTimeout)
	unlock, err := s.deps.Locker.Lock(lockCtx, institutionLockKey(in.InstitutionID))
	cancel()
	if err != nil {
		return domainagg.ApplyEngagementEventResult{}, domainagg.NewError(domainagg.CodeRetryable, op, "institution is busy", err)
	}
	defer unlock()
	return s.deps.Aggregate.ApplyEvent(ctx, domainagg.ApplyEngagementEventInput{
		InstitutionID: in.InstitutionID,
		EventType:     in.EventType,
		TriggeredBy:   in.TriggeredBy,
		Metadata:      in.Metadata,
		Description:   in.Description,
		At:            s.deps.Clock(),
	})
}

func (s *engagementService) ApplyEvent(ctx context.Context, in ApplyEventInput) (outreach.EngagementState, *outreach.OutreachEvent, error) {
	res, err := s.Apply(ctx, in)
	if err != nil {
		return "", nil, err
	}
	return res.State, res.Event, nil
}

func (s *engagementService) Apply(ctx context.Context, in ApplyEventInput) (domainagg.ApplyEngagementEventResult, error) {
	const op = "EngagementService.ApplyEvent"
	start := time.Now()
	var out domainagg.ApplyEngagementEventResult

	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("institution.id", in.InstitutionID.String()),
		attribute.String("event.type", string(in.EventType)),
		attribute.String("event.triggered_by", string(in.TriggeredBy)),
	)

	fail := func(err error) (domainagg.ApplyEngagementEventResult, error) {
		outcome := string(domainagg.CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
		s.deps.Metrics.ObserveEngagement(string(in.EventType), string(in.TriggeredBy), outcome, time.Since(start))
		span.SetStatus(codes.Error, outcome)
		return out, err
	}

	if in.InstitutionID == uuid.Nil {
		return fail(domainagg.Invalid(op, "missing institution_id"))
	}
	if err := engagement.ValidateEvent(in.EventType, in.TriggeredBy); err != nil {
		return fail(domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err))
	}
	if s.deps.Aggregate == nil {
		return fail(domainagg.NewError(domainagg.CodeInternal, op, "engagement aggregate not configured", nil))
	}

	res, err := s.applyLocked(ctx, op, in)
	if err != nil {
		if !domainagg.IsCode(err, domainagg.CodeNotFound) && !domainagg.IsCode(err, domainagg.CodeValidation) {
			s.log.Warn("engagement event rejected", "institution_id", in.InstitutionID, "event_type", in.EventType, "error", err)
		}
		return fail(err)
	}

	s.deps.Metrics.ObserveEngagement(string(in.EventType), string(in.TriggeredBy), "applied", time.Since(start))
	span.SetAttributes(
		attribute.String("engagement.from", string(res.PreviousState)),
		attribute.String("engagement.to", string(res.State)),
		attribute.Int("engagement.score", res.Score),
	)
	s.log.Info("engagement event applied",
		"institution_id", in.InstitutionID,
		"event_type", in.EventType,
		"triggered_by", in.TriggeredBy,
		"from", res.PreviousState,
		"to", res.State,
		"score", res.Score,
	)

	s.notifyApplied(ctx, res)
	if res.StateChanged() {
		s.deps.Metrics.IncTransition(string(res.PreviousState), string(res.State))
		s.scheduleAutoDraft(ctx, in.InstitutionID, res)
	}
	return res, nil
}

func (s *engagementService) notifyApplied(ctx context.Context, res domainagg.ApplyEngagementEventResult) {
	if res.Event == nil {
		return
	}
	score := res.Score
	eventID := res.Event.ID
	s.deps.Notifier.Notify(ctx, outreach.Notification{
		Kind:          outreach.NotifyEventApplied,
		InstitutionID: res.Event.InstitutionID,
		EventID:       &eventID,
		EventType:     res.Event.EventType,
		FromState:     res.PreviousState,
		ToState:       res.State,
		Score:         &score,
		At:            res.Event.OccurredAt,
	})
	if res.StateChange != nil {
		changeID := res.StateChange.ID
		s.deps.Notifier.Notify(ctx, outreach.Notification{
			Kind:          outreach.NotifyStateChanged,
			InstitutionID: res.Event.InstitutionID,
			EventID:       &changeID,
			EventType:     outreach.EventStateChanged,
			FromState:     res.PreviousState,
			ToState:       res.State,
			Score:         &score,
			At:            res.StateChange.OccurredAt,
		})
	}
}

// scheduleAutoDraft runs after the lock is released; generation can take many seconds
// and must never hold up other events for the institution.
func (s *engagementService) scheduleAutoDraft(ctx context.Context, institutionID uuid.UUID, res domainagg.ApplyEngagementEventResult) {
	if s.deps.AutoDraft == nil || res.State == outreach.StateArchived || res.Event == nil {
		return
	}
	in := GenerateInput{
		InstitutionID: institutionID,
		TriggerEvent:  string(res.Event.EventType),
		Payload:       res.Event.MetadataMap(),
	}
	bg := context.WithoutCancel(ctx)
	s.drafts.Add(1)
	go func() {
		defer s.drafts.Done()
		outcome, err := s.deps.AutoDraft.Generate(bg, in)
		if err != nil {
			s.log.Warn("auto draft failed", "institution_id", institutionID, "error", err)
			return
		}
		if outcome.Draft == nil {
			s.log.Info("auto draft not produced", "institution_id", institutionID, "reason", outcome.Reason)
		}
	}()
}

func (s *engagementService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.drafts.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *engagementService) RecordSignal(ctx context.Context, institutionID uuid.UUID, signal engagement.TriggerSignal, metadata map[string]any) (domainagg.ApplyEngagementEventResult, error) {
	const op = "EngagementService.RecordSignal"
	e, ok := engagement.CanonicalEvent(signal)
	if !ok {
		return domainagg.ApplyEngagementEventResult{}, domainagg.Invalid(op, fmt.Sprintf("unknown signal %q", string(signal)))
	}
	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta["signal"] = string(signal)
	return s.Apply(ctx, ApplyEventInput{
		InstitutionID: institutionID,
		EventType:     e,
		TriggeredBy:   outreach.TriggeredBySystem,
		Metadata:      meta,
	})
}

func (s *engagementService) CreateInstitution(ctx context.Context, in CreateInstitutionInput) (*InstitutionView, error) {
	const op = "EngagementService.CreateInstitution"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainagg.Invalid(op, "name is required")
	}
	now := s.deps.Clock().UTC()
	inst, err := s.deps.Institutions.Create(dbctx.Context{Ctx: ctx}, &outreach.Institution{
		ID:        uuid.New(),
		Name:      name,
		Domain:    strings.ToLower(strings.TrimSpace(in.Domain)),
		State:     outreach.StateUncontacted,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("institution created", "institution_id", inst.ID, "name", inst.Name)
	return s.view(inst), nil
}

func (s *engagementService) GetInstitution(ctx context.Context, id uuid.UUID) (*InstitutionView, error) {
	const op = "EngagementService.GetInstitution"
	inst, err := s.deps.Institutions.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if inst == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("institution not found: %s", id))
	}
	return s.view(inst), nil
}

func (s *engagementService) ListInstitutions(ctx context.Context, filter repos.InstitutionListFilter) ([]*InstitutionView, error) {
	const op = "EngagementService.ListInstitutions"
	if filter.State != "" && !filter.State.Valid() {
		return nil, domainagg.Invalid(op, fmt.Sprintf("unknown state %q", string(filter.State)))
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	rows, err := s.deps.Institutions.List(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out := make([]*InstitutionView, 0, len(rows))
	for _, inst := range rows {
		out = append(out, s.view(inst))
	}
	return out, nil
}

func (s *engagementService) Timeline(ctx context.Context, id uuid.UUID, limit int, before repos.TimelineCursor) ([]*outreach.OutreachEvent, error) {
	const op = "EngagementService.Timeline"
	dbc := dbctx.Context{Ctx: ctx}
	inst, err := s.deps.Institutions.GetByID(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if inst == nil {
		return nil, domainagg.NotFound(op, fmt.Sprintf("institution not found: %s", id))
	}
	events, err := s.deps.Events.Timeline(dbc, id, limit, before)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return events, nil
}

func (s *engagementService) view(inst *outreach.Institution) *InstitutionView {
	return &InstitutionView{
		Institution:    inst,
		EffectiveScore: s.deps.Scorer.Effective(inst.RawScore, inst.LastInteractionAt, s.deps.Clock()),
	}
}
