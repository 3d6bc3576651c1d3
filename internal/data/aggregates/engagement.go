package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

const institutionTable = "institution"

type EngagementAggregateDeps struct {
	Base BaseDeps

	Institutions repos.InstitutionRepo
	Events       repos.OutreachEventRepo
	Scorer       engagement.Scorer
}

type engagementAggregate struct {
	deps EngagementAggregateDeps
}

func NewEngagementAggregate(deps EngagementAggregateDeps) domainagg.EngagementAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Scorer.Config().MaxScore <= 0 {
		deps.Scorer = engagement.NewScorer(engagement.DefaultConfig())
	}
	return &engagementAggregate{deps: deps}
}

func (a *engagementAggregate) Contract() domainagg.Contract {
	return domainagg.EngagementAggregateContract
}

func (a *engagementAggregate) ApplyEvent(ctx context.Context, in domainagg.ApplyEngagementEventInput) (domainagg.ApplyEngagementEventResult, error) {
	const op = "Outreach.Engagement.ApplyEvent"
	var out domainagg.ApplyEngagementEventResult
	if in.InstitutionID == uuid.Nil {
		return out, domainagg.Invalid(op, "missing institution_id")
	}
	if err := engagement.ValidateEvent(in.EventType, in.TriggeredBy); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	if a.deps.Institutions == nil || a.deps.Events == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "engagement aggregate repos not configured", nil)
	}

	at := in.At.UTC()
	if in.At.IsZero() {
		at = a.deps.Base.now()
	}
	scorer := a.deps.Scorer

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		inst, err := a.deps.Institutions.GetByID(dbc, in.InstitutionID)
		if err != nil {
			return err
		}
		if inst == nil || inst.ID == uuid.Nil {
			return domainagg.NotFound(op, fmt.Sprintf("institution not found: %s", in.InstitutionID.String()))
		}

		if !inst.State.Valid() {
			return InvariantError(fmt.Sprintf("institution %s holds unknown state %q", inst.ID, string(inst.State)))
		}

		stored := engagement.Clamp(inst.RawScore, 0, scorer.Config().MaxScore)
		effective := scorer.Effective(inst.RawScore, inst.LastInteractionAt, at)
		score := scorer.Apply(effective, in.EventType)
		next := scorer.Next(inst.State, in.EventType, score)

		ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, institutionTable, inst.ID, inst.Version, map[string]any{
			"state":               next,
			"raw_score":           score,
			"last_interaction_at": at,
			"updated_at":          at,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "institution changed while applying event"); err != nil {
			return err
		}

		primaryID, err := uuid.NewV7()
		if err != nil {
			return err
		}
		meta := make(map[string]any, len(in.Metadata)+6)
		for k, v := range in.Metadata {
			meta[k] = v
		}
		meta[outreach.MetaFromState] = string(inst.State)
		meta[outreach.MetaToState] = string(next)
		meta[outreach.MetaScoreDelta] = score - effective
		meta[outreach.MetaScoreBefore] = effective
		meta[outreach.MetaScoreAfter] = score
		meta[outreach.MetaDecay] = stored - effective

		primary := &outreach.OutreachEvent{
			ID:            primaryID,
			InstitutionID: inst.ID,
			EventType:     in.EventType,
			OccurredAt:    at,
			TriggeredBy:   in.TriggeredBy,
			Metadata:      outreach.EncodeMetadata(meta),
			Description:   strings.TrimSpace(in.Description),
		}
		events := []*outreach.OutreachEvent{primary}

		var change *outreach.OutreachEvent
		if next != inst.State {
			change = stateChangedEvent(inst.ID, primaryID, inst.State, next, in.TriggeredBy, at)
			events = append(events, change)
		}
		if err := a.deps.Events.Append(dbc, events...); err != nil {
			return err
		}

		out = domainagg.ApplyEngagementEventResult{
			PreviousState:  inst.State,
			State:          next,
			PreviousScore:  inst.RawScore,
			EffectiveScore: effective,
			Score:          score,
			Event:          primary,
			StateChange:    change,
		}
		return nil
	})
	if err != nil {
		return domainagg.ApplyEngagementEventResult{}, err
	}
	return out, nil
}

// stateChangedEvent is minted after the primary id, so its time-ordered id sorts after
// the cause when both share a timestamp.
func stateChangedEvent(institutionID, causeID uuid.UUID, from, to outreach.EngagementState, by outreach.TriggeredBy, at time.Time) *outreach.OutreachEvent {
	return &outreach.OutreachEvent{
		InstitutionID: institutionID,
		EventType:     outreach.EventStateChanged,
		OccurredAt:    at,
		TriggeredBy:   by,
		Metadata: outreach.EncodeMetadata(map[string]any{
			outreach.MetaFrom:         string(from),
			outreach.MetaTo:           string(to),
			outreach.MetaCauseEventID: causeID.String(),
		}),
		Description: fmt.Sprintf("%s -> %s", from, to),
	}
}
