package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

var EngagementAggregateContract = Contract{
	Name:             "Outreach.EngagementAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Sole writer of institution score/state. Score, state, interaction time and the " +
		"ledger append commit in one transaction guarded by the record version.",
}

// EngagementAggregate owns score/state writes for an institution.
//
// Write failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type EngagementAggregate interface {
	Aggregate

	// ApplyEvent atomically scores the event, transitions the state, persists the record
	// and appends the event (plus STATE_CHANGED when the state moved) to the ledger.
	ApplyEvent(ctx context.Context, in ApplyEngagementEventInput) (ApplyEngagementEventResult, error)
}

type ApplyEngagementEventInput struct {
	InstitutionID uuid.UUID
	EventType     outreach.EventType
	TriggeredBy   outreach.TriggeredBy
	Metadata      map[string]any
	Description   string
	At            time.Time
}

type ApplyEngagementEventResult struct {
	PreviousState  outreach.EngagementState
	State          outreach.EngagementState
	PreviousScore  int
	EffectiveScore int
	Score          int
	Event          *outreach.OutreachEvent
	StateChange    *outreach.OutreachEvent
}

// StateChanged reports whether the applied event moved the institution to a new state.
func (r ApplyEngagementEventResult) StateChanged() bool {
	return r.PreviousState != r.State
}
