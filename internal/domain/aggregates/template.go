package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

var TemplateAggregateContract = Contract{
	Name:             "Outreach.TemplateAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Assigns published template versions. The version read and the insert share one " +
		"transaction; the (stage, version) unique index rejects a lost race.",
}

// TemplateAggregate owns publication of stage templates.
//
// Publish failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type TemplateAggregate interface {
	Aggregate

	// Publish inserts content as the next version for the stage. When DraftID is set the
	// draft is stamped with the new version in the same transaction.
	Publish(ctx context.Context, in PublishTemplateInput) (*outreach.EmailTemplate, error)
}

type PublishTemplateInput struct {
	Stage   outreach.EngagementState
	Content outreach.TemplateContent
	Editor  string
	DraftID *uuid.UUID
	At      time.Time
}
