package domain

import (
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

type EngagementState = outreach.EngagementState
type EventType = outreach.EventType
type TriggeredBy = outreach.TriggeredBy
type TemplateStatus = outreach.TemplateStatus

type Institution = outreach.Institution
type OutreachEvent = outreach.OutreachEvent
type Draft = outreach.Draft
type EmailTemplate = outreach.EmailTemplate
type TemplateContent = outreach.TemplateContent
type AIInstructions = outreach.AIInstructions

const (
	StateUncontacted = outreach.StateUncontacted
	StateContacted   = outreach.StateContacted
	StateEngaged     = outreach.StateEngaged
	StateEvaluating  = outreach.StateEvaluating
	StateReady       = outreach.StateReady
	StateActive      = outreach.StateActive
	StatePaused      = outreach.StatePaused
	StateDeclined    = outreach.StateDeclined
	StateDormant     = outreach.StateDormant
	StateArchived    = outreach.StateArchived

	TemplateDraft     = outreach.TemplateDraft
	TemplatePublished = outreach.TemplatePublished

	FlagForbiddenPhrase         = outreach.FlagForbiddenPhrase
	FlagExceedsMaxLength        = outreach.FlagExceedsMaxLength
	FlagPossiblyTooSalesy       = outreach.FlagPossiblyTooSalesy
	FlagCounterArgumentDecline  = outreach.FlagCounterArgumentDecline
	FlagTemplateForbiddenPhrase = outreach.FlagTemplateForbiddenPhrase
)

var (
	EncodeMetadata     = outreach.EncodeMetadata
	EncodeFlags        = outreach.EncodeFlags
	EncodeInstructions = outreach.EncodeInstructions
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&Institution{},
		&OutreachEvent{},
		&Draft{},
		&EmailTemplate{},
	}
}
