package outreach

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EventType is the single canonical outreach event vocabulary. Narrower inbound
// vocabularies are mapped into it explicitly (see engagement.CanonicalEvent).
type EventType string

const (
	EventEmailSent          EventType = "EMAIL_SENT"
	EventEmailOpened        EventType = "EMAIL_OPENED"
	EventLinkClicked        EventType = "LINK_CLICKED"
	EventLandingPageViewed  EventType = "LANDING_PAGE_VIEWED"
	EventInviteAccepted     EventType = "INVITE_ACCEPTED"
	EventInviteDeclined     EventType = "INVITE_DECLINED"
	EventManualIntervention EventType = "MANUAL_INTERVENTION"

	// Explicit human transitions. These are the only way to move past ENGAGED or backwards.
	EventMarkedEvaluating EventType = "MARKED_EVALUATING"
	EventMarkedActive     EventType = "MARKED_ACTIVE"
	EventPaused           EventType = "PAUSED"
	EventMarkedDormant    EventType = "MARKED_DORMANT"
	EventArchived         EventType = "ARCHIVED"
	EventReactivated      EventType = "REACTIVATED"

	// EventStateChanged is synthetic: only the orchestrator emits it.
	EventStateChanged EventType = "STATE_CHANGED"
)

// AllEventTypes lists the canonical vocabulary.
var AllEventTypes = []EventType{
	EventEmailSent,
	EventEmailOpened,
	EventLinkClicked,
	EventLandingPageViewed,
	EventInviteAccepted,
	EventInviteDeclined,
	EventManualIntervention,
	EventMarkedEvaluating,
	EventMarkedActive,
	EventPaused,
	EventMarkedDormant,
	EventArchived,
	EventReactivated,
	EventStateChanged,
}

func (e EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if e == known {
			return true
		}
	}
	return false
}

func (e EventType) String() string { return string(e) }

func ParseEventType(raw string) (EventType, bool) {
	e := EventType(strings.ToUpper(strings.TrimSpace(raw)))
	return e, e.Valid()
}

// TriggeredBy identifies what caused an event.
type TriggeredBy string

const (
	TriggeredBySystem TriggeredBy = "SYSTEM"
	TriggeredByAI     TriggeredBy = "AI"
	TriggeredByHuman  TriggeredBy = "HUMAN"
)

func (t TriggeredBy) Valid() bool {
	switch t {
	case TriggeredBySystem, TriggeredByAI, TriggeredByHuman:
		return true
	default:
		return false
	}
}

func ParseTriggeredBy(raw string) (TriggeredBy, bool) {
	t := TriggeredBy(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.Valid()
}

// Metadata keys written by the orchestrator.
const (
	MetaFromState    = "from_state"
	MetaToState      = "to_state"
	MetaScoreDelta   = "score_delta"
	MetaScoreBefore  = "score_before"
	MetaScoreAfter   = "score_after"
	MetaDecay        = "decay"
	MetaFrom         = "from"
	MetaTo           = "to"
	MetaCauseEventID = "cause_event_id"
)

// OutreachEvent is an immutable, append-only fact about an institution.
// This is the canonical timeline and audit trail; rows are never updated or deleted.
type OutreachEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"event_id"`
	InstitutionID uuid.UUID      `gorm:"type:uuid;not null;index:idx_outreach_event_inst_time,priority:1" json:"institution_id"`
	EventType     EventType      `gorm:"column:event_type;type:varchar(48);not null;index" json:"event_type"`
	OccurredAt    time.Time      `gorm:"column:occurred_at;not null;index:idx_outreach_event_inst_time,priority:2" json:"timestamp"`
	TriggeredBy   TriggeredBy    `gorm:"column:triggered_by;type:varchar(16);not null" json:"triggered_by"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	Description   string         `gorm:"column:description;type:text" json:"description,omitempty"`
}

func (OutreachEvent) TableName() string { return "outreach_event" }

// MetadataMap decodes Metadata; malformed or empty payloads yield an empty map.
func (e *OutreachEvent) MetadataMap() map[string]any {
	out := map[string]any{}
	if e == nil || len(e.Metadata) == 0 {
		return out
	}
	_ = json.Unmarshal(e.Metadata, &out)
	return out
}

// EncodeMetadata marshals metadata into the jsonb column format.
func EncodeMetadata(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON([]byte("{}"))
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
