package outreach

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotifyEventApplied  NotificationKind = "event_applied"
	NotifyStateChanged  NotificationKind = "state_changed"
	NotifyDraftCreated  NotificationKind = "draft_created"
	NotifyDraftReviewed NotificationKind = "draft_reviewed"
	NotifyDraftSent     NotificationKind = "draft_sent"
	NotifyTemplateLive  NotificationKind = "template_published"
)

// Notification is the best-effort change feed payload published after a commit.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	InstitutionID uuid.UUID        `json:"institution_id,omitempty"`
	EventID       *uuid.UUID       `json:"event_id,omitempty"`
	EventType     EventType        `json:"event_type,omitempty"`
	FromState     EngagementState  `json:"from_state,omitempty"`
	ToState       EngagementState  `json:"to_state,omitempty"`
	Score         *int             `json:"score,omitempty"`
	DraftID       *uuid.UUID       `json:"draft_id,omitempty"`
	TemplateID    *uuid.UUID       `json:"template_id,omitempty"`
	Stage         EngagementState  `json:"stage,omitempty"`
	Version       int              `json:"version,omitempty"`
	At            time.Time        `json:"at"`
}
