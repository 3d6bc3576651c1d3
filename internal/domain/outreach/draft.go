package outreach

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Lint flags attached to drafts for human review.
const (
	FlagForbiddenPhrase         = "forbidden-phrase"
	FlagExceedsMaxLength        = "exceeds-max-length"
	FlagPossiblyTooSalesy       = "possibly-too-salesy"
	FlagCounterArgumentDecline  = "counter-argument-after-decline"
	FlagTemplateForbiddenPhrase = "template-forbidden-phrase"
)

// Draft is a generated outreach message awaiting human disposition.
// Approved is tri-state: nil (pending), true (approved), false (rejected).
type Draft struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"draft_id"`
	InstitutionID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"institution_id"`
	StateAtGeneration EngagementState `gorm:"column:state_at_generation;type:varchar(24);not null" json:"state_at_generation"`
	Strategy          string          `gorm:"column:strategy" json:"strategy"`
	PromptVersion     int             `gorm:"column:prompt_version;not null" json:"prompt_version"`
	PromptFingerprint string          `gorm:"column:prompt_fingerprint;type:varchar(64)" json:"prompt_fingerprint,omitempty"`
	TemplateID        *uuid.UUID      `gorm:"type:uuid;column:template_id" json:"template_id,omitempty"`
	RecipientName     string          `gorm:"column:recipient_name" json:"recipient_name,omitempty"`
	RecipientRole     string          `gorm:"column:recipient_role" json:"recipient_role,omitempty"`
	Subject           string          `gorm:"column:subject;not null" json:"subject"`
	PreviewText       string          `gorm:"column:preview_text;type:text" json:"preview_text"`
	BodyHTML          string          `gorm:"column:body_html;type:text;not null" json:"body_html"`
	SentimentAnalysis string          `gorm:"column:sentiment_analysis;type:text" json:"sentiment_analysis,omitempty"`
	Flags             datatypes.JSON  `gorm:"type:jsonb;column:flags" json:"flags"`
	GeneratedAt       time.Time       `gorm:"column:generated_at;not null;index" json:"generated_at"`
	Approved          *bool           `gorm:"column:approved;index" json:"approved"`
	ApprovedBy        string          `gorm:"column:approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectionReason   string          `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	SentAt            *time.Time      `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ProviderMessageID string          `gorm:"column:provider_message_id" json:"provider_message_id,omitempty"`
}

func (Draft) TableName() string { return "outreach_draft" }

func (d *Draft) Pending() bool    { return d != nil && d.Approved == nil }
func (d *Draft) IsApproved() bool { return d != nil && d.Approved != nil && *d.Approved }

// FlagList decodes Flags.
func (d *Draft) FlagList() []string {
	out := []string{}
	if d == nil || len(d.Flags) == 0 {
		return out
	}
	_ = json.Unmarshal(d.Flags, &out)
	return out
}

// EncodeFlags marshals lint flags; nil becomes an empty list.
func EncodeFlags(flags []string) datatypes.JSON {
	if flags == nil {
		flags = []string{}
	}
	b, _ := json.Marshal(flags)
	return datatypes.JSON(b)
}
