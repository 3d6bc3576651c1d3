package outreach

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TemplateStatus string

const (
	TemplateDraft     TemplateStatus = "DRAFT"
	TemplatePublished TemplateStatus = "PUBLISHED"
)

// AIInstructions steer generation for drafts produced in a template's stage.
type AIInstructions struct {
	Tone             string   `json:"tone,omitempty"`
	ReferenceTopics  []string `json:"reference_topics,omitempty"`
	ForbiddenPhrases []string `json:"forbidden_phrases,omitempty"`
}

// TemplateContent is the editable part of a template.
type TemplateContent struct {
	Subject        string         `json:"subject"`
	PreviewText    string         `json:"preview_text"`
	BodyHTML       string         `json:"body_html"`
	AIInstructions AIInstructions `json:"ai_instructions"`
}

// EmailTemplate is stage-bound content. Published rows carry Version >= 1 and are never
// updated; unpublished editor drafts carry Version 0.
type EmailTemplate struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Stage            EngagementState `gorm:"column:stage;type:varchar(24);not null;uniqueIndex:idx_email_template_stage_version,where:version > 0" json:"stage"`
	Version          int             `gorm:"column:version;not null;uniqueIndex:idx_email_template_stage_version,where:version > 0" json:"version"`
	Status           TemplateStatus  `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	Subject          string          `gorm:"column:subject;not null" json:"subject"`
	PreviewText      string          `gorm:"column:preview_text;type:text" json:"preview_text"`
	BodyHTML         string          `gorm:"column:body_html;type:text" json:"body_html"`
	AIInstructions   datatypes.JSON  `gorm:"type:jsonb;column:ai_instructions" json:"ai_instructions"`
	CreatedBy        string          `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
	PublishedAt      *time.Time      `gorm:"column:published_at" json:"published_at,omitempty"`
	PublishedVersion *int            `gorm:"column:published_version" json:"published_version,omitempty"`
}

func (EmailTemplate) TableName() string { return "email_template" }

func (t *EmailTemplate) Instructions() AIInstructions {
	var out AIInstructions
	if t == nil || len(t.AIInstructions) == 0 {
		return out
	}
	_ = json.Unmarshal(t.AIInstructions, &out)
	return out
}

func (t *EmailTemplate) Content() TemplateContent {
	return TemplateContent{
		Subject:        t.Subject,
		PreviewText:    t.PreviewText,
		BodyHTML:       t.BodyHTML,
		AIInstructions: t.Instructions(),
	}
}

func EncodeInstructions(in AIInstructions) datatypes.JSON {
	b, err := json.Marshal(in)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
