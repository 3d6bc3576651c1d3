package outreach

import (
	"time"

	"github.com/google/uuid"
)

// Institution is the engagement record of one prospective organization.
// State, RawScore, LastInteractionAt and Version are written together, by the
// engagement aggregate only.
type Institution struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	Domain            string          `gorm:"column:domain;index" json:"domain,omitempty"`
	RawScore          int             `gorm:"column:raw_score;not null" json:"raw_score"`
	LastInteractionAt *time.Time      `gorm:"column:last_interaction_at" json:"last_interaction_at,omitempty"`
	State             EngagementState `gorm:"column:state;type:varchar(24);not null;index" json:"state"`
	Version           int             `gorm:"column:version;not null" json:"version"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (Institution) TableName() string { return "institution" }
