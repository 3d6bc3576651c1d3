package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

func SeedInstitution(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, state types.EngagementState, score int, lastInteraction *time.Time) *types.Institution {
	tb.Helper()
	now := time.Now().UTC()
	inst := &types.Institution{
		ID:                uuid.New(),
		Name:              name,
		State:             state,
		RawScore:          score,
		LastInteractionAt: lastInteraction,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(inst).Error; err != nil {
		tb.Fatalf("seed institution: %v", err)
	}
	return inst
}

func SeedDraft(tb testing.TB, ctx context.Context, tx *gorm.DB, institutionID uuid.UUID, state types.EngagementState, generatedAt time.Time, flags ...string) *types.Draft {
	tb.Helper()
	d := &types.Draft{
		ID:                uuid.New(),
		InstitutionID:     institutionID,
		StateAtGeneration: state,
		Strategy:          "initial_outreach",
		PromptVersion:     1,
		Subject:           "Hello",
		PreviewText:       "A short note",
		BodyHTML:          "<p>Hello there</p>",
		Flags:             outreach.EncodeFlags(flags),
		GeneratedAt:       generatedAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed draft: %v", err)
	}
	return d
}

func SeedTemplate(tb testing.TB, ctx context.Context, tx *gorm.DB, stage types.EngagementState, version int, createdBy string) *types.EmailTemplate {
	tb.Helper()
	now := time.Now().UTC()
	t := &types.EmailTemplate{
		ID:             uuid.New(),
		Stage:          stage,
		Version:        version,
		Status:         types.TemplateDraft,
		Subject:        "Subject",
		PreviewText:    "Preview",
		BodyHTML:       "<p>Body</p>",
		AIInstructions: outreach.EncodeInstructions(outreach.AIInstructions{Tone: "warm"}),
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if version > 0 {
		t.Status = types.TemplatePublished
		t.PublishedAt = &now
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed template: %v", err)
	}
	return t
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrBool(v bool) *bool { return &v }
