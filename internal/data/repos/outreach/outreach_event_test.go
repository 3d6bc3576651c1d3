package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/outreach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

func TestOutreachEventRepoAppendAndTimeline(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewOutreachEventRepo(db, testutil.Logger(t))

	inst := testutil.SeedInstitution(t, ctx, db, "Lakeview School", types.StateUncontacted, 0, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	older := &types.OutreachEvent{
		InstitutionID: inst.ID,
		EventType:     types.EventType("EMAIL_OPENED"),
		TriggeredBy:   types.TriggeredBy("SYSTEM"),
		OccurredAt:    base,
	}
	if err := repo.Append(dbc, older); err != nil {
		t.Fatalf("Append(older): %v", err)
	}
	if older.ID.Version() != 7 {
		t.Fatalf("Append: expected a time-ordered id, got version %d", older.ID.Version())
	}

	// one append carrying a cause and its state change at the same instant
	at := base.Add(2 * time.Hour)
	cause := &types.OutreachEvent{
		InstitutionID: inst.ID,
		EventType:     types.EventType("LINK_CLICKED"),
		TriggeredBy:   types.TriggeredBy("SYSTEM"),
		OccurredAt:    at,
		Metadata:      types.EncodeMetadata(map[string]any{"score_delta": 10}),
	}
	change := &types.OutreachEvent{
		InstitutionID: inst.ID,
		EventType:     types.EventType("STATE_CHANGED"),
		TriggeredBy:   types.TriggeredBy("SYSTEM"),
		OccurredAt:    at,
	}
	if err := repo.Append(dbc, cause, change); err != nil {
		t.Fatalf("Append(batch): %v", err)
	}

	rows, err := repo.Timeline(dbc, inst.ID, 10, TimelineCursor{})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Timeline: want=3 got=%d", len(rows))
	}
	if rows[0].ID != change.ID || rows[1].ID != cause.ID || rows[2].ID != older.ID {
		t.Fatalf("Timeline: unexpected order %s, %s, %s", rows[0].EventType, rows[1].EventType, rows[2].EventType)
	}
	if got := rows[1].MetadataMap()["score_delta"]; got != float64(10) {
		t.Fatalf("Timeline: metadata score_delta want=10 got=%v", got)
	}
	if len(rows[0].Metadata) == 0 {
		t.Fatalf("Append: expected empty metadata to be normalized")
	}

	page, err := repo.Timeline(dbc, inst.ID, 10, TimelineCursor{OccurredAt: rows[1].OccurredAt, ID: rows[1].ID})
	if err != nil {
		t.Fatalf("Timeline(cursor): %v", err)
	}
	if len(page) != 1 || page[0].ID != older.ID {
		t.Fatalf("Timeline(cursor): expected only the oldest event, got %d", len(page))
	}

	limited, err := repo.Timeline(dbc, inst.ID, 1, TimelineCursor{})
	if err != nil || len(limited) != 1 {
		t.Fatalf("Timeline(limit): err=%v len=%d", err, len(limited))
	}

	n, err := repo.CountByInstitution(dbc, inst.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountByInstitution: err=%v n=%d", err, n)
	}
	n, err = repo.CountByType(dbc, inst.ID, types.EventType("STATE_CHANGED"))
	if err != nil || n != 1 {
		t.Fatalf("CountByType: err=%v n=%d", err, n)
	}
}

func TestOutreachEventRepoAppendRollsBackWithTransaction(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewOutreachEventRepo(db, testutil.Logger(t))
	inst := testutil.SeedInstitution(t, ctx, db, "Hillcrest Institute", types.StateUncontacted, 0, nil)

	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	if err := repo.Append(dbctx.Context{Ctx: ctx, Tx: tx}, &types.OutreachEvent{
		InstitutionID: inst.ID,
		EventType:     types.EventType("EMAIL_SENT"),
		TriggeredBy:   types.TriggeredBy("SYSTEM"),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tx.Rollback().Error; err != nil {
		t.Fatalf("rollback: %v", err)
	}

	n, err := repo.CountByInstitution(dbctx.Context{Ctx: ctx}, inst.ID)
	if err != nil || n != 0 {
		t.Fatalf("CountByInstitution after rollback: err=%v n=%d", err, n)
	}
}
