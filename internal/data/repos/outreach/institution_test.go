package outreach

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/outreach-backend/internal/domain"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

func TestInstitutionRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewInstitutionRepo(db, testutil.Logger(t))

	suffix := uuid.NewString()[:8]
	created, err := repo.Create(dbc, &types.Institution{Name: "Northfield College " + suffix, Domain: "northfield-" + suffix + ".edu"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("Create: expected id to be assigned")
	}
	if created.State != types.StateUncontacted {
		t.Fatalf("Create: default state want=%s got=%s", types.StateUncontacted, created.State)
	}

	got, err := repo.GetByID(dbc, created.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.Name != created.Name || got.RawScore != 0 || got.LastInteractionAt != nil || got.Version != 0 {
		t.Fatalf("GetByID: unexpected row %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): err=%v got=%v", err, missing)
	}

	engaged := testutil.SeedInstitution(t, ctx, db, "Riverside Academy "+suffix, types.StateEngaged, 45, nil)

	rows, err := repo.List(dbc, InstitutionListFilter{State: types.StateEngaged, Query: suffix})
	if err != nil {
		t.Fatalf("List(state): %v", err)
	}
	if len(rows) != 1 || rows[0].ID != engaged.ID {
		t.Fatalf("List(state): expected only the engaged institution, got %d rows", len(rows))
	}

	rows, err = repo.List(dbc, InstitutionListFilter{Query: "NORTHFIELD-" + suffix})
	if err != nil {
		t.Fatalf("List(query): %v", err)
	}
	if len(rows) != 1 || rows[0].ID != created.ID {
		t.Fatalf("List(query): expected match on domain, got %d rows", len(rows))
	}

	byIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created.ID, engaged.ID})
	if err != nil || len(byIDs) != 2 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(byIDs))
	}

	counts, err := repo.CountByState(dbc)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts[types.StateEngaged] < 1 || counts[types.StateUncontacted] < 1 {
		t.Fatalf("CountByState: unexpected counts %v", counts)
	}
}
