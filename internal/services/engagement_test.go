package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	"github.com/yungbote/outreach-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

func TestEngagementServiceFirstSendMovesToContacted(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()

	inst, err := s.engagement.CreateInstitution(ctx, CreateInstitutionInput{Name: "  Lakeside College ", Domain: "LakeSide.edu"})
	if err != nil {
		t.Fatalf("CreateInstitution: %v", err)
	}
	if inst.State != outreach.StateUncontacted || inst.RawScore != 0 || inst.Name != "Lakeside College" || inst.Domain != "lakeside.edu" {
		t.Fatalf("unexpected new institution: %+v", inst.Institution)
	}

	state, ev, err := s.engagement.ApplyEvent(ctx, ApplyEventInput{
		InstitutionID: inst.ID,
		EventType:     outreach.EventEmailSent,
		TriggeredBy:   outreach.TriggeredBySystem,
		Description:   "intro email",
	})
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if state != outreach.StateContacted {
		t.Fatalf("state: want=%s got=%s", outreach.StateContacted, state)
	}
	if ev == nil || ev.EventType != outreach.EventEmailSent || ev.Description != "intro email" {
		t.Fatalf("primary event: %+v", ev)
	}

	events, err := s.engagement.Timeline(ctx, inst.ID, 0, repos.TimelineCursor{})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("timeline length: want=2 got=%d", len(events))
	}
	if events[0].EventType != outreach.EventStateChanged || events[1].ID != ev.ID {
		t.Fatalf("timeline order: got %s, %s", events[0].EventType, events[1].EventType)
	}
	if got := events[0].MetadataMap()[outreach.MetaCauseEventID]; got != ev.ID.String() {
		t.Fatalf("cause_event_id: want=%s got=%v", ev.ID, got)
	}

	if s.notes.count(outreach.NotifyEventApplied) != 1 || s.notes.count(outreach.NotifyStateChanged) != 1 {
		t.Fatalf("notifications: %v", s.notes.kinds())
	}
}

func TestEngagementServiceRejectsInvalidInput(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()
	inst := s.seedInstitution(t, outreach.StateContacted, 10, testutil.PtrTime(s.clock.Now()))

	cases := []struct {
		name string
		in   ApplyEventInput
		code domainagg.ErrorCode
	}{
		{"missing id", ApplyEventInput{EventType: outreach.EventEmailOpened, TriggeredBy: outreach.TriggeredBySystem}, domainagg.CodeValidation},
		{"unknown event", ApplyEventInput{InstitutionID: inst.ID, EventType: "EMAIL_BOUNCED", TriggeredBy: outreach.TriggeredBySystem}, domainagg.CodeValidation},
		{"synthetic event", ApplyEventInput{InstitutionID: inst.ID, EventType: outreach.EventStateChanged, TriggeredBy: outreach.TriggeredByHuman}, domainagg.CodeValidation},
		{"unknown actor", ApplyEventInput{InstitutionID: inst.ID, EventType: outreach.EventEmailOpened, TriggeredBy: "ROBOT"}, domainagg.CodeValidation},
		{"manual by system", ApplyEventInput{InstitutionID: inst.ID, EventType: outreach.EventMarkedActive, TriggeredBy: outreach.TriggeredBySystem}, domainagg.CodeValidation},
		{"unknown institution", ApplyEventInput{InstitutionID: uuid.New(), EventType: outreach.EventEmailOpened, TriggeredBy: outreach.TriggeredBySystem}, domainagg.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.engagement.ApplyEvent(ctx, tc.in)
			if !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want code %s, got %v", tc.code, err)
			}
		})
	}

	got, err := s.engagement.GetInstitution(ctx, inst.ID)
	if err != nil {
		t.Fatalf("GetInstitution: %v", err)
	}
	if got.Version != inst.Version || got.RawScore != 10 {
		t.Fatalf("record changed by rejected events: %+v", got.Institution)
	}
}

func TestEngagementServiceSerializesSameInstitution(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()
	inst := s.seedInstitution(t, outreach.StateContacted, 0, testutil.PtrTime(s.clock.Now()))

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.engagement.ApplyEvent(ctx, ApplyEventInput{
				InstitutionID: inst.ID,
				EventType:     outreach.EventLinkClicked,
				TriggeredBy:   outreach.TriggeredBySystem,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("ApplyEvent: %v", err)
		}
	}

	got, err := s.engagement.GetInstitution(ctx, inst.ID)
	if err != nil {
		t.Fatalf("GetInstitution: %v", err)
	}
	if got.RawScore != 100 || got.State != outreach.StateEngaged {
		t.Fatalf("final record: score=%d state=%s", got.RawScore, got.State)
	}
	if got.Version != inst.Version+writers {
		t.Fatalf("version: want=%d got=%d", inst.Version+writers, got.Version)
	}
	n, err := s.repos.Events.CountByType(dbctx.Context{Ctx: ctx}, inst.ID, outreach.EventStateChanged)
	if err != nil {
		t.Fatalf("CountByType: %v", err)
	}
	if n != 1 {
		t.Fatalf("STATE_CHANGED count: want=1 got=%d", n)
	}
}

func TestEngagementServiceGetInstitutionReportsDecayedScore(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	last := s.clock.Now().Add(-10 * 24 * time.Hour)
	inst := s.seedInstitution(t, outreach.StateEngaged, 40, &last)

	got, err := s.engagement.GetInstitution(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("GetInstitution: %v", err)
	}
	if got.RawScore != 40 || got.EffectiveScore != 30 {
		t.Fatalf("scores: raw=%d effective=%d", got.RawScore, got.EffectiveScore)
	}

	if _, err := s.engagement.GetInstitution(context.Background(), uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing institution: want not_found, got %v", err)
	}
	if _, err := s.engagement.Timeline(context.Background(), uuid.New(), 10, repos.TimelineCursor{}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("timeline of missing institution: want not_found, got %v", err)
	}
}

func TestEngagementServiceRecordSignal(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()
	inst := s.seedInstitution(t, outreach.StateContacted, 0, testutil.PtrTime(s.clock.Now()))

	res, err := s.engagement.RecordSignal(ctx, inst.ID, engagement.SignalOpen, map[string]any{"campaign": "spring"})
	if err != nil {
		t.Fatalf("RecordSignal: %v", err)
	}
	if res.Event.EventType != outreach.EventEmailOpened || res.Event.TriggeredBy != outreach.TriggeredBySystem {
		t.Fatalf("event: %s by %s", res.Event.EventType, res.Event.TriggeredBy)
	}
	meta := res.Event.MetadataMap()
	if meta["signal"] != "open" || meta["campaign"] != "spring" {
		t.Fatalf("metadata: %v", meta)
	}
	if res.Score != 5 {
		t.Fatalf("score: want=5 got=%d", res.Score)
	}

	if _, err := s.engagement.RecordSignal(ctx, inst.ID, "bounce", nil); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown signal: want validation, got %v", err)
	}
}

func TestEngagementServiceAutoDraftsOnStateEntry(t *testing.T) {
	s := newOutreachStack(t, stackOptions{autoDraft: true})
	ctx := context.Background()
	inst := s.seedInstitution(t, outreach.StateUncontacted, 0, nil)

	if _, _, err := s.engagement.ApplyEvent(ctx, ApplyEventInput{
		InstitutionID: inst.ID,
		EventType:     outreach.EventEmailSent,
		TriggeredBy:   outreach.TriggeredBySystem,
	}); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	// no state change, no draft
	if _, _, err := s.engagement.ApplyEvent(ctx, ApplyEventInput{
		InstitutionID: inst.ID,
		EventType:     outreach.EventEmailOpened,
		TriggeredBy:   outreach.TriggeredBySystem,
	}); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	// archiving changes state but never solicits
	if _, _, err := s.engagement.ApplyEvent(ctx, ApplyEventInput{
		InstitutionID: inst.ID,
		EventType:     outreach.EventArchived,
		TriggeredBy:   outreach.TriggeredByHuman,
	}); err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.engagement.Drain(drainCtx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	drafts, err := s.review.ListByInstitution(ctx, inst.ID, 0)
	if err != nil {
		t.Fatalf("ListByInstitution: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("drafts: want=1 got=%d", len(drafts))
	}
	if s.provider.callCount() != 1 {
		t.Fatalf("provider calls: want=1 got=%d", s.provider.callCount())
	}
}

func TestEngagementServiceListInstitutionsValidatesState(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	if _, err := s.engagement.ListInstitutions(context.Background(), repos.InstitutionListFilter{State: "LOST"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
	inst := s.seedInstitution(t, outreach.StatePaused, 0, nil)
	rows, err := s.engagement.ListInstitutions(context.Background(), repos.InstitutionListFilter{State: outreach.StatePaused, Query: inst.Name})
	if err != nil {
		t.Fatalf("ListInstitutions: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != inst.ID {
		t.Fatalf("rows: %+v", rows)
	}
}

type panickingAggregate struct {
	domainagg.EngagementAggregate
	calls int
}

func (a *panickingAggregate) ApplyEvent(_ context.Context, in domainagg.ApplyEngagementEventInput) (domainagg.ApplyEngagementEventResult, error) {
	a.calls++
	if a.calls == 1 {
		panic("scorer blew up")
	}
	return domainagg.ApplyEngagementEventResult{
		PreviousState: outreach.StateContacted,
		State:         outreach.StateContacted,
		Score:         20,
	}, nil
}

func TestEngagementServiceReleasesLockAfterAggregatePanic(t *testing.T) {
	agg := &panickingAggregate{}
	svc := NewEngagementService(EngagementServiceDeps{
		Aggregate:   agg,
		LockTimeout: 100 * time.Millisecond,
	})
	in := ApplyEventInput{
		InstitutionID: uuid.New(),
		EventType:     outreach.EventEmailOpened,
		TriggeredBy:   outreach.TriggeredBySystem,
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _, _ = svc.ApplyEvent(context.Background(), in)
	}()

	state, _, err := svc.ApplyEvent(context.Background(), in)
	if err != nil {
		t.Fatalf("institution stayed locked after panic: %v", err)
	}
	if state != outreach.StateContacted || agg.calls != 2 {
		t.Fatalf("state=%s calls=%d", state, agg.calls)
	}
}
