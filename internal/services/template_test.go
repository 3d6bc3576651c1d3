package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/outreach-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/platform/dbctx"
)

func content(subject string) outreach.TemplateContent {
	return outreach.TemplateContent{
		Subject:     subject,
		PreviewText: "preview",
		BodyHTML:    "<p>" + subject + "</p>",
		AIInstructions: outreach.AIInstructions{
			Tone:            "warm",
			ReferenceTopics: []string{"pilot cohort"},
		},
	}
}

func TestTemplatePublishAssignsIncreasingVersions(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()

	base, err := s.repos.Templates.MaxPublishedVersion(dbctx.Context{Ctx: ctx}, outreach.StateReady)
	require.NoError(t, err)

	var last *outreach.EmailTemplate
	for i := 1; i <= 3; i++ {
		last, err = s.templates.Publish(ctx, outreach.StateReady, content("welcome"), "editor@team")
		require.NoError(t, err)
		assert.Equal(t, base+i, last.Version)
		assert.Equal(t, outreach.TemplatePublished, last.Status)
		require.NotNil(t, last.PublishedAt)
	}

	active, err := s.templates.Active(ctx, outreach.StateReady)
	require.NoError(t, err)
	assert.Equal(t, last.ID, active.ID)
	assert.Equal(t, "warm", active.Instructions().Tone)

	versions, err := s.templates.Versions(ctx, outreach.StateReady)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(versions), 3)
	assert.Equal(t, base+3, versions[0].Version)
	assert.Equal(t, base+2, versions[1].Version)
	assert.Equal(t, 3, s.notes.count(outreach.NotifyTemplateLive))
}

func TestTemplatePublishValidation(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()

	_, err := s.templates.Publish(ctx, "LOST", content("x"), "editor@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	_, err = s.templates.Publish(ctx, outreach.StatePaused, content(" "), "editor@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))
	_, err = s.templates.Publish(ctx, outreach.StatePaused, content("x"), "")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation))

	_, err = s.templates.Active(ctx, outreach.StateArchived)
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestTemplateConcurrentPublishesGetDistinctVersions(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()
	base, err := s.repos.Templates.MaxPublishedVersion(dbctx.Context{Ctx: ctx}, outreach.StateActive)
	require.NoError(t, err)

	const publishers = 6
	var (
		mu       sync.Mutex
		versions []int
		wg       sync.WaitGroup
	)
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tmpl, err := s.templates.Publish(ctx, outreach.StateActive, content("account care"), "editor@team")
			if err != nil {
				t.Errorf("Publish: %v", err)
				return
			}
			mu.Lock()
			versions = append(versions, tmpl.Version)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(versions)
	require.Len(t, versions, publishers)
	for i, v := range versions {
		assert.Equal(t, base+i+1, v)
	}
}

func TestTemplateDraftLifecycle(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()

	draft, err := s.templates.CreateDraft(ctx, outreach.StateEvaluating, content("first pass"), "alice@team")
	require.NoError(t, err)
	assert.Equal(t, 0, draft.Version)
	assert.Equal(t, outreach.TemplateDraft, draft.Status)

	_, err = s.templates.UpdateDraft(ctx, draft.ID, content("bob's edit"), "bob@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodePreconditionFailed))

	updated, err := s.templates.UpdateDraft(ctx, draft.ID, content("second pass"), "alice@team")
	require.NoError(t, err)
	assert.Equal(t, "second pass", updated.Subject)

	mine, err := s.templates.ListDrafts(ctx, outreach.StateEvaluating, "alice@team")
	require.NoError(t, err)
	require.NotEmpty(t, mine)

	_, err = s.templates.PublishDraft(ctx, draft.ID, "bob@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodePreconditionFailed))

	published, err := s.templates.PublishDraft(ctx, draft.ID, "alice@team")
	require.NoError(t, err)
	assert.Equal(t, "second pass", published.Subject)
	assert.Greater(t, published.Version, 0)

	locked, err := s.templates.Get(ctx, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, locked.PublishedVersion)
	assert.Equal(t, published.Version, *locked.PublishedVersion)

	_, err = s.templates.UpdateDraft(ctx, draft.ID, content("too late"), "alice@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))
	_, err = s.templates.PublishDraft(ctx, draft.ID, "alice@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeConflict))

	_, err = s.templates.PublishDraft(ctx, published.ID, "alice@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound))
}

func TestTemplatePublishGivesUpOnBusyStage(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()
	locker := NewLocalLocker()
	svc := NewTemplateService(TemplateServiceDeps{
		Templates: s.repos.Templates,
		Aggregate: aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
			Base:      aggregates.BaseDeps{DB: s.db},
			Templates: s.repos.Templates,
		}),
		Locker:      locker,
		LockTimeout: 50 * time.Millisecond,
	})

	unlock, err := locker.Lock(ctx, "template:"+string(outreach.StateEngaged))
	require.NoError(t, err)
	start := time.Now()
	_, err = svc.Publish(ctx, outreach.StateEngaged, content("follow up"), "editor@team")
	assert.True(t, domainagg.IsCode(err, domainagg.CodeRetryable), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)

	unlock()
	tmpl, err := svc.Publish(ctx, outreach.StateEngaged, content("follow up"), "editor@team")
	require.NoError(t, err)
	assert.Equal(t, outreach.StateEngaged, tmpl.Stage)
}

func TestTemplateActiveByStageReturnsLiveVersions(t *testing.T) {
	s := newOutreachStack(t, stackOptions{})
	ctx := context.Background()

	_, err := s.templates.Publish(ctx, outreach.StateEvaluating, content("pilot v1"), "editor@team")
	require.NoError(t, err)
	latest, err := s.templates.Publish(ctx, outreach.StateEvaluating, content("pilot v2"), "editor@team")
	require.NoError(t, err)
	declined, err := s.templates.Publish(ctx, outreach.StateDeclined, content("one more idea"), "editor@team")
	require.NoError(t, err)
	_, err = s.templates.CreateDraft(ctx, outreach.StateEvaluating, content("pilot v3"), "editor@team")
	require.NoError(t, err)

	live, err := s.templates.ActiveByStage(ctx)
	require.NoError(t, err)
	require.NotNil(t, live[outreach.StateEvaluating])
	assert.Equal(t, latest.ID, live[outreach.StateEvaluating].ID)
	require.NotNil(t, live[outreach.StateDeclined])
	assert.Equal(t, declined.ID, live[outreach.StateDeclined].ID)
}
