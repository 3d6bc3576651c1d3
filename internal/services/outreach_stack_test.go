package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/outreach-backend/internal/data/aggregates"
	"github.com/yungbote/outreach-backend/internal/data/repos"
	"github.com/yungbote/outreach-backend/internal/data/repos/testutil"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
	"github.com/yungbote/outreach-backend/internal/platform/sendgrid"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []outreach.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n outreach.Notification) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) kinds() []outreach.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]outreach.NotificationKind, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Kind)
	}
	return out
}

func (r *recordingNotifier) count(kind outreach.NotificationKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeProvider struct {
	mu     sync.Mutex
	doc    map[string]any
	err    error
	block  bool
	calls  int
	system string
	user   string
	schema string
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, system, user, schemaName string, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls++
	f.system, f.user, f.schema = system, user, schemaName
	doc, err, block := f.doc, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return doc, err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func validDoc(body string) map[string]any {
	return map[string]any{
		"subject":            "A program for your students",
		"preview_text":       "A short introduction",
		"body_html":          body,
		"sentiment_analysis": nil,
	}
}

type fakeMailer struct {
	mu    sync.Mutex
	calls int
	last  sendgrid.SendEmailRequest
	err   error
	delay time.Duration
}

func (m *fakeMailer) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &sendgrid.SendEmailResult{StatusCode: 202, MessageID: "msg-1"}, nil
}

type outreachStack struct {
	db       *gorm.DB
	repos    repos.Repos
	clock    *testClock
	notes    *recordingNotifier
	provider *fakeProvider
	mailer   *fakeMailer

	engagement EngagementService
	generator  DraftGenerator
	review     DraftReviewService
	sender     DraftSender
	templates  TemplateService
}

type stackOptions struct {
	autoDraft bool
	timeout   time.Duration
}

func newOutreachStack(t *testing.T, opts stackOptions) *outreachStack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	s := &outreachStack{
		db:       db,
		repos:    repos.New(db, log),
		clock:    &testClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)},
		notes:    &recordingNotifier{},
		provider: &fakeProvider{doc: validDoc("<p>We run a small reading program.</p>")},
		mailer:   &fakeMailer{},
	}

	pol, err := policy.Default()
	if err != nil {
		t.Fatalf("policy.Default: %v", err)
	}
	gen, err := NewDraftGenerator(DraftGeneratorDeps{
		Log:          log,
		Institutions: s.repos.Institutions,
		Drafts:       s.repos.Drafts,
		Templates:    s.repos.Templates,
		Provider:     s.provider,
		Policy:       pol,
		Notifier:     s.notes,
		Timeout:      opts.timeout,
		Clock:        s.clock.Now,
	})
	if err != nil {
		t.Fatalf("NewDraftGenerator: %v", err)
	}
	s.generator = gen

	scorer := engagement.NewScorer(engagement.DefaultConfig())
	base := aggregates.BaseDeps{DB: db, Log: log, Clock: s.clock.Now}
	deps := EngagementServiceDeps{
		DB:  db,
		Log: log,
		Aggregate: aggregates.NewEngagementAggregate(aggregates.EngagementAggregateDeps{
			Base:         base,
			Institutions: s.repos.Institutions,
			Events:       s.repos.Events,
			Scorer:       scorer,
		}),
		Institutions: s.repos.Institutions,
		Events:       s.repos.Events,
		Scorer:       scorer,
		Notifier:     s.notes,
		Clock:        s.clock.Now,
	}
	if opts.autoDraft {
		deps.AutoDraft = gen
	}
	s.engagement = NewEngagementService(deps)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.engagement.Drain(ctx)
	})

	s.review = NewDraftReviewService(s.repos.Drafts, s.notes, nil, log)
	s.sender = NewDraftSender(DraftSenderDeps{
		Log:        log,
		Drafts:     s.repos.Drafts,
		Mail:       s.mailer,
		Engagement: s.engagement,
		Notifier:   s.notes,
		Clock:      s.clock.Now,
	})
	s.templates = NewTemplateService(TemplateServiceDeps{
		Log:       log,
		Templates: s.repos.Templates,
		Aggregate: aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
			Base:      base,
			Templates: s.repos.Templates,
		}),
		Notifier: s.notes,
		Clock:    s.clock.Now,
	})
	return s
}

func (s *outreachStack) seedInstitution(t *testing.T, state outreach.EngagementState, score int, last *time.Time) *outreach.Institution {
	t.Helper()
	return testutil.SeedInstitution(t, context.Background(), s.db, "Inst "+t.Name(), state, score, last)
}
