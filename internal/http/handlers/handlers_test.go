package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/http/middleware"
	"github.com/yungbote/outreach-backend/internal/services"
)

type fakeEngagement struct {
	services.EngagementService
	lastApply services.ApplyEventInput
	applyErr  error
	getErr    error
	timelineN int
}

func (f *fakeEngagement) ApplyEvent(_ context.Context, in services.ApplyEventInput) (outreach.EngagementState, *outreach.OutreachEvent, error) {
	f.lastApply = in
	if f.applyErr != nil {
		return "", nil, f.applyErr
	}
	return outreach.StateContacted, &outreach.OutreachEvent{ID: uuid.New(), InstitutionID: in.InstitutionID, EventType: in.EventType}, nil
}

func (f *fakeEngagement) GetInstitution(_ context.Context, id uuid.UUID) (*services.InstitutionView, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &services.InstitutionView{Institution: &outreach.Institution{ID: id, Name: "Lakeside", State: outreach.StateEngaged}, EffectiveScore: 42}, nil
}

func (f *fakeEngagement) Timeline(_ context.Context, _ uuid.UUID, _ int, _ repos.TimelineCursor) ([]*outreach.OutreachEvent, error) {
	f.timelineN++
	return nil, nil
}

type fakeGenerator struct {
	services.DraftGenerator
	out services.GenerateOutcome
}

func (f *fakeGenerator) Generate(_ context.Context, in services.GenerateInput) (services.GenerateOutcome, error) {
	return f.out, nil
}

type fakeReview struct {
	services.DraftReviewService
	reviewer string
	ack      bool
}

func (f *fakeReview) Approve(_ context.Context, id uuid.UUID, reviewer string, ack bool) (*outreach.Draft, error) {
	f.reviewer, f.ack = reviewer, ack
	yes := true
	return &outreach.Draft{ID: id, Approved: &yes, ApprovedBy: reviewer}, nil
}

func newTestEngine(eng services.EngagementService, gen services.DraftGenerator, review services.DraftReviewService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AttachOperator())
	ih := NewInstitutionHandler(eng, gen, review)
	dh := NewDraftHandler(review, nil)
	r.GET("/institutions/:id", ih.Get)
	r.POST("/institutions/:id/events", ih.ApplyEvent)
	r.GET("/institutions/:id/timeline", ih.Timeline)
	r.POST("/institutions/:id/drafts", ih.GenerateDraft)
	r.POST("/drafts/:id/approve", dh.Approve)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

func TestApplyEventDefaultsToHumanAndRecordsOperator(t *testing.T) {
	eng := &fakeEngagement{}
	r := newTestEngine(eng, nil, nil)
	id := uuid.New()

	rr := do(t, r, http.MethodPost, "/institutions/"+id.String()+"/events",
		`{"event_type":"marked_evaluating","description":"call booked"}`,
		map[string]string{"X-Operator": "dana"})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, id, eng.lastApply.InstitutionID)
	assert.Equal(t, outreach.EventMarkedEvaluating, eng.lastApply.EventType)
	assert.Equal(t, outreach.TriggeredByHuman, eng.lastApply.TriggeredBy)
	assert.Equal(t, "dana", eng.lastApply.Metadata["operator"])

	var out struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, string(outreach.StateContacted), out.State)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domainagg.NotFound("op", "institution not found"), http.StatusNotFound, string(domainagg.CodeNotFound)},
		{"validation", domainagg.Invalid("op", "bad event"), http.StatusBadRequest, string(domainagg.CodeValidation)},
		{"conflict", domainagg.Conflict("op", "stale"), http.StatusConflict, string(domainagg.CodeConflict)},
		{"internal", errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestEngine(&fakeEngagement{getErr: tc.err}, nil, nil)
			rr := do(t, r, http.MethodGet, "/institutions/"+uuid.NewString(), "", nil)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			code, msg := errorCode(t, rr)
			assert.Equal(t, tc.code, code)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, msg, "dial tcp")
			}
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	r := newTestEngine(&fakeEngagement{}, nil, nil)
	rr := do(t, r, http.MethodGet, "/institutions/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	code, _ := errorCode(t, rr)
	assert.Equal(t, "invalid_institution_id", code)
}

func TestTimelineCursorMustBePaired(t *testing.T) {
	eng := &fakeEngagement{}
	r := newTestEngine(eng, nil, nil)
	base := "/institutions/" + uuid.NewString() + "/timeline"

	rr := do(t, r, http.MethodGet, base+"?before=2026-01-02T03:04:05Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodGet, base+"?before=yesterday&before_id="+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodGet, base+"?limit=5&before=2026-01-02T03:04:05Z&before_id="+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 1, eng.timelineN)
}

func TestGenerateDraftStatus(t *testing.T) {
	id := uuid.New()

	gen := &fakeGenerator{out: services.GenerateOutcome{Draft: &outreach.Draft{ID: uuid.New()}, Reason: services.ReasonGenerated}}
	r := newTestEngine(&fakeEngagement{}, gen, nil)
	rr := do(t, r, http.MethodPost, "/institutions/"+id.String()+"/drafts", "", nil)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	gen.out = services.GenerateOutcome{Reason: services.ReasonProviderUnavailable, Retryable: true}
	rr = do(t, r, http.MethodPost, "/institutions/"+id.String()+"/drafts", `{"recipient":{"name":"Sam"}}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Outcome struct {
			Reason    string `json:"reason"`
			Retryable bool   `json:"retryable"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, string(services.ReasonProviderUnavailable), out.Outcome.Reason)
	assert.True(t, out.Outcome.Retryable)
}

func TestGenerateDraftWithoutGenerator(t *testing.T) {
	r := newTestEngine(&fakeEngagement{}, nil, nil)
	rr := do(t, r, http.MethodPost, "/institutions/"+uuid.NewString()+"/drafts", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestApproveUsesOperatorAsReviewer(t *testing.T) {
	review := &fakeReview{}
	r := newTestEngine(&fakeEngagement{}, nil, review)
	rr := do(t, r, http.MethodPost, "/drafts/"+uuid.NewString()+"/approve", `{"acknowledge_flags":true}`,
		map[string]string{"X-Operator": "reviewer-1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "reviewer-1", review.reviewer)
	assert.True(t, review.ack)
}
