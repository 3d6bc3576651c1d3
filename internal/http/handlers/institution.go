package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/data/repos"
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/http/response"
	"github.com/yungbote/outreach-backend/internal/modules/engagement"
	"github.com/yungbote/outreach-backend/internal/platform/ctxutil"
	"github.com/yungbote/outreach-backend/internal/services"
)

type InstitutionHandler struct {
	engagement services.EngagementService
	generator  services.DraftGenerator
	drafts     services.DraftReviewService
}

func NewInstitutionHandler(engagement services.EngagementService, generator services.DraftGenerator, drafts services.DraftReviewService) *InstitutionHandler {
	return &InstitutionHandler{engagement: engagement, generator: generator, drafts: drafts}
}

type createInstitutionRequest struct {
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain"`
}

// POST /api/institutions
func (h *InstitutionHandler) Create(c *gin.Context) {
	var req createInstitutionRequest
	if !bindJSON(c, &req, false) {
		return
	}
	inst, err := h.engagement.CreateInstitution(c.Request.Context(), services.CreateInstitutionInput{Name: req.Name, Domain: req.Domain})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"institution": inst})
}

// GET /api/institutions?state=&q=&limit=&offset=
func (h *InstitutionHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	filter := repos.InstitutionListFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		filter.State = outreach.EngagementState(strings.ToUpper(raw))
	}
	rows, err := h.engagement.ListInstitutions(c.Request.Context(), filter)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"institutions": rows})
}

// GET /api/institutions/:id
func (h *InstitutionHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	inst, err := h.engagement.GetInstitution(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"institution": inst})
}

type applyEventRequest struct {
	EventType   string         `json:"event_type" binding:"required"`
	TriggeredBy string         `json:"triggered_by"`
	Metadata    map[string]any `json:"metadata"`
	Description string         `json:"description"`
}

// POST /api/institutions/:id/events
func (h *InstitutionHandler) ApplyEvent(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	var req applyEventRequest
	if !bindJSON(c, &req, false) {
		return
	}
	// unknown values are passed through and rejected by the service
	et, _ := outreach.ParseEventType(req.EventType)
	by := outreach.TriggeredByHuman
	if strings.TrimSpace(req.TriggeredBy) != "" {
		by, _ = outreach.ParseTriggeredBy(req.TriggeredBy)
	}
	meta := req.Metadata
	if op := ctxutil.GetOperator(c.Request.Context()); op != "" && by == outreach.TriggeredByHuman {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["operator"] = op
	}

	state, ev, err := h.engagement.ApplyEvent(c.Request.Context(), services.ApplyEventInput{
		InstitutionID: id,
		EventType:     et,
		TriggeredBy:   by,
		Metadata:      meta,
		Description:   req.Description,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state, "event": ev})
}

type recordSignalRequest struct {
	Signal   string         `json:"signal" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// POST /api/institutions/:id/signals
func (h *InstitutionHandler) RecordSignal(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	var req recordSignalRequest
	if !bindJSON(c, &req, false) {
		return
	}
	res, err := h.engagement.RecordSignal(c.Request.Context(), id, engagement.ParseSignal(req.Signal), req.Metadata)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"state":       res.State,
		"score":       res.Score,
		"event":       res.Event,
		"transition":  res.StateChange,
		"prior_state": res.PreviousState,
	})
}

// GET /api/institutions/:id/timeline?limit=&before=&before_id=
func (h *InstitutionHandler) Timeline(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	var cursor repos.TimelineCursor
	rawBefore, rawID := strings.TrimSpace(c.Query("before")), strings.TrimSpace(c.Query("before_id"))
	if (rawBefore == "") != (rawID == "") {
		response.RespondError(c, http.StatusBadRequest, "invalid_cursor", errors.New("before and before_id must be given together"))
		return
	}
	if rawBefore != "" {
		at, err := time.Parse(time.RFC3339Nano, rawBefore)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_before", err)
			return
		}
		bid, err := uuid.Parse(rawID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_before_id", err)
			return
		}
		cursor = repos.TimelineCursor{OccurredAt: at, ID: bid}
	}
	events, err := h.engagement.Timeline(c.Request.Context(), id, limit, cursor)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	out := gin.H{"events": events}
	if n := len(events); n > 0 {
		last := events[n-1]
		out["next_cursor"] = gin.H{"before": last.OccurredAt.UTC().Format(time.RFC3339Nano), "before_id": last.ID}
	}
	response.RespondOK(c, out)
}

type generateDraftRequest struct {
	Recipient    services.Recipient `json:"recipient"`
	TriggerEvent string             `json:"trigger_event"`
	Payload      map[string]any     `json:"payload"`
	History      []string           `json:"history"`
	Instructions string             `json:"instructions"`
}

// POST /api/institutions/:id/drafts
//
// A generated draft answers 201. Provider and validation failures are outcomes, not
// errors, and answer 200 with the reason and whether a retry may help.
func (h *InstitutionHandler) GenerateDraft(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	if h.generator == nil {
		response.RespondError(c, http.StatusServiceUnavailable, "generation_disabled", errors.New("draft generation is not configured"))
		return
	}
	var req generateDraftRequest
	if !bindJSON(c, &req, true) {
		return
	}
	out, err := h.generator.Generate(c.Request.Context(), services.GenerateInput{
		InstitutionID: id,
		Recipient:     req.Recipient,
		TriggerEvent:  req.TriggerEvent,
		Payload:       req.Payload,
		History:       req.History,
		Instructions:  req.Instructions,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if out.Draft != nil {
		response.RespondCreated(c, gin.H{"outcome": out})
		return
	}
	response.RespondOK(c, gin.H{"outcome": out})
}

// GET /api/institutions/:id/drafts
func (h *InstitutionHandler) ListDrafts(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_institution_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	rows, err := h.drafts.ListByInstitution(c.Request.Context(), id, limit)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"drafts": rows})
}
