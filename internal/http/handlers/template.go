package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/http/response"
	"github.com/yungbote/outreach-backend/internal/platform/ctxutil"
	"github.com/yungbote/outreach-backend/internal/services"
)

type TemplateHandler struct {
	templates services.TemplateService
}

func NewTemplateHandler(templates services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// POST /api/templates/:stage/publish
func (h *TemplateHandler) Publish(c *gin.Context) {
	stage, ok := pathStage(c)
	if !ok {
		return
	}
	var content outreach.TemplateContent
	if !bindJSON(c, &content, false) {
		return
	}
	t, err := h.templates.Publish(c.Request.Context(), stage, content, ctxutil.GetOperator(c.Request.Context()))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"template": t})
}

// GET /api/templates/:stage/active
func (h *TemplateHandler) Active(c *gin.Context) {
	stage, ok := pathStage(c)
	if !ok {
		return
	}
	t, err := h.templates.Active(c.Request.Context(), stage)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"template": t})
}

// GET /api/templates/live
func (h *TemplateHandler) ActiveByStage(c *gin.Context) {
	live, err := h.templates.ActiveByStage(c.Request.Context())
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"templates": live})
}

// GET /api/templates/:stage/versions
func (h *TemplateHandler) Versions(c *gin.Context) {
	stage, ok := pathStage(c)
	if !ok {
		return
	}
	rows, err := h.templates.Versions(c.Request.Context(), stage)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"templates": rows})
}

// GET /api/templates/by-id/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_template_id")
	if !ok {
		return
	}
	t, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"template": t})
}

// POST /api/templates/:stage/drafts
func (h *TemplateHandler) CreateDraft(c *gin.Context) {
	stage, ok := pathStage(c)
	if !ok {
		return
	}
	var content outreach.TemplateContent
	if !bindJSON(c, &content, false) {
		return
	}
	t, err := h.templates.CreateDraft(c.Request.Context(), stage, content, ctxutil.GetOperator(c.Request.Context()))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"template": t})
}

// GET /api/templates/:stage/drafts?owner=
func (h *TemplateHandler) ListDrafts(c *gin.Context) {
	stage, ok := pathStage(c)
	if !ok {
		return
	}
	rows, err := h.templates.ListDrafts(c.Request.Context(), stage, c.Query("owner"))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"templates": rows})
}

// PATCH /api/templates/drafts/:id
func (h *TemplateHandler) UpdateDraft(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_template_id")
	if !ok {
		return
	}
	var content outreach.TemplateContent
	if !bindJSON(c, &content, false) {
		return
	}
	t, err := h.templates.UpdateDraft(c.Request.Context(), id, content, ctxutil.GetOperator(c.Request.Context()))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"template": t})
}

// POST /api/templates/drafts/:id/publish
func (h *TemplateHandler) PublishDraft(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_template_id")
	if !ok {
		return
	}
	t, err := h.templates.PublishDraft(c.Request.Context(), id, ctxutil.GetOperator(c.Request.Context()))
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"template": t})
}
