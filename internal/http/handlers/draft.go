package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/outreach-backend/internal/http/response"
	"github.com/yungbote/outreach-backend/internal/platform/ctxutil"
	"github.com/yungbote/outreach-backend/internal/services"
)

type DraftHandler struct {
	review services.DraftReviewService
	sender services.DraftSender
}

func NewDraftHandler(review services.DraftReviewService, sender services.DraftSender) *DraftHandler {
	return &DraftHandler{review: review, sender: sender}
}

// GET /api/drafts/pending?limit=
func (h *DraftHandler) ListPending(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	rows, err := h.review.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"drafts": rows})
}

// GET /api/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	d, err := h.review.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d, "flags": d.FlagList()})
}

type approveDraftRequest struct {
	AcknowledgeFlags bool `json:"acknowledge_flags"`
}

// POST /api/drafts/:id/approve
func (h *DraftHandler) Approve(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	var req approveDraftRequest
	if !bindJSON(c, &req, true) {
		return
	}
	d, err := h.review.Approve(c.Request.Context(), id, ctxutil.GetOperator(c.Request.Context()), req.AcknowledgeFlags)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}

type rejectDraftRequest struct {
	Reason string `json:"reason"`
}

// POST /api/drafts/:id/reject
func (h *DraftHandler) Reject(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	var req rejectDraftRequest
	if !bindJSON(c, &req, true) {
		return
	}
	d, err := h.review.Reject(c.Request.Context(), id, ctxutil.GetOperator(c.Request.Context()), req.Reason)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}

type sendDraftRequest struct {
	ToEmail string `json:"to_email" binding:"required"`
	ToName  string `json:"to_name"`
}

// POST /api/drafts/:id/send
func (h *DraftHandler) Send(c *gin.Context) {
	id, ok := pathUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	var req sendDraftRequest
	if !bindJSON(c, &req, false) {
		return
	}
	d, err := h.sender.Send(c.Request.Context(), id, req.ToEmail, req.ToName)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}
