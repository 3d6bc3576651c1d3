package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/http/response"
)

const maxBodyBytes = 1 << 20

func pathUUID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func pathStage(c *gin.Context) (outreach.EngagementState, bool) {
	st, ok := outreach.ParseState(c.Param("stage"))
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_stage", errors.New("unknown stage "+strconv.Quote(c.Param("stage"))))
		return "", false
	}
	return st, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, errors.New(name+" must be a non-negative integer"))
		return 0, false
	}
	return v, true
}

// bindJSON decodes a size-limited body. An empty body leaves dst untouched when
// allowEmpty is set.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if allowEmpty && c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return false
	}
	return true
}
