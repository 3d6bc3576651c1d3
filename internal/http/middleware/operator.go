package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/outreach-backend/internal/platform/ctxutil"
)

const headerOperator = "X-Operator"

// AttachOperator carries the asserted operator identity into the request context.
func AttachOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if op := strings.TrimSpace(c.GetHeader(headerOperator)); op != "" {
			c.Request = c.Request.WithContext(ctxutil.WithOperator(c.Request.Context(), op))
			c.Set("operator", op)
		}
		c.Next()
	}
}
