package ctxutil

import (
	"context"
	"strings"
)

type operatorKey struct{}

// OperatorData identifies the human operator behind a request. Authentication happens
// upstream; this only carries the asserted identity.
type OperatorData struct {
	Operator string
}

func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(Default(ctx), operatorKey{}, &OperatorData{Operator: strings.TrimSpace(operator)})
}

func GetOperator(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if od, ok := ctx.Value(operatorKey{}).(*OperatorData); ok && od != nil {
		return od.Operator
	}
	return ""
}
