package apierr

import (
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError classifies a service error into an HTTP status and a stable code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	code := domainagg.CodeOf(err)
	switch code {
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, string(code), err)
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, string(code), err)
	case domainagg.CodeConflict, domainagg.CodePreconditionFailed:
		return New(http.StatusConflict, string(code), err)
	case domainagg.CodePolicyViolation, domainagg.CodeInvariantViolation:
		return New(http.StatusUnprocessableEntity, string(code), err)
	case domainagg.CodeProviderUnavailable, domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, string(code), err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
