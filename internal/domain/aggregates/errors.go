package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"

	// CodeProviderUnavailable covers network, timeout and non-2xx failures of an
	// outbound provider (generation or mail).
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	// CodePolicyViolation marks content that breaks the outreach content policy.
	CodePolicyViolation ErrorCode = "policy_violation"
)

// Error carries a stable code next to the failing operation.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(parts) == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ": "), e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap codes err, keeping it as the cause. A nil err stays nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Transient reports whether repeating the whole operation may succeed: a lost
// version race or a retryable store failure.
func Transient(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeRetryable:
		return true
	}
	return false
}

func NotFound(op, message string) error { return NewError(CodeNotFound, op, message, nil) }
func Invalid(op, message string) error  { return NewError(CodeValidation, op, message, nil) }
func Conflict(op, message string) error { return NewError(CodeConflict, op, message, nil) }
