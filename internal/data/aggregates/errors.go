package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
)

// Sentinels returned from inside a write. executeWrite turns them into coded errors.
var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
)

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tagged(ErrConflict, msg) }

// MapError assigns an aggregate code to err. Already coded errors pass through.
// Unknown failures become CodeInternal.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	code, ok := sentinelCode(err)
	if !ok {
		code, ok = postgresCode(err)
	}
	if !ok {
		code = driverMessageCode(err)
	}
	return domainagg.Wrap(code, op, err)
}

func sentinelCode(err error) (domainagg.ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.CodeValidation, true
	case errors.Is(err, ErrInvariant):
		return domainagg.CodeInvariantViolation, true
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.CodeConflict, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable, true
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound, true
	}
	return "", false
}

// postgresCode reads SQLSTATE from pgx errors.
func postgresCode(err error) (domainagg.ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch strings.TrimSpace(pgErr.Code) {
	case "23505": // unique_violation: a concurrent template publish took the version
		return domainagg.CodeConflict, true
	case "23503":
		return domainagg.CodePreconditionFailed, true
	case "40001", "40P01", "55P03":
		return domainagg.CodeRetryable, true
	}
	return "", false
}

// driverMessageCode covers sqlite, which reports constraint failures only as text.
func driverMessageCode(err error) domainagg.ErrorCode {
	msg := strings.ToLower(err.Error())
	has := func(parts ...string) bool {
		for _, p := range parts {
			if strings.Contains(msg, p) {
				return true
			}
		}
		return false
	}
	switch {
	case has("unique constraint failed", "duplicate key", "already exists"):
		return domainagg.CodeConflict
	case has("foreign key constraint failed"):
		return domainagg.CodePreconditionFailed
	case has("database is locked", "database table is locked", "deadlock", "serialization", "timeout", "temporar"):
		return domainagg.CodeRetryable
	}
	return domainagg.CodeInternal
}
