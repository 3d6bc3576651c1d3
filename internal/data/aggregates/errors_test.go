package aggregates

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/yungbote/outreach-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_DriverMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"postgres unique", errors.New(`ERROR: duplicate key value violates unique constraint "idx_email_template_stage_version"`), domainagg.CodeConflict},
		{"sqlite unique", errors.New("UNIQUE constraint failed: email_template.stage, email_template.version"), domainagg.CodeConflict},
		{"gorm duplicated", gorm.ErrDuplicatedKey, domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), domainagg.CodePreconditionFailed},
		{"unknown", errors.New("disk on fire"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domainagg.CodeOf(MapError("op", tc.err)); got != tc.want {
				t.Fatalf("want=%s got=%s", tc.want, got)
			}
		})
	}
}

func TestMapError_PostgresCodes(t *testing.T) {
	cases := map[string]domainagg.ErrorCode{
		"23505": domainagg.CodeConflict,
		"23503": domainagg.CodePreconditionFailed,
		"40001": domainagg.CodeRetryable,
		"40P01": domainagg.CodeRetryable,
	}
	for code, want := range cases {
		err := MapError("op", &pgconn.PgError{Code: code, Message: "x"})
		if got := domainagg.CodeOf(err); got != want {
			t.Fatalf("pg %s: want=%s got=%s", code, want, got)
		}
	}
}
